package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodfinder/m/domain"
)

func TestFulfillDeductsEarliestExpiryFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.account(t, "bank", domain.RoleBloodBank, "Boston", "02101")
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")

	first := f.stock(t, bank, domain.APositive, 4, date(2025, 1, 1))
	second := f.stock(t, bank, domain.APositive, 4, date(2025, 6, 1))
	r := f.request(t, user, domain.APositive, 6)

	got, donation, err := f.fulfiller.Fulfill(ctx, bank, r.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFulfilled, got.Status)
	assert.Equal(t, bank.ID, got.FulfilledBy)
	assert.Equal(t, 6, got.UnitsRequired)

	_, err = f.store.GetStockEntry(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrStockNotFound)
	remaining, err := f.store.GetStockEntry(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining.Quantity)

	stored, err := f.store.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFulfilled, stored.Status)
	assert.Equal(t, bank.ID, stored.FulfilledBy)

	donations, err := f.store.ListDonationsByBank(ctx, bank.ID)
	require.NoError(t, err)
	require.Len(t, donations, 1)
	assert.Equal(t, donation.ID, donations[0].ID)
	assert.Equal(t, domain.APositive, donations[0].BloodGroup)
	assert.Equal(t, 6, donations[0].Quantity)
	assert.Equal(t, user.ID, donations[0].DonorID)
}

func TestFulfillInsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.account(t, "bank", domain.RoleBloodBank, "Boston", "02101")
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")

	f.stock(t, bank, domain.ONegative, 5, date(2025, 2, 1))
	f.stock(t, bank, domain.ONegative, 4, date(2025, 3, 1))
	r := f.request(t, user, domain.ONegative, 10)

	_, _, err := f.fulfiller.Fulfill(ctx, bank, r.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.ErrorIs(t, err, domain.ErrConflict)

	total, err := f.store.TotalForGroup(ctx, bank.ID, domain.ONegative)
	require.NoError(t, err)
	assert.Equal(t, 9, total)

	entries, err := f.store.ListStockForGroup(ctx, bank.ID, domain.ONegative)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	stored, err := f.store.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Empty(t, stored.FulfilledBy)

	donations, err := f.store.ListDonationsByBank(ctx, bank.ID)
	require.NoError(t, err)
	assert.Empty(t, donations)
}

func TestFulfillTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.account(t, "bank", domain.RoleBloodBank, "Boston", "02101")
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")

	f.stock(t, bank, domain.BPositive, 10, date(2025, 2, 1))
	r := f.request(t, user, domain.BPositive, 3)

	_, _, err := f.fulfiller.Fulfill(ctx, bank, r.ID)
	require.NoError(t, err)

	_, _, err = f.fulfiller.Fulfill(ctx, bank, r.ID)
	assert.ErrorIs(t, err, domain.ErrRequestNotActive)

	total, err := f.store.TotalForGroup(ctx, bank.ID, domain.BPositive)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
}

func TestFulfillConcurrentBanksOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")
	banks := []*domain.Account{
		f.account(t, "bank1", domain.RoleBloodBank, "Boston", ""),
		f.account(t, "bank2", domain.RoleBloodBank, "Boston", ""),
		f.account(t, "bank3", domain.RoleBloodBank, "", "02101"),
	}
	for _, b := range banks {
		f.stock(t, b, domain.ABNegative, 5, date(2025, 2, 1))
	}
	r := f.request(t, user, domain.ABNegative, 5)

	var wg sync.WaitGroup
	errs := make([]error, len(banks))
	for i, b := range banks {
		wg.Add(1)
		go func(i int, b *domain.Account) {
			defer wg.Done()
			_, _, errs[i] = f.fulfiller.Fulfill(ctx, b, r.ID)
		}(i, b)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrRequestNotActive)
	}
	assert.Equal(t, 1, winners)

	drained := 0
	for _, b := range banks {
		total, err := f.store.TotalForGroup(ctx, b.ID, domain.ABNegative)
		require.NoError(t, err)
		if total == 0 {
			drained++
		}
	}
	assert.Equal(t, 1, drained)
}

func TestFulfillRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.account(t, "bank", domain.RoleBloodBank, "Boston", "02101")
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")
	f.stock(t, bank, domain.APositive, 10, date(2025, 2, 1))
	r := f.request(t, user, domain.APositive, 1)

	_, _, err := f.fulfiller.Fulfill(ctx, user, r.ID)
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	_, _, err = f.fulfiller.Fulfill(ctx, bank, "missing")
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)

	require.NoError(t, f.registry.Close(ctx, user, r.ID))
	_, _, err = f.fulfiller.Fulfill(ctx, bank, r.ID)
	assert.ErrorIs(t, err, domain.ErrRequestNotActive)
}

func TestFulfillRequiresMatchingLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")
	far := f.account(t, "far", domain.RoleBloodBank, "Chicago", "60601")
	homeless := f.account(t, "homeless", domain.RoleBloodBank, "", "")
	near := f.account(t, "near", domain.RoleBloodBank, " BOSTON ", "")
	for _, bank := range []*domain.Account{far, homeless, near} {
		f.stock(t, bank, domain.APositive, 5, date(2025, 2, 1))
	}
	r := f.request(t, user, domain.APositive, 2)

	for _, bank := range []*domain.Account{far, homeless} {
		_, _, err := f.fulfiller.Fulfill(ctx, bank, r.ID)
		assert.ErrorIs(t, err, domain.ErrRequestNotFound, bank.Name)

		total, err := f.ledger.TotalForGroup(ctx, bank, domain.APositive)
		require.NoError(t, err)
		assert.Equal(t, 5, total, bank.Name)
	}

	got, _, err := f.fulfiller.Fulfill(ctx, near, r.ID)
	require.NoError(t, err)
	assert.Equal(t, near.ID, got.FulfilledBy)
}
