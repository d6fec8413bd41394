package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodfinder/m/domain"
)

func TestCreateSetsExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")

	tests := []struct {
		timeNeeded string
		want       time.Duration
	}{
		{"2 hours", 2 * time.Hour},
		{"12", 12 * time.Hour},
		{"garbage", 24 * time.Hour},
		{"0 hours", 24 * time.Hour},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.timeNeeded, func(t *testing.T) {
			in := requestInput(domain.APositive, 1)
			in.TimeNeeded = tt.timeNeeded
			r, err := f.registry.Create(ctx, user, in)
			if tt.want == 0 {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.WithinDuration(t, f.clock.Now().Add(tt.want), r.ExpireAt, 5*time.Second)
			assert.Equal(t, domain.StatusActive, r.Status)
			assert.Equal(t, 1, r.Version)
		})
	}
	f.notifier.Wait()
}

func TestCreateNotifiesNearbyAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.account(t, "creator", domain.RoleDonor, "Boston", "02101")
	donor := f.account(t, "donor", domain.RoleDonor, "Boston", "02115")
	bank := f.account(t, "bank", domain.RoleBloodBank, "Brookline", "02101")
	f.account(t, "lab", domain.RoleTestLab, "Boston", "02101")
	f.account(t, "nyc", domain.RoleDonor, "New York", "10001")
	f.account(t, "nyc-bank", domain.RoleBloodBank, "New York", "10002")

	r := f.request(t, creator, domain.APositive, 2)

	for _, a := range []string{donor.ID, bank.ID} {
		page, err := f.notifier.List(ctx, &domain.Account{ID: a}, 0, 0)
		require.NoError(t, err)
		require.Len(t, page.Notifications, 1)
		assert.Equal(t, "New 'Critical' request for A+ blood in your area (Boston).", page.Notifications[0].Message)
		assert.Equal(t, domain.EmergencyLink, page.Notifications[0].Link)
		assert.Equal(t, 1, page.UnreadCount)
	}

	for _, email := range []string{"creator", "lab", "nyc", "nyc-bank"} {
		a, err := f.store.GetAccountByEmail(ctx, email+"@example.com")
		require.NoError(t, err)
		unread, err := f.store.CountUnread(ctx, a.ID)
		require.NoError(t, err)
		assert.Zero(t, unread, email)
	}

	assert.Equal(t, 2, f.publisher.count())
	assert.Equal(t, domain.StatusActive, r.Status)
}

func TestListForBank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")
	bank := f.account(t, "bank", domain.RoleBloodBank, "boston", "")
	farBank := f.account(t, "far", domain.RoleBloodBank, "Chicago", "60601")
	homeless := f.account(t, "homeless", domain.RoleBloodBank, "", "")

	f.stock(t, bank, domain.APositive, 5, date(2025, 2, 1))
	f.stock(t, farBank, domain.APositive, 50, date(2025, 2, 1))

	small := f.request(t, user, domain.APositive, 5)
	f.clock.Advance(time.Second)
	f.request(t, user, domain.APositive, 6)
	f.request(t, user, domain.BPositive, 1)

	first, err := f.registry.ListForBank(ctx, bank)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, small.ID, first[0].ID)

	second, err := f.registry.ListForBank(ctx, bank)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)

	far, err := f.registry.ListForBank(ctx, farBank)
	require.NoError(t, err)
	assert.Empty(t, far)

	none, err := f.registry.ListForBank(ctx, homeless)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.registry.ListForBank(ctx, user)
	assert.ErrorIs(t, err, domain.ErrBloodBankRequired)
}

func TestListForBankHidesExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")
	bank := f.account(t, "bank", domain.RoleBloodBank, "Boston", "02101")
	f.stock(t, bank, domain.APositive, 5, date(2025, 2, 1))

	f.request(t, user, domain.APositive, 1)
	f.clock.Advance(3 * time.Hour)

	list, err := f.registry.ListForBank(ctx, bank)
	require.NoError(t, err)
	assert.Empty(t, list)

	mine, err := f.registry.Mine(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestUpdateRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")
	other := f.account(t, "other", domain.RoleDonor, "Boston", "02101")
	r := f.request(t, user, domain.APositive, 2)

	_, err := f.registry.Update(ctx, other, r.ID, 0, func(in *domain.RequestInput) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotRequestCreator)

	f.clock.Advance(time.Hour)
	updated, err := f.registry.Update(ctx, user, r.ID, 1, func(in *domain.RequestInput) error {
		return json.Unmarshal([]byte(`{"unitsRequired": 4, "timeNeeded": "5 hours"}`), in)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.UnitsRequired)
	assert.Equal(t, "Jane Doe", updated.PatientName)
	assert.Equal(t, 2, updated.Version)
	assert.WithinDuration(t, f.clock.Now().Add(5*time.Hour), updated.ExpireAt, time.Second)

	_, err = f.registry.Update(ctx, user, r.ID, 1, func(in *domain.RequestInput) error { return nil })
	assert.ErrorIs(t, err, domain.ErrVersionMismatch)

	_, err = f.registry.Update(ctx, user, r.ID, 0, func(in *domain.RequestInput) error {
		in.UnitsRequired = 0
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	unchanged, err := f.registry.Update(ctx, user, r.ID, 0, func(in *domain.RequestInput) error {
		in.HospitalName = "Mercy"
		return nil
	})
	require.NoError(t, err)
	assert.True(t, unchanged.ExpireAt.Equal(updated.ExpireAt))
}

func TestCloseRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "user", domain.RoleDonor, "Boston", "02101")
	other := f.account(t, "other", domain.RoleDonor, "Boston", "02101")
	r := f.request(t, user, domain.APositive, 2)

	assert.ErrorIs(t, f.registry.Close(ctx, other, r.ID), domain.ErrNotRequestCreator)
	require.NoError(t, f.registry.Close(ctx, user, r.ID))
	assert.ErrorIs(t, f.registry.Close(ctx, user, r.ID), domain.ErrRequestNotActive)

	mine, err := f.registry.Mine(ctx, user)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.StatusClosed, mine[0].Status)

	_, err = f.registry.Update(ctx, user, r.ID, 0, func(in *domain.RequestInput) error { return nil })
	assert.ErrorIs(t, err, domain.ErrRequestNotActive)
}
