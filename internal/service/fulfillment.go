package service

import (
	"context"
	"time"

	"bloodfinder/m/domain"
	"bloodfinder/m/internal/repository"
)

// Fulfiller serves emergency requests from a bank's stock.
type Fulfiller struct {
	store repository.Store
	now   func() time.Time
}

// NewFulfiller creates a fulfiller.
func NewFulfiller(store repository.Store) *Fulfiller {
	return &Fulfiller{store: store, now: time.Now}
}

// SetClock replaces the clock used for the fulfillment time.
func (f *Fulfiller) SetClock(now func() time.Time) {
	f.now = now
}

// Fulfill serves request id from bank's stock, earliest expiry first, marks
// the request Fulfilled and records the donation. Only banks in the
// request's area may fulfill it. Everything happens in one
// transaction: the status change only applies to a request that is still
// Active, and any failure leaves stock and request untouched.
func (f *Fulfiller) Fulfill(ctx context.Context, bank *domain.Account, id string) (*domain.EmergencyRequest, *domain.DonationRecord, error) {
	if err := requireBank(bank); err != nil {
		return nil, nil, err
	}

	var (
		request  *domain.EmergencyRequest
		donation *domain.DonationRecord
	)
	err := f.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		// banks outside the request's area never see it in their listing
		if !domain.Matches(bank.Location(), r.Location()) {
			return domain.ErrRequestNotFound
		}
		if !r.IsActive() {
			return domain.ErrRequestNotActive
		}

		now := f.now()
		if err := tx.TransitionRequest(ctx, r.ID, domain.StatusFulfilled, bank.ID, now); err != nil {
			return err
		}
		if _, err := deduct(ctx, tx, bank.ID, r.BloodGroup, r.UnitsRequired); err != nil {
			return err
		}

		d := domain.NewDonationRecord(r, bank.ID, now)
		if err := tx.CreateDonation(ctx, d); err != nil {
			return err
		}

		r.Status = domain.StatusFulfilled
		r.FulfilledBy = bank.ID
		r.Version++
		r.UpdatedAt = now
		request, donation = r, d
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return request, donation, nil
}
