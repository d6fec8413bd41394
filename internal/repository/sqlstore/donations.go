package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bloodfinder/m/domain"
)

// CreateDonation appends a donation record.
func (s *Store) CreateDonation(ctx context.Context, d *domain.DonationRecord) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.timestamp()
	}
	if d.DonationDate.IsZero() {
		d.DonationDate = d.CreatedAt
	}

	_, err := s.exec(ctx, `
		INSERT INTO donations (id, donor_id, blood_bank_id, blood_group, quantity, request_id, donation_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DonorID, d.BloodBankID, d.BloodGroup, d.Quantity, d.RequestID, d.DonationDate.UTC(), d.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}
	return nil
}

// ListDonationsByBank lists the donations a bank is credited with, newest first.
func (s *Store) ListDonationsByBank(ctx context.Context, bankID string) ([]*domain.DonationRecord, error) {
	donations := []*domain.DonationRecord{}
	err := s.selectAll(ctx, &donations, `
		SELECT id, donor_id, blood_bank_id, blood_group, quantity, request_id, donation_date, created_at
		FROM donations
		WHERE blood_bank_id = ?
		ORDER BY donation_date DESC, id`,
		bankID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	return donations, nil
}
