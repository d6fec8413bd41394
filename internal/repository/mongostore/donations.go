package mongostore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

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
	d.CreatedAt = d.CreatedAt.UTC()
	d.DonationDate = d.DonationDate.UTC()

	if _, err := s.donations.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}
	return nil
}

// ListDonationsByBank lists the donations a bank is credited with, newest first.
func (s *Store) ListDonationsByBank(ctx context.Context, bankID string) ([]*domain.DonationRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "donationDate", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.donations.Find(ctx, bson.M{"bloodBank": bankID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	donations := []*domain.DonationRecord{}
	if err := cursor.All(ctx, &donations); err != nil {
		return nil, fmt.Errorf("failed to decode donations: %w", err)
	}
	return donations, nil
}
