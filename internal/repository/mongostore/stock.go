package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bloodfinder/m/domain"
)

// CreateStockEntry inserts an intake batch.
func (s *Store) CreateStockEntry(ctx context.Context, e *domain.StockEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := s.timestamp()
	e.ExpiryDate = e.ExpiryDate.UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	if _, err := s.stock.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to create stock entry: %w", err)
	}
	return nil
}

// GetStockEntry gets a stock entry by ID.
func (s *Store) GetStockEntry(ctx context.Context, id string) (*domain.StockEntry, error) {
	var e domain.StockEntry
	if err := s.stock.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrStockNotFound
		}
		return nil, fmt.Errorf("failed to get stock entry: %w", err)
	}
	return &e, nil
}

// ListStock lists a bank's entries, newest first.
func (s *Store) ListStock(ctx context.Context, bankID string) ([]*domain.StockEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	return s.findStock(ctx, bson.M{"bloodBank": bankID}, opts)
}

// ListStockForGroup lists a bank's entries for one group, earliest expiry first.
func (s *Store) ListStockForGroup(ctx context.Context, bankID string, group domain.BloodGroup) ([]*domain.StockEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "expiryDate", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return s.findStock(ctx, bson.M{"bloodBank": bankID, "bloodGroup": group}, opts)
}

func (s *Store) findStock(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.StockEntry, error) {
	cursor, err := s.stock.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	entries := []*domain.StockEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode stock: %w", err)
	}
	return entries, nil
}

// TotalForGroup sums a bank's units of one group.
func (s *Store) TotalForGroup(ctx context.Context, bankID string, group domain.BloodGroup) (int, error) {
	totals, err := s.sumStock(ctx, bson.M{"bloodBank": bankID, "bloodGroup": group})
	if err != nil {
		return 0, err
	}
	return totals[group], nil
}

// StockTotals sums a bank's units per group. Groups without stock are absent.
func (s *Store) StockTotals(ctx context.Context, bankID string) (map[domain.BloodGroup]int, error) {
	return s.sumStock(ctx, bson.M{"bloodBank": bankID})
}

func (s *Store) sumStock(ctx context.Context, match bson.M) (map[domain.BloodGroup]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$bloodGroup", "total": bson.M{"$sum": "$quantity"}}}},
	}
	cursor, err := s.stock.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to total stock: %w", err)
	}

	var rows []struct {
		Group domain.BloodGroup `bson:"_id"`
		Total int               `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode stock totals: %w", err)
	}

	totals := make(map[domain.BloodGroup]int, len(rows))
	for _, row := range rows {
		totals[row.Group] = row.Total
	}
	return totals, nil
}

// UpdateStockQuantity sets an entry's quantity and expiry date.
func (s *Store) UpdateStockQuantity(ctx context.Context, id string, quantity int, expiry time.Time) error {
	res, err := s.stock.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"quantity":   quantity,
		"expiryDate": expiry.UTC(),
		"updatedAt":  s.timestamp(),
	}})
	if err != nil {
		return fmt.Errorf("failed to update stock entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrStockNotFound
	}
	return nil
}

// DeleteStockEntry deletes an entry.
func (s *Store) DeleteStockEntry(ctx context.Context, id string) error {
	res, err := s.stock.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete stock entry: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrStockNotFound
	}
	return nil
}

// TakeStock decrements an entry by units if more than units remain.
func (s *Store) TakeStock(ctx context.Context, id string, units int) error {
	res, err := s.stock.UpdateOne(ctx,
		bson.M{"_id": id, "quantity": bson.M{"$gt": units}},
		bson.M{
			"$inc": bson.M{"quantity": -units},
			"$set": bson.M{"updatedAt": s.timestamp()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to take stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

// DrainStock deletes an entry if it holds exactly units.
func (s *Store) DrainStock(ctx context.Context, id string, units int) error {
	res, err := s.stock.DeleteOne(ctx, bson.M{"_id": id, "quantity": units})
	if err != nil {
		return fmt.Errorf("failed to drain stock: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}
