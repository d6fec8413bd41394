package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bloodfinder/m/domain"
)

const stockColumns = `id, blood_bank_id, blood_group, quantity, expiry_date, created_at, updated_at`

// CreateStockEntry inserts an intake batch.
func (s *Store) CreateStockEntry(ctx context.Context, e *domain.StockEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := s.timestamp()
	e.ExpiryDate = e.ExpiryDate.UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO blood_stock (`+stockColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BloodBankID, e.BloodGroup, e.Quantity, e.ExpiryDate, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create stock entry: %w", err)
	}
	return nil
}

// GetStockEntry gets a stock entry by ID.
func (s *Store) GetStockEntry(ctx context.Context, id string) (*domain.StockEntry, error) {
	var e domain.StockEntry
	err := s.get(ctx, &e, `SELECT `+stockColumns+` FROM blood_stock WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStockNotFound
		}
		return nil, fmt.Errorf("failed to get stock entry: %w", err)
	}
	return &e, nil
}

// ListStock lists a bank's entries, newest first.
func (s *Store) ListStock(ctx context.Context, bankID string) ([]*domain.StockEntry, error) {
	entries := []*domain.StockEntry{}
	err := s.selectAll(ctx, &entries, `
		SELECT `+stockColumns+`
		FROM blood_stock
		WHERE blood_bank_id = ?
		ORDER BY created_at DESC, id`,
		bankID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	return entries, nil
}

// ListStockForGroup lists a bank's entries for one group, earliest expiry first.
func (s *Store) ListStockForGroup(ctx context.Context, bankID string, group domain.BloodGroup) ([]*domain.StockEntry, error) {
	entries := []*domain.StockEntry{}
	err := s.selectAll(ctx, &entries, `
		SELECT `+stockColumns+`
		FROM blood_stock
		WHERE blood_bank_id = ? AND blood_group = ?
		ORDER BY expiry_date, created_at, id`,
		bankID, group,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	return entries, nil
}

// TotalForGroup sums a bank's units of one group.
func (s *Store) TotalForGroup(ctx context.Context, bankID string, group domain.BloodGroup) (int, error) {
	var total int
	err := s.get(ctx, &total, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM blood_stock
		WHERE blood_bank_id = ? AND blood_group = ?`,
		bankID, group,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to total stock: %w", err)
	}
	return total, nil
}

// StockTotals sums a bank's units per group. Groups without stock are absent.
func (s *Store) StockTotals(ctx context.Context, bankID string) (map[domain.BloodGroup]int, error) {
	var rows []struct {
		BloodGroup domain.BloodGroup `db:"blood_group"`
		Total      int               `db:"total"`
	}
	err := s.selectAll(ctx, &rows, `
		SELECT blood_group, COALESCE(SUM(quantity), 0) AS total
		FROM blood_stock
		WHERE blood_bank_id = ?
		GROUP BY blood_group`,
		bankID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to total stock: %w", err)
	}

	totals := make(map[domain.BloodGroup]int, len(rows))
	for _, row := range rows {
		totals[row.BloodGroup] = row.Total
	}
	return totals, nil
}

// UpdateStockQuantity sets an entry's quantity and expiry date.
func (s *Store) UpdateStockQuantity(ctx context.Context, id string, quantity int, expiry time.Time) error {
	n, err := s.exec(ctx, `
		UPDATE blood_stock
		SET quantity = ?, expiry_date = ?, updated_at = ?
		WHERE id = ?`,
		quantity, expiry.UTC(), s.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update stock entry: %w", err)
	}
	if n == 0 {
		return domain.ErrStockNotFound
	}
	return nil
}

// DeleteStockEntry deletes an entry.
func (s *Store) DeleteStockEntry(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `DELETE FROM blood_stock WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stock entry: %w", err)
	}
	if n == 0 {
		return domain.ErrStockNotFound
	}
	return nil
}

// TakeStock decrements an entry by units if more than units remain.
func (s *Store) TakeStock(ctx context.Context, id string, units int) error {
	n, err := s.exec(ctx, `
		UPDATE blood_stock
		SET quantity = quantity - ?, updated_at = ?
		WHERE id = ? AND quantity > ?`,
		units, s.timestamp(), id, units,
	)
	if err != nil {
		return fmt.Errorf("failed to take stock: %w", err)
	}
	if n == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

// DrainStock deletes an entry if it holds exactly units.
func (s *Store) DrainStock(ctx context.Context, id string, units int) error {
	n, err := s.exec(ctx, `DELETE FROM blood_stock WHERE id = ? AND quantity = ?`, id, units)
	if err != nil {
		return fmt.Errorf("failed to drain stock: %w", err)
	}
	if n == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}
