package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bloodfinder/m/domain"
)

const accountColumns = `id, name, email, password_hash, role, phone, address, city, zipcode, low_stock_threshold, created_at`

// CreateAccount inserts an account. Emails are stored lowercased.
func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.timestamp()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	key := a.Location().Normalize()

	_, err := s.exec(ctx, `
		INSERT INTO accounts (
			id, name, email, password_hash, role, phone, address,
			city, zipcode, city_key, zipcode_key, low_stock_threshold, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Email, a.PasswordHash, a.Role, a.Phone, a.Address,
		a.City, a.Zipcode, key.City, key.Zipcode, a.LowStockThreshold, a.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount gets an account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	err := s.get(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// GetAccountByEmail gets an account by its (case-insensitive) email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	err := s.get(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// FindAccountsNear finds accounts with one of roles in the same city or zipcode as loc.
func (s *Store) FindAccountsNear(ctx context.Context, loc domain.Location, roles []domain.Role, excludeID string) ([]*domain.Account, error) {
	key := loc.Normalize()
	if key.City == "" && key.Zipcode == "" || len(roles) == 0 {
		return []*domain.Account{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+accountColumns+`
		FROM accounts
		WHERE role IN (?)
		AND id <> ?
		AND ((city_key <> '' AND city_key = ?) OR (zipcode_key <> '' AND zipcode_key = ?))
		ORDER BY created_at`,
		roles, excludeID, key.City, key.Zipcode,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build account query: %w", err)
	}

	accounts := []*domain.Account{}
	if err := s.selectAll(ctx, &accounts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find accounts: %w", err)
	}
	return accounts, nil
}
