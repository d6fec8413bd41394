// Package repository declares the persistence contract shared by the SQL and
// document stores. Not-found conditions are reported with the domain errors
// (domain.ErrRequestNotFound and friends) so callers never see driver errors
// for absent rows.
package repository

import (
	"context"
	"time"

	"bloodfinder/m/domain"
)

// AccountStore reads the externally owned account records.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	// FindAccountsNear returns accounts with one of roles whose location
	// matches loc, excluding excludeID.
	FindAccountsNear(ctx context.Context, loc domain.Location, roles []domain.Role, excludeID string) ([]*domain.Account, error)
}

// StockStore is the stock ledger.
type StockStore interface {
	CreateStockEntry(ctx context.Context, e *domain.StockEntry) error
	GetStockEntry(ctx context.Context, id string) (*domain.StockEntry, error)
	// ListStock returns a bank's entries, newest first.
	ListStock(ctx context.Context, bankID string) ([]*domain.StockEntry, error)
	// ListStockForGroup returns a bank's entries for one group, earliest expiry first.
	ListStockForGroup(ctx context.Context, bankID string, group domain.BloodGroup) ([]*domain.StockEntry, error)
	TotalForGroup(ctx context.Context, bankID string, group domain.BloodGroup) (int, error)
	StockTotals(ctx context.Context, bankID string) (map[domain.BloodGroup]int, error)
	UpdateStockQuantity(ctx context.Context, id string, quantity int, expiry time.Time) error
	DeleteStockEntry(ctx context.Context, id string) error
	// TakeStock decrements an entry by units, leaving at least one unit.
	// DrainStock deletes an entry holding exactly units. Both return
	// domain.ErrInsufficientStock when the entry no longer holds what the
	// caller planned against.
	TakeStock(ctx context.Context, id string, units int) error
	DrainStock(ctx context.Context, id string, units int) error
}

// RequestStore is the emergency request registry. Requests whose ExpireAt has
// passed are removed by the store itself and are never returned.
type RequestStore interface {
	CreateRequest(ctx context.Context, r *domain.EmergencyRequest) error
	GetRequest(ctx context.Context, id string) (*domain.EmergencyRequest, error)
	// ListRequestsByCreator returns a requester's requests, newest first.
	ListRequestsByCreator(ctx context.Context, userID string) ([]*domain.EmergencyRequest, error)
	// ListActiveRequestsNear returns Active requests whose location matches loc.
	ListActiveRequestsNear(ctx context.Context, loc domain.Location) ([]*domain.EmergencyRequest, error)
	// UpdateRequest writes the editable fields and ExpireAt of r if it is still
	// Active and at version r.Version, then bumps the version.
	// It returns domain.ErrVersionMismatch when the guard fails.
	UpdateRequest(ctx context.Context, r *domain.EmergencyRequest) error
	// TransitionRequest moves a request from Active to status. It is the
	// concurrency boundary for fulfillment and closing: when the request is no
	// longer Active nothing is written and domain.ErrRequestNotActive is returned.
	TransitionRequest(ctx context.Context, id string, status domain.RequestStatus, fulfilledBy string, at time.Time) error
}

// DonationStore is the append-only donation history.
type DonationStore interface {
	CreateDonation(ctx context.Context, d *domain.DonationRecord) error
	ListDonationsByBank(ctx context.Context, bankID string) ([]*domain.DonationRecord, error)
}

// NotificationStore holds per-recipient notifications.
type NotificationStore interface {
	CreateNotifications(ctx context.Context, ns []*domain.Notification) error
	// ListNotifications returns a recipient's notifications created in
	// [from, to), newest first. Zero bounds are open.
	ListNotifications(ctx context.Context, userID string, from, to time.Time, limit int) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// Store bundles every collection. WithTx runs fn against a Store bound to one
// transaction; fn must use the ctx and Store it is given, and returning an
// error rolls everything back.
type Store interface {
	AccountStore
	StockStore
	RequestStore
	DonationStore
	NotificationStore

	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Close(ctx context.Context) error
}
