package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bloodfinder/m/domain"
	"bloodfinder/m/internal/database"
	"bloodfinder/m/internal/migrations"
	"bloodfinder/m/internal/repository/sqlstore"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []*domain.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, ns []*domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, ns...)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type fixture struct {
	store     *sqlstore.Store
	clock     *testClock
	publisher *recordingPublisher
	notifier  *Notifier
	ledger    *Ledger
	registry  *Registry
	fulfiller *Fulfiller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Connect(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))
	t.Cleanup(func() { db.Close() })

	clock := &testClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := sqlstore.New(db)
	store.SetClock(clock.Now)

	publisher := &recordingPublisher{}
	notifier := NewNotifier(store, publisher, zap.NewNop())
	registry := NewRegistry(store, notifier, domain.DefaultExpiryHours)
	registry.SetClock(clock.Now)
	fulfiller := NewFulfiller(store)
	fulfiller.SetClock(clock.Now)

	return &fixture{
		store:     store,
		clock:     clock,
		publisher: publisher,
		notifier:  notifier,
		ledger:    NewLedger(store, notifier, 10),
		registry:  registry,
		fulfiller: fulfiller,
	}
}

func (f *fixture) account(t *testing.T, name string, role domain.Role, city, zip string) *domain.Account {
	t.Helper()
	a := &domain.Account{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		Role:         role,
		City:         city,
		Zipcode:      zip,
	}
	require.NoError(t, f.store.CreateAccount(context.Background(), a))
	return a
}

func (f *fixture) stock(t *testing.T, bank *domain.Account, group domain.BloodGroup, qty int, expiry time.Time) *domain.StockEntry {
	t.Helper()
	e := &domain.StockEntry{BloodBankID: bank.ID, BloodGroup: group, Quantity: qty, ExpiryDate: expiry}
	require.NoError(t, f.store.CreateStockEntry(context.Background(), e))
	f.clock.Advance(time.Second)
	return e
}

func (f *fixture) request(t *testing.T, user *domain.Account, group domain.BloodGroup, units int) *domain.EmergencyRequest {
	t.Helper()
	r, err := f.registry.Create(context.Background(), user, requestInput(group, units))
	require.NoError(t, err)
	f.notifier.Wait()
	return r
}

func requestInput(group domain.BloodGroup, units int) domain.RequestInput {
	return domain.RequestInput{
		PatientName:   "Jane Doe",
		HospitalName:  "General",
		BloodGroup:    group,
		UnitsRequired: units,
		Urgency:       domain.UrgencyCritical,
		TimeNeeded:    "2 hours",
		Address:       "1 Main St",
		City:          "Boston",
		Zipcode:       "02101",
		ContactNumber: "555-0100",
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
