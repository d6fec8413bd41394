package service

import (
	"context"
	"time"

	"bloodfinder/m/domain"
	"bloodfinder/m/internal/repository"
)

// Registry owns the emergency request lifecycle apart from fulfillment.
type Registry struct {
	store       repository.Store
	notifier    *Notifier
	expiryHours int
	now         func() time.Time
}

// NewRegistry creates a registry. expiryHours applies to requests whose
// timeNeeded carries no hour count.
func NewRegistry(store repository.Store, notifier *Notifier, expiryHours int) *Registry {
	if expiryHours <= 0 {
		expiryHours = domain.DefaultExpiryHours
	}
	return &Registry{store: store, notifier: notifier, expiryHours: expiryHours, now: time.Now}
}

// SetClock replaces the clock used to compute expiry.
func (reg *Registry) SetClock(now func() time.Time) {
	reg.now = now
}

// Create posts a request for user and starts the notification fan-out. The
// fan-out runs after the request is stored and never fails the create.
func (reg *Registry) Create(ctx context.Context, user *domain.Account, in domain.RequestInput) (*domain.EmergencyRequest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	r := &domain.EmergencyRequest{
		CreatedBy: user.ID,
		Status:    domain.StatusActive,
		Version:   1,
		ExpireAt:  domain.ExpiryFor(in.TimeNeeded, reg.now(), reg.expiryHours),
	}
	in.Apply(r)
	if err := reg.store.CreateRequest(ctx, r); err != nil {
		return nil, err
	}

	reg.notifier.DispatchEmergency(r)
	return r, nil
}

// Get returns a request by ID.
func (reg *Registry) Get(ctx context.Context, id string) (*domain.EmergencyRequest, error) {
	return reg.store.GetRequest(ctx, id)
}

// ListForBank returns the Active requests near bank that it currently holds
// enough stock to fulfill. The result depends only on current state.
func (reg *Registry) ListForBank(ctx context.Context, bank *domain.Account) ([]*domain.EmergencyRequest, error) {
	if err := requireBank(bank); err != nil {
		return nil, err
	}
	if bank.Location().IsZero() {
		return []*domain.EmergencyRequest{}, nil
	}

	nearby, err := reg.store.ListActiveRequestsNear(ctx, bank.Location())
	if err != nil {
		return nil, err
	}
	totals, err := reg.store.StockTotals(ctx, bank.ID)
	if err != nil {
		return nil, err
	}

	requests := make([]*domain.EmergencyRequest, 0, len(nearby))
	for _, r := range nearby {
		if !r.IsActive() || !domain.Matches(bank.Location(), r.Location()) {
			continue
		}
		if totals[r.BloodGroup] >= r.UnitsRequired {
			requests = append(requests, r)
		}
	}
	return requests, nil
}

// Mine returns the requests user created, newest first.
func (reg *Registry) Mine(ctx context.Context, user *domain.Account) ([]*domain.EmergencyRequest, error) {
	return reg.store.ListRequestsByCreator(ctx, user.ID)
}

// Update lets the creator edit an Active request. edit receives the current
// editable fields and changes them in place. When expectedVersion is non-zero
// it must match the stored version. A changed timeNeeded restarts the expiry
// clock.
func (reg *Registry) Update(ctx context.Context, user *domain.Account, id string, expectedVersion int, edit func(*domain.RequestInput) error) (*domain.EmergencyRequest, error) {
	r, err := reg.ownedActive(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && expectedVersion != r.Version {
		return nil, domain.ErrVersionMismatch
	}

	in := domain.InputFrom(r)
	if err := edit(&in); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if in.TimeNeeded != r.TimeNeeded {
		r.ExpireAt = domain.ExpiryFor(in.TimeNeeded, reg.now(), reg.expiryHours)
	}
	in.Apply(r)
	if err := reg.store.UpdateRequest(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Close withdraws an Active request. The record is kept with status Closed.
func (reg *Registry) Close(ctx context.Context, user *domain.Account, id string) error {
	if _, err := reg.ownedActive(ctx, user, id); err != nil {
		return err
	}
	return reg.store.TransitionRequest(ctx, id, domain.StatusClosed, "", reg.now())
}

func (reg *Registry) ownedActive(ctx context.Context, user *domain.Account, id string) (*domain.EmergencyRequest, error) {
	r, err := reg.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.CreatedBy != user.ID {
		return nil, domain.ErrNotRequestCreator
	}
	if !r.IsActive() {
		return nil, domain.ErrRequestNotActive
	}
	return r, nil
}
