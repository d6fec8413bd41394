package service

import (
	"context"
	"time"

	"bloodfinder/m/domain"
	"bloodfinder/m/internal/repository"
)

// Ledger manages the stock a blood bank holds.
type Ledger struct {
	store     repository.Store
	notifier  *Notifier
	threshold int
}

// NewLedger creates a ledger. threshold is the low-stock level used for banks
// without their own setting.
func NewLedger(store repository.Store, notifier *Notifier, threshold int) *Ledger {
	return &Ledger{store: store, notifier: notifier, threshold: threshold}
}

func requireBank(a *domain.Account) error {
	if a == nil || !a.IsBloodBank() {
		return domain.ErrBloodBankRequired
	}
	return nil
}

// Add records an intake batch. When the bank's total for the group drops to
// or below its threshold a low-stock notification is stored with the entry.
func (l *Ledger) Add(ctx context.Context, bank *domain.Account, in domain.StockInput) (*domain.StockEntry, error) {
	if err := requireBank(bank); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	entry := &domain.StockEntry{
		BloodBankID: bank.ID,
		BloodGroup:  in.BloodGroup,
		Quantity:    in.Quantity,
		ExpiryDate:  in.ExpiryDate,
	}
	var warnings []*domain.Notification
	err := l.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.CreateStockEntry(ctx, entry); err != nil {
			return err
		}
		total, err := tx.TotalForGroup(ctx, bank.ID, in.BloodGroup)
		if err != nil {
			return err
		}
		if total > bank.Threshold(l.threshold) {
			return nil
		}
		warnings = []*domain.Notification{{
			UserID:  bank.ID,
			Message: domain.LowStockMessage(in.BloodGroup, total),
			Link:    domain.StockLink,
		}}
		return tx.CreateNotifications(ctx, warnings)
	})
	if err != nil {
		return nil, err
	}

	if len(warnings) > 0 {
		l.notifier.Publish(ctx, warnings)
	}
	return entry, nil
}

// List returns the bank's entries, newest first.
func (l *Ledger) List(ctx context.Context, bank *domain.Account) ([]*domain.StockEntry, error) {
	if err := requireBank(bank); err != nil {
		return nil, err
	}
	return l.store.ListStock(ctx, bank.ID)
}

// Totals returns the bank's units per blood group, with every group present.
func (l *Ledger) Totals(ctx context.Context, bank *domain.Account) (map[domain.BloodGroup]int, error) {
	if err := requireBank(bank); err != nil {
		return nil, err
	}
	totals, err := l.store.StockTotals(ctx, bank.ID)
	if err != nil {
		return nil, err
	}
	for _, g := range domain.BloodGroups {
		if _, ok := totals[g]; !ok {
			totals[g] = 0
		}
	}
	return totals, nil
}

// TotalForGroup returns the bank's units of one group.
func (l *Ledger) TotalForGroup(ctx context.Context, bank *domain.Account, group domain.BloodGroup) (int, error) {
	if err := requireBank(bank); err != nil {
		return 0, err
	}
	if !group.Valid() {
		return 0, domain.Validationf("invalid blood group %q", group)
	}
	return l.store.TotalForGroup(ctx, bank.ID, group)
}

// Donations returns the donations the bank has served.
func (l *Ledger) Donations(ctx context.Context, bank *domain.Account) ([]*domain.DonationRecord, error) {
	if err := requireBank(bank); err != nil {
		return nil, err
	}
	return l.store.ListDonationsByBank(ctx, bank.ID)
}

// Update edits one of the bank's entries. A quantity of zero removes the
// entry, in which case the returned entry is nil. A zero expiry keeps the
// current one.
func (l *Ledger) Update(ctx context.Context, bank *domain.Account, id string, quantity int, expiry time.Time) (*domain.StockEntry, error) {
	if err := requireBank(bank); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, domain.Validationf("quantity must not be negative")
	}

	var updated *domain.StockEntry
	err := l.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		entry, err := ownedEntry(ctx, tx, bank, id)
		if err != nil {
			return err
		}
		if quantity == 0 {
			return tx.DeleteStockEntry(ctx, id)
		}
		if expiry.IsZero() {
			expiry = entry.ExpiryDate
		}
		if err := tx.UpdateStockQuantity(ctx, id, quantity, expiry); err != nil {
			return err
		}
		updated, err = tx.GetStockEntry(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes one of the bank's entries.
func (l *Ledger) Delete(ctx context.Context, bank *domain.Account, id string) error {
	if err := requireBank(bank); err != nil {
		return err
	}
	return l.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := ownedEntry(ctx, tx, bank, id); err != nil {
			return err
		}
		return tx.DeleteStockEntry(ctx, id)
	})
}

// Deduct removes units of group from the bank's stock, earliest expiry
// first, in its own transaction.
func (l *Ledger) Deduct(ctx context.Context, bank *domain.Account, group domain.BloodGroup, units int) ([]domain.Deduction, error) {
	if err := requireBank(bank); err != nil {
		return nil, err
	}
	var plan []domain.Deduction
	err := l.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		plan, err = deduct(ctx, tx, bank.ID, group, units)
		return err
	})
	return plan, err
}

// deduct plans and applies an earliest-expiry-first deduction on store.
// Nothing is written when the stock cannot cover units. Each step is applied
// relative to the stored quantity and fails with domain.ErrInsufficientStock
// if a concurrent writer changed the entry after it was read; the caller's
// transaction must then roll back.
func deduct(ctx context.Context, store repository.StockStore, bankID string, group domain.BloodGroup, units int) ([]domain.Deduction, error) {
	entries, err := store.ListStockForGroup(ctx, bankID, group)
	if err != nil {
		return nil, err
	}
	plan, err := domain.PlanDeduction(entries, units)
	if err != nil {
		return nil, err
	}
	for _, step := range plan {
		if step.Remaining == 0 {
			err = store.DrainStock(ctx, step.Entry.ID, step.Take)
		} else {
			err = store.TakeStock(ctx, step.Entry.ID, step.Take)
		}
		if err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func ownedEntry(ctx context.Context, store repository.StockStore, bank *domain.Account, id string) (*domain.StockEntry, error) {
	entry, err := store.GetStockEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.BloodBankID != bank.ID {
		return nil, domain.ErrStockNotFound
	}
	return entry, nil
}
