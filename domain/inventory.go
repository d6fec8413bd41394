package domain

import (
	"sort"
	"time"
)

// BloodGroup is an ABO/Rh type.
type BloodGroup string

const (
	APositive  BloodGroup = "A+"
	ANegative  BloodGroup = "A-"
	BPositive  BloodGroup = "B+"
	BNegative  BloodGroup = "B-"
	ABPositive BloodGroup = "AB+"
	ABNegative BloodGroup = "AB-"
	OPositive  BloodGroup = "O+"
	ONegative  BloodGroup = "O-"
)

// BloodGroups lists every group in display order.
var BloodGroups = []BloodGroup{APositive, ANegative, BPositive, BNegative, ABPositive, ABNegative, OPositive, ONegative}

// Valid reports whether g is one of the eight known groups.
func (g BloodGroup) Valid() bool {
	for _, known := range BloodGroups {
		if g == known {
			return true
		}
	}
	return false
}

// StockEntry is one intake batch held by a blood bank. A bank normally holds
// several entries per group, each with its own expiry date.
type StockEntry struct {
	ID          string     `db:"id" json:"id" bson:"_id"`
	BloodBankID string     `db:"blood_bank_id" json:"bloodBank" bson:"bloodBank"`
	BloodGroup  BloodGroup `db:"blood_group" json:"bloodGroup" bson:"bloodGroup"`
	Quantity    int        `db:"quantity" json:"quantity" bson:"quantity"`
	ExpiryDate  time.Time  `db:"expiry_date" json:"expiryDate" bson:"expiryDate"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt" bson:"updatedAt"`
}

// StockInput is the bank-supplied part of a stock entry.
type StockInput struct {
	BloodGroup BloodGroup
	Quantity   int
	ExpiryDate time.Time
}

// Validate checks an intake batch. Intake quantities must be positive.
func (in StockInput) Validate() error {
	if !in.BloodGroup.Valid() {
		return Validationf("invalid blood group %q", in.BloodGroup)
	}
	if in.Quantity <= 0 {
		return Validationf("quantity must be greater than zero")
	}
	if in.ExpiryDate.IsZero() {
		return Validationf("expiryDate is required")
	}
	return nil
}

// Deduction is one step of a stock deduction plan. Remaining is the entry's
// quantity after the step; zero means the entry must be deleted.
type Deduction struct {
	Entry     *StockEntry
	Take      int
	Remaining int
}

// TotalQuantity sums the quantity of entries.
func TotalQuantity(entries []*StockEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}

// PlanDeduction walks entries earliest expiry first and takes units from each
// until the demand is met. It returns ErrInsufficientStock without a plan when
// the entries cannot cover units. Entries are not modified.
func PlanDeduction(entries []*StockEntry, units int) ([]Deduction, error) {
	if units <= 0 {
		return nil, Validationf("units must be greater than zero")
	}
	if TotalQuantity(entries) < units {
		return nil, ErrInsufficientStock
	}

	ordered := make([]*StockEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExpiryDate.Before(ordered[j].ExpiryDate)
	})

	remaining := units
	plan := make([]Deduction, 0, len(ordered))
	for _, entry := range ordered {
		if remaining == 0 {
			break
		}
		if entry.Quantity <= 0 {
			continue
		}
		if entry.Quantity >= remaining {
			plan = append(plan, Deduction{Entry: entry, Take: remaining, Remaining: entry.Quantity - remaining})
			remaining = 0
			break
		}
		plan = append(plan, Deduction{Entry: entry, Take: entry.Quantity, Remaining: 0})
		remaining -= entry.Quantity
	}

	if remaining > 0 {
		return nil, ErrInsufficientStock
	}
	return plan, nil
}
