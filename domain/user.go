package domain

import "time"

// Role is the account's role claim.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleBloodBank Role = "blood_bank"
	RoleTestLab   Role = "test_lab"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleBloodBank, RoleTestLab:
		return true
	}
	return false
}

// Account is the slice of the user record this service reads: identity, role,
// and the location used for matching. Accounts are owned by the user service.
type Account struct {
	ID                string    `db:"id" json:"id" bson:"_id"`
	Name              string    `db:"name" json:"name" bson:"name"`
	Email             string    `db:"email" json:"email" bson:"email"`
	PasswordHash      string    `db:"password_hash" json:"-" bson:"passwordHash"`
	Role              Role      `db:"role" json:"role" bson:"role"`
	Phone             string    `db:"phone" json:"phone,omitempty" bson:"phone"`
	Address           string    `db:"address" json:"address,omitempty" bson:"address"`
	City              string    `db:"city" json:"city,omitempty" bson:"city"`
	Zipcode           string    `db:"zipcode" json:"zipcode,omitempty" bson:"zipcode"`
	LowStockThreshold *int      `db:"low_stock_threshold" json:"lowStockThreshold,omitempty" bson:"lowStockThreshold,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt" bson:"createdAt"`
}

// Location returns where the account is based.
func (a *Account) Location() Location {
	return Location{City: a.City, Zipcode: a.Zipcode}
}

// IsBloodBank reports whether the account may hold stock and fulfill requests.
func (a *Account) IsBloodBank() bool {
	return a.Role == RoleBloodBank
}

// Threshold returns the bank's own low-stock threshold, or fallback when the
// bank has not configured one.
func (a *Account) Threshold(fallback int) int {
	if a.LowStockThreshold != nil {
		return *a.LowStockThreshold
	}
	return fallback
}
