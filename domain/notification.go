package domain

import (
	"fmt"
	"time"
)

// Notification is a message for a single recipient.
type Notification struct {
	ID        string    `db:"id" json:"id" bson:"_id"`
	UserID    string    `db:"user_id" json:"user" bson:"user"`
	Message   string    `db:"message" json:"message" bson:"message"`
	IsRead    bool      `db:"is_read" json:"isRead" bson:"isRead"`
	Link      string    `db:"link" json:"link,omitempty" bson:"link,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" bson:"createdAt"`
}

const (
	EmergencyLink = "/user/emergency"
	StockLink     = "/blood-bank/stock"
)

// EmergencyMessage is the fan-out text for a newly posted request.
func EmergencyMessage(r *EmergencyRequest) string {
	return fmt.Sprintf("New '%s' request for %s blood in your area (%s).", r.Urgency, r.BloodGroup, r.City)
}

// LowStockMessage warns a bank that a group is running out.
func LowStockMessage(group BloodGroup, total int) string {
	return fmt.Sprintf("Warning: Stock for %s is critically low (%d units remaining).", group, total)
}
