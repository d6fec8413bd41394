package domain

import "time"

// DonationRecord credits a fulfilled request to the bank that served it. By
// convention the original requester is stored as the donor. Records are append
// only.
type DonationRecord struct {
	ID           string     `db:"id" json:"id" bson:"_id"`
	DonorID      string     `db:"donor_id" json:"donor" bson:"donor"`
	BloodBankID  string     `db:"blood_bank_id" json:"bloodBank" bson:"bloodBank"`
	BloodGroup   BloodGroup `db:"blood_group" json:"bloodGroup" bson:"bloodGroup"`
	Quantity     int        `db:"quantity" json:"quantity" bson:"quantity"`
	RequestID    string     `db:"request_id" json:"requestId,omitempty" bson:"requestId,omitempty"`
	DonationDate time.Time  `db:"donation_date" json:"donationDate" bson:"donationDate"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt" bson:"createdAt"`
}

// NewDonationRecord builds the record written when bankID fulfills r.
func NewDonationRecord(r *EmergencyRequest, bankID string, now time.Time) *DonationRecord {
	return &DonationRecord{
		DonorID:      r.CreatedBy,
		BloodBankID:  bankID,
		BloodGroup:   r.BloodGroup,
		Quantity:     r.UnitsRequired,
		RequestID:    r.ID,
		DonationDate: now,
		CreatedAt:    now,
	}
}
