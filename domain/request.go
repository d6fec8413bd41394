package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Urgency tells recipients how quickly blood is needed.
type Urgency string

const (
	UrgencyCritical Urgency = "Critical"
	UrgencyUrgent   Urgency = "Urgent"
	UrgencyNormal   Urgency = "Normal"
)

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	return u == UrgencyCritical || u == UrgencyUrgent || u == UrgencyNormal
}

// RequestStatus is the lifecycle state of an emergency request. The only
// transitions are Active -> Fulfilled and Active -> Closed.
type RequestStatus string

const (
	StatusActive    RequestStatus = "Active"
	StatusFulfilled RequestStatus = "Fulfilled"
	StatusClosed    RequestStatus = "Closed"
)

// CanTransition reports whether a request may move from s to next.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	return s == StatusActive && (next == StatusFulfilled || next == StatusClosed)
}

const (
	// DefaultExpiryHours applies when TimeNeeded carries no usable hour count.
	DefaultExpiryHours = 24
	// MaxExpiryHours caps how far out a request may expire.
	MaxExpiryHours = 24 * 365
)

// EmergencyRequest is a posted need for blood.
type EmergencyRequest struct {
	ID            string        `db:"id" json:"id" bson:"_id"`
	CreatedBy     string        `db:"created_by" json:"createdBy" bson:"createdBy"`
	PatientName   string        `db:"patient_name" json:"patientName" bson:"patientName"`
	HospitalName  string        `db:"hospital_name" json:"hospitalName" bson:"hospitalName"`
	BloodGroup    BloodGroup    `db:"blood_group" json:"bloodGroup" bson:"bloodGroup"`
	UnitsRequired int           `db:"units_required" json:"unitsRequired" bson:"unitsRequired"`
	Urgency       Urgency       `db:"urgency" json:"urgency" bson:"urgency"`
	TimeNeeded    string        `db:"time_needed" json:"timeNeeded" bson:"timeNeeded"`
	Address       string        `db:"address" json:"address" bson:"address"`
	City          string        `db:"city" json:"city" bson:"city"`
	Zipcode       string        `db:"zipcode" json:"zipcode" bson:"zipcode"`
	ContactNumber string        `db:"contact_number" json:"contactNumber" bson:"contactNumber"`
	Status        RequestStatus `db:"status" json:"status" bson:"status"`
	FulfilledBy   string        `db:"fulfilled_by" json:"fulfilledBy,omitempty" bson:"fulfilledBy,omitempty"`
	ExpireAt      time.Time     `db:"expire_at" json:"expireAt" bson:"expireAt"`
	Version       int           `db:"version" json:"version" bson:"version"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt" bson:"updatedAt"`
}

// Location returns where the blood is needed.
func (r *EmergencyRequest) Location() Location {
	return Location{City: r.City, Zipcode: r.Zipcode}
}

// IsActive reports whether the request can still be fulfilled, edited or closed.
func (r *EmergencyRequest) IsActive() bool {
	return r.Status == StatusActive
}

// RequestInput holds the requester-editable fields of a request.
type RequestInput struct {
	PatientName   string     `json:"patientName"`
	HospitalName  string     `json:"hospitalName"`
	BloodGroup    BloodGroup `json:"bloodGroup"`
	UnitsRequired int        `json:"unitsRequired"`
	Urgency       Urgency    `json:"urgency"`
	TimeNeeded    string     `json:"timeNeeded"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	Zipcode       string     `json:"zipcode"`
	ContactNumber string     `json:"contactNumber"`
}

// Validate checks required fields. An empty urgency defaults to Normal.
func (in *RequestInput) Validate() error {
	if in.Urgency == "" {
		in.Urgency = UrgencyNormal
	}
	required := []struct{ field, value string }{
		{"patientName", in.PatientName},
		{"hospitalName", in.HospitalName},
		{"timeNeeded", in.TimeNeeded},
		{"address", in.Address},
		{"city", in.City},
		{"zipcode", in.Zipcode},
		{"contactNumber", in.ContactNumber},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return Validationf("%s is required", r.field)
		}
	}
	if !in.BloodGroup.Valid() {
		return Validationf("invalid blood group %q", in.BloodGroup)
	}
	if in.UnitsRequired <= 0 {
		return Validationf("unitsRequired must be a positive number")
	}
	if !in.Urgency.Valid() {
		return Validationf("urgency must be Critical, Urgent or Normal")
	}
	return nil
}

// InputFrom returns the editable fields of r.
func InputFrom(r *EmergencyRequest) RequestInput {
	return RequestInput{
		PatientName:   r.PatientName,
		HospitalName:  r.HospitalName,
		BloodGroup:    r.BloodGroup,
		UnitsRequired: r.UnitsRequired,
		Urgency:       r.Urgency,
		TimeNeeded:    r.TimeNeeded,
		Address:       r.Address,
		City:          r.City,
		Zipcode:       r.Zipcode,
		ContactNumber: r.ContactNumber,
	}
}

// Apply copies the editable fields onto r.
func (in RequestInput) Apply(r *EmergencyRequest) {
	r.PatientName = in.PatientName
	r.HospitalName = in.HospitalName
	r.BloodGroup = in.BloodGroup
	r.UnitsRequired = in.UnitsRequired
	r.Urgency = in.Urgency
	r.TimeNeeded = in.TimeNeeded
	r.Address = in.Address
	r.City = in.City
	r.Zipcode = in.Zipcode
	r.ContactNumber = in.ContactNumber
}

// ParseHours reads the leading integer of a free-text descriptor such as
// "2 hours" or "12". ok is false when there is no positive leading integer.
// Counts too large for an int read as MaxExpiryHours.
func ParseHours(timeNeeded string) (hours int, ok bool) {
	s := strings.TrimLeft(timeNeeded, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) && n > 0 {
		return MaxExpiryHours, true
	}
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ExpiryFor computes the absolute expiry of a request created at now.
// fallbackHours is used when timeNeeded has no usable hour count.
func ExpiryFor(timeNeeded string, now time.Time, fallbackHours int) time.Time {
	hours, ok := ParseHours(timeNeeded)
	if !ok {
		hours = fallbackHours
	}
	if hours > MaxExpiryHours {
		hours = MaxExpiryHours
	}
	return now.Add(time.Duration(hours) * time.Hour)
}
