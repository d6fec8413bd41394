package domain

import "strings"

// Location is the city/zipcode pair used to decide who is "nearby".
type Location struct {
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
}

// Normalize lowercases and trims both parts. All matching goes through the
// normalized form so that "Boston " and "boston" are the same city.
func (l Location) Normalize() Location {
	return Location{
		City:    strings.ToLower(strings.TrimSpace(l.City)),
		Zipcode: strings.ToLower(strings.TrimSpace(l.Zipcode)),
	}
}

// IsZero reports whether neither part carries a usable value.
func (l Location) IsZero() bool {
	n := l.Normalize()
	return n.City == "" && n.Zipcode == ""
}

// Matches is the single location predicate: same city OR same zipcode.
// Empty parts never match each other.
func Matches(a, b Location) bool {
	na, nb := a.Normalize(), b.Normalize()
	if na.City != "" && na.City == nb.City {
		return true
	}
	return na.Zipcode != "" && na.Zipcode == nb.Zipcode
}
