package entity

import "strings"

// Address is an immutable postal address used for shipping and billing.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	District   string `json:"district,omitempty"`
	Building   string `json:"building,omitempty"`
	Unit       string `json:"unit,omitempty"`
}

// AddressOption sets one of the optional address parts.
type AddressOption func(a *Address)

func WithDistrict(district string) AddressOption {
	return func(a *Address) { a.District = strings.TrimSpace(district) }
}

func WithBuilding(building string) AddressOption {
	return func(a *Address) { a.Building = strings.TrimSpace(building) }
}

func WithUnit(unit string) AddressOption {
	return func(a *Address) { a.Unit = strings.TrimSpace(unit) }
}

// NewAddress validates the required parts and applies opts.
func NewAddress(street, city, state, postalCode, country string, opts ...AddressOption) (Address, error) {
	a := Address{
		Street:     strings.TrimSpace(street),
		City:       strings.TrimSpace(city),
		State:      strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    strings.ToUpper(strings.TrimSpace(country)),
	}
	required := []struct {
		name, value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"postal code", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if f.value == "" {
			return Address{}, NewRuleViolation(RuleInvalidValue, "address %s is required", f.name)
		}
	}
	if len(a.PostalCode) < 3 || len(a.PostalCode) > 12 {
		return Address{}, NewRuleViolation(RuleInvalidValue, "invalid postal code %q", a.PostalCode)
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a, nil
}

// IsZero reports whether the address was never constructed.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	parts := []string{a.Street}
	for _, p := range []string{a.Building, a.Unit, a.District} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, a.City, a.State, a.PostalCode, a.Country)
	return strings.Join(parts, ", ")
}
