// Package patient models the caller being booked: contact data, phone
// canonicalisation and insurance carrier normalisation.
package patient

import (
	"strings"
	"unicode/utf8"
)

// MinNameLength applies to both name and surname.
const MinNameLength = 2

// Patient is never stored on its own; its fields end up in the calendar
// event's summary and description.
type Patient struct {
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Phone     string `json:"phone"`
	Insurance string `json:"insurance"`
	Email     string `json:"email,omitempty"`
	BirthID   string `json:"birth_id,omitempty"`
}

// FullName joins name and surname.
func (p Patient) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.Name) + " " + strings.TrimSpace(p.Surname))
}

// Normalized trims every field, canonicalises the phone and maps the
// insurance carrier to its official spelling when recognised.
func (p Patient) Normalized() Patient {
	out := Patient{
		Name:    strings.TrimSpace(p.Name),
		Surname: strings.TrimSpace(p.Surname),
		Phone:   NormalizePhone(p.Phone),
		Email:   strings.TrimSpace(p.Email),
		BirthID: strings.TrimSpace(p.BirthID),
	}
	out.Insurance, _ = NormalizeInsurance(p.Insurance)
	return out
}

// Validate returns every problem with the record; empty means valid.
func (p Patient) Validate() []string {
	var errs []string
	required := []struct {
		field string
		value string
	}{
		{"name", p.Name},
		{"surname", p.Surname},
		{"phone", p.Phone},
		{"insurance", p.Insurance},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.field+" is required")
		}
	}
	if strings.TrimSpace(p.Phone) != "" && !IsCanonicalPhone(p.Phone) {
		errs = append(errs, "phone number must be in format +421XXXXXXXXX")
	}
	if n := strings.TrimSpace(p.Name); n != "" && utf8.RuneCountInString(n) < MinNameLength {
		errs = append(errs, "name must be at least 2 characters long")
	}
	if s := strings.TrimSpace(p.Surname); s != "" && utf8.RuneCountInString(s) < MinNameLength {
		errs = append(errs, "surname must be at least 2 characters long")
	}
	return errs
}
