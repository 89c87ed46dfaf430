// Package legacyfield unpacks the slash-delimited free-text columns written by
// the first version of the intake form, e.g. "Kim / 010-1234-5678 / 1985".
//
// New rows carry structured columns; these parsers only feed the referrer
// backfill and the read path for rows that were never backfilled.
package legacyfield

import (
	"strconv"
	"strings"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/validate"
)

// Split splits on "/" and returns the trimmed, non-empty segments.
func Split(s string) []string {
	raw := strings.Split(s, "/")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Referrer is the person who referred a new patient.
type Referrer struct {
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	BirthYear string `json:"birth_year,omitempty"`
}

// IsZero reports whether no part was recovered.
func (r Referrer) IsZero() bool {
	return r.Name == "" && r.Phone == "" && r.BirthYear == ""
}

// ParseReferrer reads "name / phone / birth-year". With two parts the second
// one is a phone when it looks like one, otherwise a birth year.
func ParseReferrer(s string) Referrer {
	parts := Split(s)
	switch {
	case len(parts) >= 3:
		return Referrer{Name: parts[0], Phone: parts[1], BirthYear: parts[2]}
	case len(parts) == 2:
		if validate.LooksLikePhone(parts[1]) {
			return Referrer{Name: parts[0], Phone: parts[1]}
		}
		if isYear(parts[1]) {
			return Referrer{Name: parts[0], BirthYear: parts[1]}
		}
		return Referrer{Name: parts[0] + " " + parts[1]}
	case len(parts) == 1:
		return Referrer{Name: parts[0]}
	}
	return Referrer{}
}

// Contact is an emergency contact ("name / phone / relation").
type Contact struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Relation string `json:"relation,omitempty"`
}

// ParseContact reads "name / phone / relation"; two parts are name and phone.
func ParseContact(s string) Contact {
	parts := Split(s)
	switch {
	case len(parts) >= 3:
		return Contact{Name: parts[0], Phone: parts[1], Relation: parts[2]}
	case len(parts) == 2:
		if validate.LooksLikePhone(parts[0]) {
			return Contact{Name: parts[1], Phone: parts[0]}
		}
		return Contact{Name: parts[0], Phone: parts[1]}
	case len(parts) == 1:
		if validate.LooksLikePhone(parts[0]) {
			return Contact{Phone: parts[0]}
		}
		return Contact{Name: parts[0]}
	}
	return Contact{}
}

// FormatContact is the inverse of ParseContact for display.
func FormatContact(c Contact) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Name, c.Phone, c.Relation} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}

func isYear(s string) bool {
	if len(s) != 4 && len(s) != 2 {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}
