// Package listview derives the filtered and ordered tables shown on the
// dashboard pages. Records are fetched wholesale and every view is rebuilt
// from scratch for each request.
package listview

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// StatusInTreatment selects records whose status is set and not terminal.
const StatusInTreatment = "in_treatment"

// Filter holds the optional criteria of a list request. Empty fields match
// everything.
type Filter struct {
	Query  string `json:"query,omitempty"`
	From   string `json:"from,omitempty"` // YYYY-MM-DD, inclusive
	To     string `json:"to,omitempty"`   // YYYY-MM-DD, inclusive
	Staff  string `json:"staff,omitempty"`
	Status string `json:"status,omitempty"`
}

// FilterFromContext reads q, from, to, staff and status query parameters.
func FilterFromContext(c echo.Context) Filter {
	return Filter{
		Query:  strings.TrimSpace(c.QueryParam("q")),
		From:   datePrefix(c.QueryParam("from")),
		To:     datePrefix(c.QueryParam("to")),
		Staff:  strings.TrimSpace(c.QueryParam("staff")),
		Status: strings.TrimSpace(c.QueryParam("status")),
	}
}

// Schema tells the filter and sorter how to read a record type.
type Schema[T any] struct {
	// Text returns the fields searched by the free-text query.
	Text func(T) []string
	// Date returns the record date or timestamp; only the YYYY-MM-DD prefix is compared.
	Date func(T) string
	// Staff returns the assigned staff member.
	Staff func(T) string
	// Status returns the workflow status.
	Status func(T) string
	// Terminal lists the statuses excluded by StatusInTreatment.
	Terminal []string
	// Fields maps sortable field names to accessors.
	Fields map[string]func(T) any
}

// Matches reports whether item satisfies every criterion in f.
func (s Schema[T]) Matches(item T, f Filter) bool {
	return s.matchQuery(item, f.Query) &&
		s.matchDate(item, f.From, f.To) &&
		s.matchStaff(item, f.Staff) &&
		s.matchStatus(item, f.Status)
}

// Apply returns the items matching f, in input order.
func (s Schema[T]) Apply(items []T, f Filter) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if s.Matches(it, f) {
			out = append(out, it)
		}
	}
	return out
}

func (s Schema[T]) matchQuery(item T, q string) bool {
	if q == "" || s.Text == nil {
		return true
	}
	q = strings.ToLower(q)
	for _, field := range s.Text(item) {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (s Schema[T]) matchDate(item T, from, to string) bool {
	if (from == "" && to == "") || s.Date == nil {
		return true
	}
	d := datePrefix(s.Date(item))
	if d == "" {
		return false
	}
	if from != "" && d < from {
		return false
	}
	if to != "" && d > to {
		return false
	}
	return true
}

func (s Schema[T]) matchStaff(item T, staff string) bool {
	if staff == "" || s.Staff == nil {
		return true
	}
	return s.Staff(item) == staff
}

func (s Schema[T]) matchStatus(item T, status string) bool {
	if status == "" || s.Status == nil {
		return true
	}
	got := s.Status(item)
	if status != StatusInTreatment {
		return got == status
	}
	if got == "" {
		return false
	}
	for _, t := range s.Terminal {
		if got == t {
			return false
		}
	}
	return true
}

// datePrefix returns the leading YYYY-MM-DD of a date or RFC 3339 timestamp.
func datePrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
