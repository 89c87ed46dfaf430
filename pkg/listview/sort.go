package listview

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey orders by one field.
type SortKey struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// ParseSort reads "field:desc,other" into sort keys. A missing direction
// means ascending.
func ParseSort(s string) []SortKey {
	var keys []SortKey
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, _ := strings.Cut(part, ":")
		keys = append(keys, SortKey{
			Field: strings.TrimSpace(field),
			Desc:  strings.EqualFold(strings.TrimSpace(dir), "desc"),
		})
	}
	return keys
}

// Sort orders items in place by keys. Ties keep their input order. Strings
// use Korean collation, booleans put false first, numbers and times compare
// by value.
func (s Schema[T]) Sort(items []T, keys []SortKey) error {
	if len(keys) == 0 {
		return nil
	}
	getters := make([]func(T) any, len(keys))
	for i, k := range keys {
		g, ok := s.Fields[k.Field]
		if !ok {
			return fmt.Errorf("unknown sort field %q", k.Field)
		}
		getters[i] = g
	}

	col := collate.New(language.Korean)
	sort.SliceStable(items, func(i, j int) bool {
		for n, k := range keys {
			c := compare(col, getters[n](items[i]), getters[n](items[j]))
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return nil
}

// View filters then sorts, returning a new slice.
func (s Schema[T]) View(items []T, f Filter, keys []SortKey) ([]T, error) {
	out := s.Apply(items, f)
	if err := s.Sort(out, keys); err != nil {
		return nil, err
	}
	return out, nil
}

func compare(col *collate.Collator, a, b any) int {
	a, b = deref(a), deref(b)
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return col.CompareString(av, bv)
	case bool:
		bv, _ := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case int:
		bv, _ := b.(int)
		return cmpOrdered(av, bv)
	case int64:
		bv, _ := b.(int64)
		return cmpOrdered(av, bv)
	case float64:
		bv, _ := b.(float64)
		return cmpOrdered(av, bv)
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	case nil:
		if b == nil {
			return 0
		}
		return -compare(col, b, nil)
	}
	return 0
}

// deref unwraps the nullable column types used by the record models.
func deref(v any) any {
	switch p := v.(type) {
	case *string:
		if p == nil {
			return ""
		}
		return *p
	case *int:
		if p == nil {
			return 0
		}
		return *p
	case *int64:
		if p == nil {
			return int64(0)
		}
		return *p
	case *bool:
		if p == nil {
			return false
		}
		return *p
	case *time.Time:
		if p == nil {
			return time.Time{}
		}
		return *p
	}
	return v
}

func cmpOrdered[N int | int64 | float64](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
