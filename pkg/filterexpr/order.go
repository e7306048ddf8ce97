package filterexpr

import (
	"errors"
	"fmt"
	"strings"
)

// OrderField maps an order key to a column.
type OrderField struct {
	Column    string
	NullsLast bool
}

// OrderTerm is one validated order_by key.
type OrderTerm struct {
	Key  string
	Desc bool
}

// OrderSchema whitelists order keys. Tiebreak is appended last unless already
// present so paging stays stable.
type OrderSchema struct {
	Fields   map[string]OrderField
	Default  []OrderTerm
	Tiebreak string
	MaxKeys  int
}

// parse reads "key [asc|desc], key [asc|desc]".
func (o OrderSchema) parse(raw string) ([]OrderTerm, error) {
	var terms []OrderTerm
	seen := map[string]bool{}
	for _, seg := range strings.Split(raw, ",") {
		parts := strings.Fields(seg)
		if len(parts) == 0 {
			continue
		}
		if len(parts) > 2 {
			return nil, fmt.Errorf("invalid segment %q", strings.TrimSpace(seg))
		}
		key := parts[0]
		if _, ok := o.Fields[key]; !ok {
			return nil, fmt.Errorf("field %q cannot be used for ordering", key)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate order key %q", key)
		}
		seen[key] = true

		term := OrderTerm{Key: key}
		if len(parts) == 2 {
			switch strings.ToLower(parts[1]) {
			case "asc":
			case "desc":
				term.Desc = true
			default:
				return nil, fmt.Errorf("invalid direction %q for %q", parts[1], key)
			}
		}
		terms = append(terms, term)
	}
	if o.MaxKeys > 0 && len(terms) > o.MaxKeys {
		return nil, fmt.Errorf("at most %d order keys are supported", o.MaxKeys)
	}
	if len(terms) == 0 {
		for _, t := range o.Default {
			terms = append(terms, t)
			seen[t.Key] = true
		}
	}
	if o.Tiebreak != "" && !seen[o.Tiebreak] {
		if _, ok := o.Fields[o.Tiebreak]; !ok {
			return nil, errors.New("tiebreak key missing from order fields")
		}
		terms = append(terms, OrderTerm{Key: o.Tiebreak})
	}
	return terms, nil
}
