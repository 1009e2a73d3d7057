package product

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Op identifies a predicate node.
type Op uint8

const (
	// OpTrue matches every product.
	OpTrue Op = iota
	// OpAnd matches when all Terms match.
	OpAnd
	// OpActive matches active products.
	OpActive
	// OpNameContains matches when the case-folded name contains Text.
	OpNameContains
	// OpPriceAtLeast matches when Price <= product price.
	OpPriceAtLeast
	// OpPriceAtMost matches when product price <= Price.
	OpPriceAtMost
	// OpCategoryEquals matches products filed under CategoryID.
	OpCategoryEquals
)

// Predicate is a boolean test over a product, kept as a small expression tree
// so every store can lower it to its own query mechanism. The zero value
// matches everything.
type Predicate struct {
	Op         Op
	Text       string
	Price      decimal.Decimal
	CategoryID int64
	Terms      []Predicate
}

// True returns the predicate that matches every product.
func True() Predicate {
	return Predicate{Op: OpTrue}
}

// IsActive matches active products only.
func IsActive() Predicate {
	return Predicate{Op: OpActive}
}

// NameContains matches names containing text, ignoring case. A blank text
// does not narrow the result; otherwise text is matched as given, spaces
// included.
func NameContains(text string) Predicate {
	if strings.TrimSpace(text) == "" {
		return True()
	}
	return Predicate{Op: OpNameContains, Text: strings.ToLower(text)}
}

// PriceAtLeast matches prices greater than or equal to min. A nil min does
// not narrow the result.
func PriceAtLeast(min *decimal.Decimal) Predicate {
	if min == nil {
		return True()
	}
	return Predicate{Op: OpPriceAtLeast, Price: *min}
}

// PriceAtMost matches prices less than or equal to max. A nil max does not
// narrow the result.
func PriceAtMost(max *decimal.Decimal) Predicate {
	if max == nil {
		return True()
	}
	return Predicate{Op: OpPriceAtMost, Price: *max}
}

// CategoryEquals matches products of the given category. A nil id does not
// narrow the result.
func CategoryEquals(id *int64) Predicate {
	if id == nil {
		return True()
	}
	return Predicate{Op: OpCategoryEquals, CategoryID: *id}
}

// And returns the conjunction of terms. Nested conjunctions are flattened and
// always-true terms dropped, so the result is either True, a single leaf, or
// an OpAnd over leaves.
func And(terms ...Predicate) Predicate {
	flat := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		switch t.Op {
		case OpTrue:
		case OpAnd:
			flat = append(flat, And(t.Terms...).leaves()...)
		default:
			flat = append(flat, t)
		}
	}
	switch len(flat) {
	case 0:
		return True()
	case 1:
		return flat[0]
	default:
		return Predicate{Op: OpAnd, Terms: flat}
	}
}

func (p Predicate) leaves() []Predicate {
	switch p.Op {
	case OpTrue:
		return nil
	case OpAnd:
		return p.Terms
	default:
		return []Predicate{p}
	}
}

// Match evaluates the predicate against a single product.
func (p Predicate) Match(pr Product) bool {
	switch p.Op {
	case OpTrue:
		return true
	case OpAnd:
		for _, t := range p.Terms {
			if !t.Match(pr) {
				return false
			}
		}
		return true
	case OpActive:
		return pr.Active
	case OpNameContains:
		return strings.Contains(strings.ToLower(pr.Name), p.Text)
	case OpPriceAtLeast:
		return pr.Price.GreaterThanOrEqual(p.Price)
	case OpPriceAtMost:
		return pr.Price.LessThanOrEqual(p.Price)
	case OpCategoryEquals:
		return pr.CategoryID == p.CategoryID
	default:
		return false
	}
}

// String renders the predicate for logs.
func (p Predicate) String() string {
	switch p.Op {
	case OpTrue:
		return "true"
	case OpAnd:
		parts := make([]string, len(p.Terms))
		for i, t := range p.Terms {
			parts[i] = t.String()
		}
		return strings.Join(parts, " AND ")
	case OpActive:
		return "active"
	case OpNameContains:
		return "name~" + strconv.Quote(p.Text)
	case OpPriceAtLeast:
		return "price>=" + p.Price.String()
	case OpPriceAtMost:
		return "price<=" + p.Price.String()
	case OpCategoryEquals:
		return "category=" + strconv.FormatInt(p.CategoryID, 10)
	default:
		return "op(" + strconv.Itoa(int(p.Op)) + ")"
	}
}
