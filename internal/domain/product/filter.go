package product

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/xenking/catalog-service/internal/domain/catalog"
)

// DefaultPageSize is used by callers when the client omits a page size.
const DefaultPageSize = 10

var (
	ErrPriceRange   = catalog.BadRequest("minimum price cannot be greater than maximum price")
	ErrNegativePage = catalog.BadRequest("page must be greater than or equal to zero")
	ErrPageSize     = catalog.BadRequest("page size must be greater than zero")
	ErrPageRange    = catalog.BadRequest("page is too large for the page size")
)

// Filter is a product search request. Nil or blank criteria do not narrow
// the result. Page is zero-based.
type Filter struct {
	Name       string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryID *int64
	Page       int
	Size       int
}

// Validate rejects an inverted price range and invalid pagination.
func (f Filter) Validate() error {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return ErrPriceRange
	}
	if f.Page < 0 {
		return ErrNegativePage
	}
	if f.Size <= 0 {
		return ErrPageSize
	}
	if _, ok := PageOffset(f.Page, f.Size); !ok {
		return ErrPageRange
	}
	return nil
}

// PageOffset returns the index of the first row of a page. It reports false
// when the page is invalid or the offset does not fit in an int.
func PageOffset(pageIndex, pageSize int) (int, bool) {
	if pageIndex < 0 || pageSize <= 0 || pageIndex > math.MaxInt/pageSize {
		return 0, false
	}
	return pageIndex * pageSize, true
}

// Predicate composes the filter criteria. Only active products are ever
// returned by a search.
func (f Filter) Predicate() Predicate {
	return And(
		IsActive(),
		NameContains(f.Name),
		PriceAtLeast(f.MinPrice),
		PriceAtMost(f.MaxPrice),
		CategoryEquals(f.CategoryID),
	)
}
