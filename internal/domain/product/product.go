package product

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/xenking/catalog-service/internal/domain/catalog"
)

// MaxDescriptionLength bounds Product.Description, counted in runes.
const MaxDescriptionLength = 20

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = catalog.NotFound("product not found")
	// ErrNameTaken is returned when another product in the same category
	// already uses the name, compared case-insensitively.
	ErrNameTaken = catalog.Conflict("product already exists in this category")
	// ErrInactive is returned when an image is attached to an inactive product.
	ErrInactive = catalog.BadRequest("product is inactive")
	// ErrCategoryInactive is returned when a product is filed under an
	// inactive category.
	ErrCategoryInactive = catalog.BadRequest("category is inactive")
)

// Product is a catalog item. CategoryID always referenced an existing, active
// category at the time of the last create or update.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Active      bool
	// ImageKey is the blob store key of the product image, empty when the
	// product has none. It is the only reference to the blob.
	ImageKey   string
	CategoryID int64
}

// View is the read projection of a product, with its category resolved.
type View struct {
	Product
	CategoryName string
}

// Input holds the caller-supplied fields for create and full update.
type Input struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	// Active defaults to true when nil.
	Active     *bool
	CategoryID int64
}

// Validate checks the field-level invariants of a product.
func (in Input) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return catalog.BadRequest("name is required")
	case utf8.RuneCountInString(in.Description) > MaxDescriptionLength:
		return catalog.BadRequest("description must be at most 20 characters")
	case !in.Price.IsPositive():
		return catalog.BadRequest("price must be greater than zero")
	case !in.Price.Equal(in.Price.Round(2)):
		return catalog.BadRequest("price must have at most 2 decimal places")
	case in.Stock <= 0:
		return catalog.BadRequest("stock must be greater than zero")
	case in.CategoryID <= 0:
		return catalog.BadRequest("category is required")
	}
	return nil
}

func (in Input) active() bool {
	if in.Active == nil {
		return true
	}
	return *in.Active
}

// Repository defines persistence operations for products.
type Repository interface {
	ExistsByNameInCategory(ctx context.Context, name string, categoryID int64) (bool, error)
	ExistsByNameInCategoryExcludingID(ctx context.Context, name string, categoryID, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	// Save inserts p when p.ID is zero, assigning the new ID, and updates it
	// otherwise.
	Save(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]Product, error)
	// FindPage returns the products matching pred ordered by ID, limited to
	// the requested zero-based page, and the total number of matches.
	FindPage(ctx context.Context, pred Predicate, pageIndex, pageSize int) ([]Product, int64, error)
}
