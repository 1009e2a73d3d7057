package category

import (
	"context"

	"github.com/xenking/catalog-service/internal/domain/catalog"
)

var (
	// ErrNotFound is returned when a requested category does not exist.
	ErrNotFound = catalog.NotFound("category not found")
	// ErrNameTaken is returned when another category already uses the name,
	// compared case-insensitively.
	ErrNameTaken = catalog.Conflict("category already exists")
)

// Category groups products. Categories are never deleted; deactivating one
// only stops new products from being filed under it.
type Category struct {
	ID     int64
	Name   string
	Active bool
}

// Input holds the caller-supplied fields for create and full update.
type Input struct {
	Name string
	// Active defaults to true when nil.
	Active *bool
}

// ErrNameRequired is returned when the category name is blank.
var ErrNameRequired = catalog.BadRequest("name is required")

// Repository defines persistence operations for categories.
type Repository interface {
	ExistsByName(ctx context.Context, name string) (bool, error)
	ExistsByNameExcludingID(ctx context.Context, name string, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*Category, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Category, error)
	// Save inserts c when c.ID is zero, assigning the new ID, and updates it
	// otherwise.
	Save(ctx context.Context, c *Category) error
	List(ctx context.Context) ([]Category, error)
}
