// Package seed loads a catalog description into the catalog services. It is
// idempotent: entries that already exist are skipped.
package seed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/catalog-service/internal/domain/catalog"
	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

// File is the seed document layout.
type File struct {
	Categories []Category `json:"categories"`
}

// Category is one category with the products filed under it.
type Category struct {
	Name     string    `json:"name"`
	Active   bool      `json:"active"`
	Products []Product `json:"products"`
}

// Product is one seed product.
type Product struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Active      bool            `json:"active"`
}

// Stats counts what a Load call did.
type Stats struct {
	CategoriesCreated int
	ProductsCreated   int
	Skipped           int
}

// Parse decodes a seed document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse seed JSON")
	}
	return &f, nil
}

// Load creates every category and product of f that does not exist yet.
// Categories are deactivated only after their products are in place.
func Load(ctx context.Context, categories *category.Service, products *product.Service, f *File) (Stats, error) {
	var stats Stats

	existing, err := categories.List(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "list categories")
	}
	byName := make(map[string]category.Category, len(existing))
	for _, c := range existing {
		byName[strings.ToLower(c.Name)] = c
	}

	for _, sc := range f.Categories {
		c, ok := byName[strings.ToLower(strings.TrimSpace(sc.Name))]
		if !ok {
			created, err := categories.Create(ctx, category.Input{Name: sc.Name})
			if err != nil {
				return stats, errors.Wrapf(err, "create category %q", sc.Name)
			}
			c = *created
			stats.CategoriesCreated++
			slog.Info("created category", slog.Int64("id", c.ID), slog.String("name", c.Name))
		}

		if c.Active {
			for _, sp := range sc.Products {
				created, err := createProduct(ctx, products, c.ID, sp)
				if err != nil {
					return stats, err
				}
				if created {
					stats.ProductsCreated++
				} else {
					stats.Skipped++
				}
			}
		} else {
			stats.Skipped += len(sc.Products)
		}

		if c.Active && !sc.Active {
			active := false
			if _, err := categories.Update(ctx, c.ID, category.Input{Name: c.Name, Active: &active}); err != nil {
				return stats, errors.Wrapf(err, "deactivate category %q", c.Name)
			}
			slog.Info("deactivated category", slog.Int64("id", c.ID), slog.String("name", c.Name))
		}
	}
	return stats, nil
}

func createProduct(ctx context.Context, products *product.Service, categoryID int64, sp Product) (bool, error) {
	active := sp.Active
	v, err := products.Create(ctx, product.Input{
		Name:        sp.Name,
		Description: sp.Description,
		Price:       sp.Price,
		Stock:       sp.Stock,
		Active:      &active,
		CategoryID:  categoryID,
	})
	switch {
	case errors.Is(err, catalog.ErrConflict):
		slog.Info("product exists, skipping", slog.String("name", sp.Name))
		return false, nil
	case err != nil:
		return false, errors.Wrapf(err, "create product %q", sp.Name)
	}
	slog.Info("created product",
		slog.Int64("id", v.ID),
		slog.String("name", v.Name),
		slog.String("price", v.Price.StringFixed(2)),
	)
	return true, nil
}
