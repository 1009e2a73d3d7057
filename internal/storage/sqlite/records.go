package sqlite

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

// Names are matched case-insensitively through NameKey, the lower-cased name,
// since SQLite's lower() only folds ASCII.

type categoryRecord struct {
	ID      int64  `gorm:"primaryKey"`
	Name    string `gorm:"not null"`
	NameKey string `gorm:"not null;uniqueIndex:idx_categories_name"`
	Active  bool   `gorm:"not null"`
}

func (categoryRecord) TableName() string { return "categories" }

func newCategoryRecord(c *category.Category) categoryRecord {
	return categoryRecord{
		ID:      c.ID,
		Name:    c.Name,
		NameKey: nameKey(c.Name),
		Active:  c.Active,
	}
}

func (r categoryRecord) toDomain() category.Category {
	return category.Category{ID: r.ID, Name: r.Name, Active: r.Active}
}

// productRecord stores the price in cents so SQL comparisons stay exact.
type productRecord struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	NameKey     string `gorm:"not null;uniqueIndex:idx_products_category_name,priority:2"`
	Description string `gorm:"size:20;not null;default:''"`
	PriceCents  int64  `gorm:"not null"`
	Stock       int    `gorm:"not null"`
	Active      bool   `gorm:"not null;index:idx_products_active_id,priority:1"`
	ImageKey    string `gorm:"not null;default:''"`
	CategoryID  int64  `gorm:"not null;uniqueIndex:idx_products_category_name,priority:1"`
}

func (productRecord) TableName() string { return "products" }

func newProductRecord(p *product.Product) productRecord {
	return productRecord{
		ID:          p.ID,
		Name:        p.Name,
		NameKey:     nameKey(p.Name),
		Description: p.Description,
		PriceCents:  p.Price.Shift(2).IntPart(),
		Stock:       p.Stock,
		Active:      p.Active,
		ImageKey:    p.ImageKey,
		CategoryID:  p.CategoryID,
	}
}

func (r productRecord) toDomain() product.Product {
	return product.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       decimal.New(r.PriceCents, -2),
		Stock:       r.Stock,
		Active:      r.Active,
		ImageKey:    r.ImageKey,
		CategoryID:  r.CategoryID,
	}
}

func nameKey(name string) string {
	return strings.ToLower(name)
}
