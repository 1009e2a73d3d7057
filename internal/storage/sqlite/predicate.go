package sqlite

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/xenking/catalog-service/internal/domain/product"
)

// scope lowers a product predicate to a GORM scope. Price bounds are rounded
// toward the inside of the range since prices are stored in whole cents.
func scope(pred product.Predicate) (func(*gorm.DB) *gorm.DB, error) {
	var conds []func(*gorm.DB) *gorm.DB
	if err := collect(pred, &conds); err != nil {
		return nil, err
	}
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range conds {
			db = c(db)
		}
		return db
	}, nil
}

func collect(p product.Predicate, conds *[]func(*gorm.DB) *gorm.DB) error {
	where := func(query string, args ...any) {
		*conds = append(*conds, func(db *gorm.DB) *gorm.DB {
			return db.Where(query, args...)
		})
	}

	switch p.Op {
	case product.OpTrue:
	case product.OpAnd:
		for _, t := range p.Terms {
			if err := collect(t, conds); err != nil {
				return err
			}
		}
	case product.OpActive:
		where("active = ?", true)
	case product.OpNameContains:
		where("instr(name_key, ?) > 0", p.Text)
	case product.OpPriceAtLeast:
		where("price_cents >= ?", p.Price.Shift(2).Ceil().IntPart())
	case product.OpPriceAtMost:
		where("price_cents <= ?", p.Price.Shift(2).Floor().IntPart())
	case product.OpCategoryEquals:
		where("category_id = ?", p.CategoryID)
	default:
		return fmt.Errorf("unsupported predicate op %d", p.Op)
	}
	return nil
}
