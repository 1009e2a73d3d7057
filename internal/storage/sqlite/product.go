package sqlite

import (
	"context"
	"fmt"
	"math"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"github.com/xenking/catalog-service/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository on SQLite.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository returns a ProductRepository backed by db.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) ExistsByNameInCategory(ctx context.Context, name string, categoryID int64) (bool, error) {
	return r.ExistsByNameInCategoryExcludingID(ctx, name, categoryID, 0)
}

func (r *ProductRepository) ExistsByNameInCategoryExcludingID(ctx context.Context, name string, categoryID, id int64) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&productRecord{}).
		Where("category_id = ? AND name_key = ? AND id <> ?", categoryID, nameKey(name), id).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking product name %q in category %d: %w", name, categoryID, err)
	}
	return n > 0, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	var rec productRecord
	if err := conn(ctx, r.db).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	p := rec.toDomain()
	return &p, nil
}

func (r *ProductRepository) Save(ctx context.Context, p *product.Product) error {
	rec := newProductRecord(p)
	db := conn(ctx, r.db)

	if p.ID == 0 {
		if err := db.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return product.ErrNameTaken
			}
			return fmt.Errorf("inserting product %q: %w", p.Name, err)
		}
		p.ID = rec.ID
		return nil
	}

	res := db.Model(&productRecord{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":        rec.Name,
		"name_key":    rec.NameKey,
		"description": rec.Description,
		"price_cents": rec.PriceCents,
		"stock":       rec.Stock,
		"active":      rec.Active,
		"image_key":   rec.ImageKey,
		"category_id": rec.CategoryID,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return product.ErrNameTaken
		}
		return fmt.Errorf("updating product %d: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	res := conn(ctx, r.db).Delete(&productRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	var recs []productRecord
	if err := conn(ctx, r.db).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return toProducts(recs), nil
}

// FindPage counts and fetches inside one transaction so both see the same
// rows.
func (r *ProductRepository) FindPage(ctx context.Context, pred product.Predicate, pageIndex, pageSize int) ([]product.Product, int64, error) {
	filter, err := scope(pred)
	if err != nil {
		return nil, 0, err
	}

	offset, ok := product.PageOffset(pageIndex, pageSize)
	if !ok {
		offset = math.MaxInt
	}

	var (
		recs  []productRecord
		total int64
	)
	err = NewTransactor(r.db).WithinTx(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.db)
		if err := db.Model(&productRecord{}).Scopes(filter).Count(&total).Error; err != nil {
			return fmt.Errorf("counting products: %w", err)
		}
		err := db.Scopes(filter).
			Order("id").
			Offset(offset).
			Limit(pageSize).
			Find(&recs).Error
		if err != nil {
			return fmt.Errorf("finding products: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return toProducts(recs), total, nil
}

func toProducts(recs []productRecord) []product.Product {
	out := make([]product.Product, len(recs))
	for i, rec := range recs {
		out[i] = rec.toDomain()
	}
	return out
}
