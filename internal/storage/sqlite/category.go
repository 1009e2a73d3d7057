package sqlite

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"github.com/xenking/catalog-service/internal/domain/category"
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository on SQLite.
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a CategoryRepository backed by db.
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.ExistsByNameExcludingID(ctx, name, 0)
}

func (r *CategoryRepository) ExistsByNameExcludingID(ctx context.Context, name string, id int64) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&categoryRecord{}).
		Where("name_key = ? AND id <> ?", nameKey(name), id).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking category name %q: %w", name, err)
	}
	return n > 0, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	var rec categoryRecord
	if err := conn(ctx, r.db).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, category.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}
	c := rec.toDomain()
	return &c, nil
}

func (r *CategoryRepository) GetByIDs(ctx context.Context, ids []int64) ([]category.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recs []categoryRecord
	if err := conn(ctx, r.db).Where("id IN ?", ids).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("getting categories by ids: %w", err)
	}
	return toCategories(recs), nil
}

func (r *CategoryRepository) Save(ctx context.Context, c *category.Category) error {
	rec := newCategoryRecord(c)
	db := conn(ctx, r.db)

	if c.ID == 0 {
		if err := db.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return category.ErrNameTaken
			}
			return fmt.Errorf("inserting category %q: %w", c.Name, err)
		}
		c.ID = rec.ID
		return nil
	}

	res := db.Model(&categoryRecord{}).Where("id = ?", c.ID).Updates(map[string]any{
		"name":     rec.Name,
		"name_key": rec.NameKey,
		"active":   rec.Active,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return category.ErrNameTaken
		}
		return fmt.Errorf("updating category %d: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return category.ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]category.Category, error) {
	var recs []categoryRecord
	if err := conn(ctx, r.db).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return toCategories(recs), nil
}

func toCategories(recs []categoryRecord) []category.Category {
	out := make([]category.Category, len(recs))
	for i, rec := range recs {
		out[i] = rec.toDomain()
	}
	return out
}
