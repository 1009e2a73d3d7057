package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/catalog-service/internal/domain/category"
)

const (
	categoryExistsByNameSQL = `SELECT EXISTS (SELECT 1 FROM categories WHERE lower(name) = lower($1) AND id <> $2)`

	getCategoryByIDSQL = `SELECT id, name, active FROM categories WHERE id = $1`

	getCategoriesByIDsSQL = `SELECT id, name, active FROM categories WHERE id = ANY($1) ORDER BY id`

	listCategoriesSQL = `SELECT id, name, active FROM categories ORDER BY id`

	insertCategorySQL = `INSERT INTO categories (name, active) VALUES ($1, $2) RETURNING id`

	updateCategorySQL = `UPDATE categories SET name = $2, active = $3 WHERE id = $1`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// ExistsByName reports whether a category with the case-insensitive name exists.
func (r *CategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.ExistsByNameExcludingID(ctx, name, 0)
}

// ExistsByNameExcludingID is ExistsByName ignoring the category with the given id.
func (r *CategoryRepository) ExistsByNameExcludingID(ctx context.Context, name string, id int64) (bool, error) {
	var exists bool
	if err := conn(ctx, r.pool).QueryRow(ctx, categoryExistsByNameSQL, name, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking category name %q: %w", name, err)
	}
	return exists, nil
}

// GetByID returns a single category by its identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getCategoryByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}
	return &c, nil
}

// GetByIDs returns the categories matching any of the given IDs.
func (r *CategoryRepository) GetByIDs(ctx context.Context, ids []int64) ([]category.Category, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getCategoriesByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting categories by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

// Save inserts or updates c.
func (r *CategoryRepository) Save(ctx context.Context, c *category.Category) error {
	q := conn(ctx, r.pool)
	if c.ID == 0 {
		err := q.QueryRow(ctx, insertCategorySQL, c.Name, c.Active).Scan(&c.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return category.ErrNameTaken
			}
			return fmt.Errorf("inserting category %q: %w", c.Name, err)
		}
		return nil
	}

	tag, err := q.Exec(ctx, updateCategorySQL, c.ID, c.Name, c.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return category.ErrNameTaken
		}
		return fmt.Errorf("updating category %d: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}
	return nil
}

// List returns all categories ordered by ID.
func (r *CategoryRepository) List(ctx context.Context) ([]category.Category, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

func scanCategory(row pgx.CollectableRow) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.Name, &c.Active)
	return c, err
}
