package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/catalog-service/internal/domain/product"
)

const productColumns = `id, name, COALESCE(description, ''), price, stock, active, COALESCE(image_key, ''), category_id`

const (
	productExistsByNameSQL = `SELECT EXISTS (SELECT 1 FROM products
		WHERE category_id = $1 AND lower(name) = lower($2) AND id <> $3)`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	insertProductSQL = `INSERT INTO products (name, description, price, stock, active, image_key, category_id)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''), $7) RETURNING id`

	updateProductSQL = `UPDATE products SET name = $2, description = NULLIF($3, ''), price = $4, stock = $5,
		active = $6, image_key = NULLIF($7, ''), category_id = $8 WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ExistsByNameInCategory reports whether the category already holds a
// product with the case-insensitive name.
func (r *ProductRepository) ExistsByNameInCategory(ctx context.Context, name string, categoryID int64) (bool, error) {
	return r.ExistsByNameInCategoryExcludingID(ctx, name, categoryID, 0)
}

// ExistsByNameInCategoryExcludingID is ExistsByNameInCategory ignoring the
// product with the given id.
func (r *ProductRepository) ExistsByNameInCategoryExcludingID(ctx context.Context, name string, categoryID, id int64) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, productExistsByNameSQL, categoryID, name, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking product name %q in category %d: %w", name, categoryID, err)
	}
	return exists, nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// Save inserts or updates p.
func (r *ProductRepository) Save(ctx context.Context, p *product.Product) error {
	q := conn(ctx, r.pool)
	if p.ID == 0 {
		err := q.QueryRow(ctx, insertProductSQL,
			p.Name, p.Description, p.Price, p.Stock, p.Active, p.ImageKey, p.CategoryID,
		).Scan(&p.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return product.ErrNameTaken
			}
			return fmt.Errorf("inserting product %q: %w", p.Name, err)
		}
		return nil
	}

	tag, err := q.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Active, p.ImageKey, p.CategoryID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrNameTaken
		}
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes the product with the given id.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// List returns all products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// FindPage returns one page of products matching pred ordered by ID, and the
// total number of matches. Both are read from the same snapshot.
func (r *ProductRepository) FindPage(ctx context.Context, pred product.Predicate, pageIndex, pageSize int) ([]product.Product, int64, error) {
	where, args, err := whereClause(pred)
	if err != nil {
		return nil, 0, err
	}

	countSQL := `SELECT count(*) FROM products WHERE ` + where
	pageSQL := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)
	offset, ok := product.PageOffset(pageIndex, pageSize)
	if !ok {
		offset = math.MaxInt
	}
	pageArgs := append(append([]any{}, args...), pageSize, offset)

	var (
		items []product.Product
		total int64
	)
	err = readTx(ctx, r.pool, func(q querier) error {
		if err := q.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
			return fmt.Errorf("counting products: %w", err)
		}
		rows, err := q.Query(ctx, pageSQL, pageArgs...)
		if err != nil {
			return fmt.Errorf("finding products: %w", err)
		}
		items, err = pgx.CollectRows(rows, scanProduct)
		if err != nil {
			return fmt.Errorf("finding products: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.Active, &p.ImageKey, &p.CategoryID,
	)
	return p, err
}
