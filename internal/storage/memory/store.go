// Package memory implements the catalog repositories in process memory.
// Data is lost on restart; it backs local runs and tests.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/xenking/catalog-service/internal/domain/catalog"
	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

type txKey struct{}

var (
	_ catalog.Transactor  = (*Store)(nil)
	_ category.Repository = (*CategoryRepository)(nil)
	_ product.Repository  = (*ProductRepository)(nil)
)

// Store holds every table behind a single mutex. A transaction holds the
// mutex for its whole duration and restores a snapshot on failure.
type Store struct {
	mu         sync.Mutex
	categories map[int64]category.Category
	products   map[int64]product.Product
	nextCatID  int64
	nextProdID int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		categories: make(map[int64]category.Category),
		products:   make(map[int64]product.Product),
		nextCatID:  1,
		nextProdID: 1,
	}
}

// Categories returns the category repository view of the store.
func (s *Store) Categories() *CategoryRepository {
	return &CategoryRepository{s: s}
}

// Products returns the product repository view of the store.
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{s: s}
}

type snapshot struct {
	categories map[int64]category.Category
	products   map[int64]product.Product
	nextCatID  int64
	nextProdID int64
}

// WithinTx runs fn with exclusive access to the store. Writes made by fn are
// undone when it returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		categories: maps.Clone(s.categories),
		products:   maps.Clone(s.products),
		nextCatID:  s.nextCatID,
		nextProdID: s.nextProdID,
	}
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.categories = snap.categories
		s.products = snap.products
		s.nextCatID = snap.nextCatID
		s.nextProdID = snap.nextProdID
		return err
	}
	return nil
}

// lock acquires the store mutex unless ctx already runs inside one of its
// transactions.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// CategoryRepository implements category.Repository on a Store.
type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.ExistsByNameExcludingID(ctx, name, 0)
}

func (r *CategoryRepository) ExistsByNameExcludingID(ctx context.Context, name string, id int64) (bool, error) {
	defer r.s.lock(ctx)()
	return r.s.categoryNameTaken(name, id), nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, category.ErrNotFound
	}
	return &c, nil
}

func (r *CategoryRepository) GetByIDs(ctx context.Context, ids []int64) ([]category.Category, error) {
	defer r.s.lock(ctx)()
	var out []category.Category
	for _, id := range ids {
		if c, ok := r.s.categories[id]; ok {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b category.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *CategoryRepository) Save(ctx context.Context, c *category.Category) error {
	defer r.s.lock(ctx)()
	if r.s.categoryNameTaken(c.Name, c.ID) {
		return category.ErrNameTaken
	}
	if c.ID == 0 {
		c.ID = r.s.nextCatID
		r.s.nextCatID++
	} else if _, ok := r.s.categories[c.ID]; !ok {
		return category.ErrNotFound
	}
	r.s.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]category.Category, error) {
	defer r.s.lock(ctx)()
	out := slices.Collect(maps.Values(r.s.categories))
	slices.SortFunc(out, func(a, b category.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ProductRepository implements product.Repository on a Store.
type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) ExistsByNameInCategory(ctx context.Context, name string, categoryID int64) (bool, error) {
	return r.ExistsByNameInCategoryExcludingID(ctx, name, categoryID, 0)
}

func (r *ProductRepository) ExistsByNameInCategoryExcludingID(ctx context.Context, name string, categoryID, id int64) (bool, error) {
	defer r.s.lock(ctx)()
	return r.s.productNameTaken(name, categoryID, id), nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (r *ProductRepository) Save(ctx context.Context, p *product.Product) error {
	defer r.s.lock(ctx)()
	if r.s.productNameTaken(p.Name, p.CategoryID, p.ID) {
		return product.ErrNameTaken
	}
	if p.ID == 0 {
		p.ID = r.s.nextProdID
		r.s.nextProdID++
	} else if _, ok := r.s.products[p.ID]; !ok {
		return product.ErrNotFound
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	defer r.s.lock(ctx)()
	return r.s.sortedProducts(), nil
}

func (r *ProductRepository) FindPage(ctx context.Context, pred product.Predicate, pageIndex, pageSize int) ([]product.Product, int64, error) {
	defer r.s.lock(ctx)()

	var matched []product.Product
	for _, p := range r.s.sortedProducts() {
		if pred.Match(p) {
			matched = append(matched, p)
		}
	}

	total := int64(len(matched))
	offset, ok := product.PageOffset(pageIndex, pageSize)
	if !ok {
		offset = len(matched)
	}
	start := min(offset, len(matched))
	end := start + max(0, min(pageSize, len(matched)-start))
	return slices.Clone(matched[start:end]), total, nil
}

func (s *Store) categoryNameTaken(name string, exceptID int64) bool {
	for _, c := range s.categories {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) productNameTaken(name string, categoryID, exceptID int64) bool {
	for _, p := range s.products {
		if p.ID != exceptID && p.CategoryID == categoryID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) sortedProducts() []product.Product {
	out := slices.Collect(maps.Values(s.products))
	slices.SortFunc(out, func(a, b product.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
