package memory

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/catalog-service/internal/domain/catalog"
	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := New().Categories()

	books := category.Category{Name: "Books", Active: true}
	require.NoError(t, repo.Save(ctx, &books))
	assert.EqualValues(t, 1, books.ID)

	dup := category.Category{Name: "BOOKS"}
	assert.ErrorIs(t, repo.Save(ctx, &dup), category.ErrNameTaken)
	assert.Zero(t, dup.ID)

	ghost := category.Category{ID: 9, Name: "Ghost"}
	assert.ErrorIs(t, repo.Save(ctx, &ghost), category.ErrNotFound)

	got, err := repo.GetByID(ctx, books.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := repo.GetByID(ctx, books.ID)
	require.NoError(t, err)
	assert.Equal(t, "Books", again.Name, "callers get copies")
}

func TestWithinTx_RestoresOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	products := s.Products()

	p := product.Product{Name: "Mouse", Price: decimal.NewFromInt(10), Stock: 1, Active: true, CategoryID: 1}
	require.NoError(t, products.Save(ctx, &p))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, products.Delete(ctx, p.ID))
		extra := product.Product{Name: "Pad", Price: decimal.NewFromInt(5), Stock: 1, Active: true, CategoryID: 1}
		require.NoError(t, products.Save(ctx, &extra))
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := products.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Mouse", all[0].Name)

	next := product.Product{Name: "Pad", Price: decimal.NewFromInt(5), Stock: 1, Active: true, CategoryID: 1}
	require.NoError(t, products.Save(ctx, &next))
	assert.EqualValues(t, 2, next.ID, "id sequence rolled back too")
}

func TestFindPage(t *testing.T) {
	ctx := context.Background()
	products := New().Products()
	for i := 1; i <= 7; i++ {
		p := product.Product{
			Name:       fmt.Sprintf("Item %d", i),
			Price:      decimal.NewFromInt(int64(i)),
			Stock:      1,
			Active:     i != 4,
			CategoryID: 1,
		}
		require.NoError(t, products.Save(ctx, &p))
	}

	items, total, err := products.FindPage(ctx, product.IsActive(), 1, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	require.Len(t, items, 2)
	assert.EqualValues(t, 6, items[0].ID)
	assert.EqualValues(t, 7, items[1].ID)

	items, total, err = products.FindPage(ctx, product.IsActive(), 5, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	assert.Empty(t, items)

	for _, tt := range []struct{ page, size int }{
		{1 << 62, 4},
		{math.MaxInt/2 + 1, 2},
		{math.MaxInt, math.MaxInt},
	} {
		items, total, err = products.FindPage(ctx, product.IsActive(), tt.page, tt.size)
		require.NoError(t, err)
		assert.EqualValues(t, 6, total)
		assert.Empty(t, items, "page %d size %d", tt.page, tt.size)
	}
}

func TestSearch_RejectsOverflowingPage(t *testing.T) {
	ctx := context.Background()
	s := New()
	products := product.NewService(s.Products(), s.Categories(), nil, s)

	_, err := products.Search(ctx, product.Filter{Page: 1 << 62, Size: 4})
	require.ErrorIs(t, err, product.ErrPageRange)
	assert.ErrorIs(t, err, catalog.ErrBadRequest)
}

func TestConcurrentCreates_OneWins(t *testing.T) {
	s := New()
	svc := category.NewService(s.Categories(), s)

	var created, conflicts atomic.Int32
	var g errgroup.Group
	for range 16 {
		g.Go(func() error {
			_, err := svc.Create(context.Background(), category.Input{Name: "Electronics"})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, catalog.ErrConflict):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, 15, conflicts.Load())
}
