package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoryRepository(openTestDB(t))

	books := category.Category{Name: "Books", Active: true}
	require.NoError(t, repo.Save(ctx, &books))
	games := category.Category{Name: "Jogos Eletrônicos", Active: false}
	require.NoError(t, repo.Save(ctx, &games))
	assert.NotZero(t, books.ID)
	assert.NotEqual(t, books.ID, games.ID)

	exists, err := repo.ExistsByName(ctx, "BOOKS")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByName(ctx, "JOGOS ELETRÔNICOS")
	require.NoError(t, err)
	assert.True(t, exists, "non-ASCII names fold too")

	exists, err = repo.ExistsByNameExcludingID(ctx, "books", books.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	dup := category.Category{Name: "bOOKS", Active: true}
	assert.ErrorIs(t, repo.Save(ctx, &dup), category.ErrNameTaken)

	games.Active = true
	require.NoError(t, repo.Save(ctx, &games))
	got, err := repo.GetByID(ctx, games.ID)
	require.NoError(t, err)
	assert.Equal(t, games, *got)

	_, err = repo.GetByID(ctx, 404)
	assert.ErrorIs(t, err, category.ErrNotFound)

	missing := category.Category{ID: 404, Name: "Ghost"}
	assert.ErrorIs(t, repo.Save(ctx, &missing), category.ErrNotFound)

	byIDs, err := repo.GetByIDs(ctx, []int64{games.ID, books.ID})
	require.NoError(t, err)
	assert.Equal(t, []category.Category{books, games}, byIDs)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTransactor_Rollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewCategoryRepository(db)
	tx := NewTransactor(db)

	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		c := category.Category{Name: "Ephemeral", Active: true}
		require.NoError(t, repo.Save(ctx, &c))
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := repo.ExistsByName(ctx, "Ephemeral")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	categories := NewCategoryRepository(db)
	repo := NewProductRepository(db)

	electronics := category.Category{Name: "Electronics", Active: true}
	require.NoError(t, categories.Save(ctx, &electronics))

	mouse := product.Product{
		Name:        "Mouse",
		Description: "wireless",
		Price:       decimal.RequireFromString("149.90"),
		Stock:       25,
		Active:      true,
		CategoryID:  electronics.ID,
	}
	require.NoError(t, repo.Save(ctx, &mouse))

	got, err := repo.GetByID(ctx, mouse.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(mouse.Price), "price %s", got.Price)
	assert.Equal(t, "wireless", got.Description)

	dup := product.Product{Name: "MOUSE", Price: decimal.NewFromInt(1), Stock: 1, Active: true, CategoryID: electronics.ID}
	assert.ErrorIs(t, repo.Save(ctx, &dup), product.ErrNameTaken)

	mouse.ImageKey = "k.png"
	require.NoError(t, repo.Save(ctx, &mouse))
	got, err = repo.GetByID(ctx, mouse.ID)
	require.NoError(t, err)
	assert.Equal(t, "k.png", got.ImageKey)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, mouse.ID))
	assert.ErrorIs(t, repo.Delete(ctx, mouse.ID), product.ErrNotFound)
	_, err = repo.GetByID(ctx, mouse.ID)
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestProductRepository_FindPage(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	categories := NewCategoryRepository(db)
	repo := NewProductRepository(db)

	electronics := category.Category{Name: "Electronics", Active: true}
	kitchen := category.Category{Name: "Kitchen", Active: true}
	require.NoError(t, categories.Save(ctx, &electronics))
	require.NoError(t, categories.Save(ctx, &kitchen))

	for _, p := range []product.Product{
		{Name: "Gaming Mouse", Price: decimal.RequireFromString("149.90"), CategoryID: electronics.ID, Active: true},
		{Name: "Mousepad", Price: decimal.RequireFromString("29.90"), CategoryID: electronics.ID, Active: true},
		{Name: "Old Mouse", Price: decimal.RequireFromString("9.99"), CategoryID: electronics.ID, Active: false},
		{Name: "Mouse Trap", Price: decimal.RequireFromString("15.00"), CategoryID: kitchen.ID, Active: true},
		{Name: "Mug_50%", Price: decimal.RequireFromString("10.00"), CategoryID: kitchen.ID, Active: true},
	} {
		p.Stock = 1
		require.NoError(t, repo.Save(ctx, &p))
	}

	tests := []struct {
		name      string
		filter    product.Filter
		wantNames []string
		wantTotal int64
	}{
		{"active only", product.Filter{Size: 10}, []string{"Gaming Mouse", "Mousepad", "Mouse Trap", "Mug_50%"}, 4},
		{"name", product.Filter{Name: "mOUSE", Size: 10}, []string{"Gaming Mouse", "Mousepad", "Mouse Trap"}, 3},
		{"wildcards are literal", product.Filter{Name: "_50%", Size: 10}, []string{"Mug_50%"}, 1},
		{"min inclusive", product.Filter{MinPrice: decimalPtr("29.90"), Size: 10}, []string{"Gaming Mouse", "Mousepad"}, 2},
		{"sub-cent min", product.Filter{MinPrice: decimalPtr("29.895"), Size: 10}, []string{"Gaming Mouse", "Mousepad"}, 2},
		{"sub-cent max", product.Filter{MaxPrice: decimalPtr("15.005"), Size: 10}, []string{"Mouse Trap", "Mug_50%"}, 2},
		{"category", product.Filter{CategoryID: &kitchen.ID, Size: 10}, []string{"Mouse Trap", "Mug_50%"}, 2},
		{"page", product.Filter{Page: 1, Size: 2}, []string{"Mouse Trap", "Mug_50%"}, 4},
		{"past end", product.Filter{Page: 9, Size: 2}, nil, 4},
		{"offset beyond int range", product.Filter{Page: math.MaxInt/2 + 1, Size: 2}, nil, 4},
		{"page times size wraps to zero", product.Filter{Page: 1 << 62, Size: 4}, nil, 4},
		{"name keeps leading space", product.Filter{Name: " pad", Size: 10}, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repo.FindPage(ctx, tt.filter.Predicate(), tt.filter.Page, tt.filter.Size)
			require.NoError(t, err)

			var names []string
			for _, p := range items {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}
