package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/catalog-service/db"
	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
	"github.com/xenking/catalog-service/internal/storage/blob"
	"github.com/xenking/catalog-service/internal/storage/memory"
)

func newServices(t *testing.T) (*category.Service, *product.Service) {
	t.Helper()
	store := memory.New()
	images, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)
	return category.NewService(store.Categories(), store),
		product.NewService(store.Products(), store.Categories(), images, store)
}

func TestLoad_EmbeddedCatalog(t *testing.T) {
	ctx := context.Background()
	categories, products := newServices(t)

	f, err := Parse(db.SeedCatalog)
	require.NoError(t, err)

	stats, err := Load(ctx, categories, products, f)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.CategoriesCreated)
	assert.Equal(t, 9, stats.ProductsCreated)
	assert.Zero(t, stats.Skipped)

	list, err := categories.List(ctx)
	require.NoError(t, err)
	active := map[string]bool{}
	for _, c := range list {
		active[c.Name] = c.Active
	}
	assert.Equal(t, map[string]bool{"Electronics": true, "Kitchen": true, "Books": true, "Clearance": false}, active)

	res, err := products.Search(ctx, product.Filter{Name: "mouse", Size: 10})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "149.90", res.Content[0].Price.StringFixed(2))
	assert.Equal(t, "Electronics", res.Content[0].CategoryName)

	// Webcam is seeded inactive and never shows up in searches.
	res, err = products.Search(ctx, product.Filter{Name: "webcam", Size: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Content)
}

func TestLoad_Idempotent(t *testing.T) {
	ctx := context.Background()
	categories, products := newServices(t)
	f, err := Parse(db.SeedCatalog)
	require.NoError(t, err)

	_, err = Load(ctx, categories, products, f)
	require.NoError(t, err)

	stats, err := Load(ctx, categories, products, f)
	require.NoError(t, err)
	assert.Zero(t, stats.CategoriesCreated)
	assert.Zero(t, stats.ProductsCreated)
	assert.Equal(t, 9, stats.Skipped)
}

func TestLoad_InvalidProduct(t *testing.T) {
	categories, products := newServices(t)
	f, err := Parse([]byte(`{"categories":[{"name":"Tools","active":true,"products":[{"name":"Hammer","price":"0","stock":1,"active":true}]}]}`))
	require.NoError(t, err)

	_, err = Load(context.Background(), categories, products, f)
	assert.ErrorContains(t, err, `create product "Hammer"`)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"categories":[`))
	assert.Error(t, err)
}
