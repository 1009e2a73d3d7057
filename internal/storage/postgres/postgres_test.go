//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/catalog-service/internal/domain/catalog"
	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "catalog",
				"POSTGRES_PASSWORD": "catalog",
				"POSTGRES_DB":       "catalog",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := ctr.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	url := fmt.Sprintf("postgres://catalog:catalog@%s:%s/catalog?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, url)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	return m.Run()
}

func resetDB(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `TRUNCATE products, categories RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func seedCategory(t *testing.T, name string, active bool) category.Category {
	t.Helper()
	c := category.Category{Name: name, Active: active}
	require.NoError(t, NewCategoryRepository(testPool).Save(context.Background(), &c))
	return c
}

func TestCategoryRepository(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewCategoryRepository(testPool)

	books := seedCategory(t, "Books", true)
	games := seedCategory(t, "Games", false)
	assert.EqualValues(t, 1, books.ID)
	assert.EqualValues(t, 2, games.ID)

	exists, err := repo.ExistsByName(ctx, "BOOKS")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByNameExcludingID(ctx, "books", books.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := repo.GetByID(ctx, games.ID)
	require.NoError(t, err)
	assert.Equal(t, games, *got)

	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, category.ErrNotFound)

	byIDs, err := repo.GetByIDs(ctx, []int64{games.ID, books.ID, 99})
	require.NoError(t, err)
	assert.Equal(t, []category.Category{books, games}, byIDs)

	dup := category.Category{Name: "bOOKs", Active: true}
	err = repo.Save(ctx, &dup)
	assert.ErrorIs(t, err, category.ErrNameTaken)

	games.Name = "Board Games"
	require.NoError(t, repo.Save(ctx, &games))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []category.Category{books, games}, all)
}

func TestTransactor_RollbackOnError(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewCategoryRepository(testPool)
	tx := NewTransactor(testPool)

	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		c := category.Category{Name: "Ephemeral", Active: true}
		if err := repo.Save(ctx, &c); err != nil {
			return err
		}
		exists, err := repo.ExistsByName(ctx, "ephemeral")
		require.NoError(t, err)
		assert.True(t, exists, "write visible inside the transaction")
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := repo.ExistsByName(ctx, "ephemeral")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestConcurrentCreates_OneWins(t *testing.T) {
	resetDB(t)
	svc := category.NewService(NewCategoryRepository(testPool), NewTransactor(testPool))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), category.Input{Name: "Electronics"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, catalog.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)
}

func TestProductRepository(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewProductRepository(testPool)
	electronics := seedCategory(t, "Electronics", true)
	kitchen := seedCategory(t, "Kitchen", true)

	mouse := product.Product{
		Name:       "Mouse",
		Price:      decimal.RequireFromString("149.90"),
		Stock:      25,
		Active:     true,
		CategoryID: electronics.ID,
	}
	require.NoError(t, repo.Save(ctx, &mouse))
	assert.NotZero(t, mouse.ID)

	got, err := repo.GetByID(ctx, mouse.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mouse", got.Name)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.ImageKey)
	assert.True(t, got.Price.Equal(mouse.Price))

	exists, err := repo.ExistsByNameInCategory(ctx, "MOUSE", electronics.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByNameInCategory(ctx, "mouse", kitchen.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	dup := mouse
	dup.ID = 0
	dup.Name = "mouse"
	assert.ErrorIs(t, repo.Save(ctx, &dup), product.ErrNameTaken)

	mouse.ImageKey = "abc.png"
	mouse.Description = "wireless"
	require.NoError(t, repo.Save(ctx, &mouse))
	got, err = repo.GetByID(ctx, mouse.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc.png", got.ImageKey)
	assert.Equal(t, "wireless", got.Description)

	require.NoError(t, repo.Delete(ctx, mouse.ID))
	_, err = repo.GetByID(ctx, mouse.ID)
	assert.ErrorIs(t, err, product.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, mouse.ID), product.ErrNotFound)
}

func TestProductRepository_FindPage(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewProductRepository(testPool)
	electronics := seedCategory(t, "Electronics", true)
	kitchen := seedCategory(t, "Kitchen", true)

	for i, p := range []product.Product{
		{Name: "Gaming Mouse", Price: decimal.RequireFromString("149.90"), CategoryID: electronics.ID, Active: true},
		{Name: "Mousepad", Price: decimal.RequireFromString("29.90"), CategoryID: electronics.ID, Active: true},
		{Name: "Old Mouse", Price: decimal.RequireFromString("9.99"), CategoryID: electronics.ID, Active: false},
		{Name: "Mouse Trap", Price: decimal.RequireFromString("15.00"), CategoryID: kitchen.ID, Active: true},
		{Name: "50% Off Mug", Price: decimal.RequireFromString("10.00"), CategoryID: kitchen.ID, Active: true},
	} {
		p.Stock = i + 1
		require.NoError(t, repo.Save(ctx, &p))
	}

	tests := []struct {
		name      string
		filter    product.Filter
		wantNames []string
		wantTotal int64
	}{
		{
			name:      "active only",
			filter:    product.Filter{Size: 10},
			wantNames: []string{"Gaming Mouse", "Mousepad", "Mouse Trap", "50% Off Mug"},
			wantTotal: 4,
		},
		{
			name:      "name case-insensitive",
			filter:    product.Filter{Name: "MOUSE", Size: 10},
			wantNames: []string{"Gaming Mouse", "Mousepad", "Mouse Trap"},
			wantTotal: 3,
		},
		{
			name:      "percent is literal",
			filter:    product.Filter{Name: "50%", Size: 10},
			wantNames: []string{"50% Off Mug"},
			wantTotal: 1,
		},
		{
			name:      "price bounds inclusive",
			filter:    product.Filter{MinPrice: decimalPtr("15.00"), MaxPrice: decimalPtr("29.90"), Size: 10},
			wantNames: []string{"Mousepad", "Mouse Trap"},
			wantTotal: 2,
		},
		{
			name:      "category",
			filter:    product.Filter{CategoryID: &kitchen.ID, Size: 10},
			wantNames: []string{"Mouse Trap", "50% Off Mug"},
			wantTotal: 2,
		},
		{
			name:      "second page",
			filter:    product.Filter{Page: 1, Size: 3},
			wantNames: []string{"50% Off Mug"},
			wantTotal: 4,
		},
		{
			name:      "past the end",
			filter:    product.Filter{Page: 5, Size: 3},
			wantNames: nil,
			wantTotal: 4,
		},
		{
			name:      "offset beyond int range",
			filter:    product.Filter{Page: math.MaxInt/2 + 1, Size: 2},
			wantNames: nil,
			wantTotal: 4,
		},
		{
			name:      "name keeps leading space",
			filter:    product.Filter{Name: " pad", Size: 10},
			wantNames: nil,
			wantTotal: 0,
		},
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

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
