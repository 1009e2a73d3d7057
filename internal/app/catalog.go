package app

import (
	"context"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"

	"github.com/xenking/catalog-service/internal/domain/catalog"
	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
	"github.com/xenking/catalog-service/internal/storage/blob"
	"github.com/xenking/catalog-service/internal/storage/memory"
	"github.com/xenking/catalog-service/internal/storage/postgres"
	"github.com/xenking/catalog-service/internal/storage/sqlite"
	"github.com/xenking/catalog-service/pkg/health"
)

// ImageStore is a blob store that can also read images back.
type ImageStore interface {
	product.BlobStore
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Catalog bundles the domain services over the configured stores.
type Catalog struct {
	Categories *category.Service
	Products   *product.Service
	Images     ImageStore

	closers []func()
}

// Close releases every store connection in reverse order of opening.
func (c *Catalog) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

type records struct {
	categories category.Repository
	products   product.Repository
	tx         catalog.Transactor
}

// OpenCatalog connects the configured record and image stores and builds the
// services on top of them. Store checks are registered as readiness checks
// when hs is not nil.
func OpenCatalog(ctx context.Context, cfg *Config, hs *health.Health) (*Catalog, error) {
	c := &Catalog{}
	addCheck := func(name string, check health.CheckFunc) {
		if hs != nil {
			hs.AddReadinessCheck(name, 5*time.Second, check)
		}
	}

	rec, err := c.openRecords(ctx, cfg.Store, addCheck)
	if err != nil {
		c.Close()
		return nil, err
	}
	images, err := c.openImages(ctx, cfg.Blob, addCheck)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Images = images
	c.Categories = category.NewService(rec.categories, rec.tx)
	c.Products = product.NewService(rec.products, rec.categories, images, rec.tx)
	return c, nil
}

func (c *Catalog) openRecords(ctx context.Context, cfg StoreConfig, addCheck func(string, health.CheckFunc)) (*records, error) {
	switch cfg.Driver {
	case StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		c.closers = append(c.closers, pool.Close)
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, errors.Wrap(err, "run migrations")
		}
		addCheck("postgres", health.PingCheck(pool))
		return &records{
			categories: postgres.NewCategoryRepository(pool),
			products:   postgres.NewProductRepository(pool),
			tx:         postgres.NewTransactor(pool),
		}, nil

	case StoreSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		c.closers = append(c.closers, func() { _ = sqlite.Close(db) })
		addCheck("sqlite", func(ctx context.Context) error { return sqlite.Ping(ctx, db) })
		return &records{
			categories: sqlite.NewCategoryRepository(db),
			products:   sqlite.NewProductRepository(db),
			tx:         sqlite.NewTransactor(db),
		}, nil

	case StoreMemory:
		s := memory.New()
		return &records{categories: s.Categories(), products: s.Products(), tx: s}, nil

	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func (c *Catalog) openImages(ctx context.Context, cfg BlobConfig, addCheck func(string, health.CheckFunc)) (ImageStore, error) {
	switch cfg.Driver {
	case BlobFS:
		s, err := blob.NewFS(cfg.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "open image dir")
		}
		addCheck("images", health.DirWritableCheck(s.Dir()))
		return s, nil

	case BlobRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		c.closers = append(c.closers, func() { _ = client.Close() })
		s := blob.NewRedis(client, cfg.Prefix)
		if err := s.Ping(ctx); err != nil {
			return nil, errors.Wrap(err, "connect redis")
		}
		addCheck("redis", health.PingCheck(s))
		return s, nil

	default:
		return nil, errors.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
