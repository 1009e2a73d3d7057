package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/catalog-service/db"
	"github.com/xenking/catalog-service/internal/app"
	"github.com/xenking/catalog-service/internal/seed"
)

func main() {
	var (
		cfg      app.Config
		seedFile string
	)

	flag.StringVar(&cfg.Store.Driver, "store", app.StorePostgres, "record store: postgres or sqlite")
	flag.StringVar(&cfg.Store.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&cfg.Store.SQLitePath, "sqlite-path", "catalog.db", "SQLite database file")
	flag.StringVar(&cfg.Blob.Dir, "image-dir", "data/images", "image directory")
	flag.StringVar(&seedFile, "file", "", "seed JSON file (defaults to the embedded catalog)")
	flag.Parse()

	if cfg.Store.DatabaseURL == "" {
		cfg.Store.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	cfg.Blob.Driver = app.BlobFS
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, &cfg, seedFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, cfg *app.Config, seedFile string) error {
	data := db.SeedCatalog
	if seedFile != "" {
		slog.Info("reading seed file", slog.String("path", seedFile))
		b, err := os.ReadFile(seedFile)
		if err != nil {
			return errors.Wrap(err, "read seed file")
		}
		data = b
	}
	f, err := seed.Parse(data)
	if err != nil {
		return err
	}

	slog.Info("connecting to store", slog.String("driver", cfg.Store.Driver))
	cat, err := app.OpenCatalog(ctx, cfg, nil)
	if err != nil {
		return errors.Wrap(err, "open catalog")
	}
	defer cat.Close()

	stats, err := seed.Load(ctx, cat.Categories, cat.Products, f)
	if err != nil {
		return errors.Wrap(err, "load seed")
	}

	slog.Info("seed stats",
		slog.Int("categories_created", stats.CategoriesCreated),
		slog.Int("products_created", stats.ProductsCreated),
		slog.Int("skipped", stats.Skipped),
	)
	return nil
}
