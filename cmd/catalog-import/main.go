package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/catalog-service/internal/app"
	"github.com/xenking/catalog-service/internal/importer"
)

func main() {
	var (
		cfg     app.Config
		dataDir string
		opts    = importer.DefaultOptions
	)

	flag.StringVar(&cfg.Store.Driver, "store", app.StorePostgres, "record store: postgres or sqlite")
	flag.StringVar(&cfg.Store.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&cfg.Store.SQLitePath, "sqlite-path", "catalog.db", "SQLite database file")
	flag.StringVar(&cfg.Blob.Dir, "image-dir", "data/images", "image directory")
	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.ndjson.gz files")
	flag.UintVar(&opts.BloomCapacity, "bloom-capacity", opts.BloomCapacity, "expected lines per file")
	flag.Float64Var(&opts.BloomFPR, "bloom-fpr", opts.BloomFPR, "bloom filter false positive rate")
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

	if err := run(ctx, &cfg, dataDir, opts); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, cfg *app.Config, dataDir string, opts importer.Options) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.ndjson.gz"))
	if err != nil {
		return errors.Wrap(err, "list import files")
	}
	if len(files) == 0 {
		slog.Info("no files to import", slog.String("dir", dataDir))
		return nil
	}
	slices.Sort(files)

	cat, err := app.OpenCatalog(ctx, cfg, nil)
	if err != nil {
		return errors.Wrap(err, "open catalog")
	}
	defer cat.Close()

	stats, err := importer.New(cat.Categories, cat.Products, opts).Run(ctx, files)
	slog.Info("import stats",
		slog.Int("lines", stats.Lines),
		slog.Int("created", stats.Created),
		slog.Int("categories_created", stats.CategoriesCreated),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("existing", stats.Existing),
		slog.Int("invalid", stats.Invalid),
	)
	return err
}
