// Package importer bulk-loads products from gzip-compressed NDJSON files.
//
// Each line is one product:
//
//	{"category":"Electronics","name":"Mouse","description":"Wireless","price":"149.90","stock":25,"active":true}
//
// Files are imported in the given order and the first occurrence of a
// (category, name) pair wins. Cross-file duplicates are found without keeping
// every key in memory: a bloom filter per file selects the few keys that may
// repeat, and only those are tracked exactly while writing.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/catalog-service/internal/domain/catalog"
	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

const maxLineSize = 1 << 20

// Options tunes the duplicate pre-filter.
type Options struct {
	// BloomCapacity is the expected number of lines per file.
	BloomCapacity uint
	// BloomFPR is the false positive rate of each per-file filter.
	BloomFPR float64
	// ProgressEvery logs progress after this many lines per file.
	ProgressEvery int
}

// DefaultOptions suit files of up to a few million lines.
var DefaultOptions = Options{
	BloomCapacity: 1_000_000,
	BloomFPR:      0.001,
	ProgressEvery: 100_000,
}

// Stats summarises an import.
type Stats struct {
	Lines             int
	Created           int
	CategoriesCreated int
	// Duplicates are lines whose product already appeared in an earlier file.
	Duplicates int
	// Existing are products already present in the catalog before the import.
	Existing int
	// Invalid are lines that could not be parsed or failed validation.
	Invalid int
}

// Record is one NDJSON line.
type Record struct {
	Category    string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Active      *bool
}

// Decode reads a record from d.
func (r *Record) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "category":
			r.Category, err = d.Str()
		case "name":
			r.Name, err = d.Str()
		case "description":
			if d.Next() == jx.Null {
				return d.Null()
			}
			r.Description, err = d.Str()
		case "price":
			r.Price, err = decodePrice(d)
		case "stock":
			r.Stock, err = d.Int()
		case "active":
			var v bool
			v, err = d.Bool()
			r.Active = &v
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	} else {
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	}
	return decimal.NewFromString(raw)
}

// Key identifies a product the way the catalog's uniqueness rule does.
func (r *Record) Key() string {
	return strings.ToLower(strings.TrimSpace(r.Category)) + "\x00" + strings.ToLower(strings.TrimSpace(r.Name))
}

// Importer writes records through the catalog services, so every catalog
// rule applies to imported products.
type Importer struct {
	categories *category.Service
	products   *product.Service
	opts       Options
}

// New creates an Importer.
func New(categories *category.Service, products *product.Service, opts Options) *Importer {
	if opts.BloomCapacity == 0 {
		opts.BloomCapacity = DefaultOptions.BloomCapacity
	}
	if opts.BloomFPR <= 0 {
		opts.BloomFPR = DefaultOptions.BloomFPR
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultOptions.ProgressEvery
	}
	return &Importer{categories: categories, products: products, opts: opts}
}

// Run imports files in order.
func (im *Importer) Run(ctx context.Context, files []string) (Stats, error) {
	var stats Stats
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return stats, errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := im.buildFilters(ctx, files)
	if err != nil {
		return stats, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: finding keys repeated across files")
	repeated, err := im.findRepeated(ctx, files, filters)
	if err != nil {
		return stats, errors.Wrap(err, "find repeated keys")
	}
	slog.Info("repeat candidates", slog.Int("count", len(repeated)))

	slog.Info("pass 3: writing products")
	w, err := im.newWriter(ctx, repeated)
	if err != nil {
		return stats, err
	}
	for _, f := range files {
		if err := w.writeFile(ctx, f); err != nil {
			return w.stats, errors.Wrapf(err, "import %s", f)
		}
	}
	return w.stats, nil
}

// buildFilters creates one bloom filter per file, concurrently.
func (im *Importer) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.opts.BloomCapacity, im.opts.BloomFPR)
			var count int
			err := streamFile(ctx, path, func(_ int, line []byte) error {
				var r Record
				if r.Decode(jx.DecodeBytes(line)) != nil {
					return nil
				}
				filter.AddString(r.Key())
				count++
				if count%im.opts.ProgressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Int("lines", count))
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}
			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Int("lines", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findRepeated returns the keys of each file that may also appear in an
// earlier file. It may contain false positives but never misses a repeat.
func (im *Importer) findRepeated(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	perFile := make([]map[string]struct{}, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		if i == 0 {
			continue
		}
		g.Go(func() error {
			found := make(map[string]struct{})
			err := streamFile(ctx, path, func(_ int, line []byte) error {
				var r Record
				if r.Decode(jx.DecodeBytes(line)) != nil {
					return nil
				}
				key := r.Key()
				for _, f := range filters[:i] {
					if f.TestString(key) {
						found[key] = struct{}{}
						break
					}
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "scan file %d", i+1)
			}
			perFile[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]struct{})
	for _, found := range perFile {
		for key := range found {
			merged[key] = struct{}{}
		}
	}
	return merged, nil
}

type writer struct {
	im         *Importer
	categories map[string]int64
	repeated   map[string]struct{}
	written    map[string]struct{}
	stats      Stats
}

func (im *Importer) newWriter(ctx context.Context, repeated map[string]struct{}) (*writer, error) {
	list, err := im.categories.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	byName := make(map[string]int64, len(list))
	for _, c := range list {
		byName[strings.ToLower(c.Name)] = c.ID
	}
	return &writer{
		im:         im,
		categories: byName,
		repeated:   repeated,
		written:    make(map[string]struct{}),
	}, nil
}

func (w *writer) writeFile(ctx context.Context, path string) error {
	return streamFile(ctx, path, func(lineNo int, line []byte) error {
		w.stats.Lines++
		if w.stats.Lines%w.im.opts.ProgressEvery == 0 {
			slog.Info("write progress", slog.Int("lines", w.stats.Lines), slog.Int("created", w.stats.Created))
		}

		var r Record
		if err := r.Decode(jx.DecodeBytes(line)); err != nil {
			w.stats.Invalid++
			slog.Warn("skipping malformed line", slog.String("file", path), slog.Int("line", lineNo), slog.String("error", err.Error()))
			return nil
		}

		key := r.Key()
		if _, ok := w.repeated[key]; ok {
			if _, done := w.written[key]; done {
				w.stats.Duplicates++
				return nil
			}
			w.written[key] = struct{}{}
		}
		return w.write(ctx, path, lineNo, &r)
	})
}

func (w *writer) write(ctx context.Context, path string, lineNo int, r *Record) error {
	categoryID, err := w.category(ctx, r.Category)
	if err != nil {
		if errors.Is(err, catalog.ErrBadRequest) {
			w.stats.Invalid++
			return nil
		}
		return err
	}

	_, err = w.im.products.Create(ctx, product.Input{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Active:      r.Active,
		CategoryID:  categoryID,
	})
	switch kind := catalog.KindOf(err); {
	case err == nil:
		w.stats.Created++
	case kind == catalog.ErrConflict:
		w.stats.Existing++
	case kind == catalog.ErrBadRequest || kind == catalog.ErrNotFound:
		w.stats.Invalid++
		slog.Warn("skipping invalid product",
			slog.String("file", path),
			slog.Int("line", lineNo),
			slog.String("name", r.Name),
			slog.String("reason", err.Error()),
		)
	default:
		return errors.Wrapf(err, "create product %q", r.Name)
	}
	return nil
}

// category resolves a category by name, creating it when missing.
func (w *writer) category(ctx context.Context, name string) (int64, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := w.categories[key]; ok {
		return id, nil
	}
	c, err := w.im.categories.Create(ctx, category.Input{Name: name})
	if err != nil {
		return 0, err
	}
	w.categories[key] = c.ID
	w.stats.CategoriesCreated++
	slog.Info("created category", slog.Int64("id", c.ID), slog.String("name", c.Name))
	return c.ID, nil
}

// streamFile calls fn for each non-blank line of a gzip-compressed file.
func streamFile(ctx context.Context, path string, fn func(lineNo int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	var lineNo int
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
