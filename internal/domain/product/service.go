package product

import (
	"context"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/catalog-service/internal/domain/catalog"
	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/page"
)

// Service encapsulates product business rules, including the image lifecycle
// across the record store and the blob store.
type Service struct {
	products   Repository
	categories category.Repository
	images     BlobStore
	tx         catalog.Transactor
}

// NewService creates a product Service.
func NewService(products Repository, categories category.Repository, images BlobStore, tx catalog.Transactor) *Service {
	return &Service{
		products:   products,
		categories: categories,
		images:     images,
		tx:         tx,
	}
}

// Create persists a new product without an image.
func (s *Service) Create(ctx context.Context, in Input) (*View, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var view *View
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.activeCategory(ctx, in.CategoryID)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(in.Name)
		taken, err := s.products.ExistsByNameInCategory(ctx, name, c.ID)
		if err != nil {
			return errors.Wrap(err, "check product name")
		}
		if taken {
			zctx.From(ctx).Warn("Product name already taken",
				zap.String("name", name),
				zap.Int64("category_id", c.ID),
			)
			return ErrNameTaken
		}

		p := &Product{
			Name:        name,
			Description: in.Description,
			Price:       in.Price,
			Stock:       in.Stock,
			Active:      in.active(),
			CategoryID:  c.ID,
		}
		if err := s.products.Save(ctx, p); err != nil {
			return errors.Wrap(err, "save product")
		}
		view = &View{Product: *p, CategoryName: c.Name}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Product created",
		zap.Int64("id", view.ID),
		zap.String("name", view.Name),
		zap.Int64("category_id", view.CategoryID),
	)
	return view, nil
}

// Update replaces every mutable field of a product. The product may move to
// another category, which must exist and be active. The image is kept.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*View, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var view *View
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.products.GetByID(ctx, id)
		if err != nil {
			return err
		}
		c, err := s.activeCategory(ctx, in.CategoryID)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(in.Name)
		taken, err := s.products.ExistsByNameInCategoryExcludingID(ctx, name, c.ID, id)
		if err != nil {
			return errors.Wrap(err, "check product name")
		}
		if taken {
			zctx.From(ctx).Warn("Product name already taken",
				zap.Int64("id", id),
				zap.String("name", name),
				zap.Int64("category_id", c.ID),
			)
			return ErrNameTaken
		}

		p.Name = name
		p.Description = in.Description
		p.Price = in.Price
		p.Stock = in.Stock
		p.Active = in.active()
		p.CategoryID = c.ID
		if err := s.products.Save(ctx, p); err != nil {
			return errors.Wrap(err, "save product")
		}
		view = &View{Product: *p, CategoryName: c.Name}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Product updated", zap.Int64("id", id))
	return view, nil
}

// Search returns one page of active products matching the filter.
func (s *Service) Search(ctx context.Context, f Filter) (page.Page[View], error) {
	if err := f.Validate(); err != nil {
		return page.Page[View]{}, err
	}

	pred := f.Predicate()
	items, total, err := s.products.FindPage(ctx, pred, f.Page, f.Size)
	if err != nil {
		return page.Page[View]{}, errors.Wrapf(err, "find products where %s", pred)
	}

	names, err := s.categoryNames(ctx, items)
	if err != nil {
		return page.Page[View]{}, err
	}
	return page.Map(page.New(items, total, f.Page, f.Size), func(p Product) View {
		return View{Product: p, CategoryName: names[p.CategoryID]}
	}), nil
}

// GetByID returns a single product with its category name.
func (s *Service) GetByID(ctx context.Context, id int64) (*View, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.categories.GetByID(ctx, p.CategoryID)
	if err != nil {
		return nil, errors.Wrapf(err, "get category %d of product %d", p.CategoryID, id)
	}
	return &View{Product: *p, CategoryName: c.Name}, nil
}

// Delete removes a product and then its image. The blob is only touched once
// the record deletion has committed; a failed blob deletion leaves an
// unreferenced blob behind and is logged.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var imageKey string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.products.GetByID(ctx, id)
		if err != nil {
			return err
		}
		imageKey = p.ImageKey
		if err := s.products.Delete(ctx, id); err != nil {
			return errors.Wrap(err, "delete product")
		}
		return nil
	})
	if err != nil {
		return err
	}

	lg := zctx.From(ctx)
	if imageKey != "" {
		if err := s.images.Delete(ctx, imageKey); err != nil {
			lg.Error("Delete product image",
				zap.Int64("id", id),
				zap.String("image_key", imageKey),
				zap.Error(err),
			)
		}
	}
	lg.Info("Product deleted", zap.Int64("id", id))
	return nil
}

// AttachImage stores img as the product image, replacing the previous one.
// If the product record cannot be updated afterwards, the new blob is deleted
// before the error is returned.
func (s *Service) AttachImage(ctx context.Context, id int64, img *Image) (*View, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrInactive
	}
	if err := ValidateImage(img); err != nil {
		return nil, err
	}

	key, err := s.storeImage(ctx, img, p.ImageKey)
	if err != nil {
		return nil, errors.Wrap(err, "store image")
	}

	var view *View
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.products.GetByID(ctx, id)
		if err != nil {
			return err
		}
		cur.ImageKey = key
		if err := s.products.Save(ctx, cur); err != nil {
			return errors.Wrap(err, "save product")
		}
		c, err := s.categories.GetByID(ctx, cur.CategoryID)
		if err != nil {
			return errors.Wrapf(err, "get category %d", cur.CategoryID)
		}
		view = &View{Product: *cur, CategoryName: c.Name}
		return nil
	})
	if err != nil {
		if delErr := s.images.Delete(ctx, key); delErr != nil {
			zctx.From(ctx).Error("Compensate image write",
				zap.Int64("id", id),
				zap.String("image_key", key),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	zctx.From(ctx).Info("Product image attached",
		zap.Int64("id", id),
		zap.String("image_key", key),
	)
	return view, nil
}

// storeImage writes the new blob and removes the previous one. The previous
// blob is gone afterwards even if the caller later fails to persist the key.
func (s *Service) storeImage(ctx context.Context, img *Image, previous string) (string, error) {
	key, err := s.images.Put(ctx, io.LimitReader(img.Content, img.Size), img.Extension())
	if err != nil {
		return "", err
	}
	if previous != "" && previous != key {
		if err := s.images.Delete(ctx, previous); err != nil {
			zctx.From(ctx).Warn("Delete replaced image",
				zap.String("image_key", previous),
				zap.Error(err),
			)
		}
	}
	return key, nil
}

func (s *Service) activeCategory(ctx context.Context, id int64) (*category.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, ErrCategoryInactive
	}
	return c, nil
}

func (s *Service) categoryNames(ctx context.Context, items []Product) (map[int64]string, error) {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, p := range items {
		if _, ok := seen[p.CategoryID]; ok {
			continue
		}
		seen[p.CategoryID] = struct{}{}
		ids = append(ids, p.CategoryID)
	}

	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	categories, err := s.categories.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get categories")
	}
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}
