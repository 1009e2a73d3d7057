package category

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/catalog-service/internal/domain/catalog"
)

// Service encapsulates category business rules.
type Service struct {
	repo Repository
	tx   catalog.Transactor
}

// NewService creates a category Service.
func NewService(repo Repository, tx catalog.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

// Create persists a new category. It fails with ErrNameTaken when a category
// with the same case-insensitive name exists.
func (s *Service) Create(ctx context.Context, in Input) (*Category, error) {
	c := &Category{
		Name:   strings.TrimSpace(in.Name),
		Active: active(in.Active),
	}
	if c.Name == "" {
		return nil, ErrNameRequired
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		taken, err := s.repo.ExistsByName(ctx, c.Name)
		if err != nil {
			return errors.Wrap(err, "check category name")
		}
		if taken {
			zctx.From(ctx).Warn("Category name already taken", zap.String("name", c.Name))
			return ErrNameTaken
		}
		if err := s.repo.Save(ctx, c); err != nil {
			return errors.Wrap(err, "save category")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Category created", zap.Int64("id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// Update overwrites both fields of an existing category.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}

	var c *Category
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(in.Name)
		taken, err := s.repo.ExistsByNameExcludingID(ctx, name, id)
		if err != nil {
			return errors.Wrap(err, "check category name")
		}
		if taken {
			zctx.From(ctx).Warn("Category name already taken",
				zap.Int64("id", id),
				zap.String("name", name),
			)
			return ErrNameTaken
		}

		c.Name = name
		c.Active = active(in.Active)
		if err := s.repo.Save(ctx, c); err != nil {
			return errors.Wrap(err, "save category")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Category updated", zap.Int64("id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// List returns every category in storage order.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

// GetByID returns a single category.
func (s *Service) GetByID(ctx context.Context, id int64) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

func active(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
