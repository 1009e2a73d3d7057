// Package handler exposes the catalog over HTTP.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

// DefaultImageBaseURL is the path prefix under which images are served when
// Config.ImageBaseURL is empty.
const DefaultImageBaseURL = "/api/images/"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to image keys to build imageUrl in product
	// responses, e.g. a CDN origin.
	ImageBaseURL string
}

// ImageOpener reads stored product images back.
type ImageOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Handler serves the catalog API, delegating business rules to the domain
// services.
type Handler struct {
	categories   *category.Service
	products     *product.Service
	images       ImageOpener
	validate     *validator.Validate
	imageBaseURL string
}

// New constructs a Handler.
func New(cfg Config, categories *category.Service, products *product.Service, images ImageOpener) *Handler {
	base := cfg.ImageBaseURL
	if base == "" {
		base = DefaultImageBaseURL
	}
	return &Handler{
		categories:   categories,
		products:     products,
		images:       images,
		validate:     newValidator(),
		imageBaseURL: base,
	}
}

// Routes registers the API on r. The upload middlewares wrap the image
// upload route only.
func (h *Handler) Routes(r chi.Router, upload ...func(http.Handler) http.Handler) {
	r.Route("/categories", func(r chi.Router) {
		r.Post("/", h.createCategory)
		r.Get("/", h.listCategories)
		r.Get("/{id}", h.getCategory)
		r.Put("/{id}", h.updateCategory)
	})
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.createProduct)
		r.Get("/", h.searchProducts)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
		r.With(upload...).Post("/{id}/image", h.uploadImage)
	})
	r.Get("/images/{key}", h.serveImage)
}
