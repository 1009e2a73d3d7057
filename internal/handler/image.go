package handler

import (
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/catalog-service/internal/domain/catalog"
	"github.com/xenking/catalog-service/internal/storage/blob"
)

var errImageNotFound = catalog.NotFound("image not found")

func (h *Handler) serveImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rc, err := h.images.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidKey) {
			err = errImageNotFound
		}
		h.fail(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()

	ct := mime.TypeByExtension(path.Ext(key))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	// Keys are never reused, so the content under a key never changes.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		zctx.From(r.Context()).Warn("Stream image", zap.String("key", key), zap.Error(err))
	}
}
