package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/catalog-service/internal/domain/product"
)

// Multipart framing allowed on top of the image itself.
const multipartOverhead = 64 << 10

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if fields, err := h.decodeRequest(w, r, &req); err != nil {
		h.failFields(w, r, err, fields)
		return
	}

	v, err := h.products.Create(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var e jx.Encoder
	h.encodeProduct(&e, v)
	w.Header().Set("Location", "/api/products/"+strconv.FormatInt(v.ID, 10))
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var e jx.Encoder
	h.encodeProduct(&e, v)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req productRequest
	if fields, err := h.decodeRequest(w, r, &req); err != nil {
		h.failFields(w, r, err, fields)
		return
	}

	v, err := h.products.Update(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var e jx.Encoder
	h.encodeProduct(&e, v)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	f, fields := parseFilter(r.URL.Query())
	if len(fields) > 0 {
		h.failFields(w, r, errInvalidQuery, fields)
		return
	}

	res, err := h.products.Search(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var e jx.Encoder
	encodePage(&e, res, h.encodeProduct)
	writeJSON(w, http.StatusOK, &e)
}

// parseFilter reads the search query. Absent or blank parameters leave the
// corresponding filter unset; unparsable ones are reported per parameter.
func parseFilter(q url.Values) (product.Filter, map[string]string) {
	f := product.Filter{
		Name: q.Get("name"),
		Size: product.DefaultPageSize,
	}
	fields := map[string]string{}

	param := func(name string) (string, bool) {
		v := strings.TrimSpace(q.Get(name))
		return v, v != ""
	}
	if v, ok := param("minPrice"); ok {
		if d, err := decimal.NewFromString(v); err != nil {
			fields["minPrice"] = "must be a decimal number"
		} else {
			f.MinPrice = &d
		}
	}
	if v, ok := param("maxPrice"); ok {
		if d, err := decimal.NewFromString(v); err != nil {
			fields["maxPrice"] = "must be a decimal number"
		} else {
			f.MaxPrice = &d
		}
	}
	if v, ok := param("categoryId"); ok {
		if id, err := strconv.ParseInt(v, 10, 64); err != nil {
			fields["categoryId"] = "must be an integer"
		} else {
			f.CategoryID = &id
		}
	}
	if v, ok := param("page"); ok {
		if n, err := strconv.Atoi(v); err != nil {
			fields["page"] = "must be an integer"
		} else {
			f.Page = n
		}
	}
	if v, ok := param("size"); ok {
		if n, err := strconv.Atoi(v); err != nil {
			fields["size"] = "must be an integer"
		} else {
			f.Size = n
		}
	}
	return f, fields
}

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, product.MaxImageSize+multipartOverhead)
	img, cleanup, err := readImage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer cleanup()

	v, err := h.products.AttachImage(r.Context(), id, img)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var e jx.Encoder
	h.encodeProduct(&e, v)
	writeJSON(w, http.StatusOK, &e)
}

// readImage extracts the "image" part of a multipart upload. A missing part
// yields a nil image, which the product service rejects after checking the
// product itself.
func readImage(r *http.Request) (*product.Image, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(product.MaxImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, noop, product.ErrImageTooLarge
		}
		return nil, noop, errMalformedBody
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, cleanup, nil
	}
	if err != nil {
		cleanup()
		return nil, noop, errMalformedBody
	}
	return &product.Image{
		Content:     file,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}, func() { _ = file.Close(); cleanup() }, nil
}
