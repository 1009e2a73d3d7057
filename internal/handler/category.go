package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if fields, err := h.decodeRequest(w, r, &req); err != nil {
		h.failFields(w, r, err, fields)
		return
	}

	c, err := h.categories.Create(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCategory(&e, c)
	w.Header().Set("Location", "/api/categories/"+strconv.FormatInt(c.ID, 10))
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.categories.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range list {
		encodeCategory(&e, &list[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.categories.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCategory(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req categoryRequest
	if fields, err := h.decodeRequest(w, r, &req); err != nil {
		h.failFields(w, r, err, fields)
		return
	}

	c, err := h.categories.Update(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCategory(&e, c)
	writeJSON(w, http.StatusOK, &e)
}
