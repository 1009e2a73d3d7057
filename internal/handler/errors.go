package handler

import (
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/catalog-service/internal/domain/catalog"
)

var (
	errMalformedBody = catalog.BadRequest("malformed request body")
	errInvalidQuery  = catalog.BadRequest("invalid query parameters")
	errValidation    = catalog.BadRequest("validation failed")
	errInvalidID     = catalog.BadRequest("id must be a positive integer")
)

// problem is the error envelope written for every failed request.
type problem struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (p problem) encode(e *jx.Encoder, path string, now time.Time) {
	e.ObjStart()
	e.FieldStart("timestamp")
	e.Str(now.UTC().Format(time.RFC3339Nano))
	e.FieldStart("status")
	e.Int(p.Status)
	e.FieldStart("error")
	e.Str(http.StatusText(p.Status))
	e.FieldStart("message")
	e.Str(p.Message)
	e.FieldStart("path")
	e.Str(path)
	if len(p.Fields) > 0 {
		e.FieldStart("validationErrors")
		e.ObjStart()
		for _, k := range slices.Sorted(maps.Keys(p.Fields)) {
			e.FieldStart(k)
			e.Str(p.Fields[k])
		}
		e.ObjEnd()
	}
	e.ObjEnd()
}

func statusOf(kind error) int {
	switch kind {
	case catalog.ErrNotFound:
		return http.StatusNotFound
	case catalog.ErrConflict:
		return http.StatusConflict
	case catalog.ErrBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope for err. Domain errors expose their
// message; anything else is logged and reported as an opaque 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.writeProblem(w, r, problemOf(r, err))
}

func (h *Handler) failFields(w http.ResponseWriter, r *http.Request, err error, fields map[string]string) {
	p := problemOf(r, err)
	p.Fields = fields
	h.writeProblem(w, r, p)
}

func problemOf(r *http.Request, err error) problem {
	var derr *catalog.Error
	if kind := catalog.KindOf(err); kind != nil && errors.As(err, &derr) {
		return problem{Status: statusOf(kind), Message: derr.Message}
	}
	zctx.From(r.Context()).Error("Request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	return problem{Status: http.StatusInternalServerError, Message: "An unexpected error occurred"}
}

func (h *Handler) writeProblem(w http.ResponseWriter, r *http.Request, p problem) {
	var e jx.Encoder
	p.encode(&e, r.URL.Path, time.Now())
	writeJSON(w, p.Status, &e)
}
