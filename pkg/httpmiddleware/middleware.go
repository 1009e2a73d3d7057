// Package httpmiddleware contains the net/http middleware shared by the
// catalog HTTP server.
package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
)

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h so that the first one listed is the
// outermost.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RouteFinder returns the route pattern that served r, for use as a
// low-cardinality label. It is called after the wrapped handler returns.
type RouteFinder func(r *http.Request) string

// statusWriter records the status code and body size written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// writeProblem writes a minimal JSON error body shaped like the API error
// envelope.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	e.Int(status)
	e.FieldStart("error")
	e.Str(http.StatusText(status))
	e.FieldStart("message")
	e.Str(message)
	e.FieldStart("path")
	e.Str(r.URL.Path)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
