// Package page assembles paginated query results into a stable envelope.
package page

// Page is one slice of a larger ordered result set plus its pagination
// metadata.
type Page[T any] struct {
	Content       []T
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

// New wraps an already-sliced page of items. It never re-slices items; the
// caller (usually a repository) is responsible for returning the right window.
func New[T any](items []T, total int64, index, size int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Content:       items,
		Page:          index,
		Size:          size,
		TotalElements: total,
		TotalPages:    TotalPages(total, size),
	}
}

// TotalPages returns ceil(total/size), or 0 when there is nothing to page
// through.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	s := int64(size)
	return int((total + s - 1) / s)
}

// Map converts the content of p element by element, keeping the metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Content))
	for i, v := range p.Content {
		out[i] = fn(v)
	}
	return Page[U]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}
