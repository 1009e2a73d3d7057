// Package blob stores product images under random, globally unique keys.
package blob

import (
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Open when no blob exists under the key.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey is returned for keys that could not have been generated
	// by this package.
	ErrInvalidKey = errors.New("invalid blob key")
)

// newKey returns a fresh key: a random UUID followed by ext.
func newKey(ext string) string {
	return uuid.NewString() + ext
}

// validKey rejects keys that would escape the store namespace.
func validKey(key string) error {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return ErrInvalidKey
	}
	return nil
}
