package product

import (
	"context"
	"io"

	"github.com/xenking/catalog-service/internal/domain/catalog"
)

// MaxImageSize is the largest accepted image, in bytes.
const MaxImageSize int64 = 2 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

var (
	ErrImageRequired = catalog.BadRequest("image file is required")
	ErrImageType     = catalog.BadRequest("invalid file type: only JPG or PNG images are allowed")
	ErrImageTooLarge = catalog.BadRequest("image exceeds the maximum size of 2MB")
)

// Image is an uploaded image awaiting storage. Size is the declared length
// of Content.
type Image struct {
	Content     io.Reader
	ContentType string
	Size        int64
}

// ValidateImage checks presence, content type and size of an upload.
func ValidateImage(img *Image) error {
	if img == nil || img.Content == nil || img.Size <= 0 {
		return ErrImageRequired
	}
	if _, ok := imageExtensions[img.ContentType]; !ok {
		return ErrImageType
	}
	if img.Size > MaxImageSize {
		return ErrImageTooLarge
	}
	return nil
}

// Extension returns the file extension for the image content type,
// including the leading dot.
func (img *Image) Extension() string {
	return imageExtensions[img.ContentType]
}

// BlobStore stores image content under generated keys.
type BlobStore interface {
	// Put writes content under a new unique key ending in ext and returns
	// the key.
	Put(ctx context.Context, content io.Reader, ext string) (string, error)
	// Delete removes the blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
