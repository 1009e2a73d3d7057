package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"

	"github.com/xenking/catalog-service/internal/domain/product"
)

var _ product.BlobStore = (*Redis)(nil)

// Redis stores blobs as string values under a key prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis returns a Redis store using client. Keys are namespaced with
// prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Put stores content under a new key. The value is written with SETNX so a
// key collision can never overwrite another blob.
func (s *Redis) Put(ctx context.Context, content io.Reader, ext string) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("reading blob content: %w", err)
	}

	key := newKey(ext)
	ok, err := s.client.SetNX(ctx, s.prefix+key, data, 0).Result()
	if err != nil {
		return "", fmt.Errorf("storing blob %q: %w", key, err)
	}
	if !ok {
		return "", fmt.Errorf("storing blob %q: key already exists", key)
	}
	return key, nil
}

// Delete removes the blob. A missing blob is not an error.
func (s *Redis) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("deleting blob %q: %w", key, err)
	}
	return nil
}

// Open returns a reader for the blob.
func (s *Redis) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading blob %q: %w", key, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Ping checks connectivity to the Redis server.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
