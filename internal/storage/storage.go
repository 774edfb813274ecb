package storage

import (
	"context"
	"errors"
)

// Storage is the durable key-value space a visitor's cart lives in. It plays the
// role browser local storage plays for a storefront page: string keys, string
// values, possibly absent, possibly full.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; deleting a missing key is not an error.
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrNotFound      = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)
