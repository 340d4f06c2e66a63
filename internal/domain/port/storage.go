package port

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

type ObjectStorage interface {
	Fetch(ctx context.Context, bucket, key, destPath string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}
