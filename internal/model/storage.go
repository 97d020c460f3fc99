package model

import (
	"context"
	"io"
)

// Storage stores encrypted file blobs. Implementations never see the
// client-layer plaintext; the at-rest layer may add its own envelope on
// top of what the client uploaded.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
