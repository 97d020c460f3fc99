// Package encrypted decorates a model.Storage with envelope encryption
// at rest. With no master key configured it is a transparent pass-through
// so callers never branch on whether the feature is active.
package encrypted

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/sealdrop/sealdrop/internal/atrest"
	"github.com/sealdrop/sealdrop/internal/model"
)

var _ model.Storage = (*Store)(nil)

// Store wraps an inner blob store, sealing on the way in and opening on
// the way out with the file-storage data key.
type Store struct {
	inner model.Storage
	keys  *atrest.Keyring
}

func New(inner model.Storage, keys *atrest.Keyring) *Store {
	return &Store{
		inner: inner,
		keys:  keys,
	}
}

func (s *Store) Upload(ctx context.Context, key string, reader io.Reader) error {
	dataKey, err := s.keys.DataKey(atrest.LabelFileStorage)
	if err != nil {
		return err
	}
	if dataKey == nil {
		return s.inner.Upload(ctx, key, reader)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}

	envelope, err := atrest.Seal(dataKey, plaintext)
	if err != nil {
		return fmt.Errorf("failed to seal blob: %w", err)
	}

	return s.inner.Upload(ctx, key, bytes.NewReader(envelope))
}

func (s *Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	dataKey, err := s.keys.DataKey(atrest.LabelFileStorage)
	if err != nil {
		return nil, err
	}
	if dataKey == nil {
		return s.inner.Download(ctx, key)
	}

	rc, err := s.inner.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	envelope, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	plaintext, err := atrest.Open(dataKey, envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	return io.NopCloser(bytes.NewReader(plaintext)), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.inner.Exists(ctx, key)
}
