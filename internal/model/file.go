package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FileStore defines persistence operations for shared files. Create
// persists the file row and all of its recipient grants in a single
// transaction.
//
// MarkUsed must be a conditional active-to-used transition in one
// statement, returning ErrNotAvailable when the row was not active, so
// two concurrent one-time downloads can never both win the void.
type FileStore interface {
	Create(ctx context.Context, file File, grants []Grant) (File, error)
	GetByID(ctx context.Context, id uuid.UUID) (File, error)
	SetStatus(ctx context.Context, id uuid.UUID, status FileStatus) error
	MarkUsed(ctx context.Context, id uuid.UUID) error
}

// File represents one client-encrypted blob and its shared metadata.
// The server never decrypts the blob's client layer.
type File struct {
	ID           uuid.UUID
	Name         string
	Size         int64
	BlobKey      string
	Status       FileStatus
	ExpiryPolicy ExpiryPolicy
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FileStatus enumerates the file lifecycle states.
type FileStatus string

const (
	// FileStatusActive is the only state in which verification and
	// download are allowed.
	FileStatusActive FileStatus = "active"
	// FileStatusUsed marks a one-time file that has been downloaded.
	FileStatusUsed FileStatus = "used"
	// FileStatusExpired marks a file past its expiry timestamp.
	FileStatusExpired FileStatus = "expired"
)

// ExpiryPolicy enumerates how a file stops being available.
type ExpiryPolicy string

const (
	// ExpiryOneTime voids the file after the first successful download.
	ExpiryOneTime ExpiryPolicy = "one_time"
	// ExpiryTimeBased voids the file at its expiry timestamp only.
	ExpiryTimeBased ExpiryPolicy = "time_based"
)

// Available reports whether the file can still serve verification and
// download at the given instant.
func (f File) Available(now time.Time) bool {
	return f.Status == FileStatusActive && now.Before(f.ExpiresAt)
}
