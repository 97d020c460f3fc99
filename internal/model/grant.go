package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GrantStore defines persistence operations for recipient grants.
//
// RegisterAttempt must be an atomic increment-and-fetch on the grant row:
// it bumps attempt_count and last_attempt_at in one statement and returns
// the new count, so two concurrent verification calls can never both
// observe a pre-limit count and proceed.
type GrantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (Grant, error)
	GetByFileID(ctx context.Context, fileID uuid.UUID) ([]Grant, error)
	GetByFileIDAndEmail(ctx context.Context, fileID uuid.UUID, email string) (Grant, error)
	RegisterAttempt(ctx context.Context, id uuid.UUID) (int, error)
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkDownloaded(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Grant represents one (file, recipient) pair: the unit of cryptographic
// isolation. It stores the digest of the recipient's one-time code and
// the file key wrapped under a key derived from that code. No two grants
// for the same file ever share a code, salt or wrapped key.
type Grant struct {
	ID           uuid.UUID
	FileID       uuid.UUID
	Email        string
	CodeHash     []byte
	WrappedKey   []byte
	WrapSalt     []byte
	AttemptCount int
	LastAttempt  *time.Time
	VerifiedAt   *time.Time
	DownloadedAt *time.Time
	CreatedAt    time.Time
}
