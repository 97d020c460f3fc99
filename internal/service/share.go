package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/sealdrop/sealdrop/internal/logger"
	"github.com/sealdrop/sealdrop/internal/metrics"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/keywrap"
)

// RecipientParams carries one recipient's client-produced material.
type RecipientParams struct {
	Email      string
	CodeHash   []byte
	WrappedKey []byte
	WrapSalt   []byte
}

// ShareFileParams contains everything needed to publish one shared file.
// The ciphertext was encrypted on the sender's machine; the server only
// validates shapes and stores it.
type ShareFileParams struct {
	Name         string
	Size         int64
	ExpiryPolicy model.ExpiryPolicy
	ExpiresAt    time.Time
	Ciphertext   []byte
	Recipients   []RecipientParams
}

// Share publishes files and serves verified downloads.
type Share struct {
	fileStore  model.FileStore
	grantStore model.GrantStore
	storage    model.Storage
	audit      model.AuditSink
	logger     *logger.Logger

	now func() time.Time
}

func NewShare(
	fileStore model.FileStore,
	grantStore model.GrantStore,
	storage model.Storage,
	audit model.AuditSink,
	logger *logger.Logger,
) *Share {
	return &Share{
		fileStore:  fileStore,
		grantStore: grantStore,
		storage:    storage,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

// ShareFile validates the recipient material, stores the blob and
// creates the file row with all grants in one transaction. The created
// grants are returned so the sender can hand each recipient its grant ID
// along with the one-time code; the grant ID is what the download
// endpoint is keyed on.
func (s *Share) ShareFile(ctx context.Context, params ShareFileParams) (model.File, []model.Grant, error) {
	if err := validateShareParams(params); err != nil {
		return model.File{}, nil, err
	}

	file := model.File{
		ID:           uuid.New(),
		Name:         params.Name,
		Size:         params.Size,
		BlobKey:      uuid.NewString(),
		Status:       model.FileStatusActive,
		ExpiryPolicy: params.ExpiryPolicy,
		ExpiresAt:    params.ExpiresAt,
	}

	grants := make([]model.Grant, 0, len(params.Recipients))
	for _, rec := range params.Recipients {
		grants = append(grants, model.Grant{
			ID:         uuid.New(),
			FileID:     file.ID,
			Email:      rec.Email,
			CodeHash:   rec.CodeHash,
			WrappedKey: rec.WrappedKey,
			WrapSalt:   rec.WrapSalt,
		})
	}

	if err := s.storage.Upload(ctx, file.BlobKey, bytes.NewReader(params.Ciphertext)); err != nil {
		return model.File{}, nil, fmt.Errorf("failed to store blob: %w", err)
	}

	saved, err := s.fileStore.Create(ctx, file, grants)
	if err != nil {
		if delErr := s.storage.Delete(ctx, file.BlobKey); delErr != nil {
			s.logger.Error("failed to clean up orphaned blob", "blob_key", file.BlobKey, "error", delErr)
		}
		return model.File{}, nil, fmt.Errorf("failed to create file: %w", err)
	}

	if err := s.audit.Record(ctx, model.AuditEvent{
		FileID:    saved.ID,
		EventType: model.AuditFileShared,
	}); err != nil {
		return model.File{}, nil, fmt.Errorf("failed to record audit event: %w", err)
	}
	metrics.ObserveShare()

	return saved, grants, nil
}

// Download streams the stored blob for a verified grant. Under the
// one-time policy the file is voided as part of the download.
func (s *Share) Download(ctx context.Context, fileID, grantID uuid.UUID) (io.ReadCloser, model.File, error) {
	now := s.now()

	file, err := s.fileStore.GetByID(ctx, fileID)
	if err != nil {
		if err == model.ErrNotFound {
			return nil, model.File{}, model.ErrNotAvailable
		}
		return nil, model.File{}, fmt.Errorf("failed to get file: %w", err)
	}
	if !file.Available(now) {
		return nil, model.File{}, model.ErrNotAvailable
	}

	grant, err := s.grantStore.GetByID(ctx, grantID)
	if err != nil {
		if err == model.ErrNotFound {
			return nil, model.File{}, model.ErrNotAvailable
		}
		return nil, model.File{}, fmt.Errorf("failed to get grant: %w", err)
	}
	if grant.FileID != fileID || grant.VerifiedAt == nil {
		return nil, model.File{}, model.ErrNotAvailable
	}

	rc, err := s.storage.Download(ctx, file.BlobKey)
	if err != nil {
		return nil, model.File{}, fmt.Errorf("failed to download blob: %w", err)
	}

	if err := s.grantStore.MarkDownloaded(ctx, grant.ID, now); err != nil {
		rc.Close()
		return nil, model.File{}, fmt.Errorf("failed to mark grant downloaded: %w", err)
	}

	// The void is a conditional active-to-used transition; of two
	// concurrent one-time downloads only the one that wins it gets the
	// blob.
	if file.ExpiryPolicy == model.ExpiryOneTime {
		if err := s.fileStore.MarkUsed(ctx, file.ID); err != nil {
			rc.Close()
			if err == model.ErrNotAvailable {
				return nil, model.File{}, model.ErrNotAvailable
			}
			return nil, model.File{}, fmt.Errorf("failed to void one-time file: %w", err)
		}
	}

	if err := s.audit.Record(ctx, model.AuditEvent{
		FileID:    file.ID,
		GrantID:   &grant.ID,
		EventType: model.AuditFileDownloaded,
	}); err != nil {
		rc.Close()
		return nil, model.File{}, fmt.Errorf("failed to record audit event: %w", err)
	}
	metrics.ObserveDownload()

	return rc, file, nil
}

func validateShareParams(params ShareFileParams) error {
	if params.Name == "" {
		return fmt.Errorf("%w: file name is empty", model.ErrMalformedInput)
	}
	if params.ExpiryPolicy != model.ExpiryOneTime && params.ExpiryPolicy != model.ExpiryTimeBased {
		return fmt.Errorf("%w: unknown expiry policy %q", model.ErrMalformedInput, params.ExpiryPolicy)
	}
	if params.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: expiry timestamp is required", model.ErrMalformedInput)
	}
	if len(params.Ciphertext) <= keywrap.NonceSize {
		return fmt.Errorf("%w: ciphertext too short", model.ErrMalformedInput)
	}
	if len(params.Recipients) == 0 {
		return fmt.Errorf("%w: no recipients", model.ErrMalformedInput)
	}

	// Cross-recipient isolation: grants must not share codes, salts or
	// wrapped keys. Compromise of one must not expose another.
	seenEmails := map[string]bool{}
	seenHashes := map[string]bool{}
	seenSalts := map[string]bool{}
	seenKeys := map[string]bool{}
	for _, rec := range params.Recipients {
		if len(rec.CodeHash) != 32 {
			return fmt.Errorf("%w: code hash must be 32 bytes", model.ErrMalformedInput)
		}
		if len(rec.WrapSalt) != keywrap.SaltSize {
			return fmt.Errorf("%w: wrap salt must be %d bytes", model.ErrMalformedInput, keywrap.SaltSize)
		}
		if len(rec.WrappedKey) <= keywrap.NonceSize {
			return fmt.Errorf("%w: wrapped key too short", model.ErrMalformedInput)
		}
		if seenEmails[rec.Email] {
			return fmt.Errorf("%w: duplicate recipient %q", model.ErrMalformedInput, rec.Email)
		}
		if seenHashes[string(rec.CodeHash)] || seenSalts[string(rec.WrapSalt)] || seenKeys[string(rec.WrappedKey)] {
			return fmt.Errorf("%w: recipients must not share codes, salts or wrapped keys", model.ErrMalformedInput)
		}
		seenEmails[rec.Email] = true
		seenHashes[string(rec.CodeHash)] = true
		seenSalts[string(rec.WrapSalt)] = true
		seenKeys[string(rec.WrappedKey)] = true
	}

	return nil
}
