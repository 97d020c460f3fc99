package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sealdrop/sealdrop/internal/atrest"
	"github.com/sealdrop/sealdrop/internal/model"
)

var _ model.FileStore = (*FileRepository)(nil)

type FileRepository struct {
	db   *Connection
	keys *atrest.Keyring
}

func NewFileRepository(db *Connection, keys *atrest.Keyring) *FileRepository {
	return &FileRepository{
		db:   db,
		keys: keys,
	}
}

// Create inserts the file row and all of its grants in one transaction so
// a half-shared file can never exist. Wrapped-key columns are sealed with
// the db-sensitive data key when encryption at rest is enabled.
func (r *FileRepository) Create(ctx context.Context, file model.File, grants []model.Grant) (model.File, error) {
	dataKey, err := r.keys.DataKey(atrest.LabelDBSensitive)
	if err != nil {
		return model.File{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.File{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO files (id, name, size, blob_key, status, expiry_policy, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	var saved = file
	err = tx.QueryRow(ctx, query,
		file.ID, file.Name, file.Size, file.BlobKey,
		string(file.Status), string(file.ExpiryPolicy), file.ExpiresAt,
	).Scan(&saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return model.File{}, err
	}

	grantQuery := `
		INSERT INTO grants (id, file_id, email, code_hash, wrapped_key, wrap_salt)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, g := range grants {
		sealedKey, err := atrest.SealColumn(dataKey, g.WrappedKey)
		if err != nil {
			return model.File{}, err
		}
		if _, err := tx.Exec(ctx, grantQuery, g.ID, file.ID, g.Email, g.CodeHash, sealedKey, g.WrapSalt); err != nil {
			return model.File{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.File{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return saved, nil
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (model.File, error) {
	query := `
		SELECT id, name, size, blob_key, status, expiry_policy, expires_at, created_at, updated_at
		FROM files
		WHERE id = $1`

	var file model.File
	err := r.db.QueryRow(ctx, query, id).Scan(
		&file.ID, &file.Name, &file.Size, &file.BlobKey,
		&file.Status, &file.ExpiryPolicy, &file.ExpiresAt,
		&file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.File{}, model.ErrNotFound
		}
		return model.File{}, err
	}

	return file, nil
}

func (r *FileRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.FileStatus) error {
	const query = `UPDATE files SET status = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, string(status))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// MarkUsed voids a one-time file in a single conditional statement.
// Concurrent downloads serialize on the row; whoever loses the
// transition gets ErrNotAvailable.
func (r *FileRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE files SET status = 'used', updated_at = NOW()
		WHERE id = $1 AND status = 'active'`

	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotAvailable
	}
	return nil
}
