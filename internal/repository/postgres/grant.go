package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sealdrop/sealdrop/internal/atrest"
	"github.com/sealdrop/sealdrop/internal/model"
)

var _ model.GrantStore = (*GrantRepository)(nil)

type GrantRepository struct {
	db   *Connection
	keys *atrest.Keyring
}

func NewGrantRepository(db *Connection, keys *atrest.Keyring) *GrantRepository {
	return &GrantRepository{
		db:   db,
		keys: keys,
	}
}

const grantColumns = `id, file_id, email, code_hash, wrapped_key, wrap_salt,
	attempt_count, last_attempt_at, verified_at, downloaded_at, created_at`

func (r *GrantRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants WHERE id = $1`
	return r.queryGrant(ctx, query, id)
}

func (r *GrantRepository) GetByFileID(ctx context.Context, fileID uuid.UUID) ([]model.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants WHERE file_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []model.Grant
	for rows.Next() {
		grant, err := r.scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return grants, nil
}

func (r *GrantRepository) GetByFileIDAndEmail(ctx context.Context, fileID uuid.UUID, email string) (model.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants WHERE file_id = $1 AND email = $2`
	return r.queryGrant(ctx, query, fileID, email)
}

// RegisterAttempt bumps the attempt counter and stamp in one statement
// and returns the new count. The increment is atomic at the row level so
// concurrent verification calls serialize here rather than racing a
// read-then-write from the service layer.
func (r *GrantRepository) RegisterAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	const query = `
		UPDATE grants
		SET attempt_count = attempt_count + 1, last_attempt_at = NOW()
		WHERE id = $1
		RETURNING attempt_count`

	var count int
	err := r.db.QueryRow(ctx, query, id).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrNotFound
		}
		return 0, err
	}

	return count, nil
}

func (r *GrantRepository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `UPDATE grants SET verified_at = $2 WHERE id = $1`
	return r.exec(ctx, query, id, at)
}

func (r *GrantRepository) MarkDownloaded(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `UPDATE grants SET downloaded_at = $2 WHERE id = $1`
	return r.exec(ctx, query, id, at)
}

func (r *GrantRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *GrantRepository) queryGrant(ctx context.Context, query string, args ...any) (model.Grant, error) {
	grant, err := r.scanGrant(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Grant{}, model.ErrNotFound
		}
		return model.Grant{}, err
	}
	return grant, nil
}

func (r *GrantRepository) scanGrant(row pgx.Row) (model.Grant, error) {
	var grant model.Grant
	err := row.Scan(
		&grant.ID, &grant.FileID, &grant.Email, &grant.CodeHash,
		&grant.WrappedKey, &grant.WrapSalt, &grant.AttemptCount,
		&grant.LastAttempt, &grant.VerifiedAt, &grant.DownloadedAt,
		&grant.CreatedAt,
	)
	if err != nil {
		return model.Grant{}, err
	}

	// Stored wrapped keys may be sealed envelopes or legacy plaintext;
	// OpenColumn tells them apart by the version byte.
	dataKey, err := r.keys.DataKey(atrest.LabelDBSensitive)
	if err != nil {
		return model.Grant{}, err
	}
	grant.WrappedKey, err = atrest.OpenColumn(dataKey, grant.WrappedKey)
	if err != nil {
		return model.Grant{}, err
	}

	return grant, nil
}
