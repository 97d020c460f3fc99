package postgres

import (
	"context"

	"github.com/sealdrop/sealdrop/internal/model"
)

var _ model.AuditSink = (*AuditRepository)(nil)

type AuditRepository struct {
	db *Connection
}

func NewAuditRepository(db *Connection) *AuditRepository {
	return &AuditRepository{
		db: db,
	}
}

// Record inserts one audit event. Callers treat a failure here as a
// failure of the guarded operation; the trail is not best-effort.
func (r *AuditRepository) Record(ctx context.Context, event model.AuditEvent) error {
	const query = `
		INSERT INTO audit_events (file_id, grant_id, event_type, reason, attempt_count)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		event.FileID, event.GrantID, event.EventType, event.Reason, event.AttemptCount,
	)
	return err
}
