package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditSink records protocol decisions. Every branch of the verification
// state machine emits exactly one event, synchronously with the decision;
// the audit trail is the only detection signal for brute-force activity.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// Audit event types.
const (
	AuditFileShared     = "file_shared"
	AuditOTPVerified    = "otp_verified"
	AuditOTPFailed      = "otp_failed"
	AuditFileDownloaded = "file_downloaded"
)

// Audit reason codes for otp_failed events.
const (
	ReasonNotAvailable     = "not_available"
	ReasonUnknownRecipient = "unknown_recipient"
	ReasonTooManyAttempts  = "too_many_attempts"
	ReasonCooldown         = "cooldown"
	ReasonInvalidCode      = "invalid_code"
	ReasonMalformedCode    = "malformed_code"
)

// AuditEvent is one record of a protocol decision.
type AuditEvent struct {
	FileID       uuid.UUID
	GrantID      *uuid.UUID
	EventType    string
	Reason       string
	AttemptCount int
	CreatedAt    time.Time
}
