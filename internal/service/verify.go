package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/sealdrop/sealdrop/internal/logger"
	"github.com/sealdrop/sealdrop/internal/metrics"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/keywrap"
)

// VerifyConfig holds the tunables of the verification state machine.
type VerifyConfig struct {
	CodeLength  int
	MaxAttempts int
	Cooldown    time.Duration
}

// VerifyResult is returned on a successful verification. This is the
// only path by which a wrapped key ever leaves the server.
type VerifyResult struct {
	WrappedKey []byte
	WrapSalt   []byte
	FileName   string
	FileSize   int64
}

// Verify gates release of a grant's wrapped key behind a bounded,
// side-channel-resistant one-time-code challenge.
type Verify struct {
	fileStore  model.FileStore
	grantStore model.GrantStore
	audit      model.AuditSink
	logger     *logger.Logger
	cfg        VerifyConfig

	// Injectable for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

func NewVerify(
	fileStore model.FileStore,
	grantStore model.GrantStore,
	audit model.AuditSink,
	logger *logger.Logger,
	cfg VerifyConfig,
) *Verify {
	return &Verify{
		fileStore:  fileStore,
		grantStore: grantStore,
		audit:      audit,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// VerifyCode runs one verification attempt for a file's grant. The
// grant is resolved by email, or, when email is empty and the file has a
// single grant, directly. The attempt counter is bumped atomically
// before the code comparison, so a crash mid-comparison can never grant
// extra retries.
func (s *Verify) VerifyCode(ctx context.Context, fileID uuid.UUID, code string, email string) (VerifyResult, error) {
	now := s.now()

	// Malformed codes are rejected before any state change.
	if err := keywrap.ValidateCode(code, s.cfg.CodeLength); err != nil {
		if err := s.recordFailure(ctx, fileID, nil, model.ReasonMalformedCode, 0); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{}, fmt.Errorf("%w: %s", model.ErrMalformedInput, err)
	}

	file, err := s.resolveFile(ctx, fileID, now)
	if err != nil {
		return VerifyResult{}, err
	}

	grant, err := s.resolveGrant(ctx, file, email)
	if err != nil {
		return VerifyResult{}, err
	}

	if grant.AttemptCount >= s.cfg.MaxAttempts {
		if err := s.recordFailure(ctx, fileID, &grant.ID, model.ReasonTooManyAttempts, grant.AttemptCount); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{}, model.ErrTooManyAttempts
	}

	if grant.LastAttempt != nil {
		if elapsed := now.Sub(*grant.LastAttempt); elapsed < s.cfg.Cooldown {
			if err := s.recordFailure(ctx, fileID, &grant.ID, model.ReasonCooldown, grant.AttemptCount); err != nil {
				return VerifyResult{}, err
			}
			return VerifyResult{}, &model.CooldownError{Remaining: s.cfg.Cooldown - elapsed}
		}
	}

	attempts, err := s.grantStore.RegisterAttempt(ctx, grant.ID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("failed to register attempt: %w", err)
	}

	// Concurrent attempts serialize on the atomic increment; whoever
	// lands past the limit is rejected even though the pre-check passed.
	if attempts > s.cfg.MaxAttempts {
		if err := s.recordFailure(ctx, fileID, &grant.ID, model.ReasonTooManyAttempts, attempts); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{}, model.ErrTooManyAttempts
	}

	digest := keywrap.HashCode(code)
	if subtle.ConstantTimeCompare(digest, grant.CodeHash) != 1 {
		if err := s.recordFailure(ctx, fileID, &grant.ID, model.ReasonInvalidCode, attempts); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{}, &model.InvalidCodeError{AttemptsRemaining: s.attemptsRemaining(attempts)}
	}

	if err := s.grantStore.MarkVerified(ctx, grant.ID, now); err != nil {
		return VerifyResult{}, fmt.Errorf("failed to mark grant verified: %w", err)
	}

	if err := s.record(ctx, model.AuditEvent{
		FileID:       fileID,
		GrantID:      &grant.ID,
		EventType:    model.AuditOTPVerified,
		AttemptCount: attempts,
	}); err != nil {
		return VerifyResult{}, err
	}
	metrics.ObserveVerify("verified")

	return VerifyResult{
		WrappedKey: grant.WrappedKey,
		WrapSalt:   grant.WrapSalt,
		FileName:   file.Name,
		FileSize:   file.Size,
	}, nil
}

// resolveFile loads the file and checks availability. A missing file and
// an expired or used one fail identically with ErrNotAvailable.
func (s *Verify) resolveFile(ctx context.Context, fileID uuid.UUID, now time.Time) (model.File, error) {
	file, err := s.fileStore.GetByID(ctx, fileID)
	if err != nil {
		if err == model.ErrNotFound {
			if err := s.recordFailure(ctx, fileID, nil, model.ReasonNotAvailable, 0); err != nil {
				return model.File{}, err
			}
			return model.File{}, model.ErrNotAvailable
		}
		return model.File{}, fmt.Errorf("failed to get file: %w", err)
	}

	if file.Status == model.FileStatusActive && !now.Before(file.ExpiresAt) {
		if err := s.fileStore.SetStatus(ctx, file.ID, model.FileStatusExpired); err != nil {
			s.logger.Error("failed to expire file", "file_id", file.ID, "error", err)
		}
		file.Status = model.FileStatusExpired
	}

	if !file.Available(now) {
		if err := s.recordFailure(ctx, fileID, nil, model.ReasonNotAvailable, 0); err != nil {
			return model.File{}, err
		}
		return model.File{}, model.ErrNotAvailable
	}

	return file, nil
}

// resolveGrant finds the target grant. When no grant matches, the
// failure is delayed by a randomized interval so an attacker cannot tell
// an unknown recipient from a known one with a wrong code by timing.
func (s *Verify) resolveGrant(ctx context.Context, file model.File, email string) (model.Grant, error) {
	if email != "" {
		grant, err := s.grantStore.GetByFileIDAndEmail(ctx, file.ID, email)
		if err != nil {
			if err == model.ErrNotFound {
				return model.Grant{}, s.failUnknownRecipient(ctx, file.ID)
			}
			return model.Grant{}, fmt.Errorf("failed to get grant: %w", err)
		}
		return grant, nil
	}

	// No email given: accept only when the file has exactly one grant.
	grants, err := s.grantStore.GetByFileID(ctx, file.ID)
	if err != nil {
		return model.Grant{}, fmt.Errorf("failed to get grants: %w", err)
	}
	if len(grants) != 1 {
		return model.Grant{}, s.failUnknownRecipient(ctx, file.ID)
	}
	return grants[0], nil
}

func (s *Verify) failUnknownRecipient(ctx context.Context, fileID uuid.UUID) error {
	s.sleep(time.Duration(20+rand.IntN(41)) * time.Millisecond)
	if err := s.recordFailure(ctx, fileID, nil, model.ReasonUnknownRecipient, 0); err != nil {
		return err
	}
	return &model.InvalidCodeError{AttemptsRemaining: s.attemptsRemaining(1)}
}

func (s *Verify) attemptsRemaining(attempts int) int {
	if remaining := s.cfg.MaxAttempts - attempts; remaining > 0 {
		return remaining
	}
	return 0
}

func (s *Verify) recordFailure(ctx context.Context, fileID uuid.UUID, grantID *uuid.UUID, reason string, attempts int) error {
	metrics.ObserveVerify(reason)
	return s.record(ctx, model.AuditEvent{
		FileID:       fileID,
		GrantID:      grantID,
		EventType:    model.AuditOTPFailed,
		Reason:       reason,
		AttemptCount: attempts,
	})
}

// record emits an audit event synchronously with the decision it
// documents. A failure to audit fails the whole call.
func (s *Verify) record(ctx context.Context, event model.AuditEvent) error {
	if err := s.audit.Record(ctx, event); err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}
