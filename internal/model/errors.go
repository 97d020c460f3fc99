package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores when an entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotAvailable is returned when a file is missing, expired or already
// used. The three causes are deliberately indistinguishable to callers.
var ErrNotAvailable = errors.New("file not available")

// ErrTooManyAttempts is returned once a grant has consumed all of its
// verification attempts. Terminal for the grant.
var ErrTooManyAttempts = errors.New("too many attempts")

// ErrInvalidCode is returned for a well-formed but wrong one-time code.
var ErrInvalidCode = errors.New("invalid code")

// ErrMalformedInput is returned for requests rejected before any state
// change, such as a code of the wrong length.
var ErrMalformedInput = errors.New("malformed input")

// CooldownError is returned when a verification attempt arrives before
// the cooldown interval since the previous attempt has elapsed. It does
// not consume an attempt.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("verification on cooldown for %s", e.Remaining)
}

// InvalidCodeError carries the attempts remaining after a failed code
// comparison. It matches ErrInvalidCode under errors.Is.
type InvalidCodeError struct {
	AttemptsRemaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code, %d attempts remaining", e.AttemptsRemaining)
}

func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}
