package apperror

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrCredentialExpired means the upstream activity source rejected the
	// user's OAuth token. Callers surface it distinctly so the frontend can
	// trigger re-authentication instead of a blind retry.
	ErrCredentialExpired = errors.New("credential expired")

	// ErrSourceUnavailable is a transient failure of a required upstream
	// fetch (network error, 5xx). Safe to retry later.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited means the activity source throttled us. A flavour of
	// unavailable, kept separate so logs can tell the two apart.
	ErrRateLimited = errors.New("rate limited")

	// ErrCooldown means a sync was attempted before the minimum interval
	// since the last one elapsed. Not a failure — the AppError carries the
	// remaining wait so the client can display it.
	ErrCooldown = errors.New("cooldown active")

	// ErrInvariant means derived XP/level fields disagreed right before a
	// write. This indicates a bug: the write is refused rather than
	// persisting inconsistent rows.
	ErrInvariant = errors.New("invariant violation")
)

type AppError struct {
	Err        error         // sentinel category, matched with errors.Is
	Message    string        // human-readable error message
	Field      string        // optional: field causing a validation error
	RetryAfter time.Duration // optional: remaining wait for cooldown errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// CredentialExpired marks a sync that failed because GitHub rejected the
// user's token. No state has been mutated when this is returned.
func CredentialExpired(login string) *AppError {
	return &AppError{
		Err:     ErrCredentialExpired,
		Message: fmt.Sprintf("GitHub credential for %s has expired, please re-authenticate", login),
	}
}

// SourceUnavailable marks a transient upstream failure on a required fetch.
func SourceUnavailable(cause error) *AppError {
	return &AppError{
		Err:     ErrSourceUnavailable,
		Message: fmt.Sprintf("activity source unavailable: %v", cause),
	}
}

// RateLimited marks an upstream throttle response.
func RateLimited() *AppError {
	return &AppError{
		Err:     ErrRateLimited,
		Message: "activity source rate limit exceeded, try again later",
	}
}

// Cooldown marks a sync attempted before the minimum interval elapsed.
// remaining is how long the caller has to wait.
func Cooldown(remaining time.Duration) *AppError {
	return &AppError{
		Err:        ErrCooldown,
		Message:    fmt.Sprintf("sync cooldown active, retry in %s", remaining.Round(time.Second)),
		RetryAfter: remaining,
	}
}

// Invariant marks a refused write whose derived fields were inconsistent.
func Invariant(message string) *AppError {
	return &AppError{
		Err:     ErrInvariant,
		Message: message,
	}
}
