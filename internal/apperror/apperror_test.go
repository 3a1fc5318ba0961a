package apperror

import (
	"errors"
	"testing"
	"time"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("guild", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("class", "class is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("character", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("admin key required"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "CredentialExpired wraps ErrCredentialExpired",
			err:       CredentialExpired("sakif"),
			target:    ErrCredentialExpired,
			wantMatch: true,
		},
		{
			name:      "SourceUnavailable wraps ErrSourceUnavailable",
			err:       SourceUnavailable(errors.New("connection refused")),
			target:    ErrSourceUnavailable,
			wantMatch: true,
		},
		{
			name:      "RateLimited wraps ErrRateLimited",
			err:       RateLimited(),
			target:    ErrRateLimited,
			wantMatch: true,
		},
		{
			name:      "Cooldown wraps ErrCooldown",
			err:       Cooldown(3 * time.Minute),
			target:    ErrCooldown,
			wantMatch: true,
		},
		{
			name:      "Invariant wraps ErrInvariant",
			err:       Invariant("baseline exceeds total"),
			target:    ErrInvariant,
			wantMatch: true,
		},
		{
			name:      "RateLimited is not SourceUnavailable",
			err:       RateLimited(),
			target:    ErrSourceUnavailable,
			wantMatch: false,
		},
		{
			name:      "Cooldown is not a validation error",
			err:       Cooldown(time.Minute),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

// Matching through wrapping must survive fmt.Errorf %w chains, since the
// services wrap repository and source errors with context.
func TestErrorsIsThroughWrapping(t *testing.T) {
	wrapped := errorsJoin(CredentialExpired("sakif"))
	if !errors.Is(wrapped, ErrCredentialExpired) {
		t.Error("wrapped CredentialExpired should still match ErrCredentialExpired")
	}
}

func errorsJoin(err error) error {
	return &wrapper{err: err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "syncing user: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

func TestErrorsAs(t *testing.T) {
	var appErr *AppError

	err := ValidationFailed("name", "guild name is required")
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As should extract *AppError")
	}
	if appErr.Field != "name" {
		t.Errorf("Field = %q, want %q", appErr.Field, "name")
	}

	err = Cooldown(90 * time.Second)
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As should extract *AppError from Cooldown")
	}
	if appErr.RetryAfter != 90*time.Second {
		t.Errorf("RetryAfter = %v, want 90s", appErr.RetryAfter)
	}
}

func TestErrorMessages(t *testing.T) {
	if got := NotFound("user", "u1").Error(); got != "user not found with id u1" {
		t.Errorf("NotFound message = %q", got)
	}
	// The cooldown message includes the rounded wait so clients can show it.
	if got := Cooldown(150 * time.Second).Error(); got != "sync cooldown active, retry in 2m30s" {
		t.Errorf("Cooldown message = %q", got)
	}
}
