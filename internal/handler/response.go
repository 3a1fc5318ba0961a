package handler

// Response helpers shared by all handlers: one place that turns domain
// errors into HTTP status codes, so the services never learn what a 429 is.
//
// Every error response has the same shape:
//
//	{"error": "cooldown_active", "message": "...", "retryAfterSeconds": 180}
//
// (retryAfterSeconds only on cooldowns.)

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/sakif/gitquest/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error             string `json:"error"`   // machine-readable type, e.g. "not_found"
	Message           string `json:"message"` // human-readable description
	RetryAfterSeconds int64  `json:"retryAfterSeconds,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
// Headers must be set before WriteHeader, and WriteHeader before the body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers already sent — all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code.
//
// The interesting mappings for this API:
//   - cooldown → 429 with a Retry-After header AND a retryAfterSeconds
//     field, so both proxies and the frontend can handle it
//   - credential expired → 401 with its own error type; the frontend
//     treats it as "send the user back through GitHub login"
//   - rate limited / source unavailable → 503; retrying later is the fix
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"
		var retryAfter int64

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrCredentialExpired):
			status = http.StatusUnauthorized
			errorType = "credential_expired"
		case errors.Is(err, apperror.ErrCooldown):
			status = http.StatusTooManyRequests
			errorType = "cooldown_active"
			retryAfter = int64(math.Ceil(appErr.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
		case errors.Is(err, apperror.ErrRateLimited),
			errors.Is(err, apperror.ErrSourceUnavailable):
			status = http.StatusServiceUnavailable
			errorType = "source_unavailable"
		case errors.Is(err, apperror.ErrInvariant):
			// A refused-to-persist bug trip. Still a 500, but named so it
			// stands out in error tracking.
			status = http.StatusInternalServerError
			errorType = "invariant_violation"
		}

		writeJSON(w, status, ErrorResponse{
			Error:             errorType,
			Message:           appErr.Message,
			RetryAfterSeconds: retryAfter,
		})
		return
	}

	// Unknown error — generic 500. Never echo internal details (SQL, file
	// paths) back to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
