// Package auth — admin gate.
//
// The bulk sync and forced per-user recalculation endpoints are not user
// features; they're operator tools. They sit behind a shared admin key
// presented in a header, with only the bcrypt HASH of the key in the
// server's environment.
//
// WHY BCRYPT FOR AN API KEY?
// The usual reasons for bcrypt on passwords apply: the deployment config
// (env files, process listings, backups) only ever contains the hash, so
// leaking it doesn't leak the key, and CompareHashAndPassword is
// constant-time so response timing gives nothing away. The per-request
// cost (~250ms at cost 12) is irrelevant on endpoints an operator hits a
// few times a day.
package auth

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader is the request header carrying the admin key.
const AdminKeyHeader = "X-Admin-Key"

// AdminGate verifies the admin key on operator endpoints.
type AdminGate struct {
	keyHash []byte // bcrypt hash of the admin key; empty disables the gate
}

// NewAdminGate creates a gate from the bcrypt hash of the admin key, as
// produced by HashAdminKey (or `htpasswd -nbB`). An empty hash yields a
// gate that rejects everything — admin routes are then effectively off,
// which is the safe default when ADMIN_KEY_HASH isn't configured.
func NewAdminGate(keyHash string) *AdminGate {
	return &AdminGate{keyHash: []byte(keyHash)}
}

// Enabled reports whether an admin key hash was configured.
func (g *AdminGate) Enabled() bool {
	return len(g.keyHash) > 0
}

// Verify checks a presented key against the configured hash.
func (g *AdminGate) Verify(key string) error {
	if !g.Enabled() {
		return errors.New("auth: admin gate not configured")
	}
	if err := bcrypt.CompareHashAndPassword(g.keyHash, []byte(key)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errors.New("auth: invalid admin key")
		}
		return fmt.Errorf("auth: comparing admin key hash: %w", err)
	}
	return nil
}

// RequireAdmin is a middleware enforcing the admin gate. It runs after
// RequireAuth on admin routes — operators are users too, they just also
// hold the key.
func RequireAdmin(gate *AdminGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := gate.Verify(r.Header.Get(AdminKeyHeader)); err != nil {
				http.Error(w, `{"error":"forbidden","message":"admin access required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HashAdminKey produces the bcrypt hash to put in ADMIN_KEY_HASH.
// Exposed for the ops one-liner:
//
//	go run ./cmd/server -hash-admin-key "the-key"
func HashAdminKey(key string) (string, error) {
	if len(key) > 72 {
		// bcrypt silently truncates input beyond 72 bytes; reject instead.
		return "", fmt.Errorf("auth: admin key must be 72 bytes or fewer")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing admin key: %w", err)
	}
	return string(hashed), nil
}
