// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered player account.
//
// We use GitHub OAuth as the identity provider, so the primary external
// identifier is the GitHub user ID (an integer). We still generate our own
// internal string ID (xid) for consistency with the other entities and to
// avoid tying our primary keys to a third-party's numbering scheme.
//
// WHY GitHubToken ON THE USER?
// Unlike a plain "sign in with GitHub" app, we keep calling the GitHub API
// on the user's behalf after login — every sync queries their commit, PR,
// and issue counts. So the OAuth access token is persisted alongside the
// profile. It is never serialized to JSON (note the `json:"-"` tag); when
// GitHub rejects it with a 401 the sync surfaces a credential-expired error
// so the frontend can force a re-login.
type User struct {
	ID          string    `json:"id"        db:"id"`
	GitHubID    int64     `json:"githubId"  db:"github_id"` // GitHub's numeric user ID
	Login       string    `json:"login"     db:"login"`     // GitHub username, e.g. "sakif"
	Email       string    `json:"email"     db:"email"`     // Primary public email (may be empty)
	AvatarURL   string    `json:"avatarUrl" db:"avatar_url"`
	GitHubToken string    `json:"-"         db:"github_token"` // OAuth access token used by the sync
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
