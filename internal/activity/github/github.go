// Package github implements activity.Source against GitHub's REST search
// API.
//
// WHY THE SEARCH API?
// We only ever need COUNTS, not the underlying items. Every search response
// carries a total_count field, so one request per activity kind answers
// "how many commits has this user authored" without paginating anything:
//
//	GET /search/commits?q=author:LOGIN&per_page=1         → total_count
//	GET /search/issues?q=author:LOGIN+type:pr&per_page=1  → total_count
//
// Date windows use the same endpoints with a date qualifier appended
// (author-date:FROM..TO for commits, created:FROM..TO for PRs/issues).
//
// The client authenticates with the user's own OAuth token (stored at
// login), so each user's syncs spend that user's rate limit, not a shared
// server credential.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/gitquest/internal/activity"
	"github.com/sakif/gitquest/internal/apperror"
)

const (
	apiBase = "https://api.github.com"

	// requestTimeout bounds every call to GitHub. A fetch that exceeds it
	// fails the sync attempt; it is never silently treated as zero activity.
	requestTimeout = 10 * time.Second
)

// compile-time check that *Client implements activity.Source
var _ activity.Source = (*Client)(nil)

// Client talks to the GitHub search API. It is stateless — the token comes
// in per call because every user syncs with their own credential.
type Client struct {
	base string
}

// NewClient creates a GitHub activity client against the public API.
func NewClient() *Client {
	return &Client{base: apiBase}
}

// NewClientWithBase creates a client against a custom base URL.
// Used by tests to point at an httptest server.
func NewClientWithBase(base string) *Client {
	return &Client{base: base}
}

// LifetimeStats returns the user's cumulative commit/PR/issue counts.
func (c *Client) LifetimeStats(ctx context.Context, login, token string) (activity.Stats, error) {
	return c.fetch(ctx, login, token, "")
}

// StatsInRange returns the user's counts restricted to [from, to].
// GitHub's date qualifiers are day-granular, which is plenty for a 7-day
// retroactive window.
func (c *Client) StatsInRange(ctx context.Context, login, token string, from, to time.Time) (activity.Stats, error) {
	window := fmt.Sprintf("%s..%s", from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	return c.fetch(ctx, login, token, window)
}

// fetch runs the three count queries. window is empty for lifetime totals
// or a "FROM..TO" date range.
func (c *Client) fetch(ctx context.Context, login, token string, window string) (activity.Stats, error) {
	var stats activity.Stats

	commitQ := "author:" + login
	prQ := "author:" + login + " type:pr"
	issueQ := "author:" + login + " type:issue state:closed"
	if window != "" {
		commitQ += " author-date:" + window
		prQ += " created:" + window
		issueQ += " closed:" + window
	}

	var err error
	if stats.Commits, err = c.count(ctx, token, "/search/commits", commitQ); err != nil {
		return activity.Stats{}, err
	}
	if stats.PRs, err = c.count(ctx, token, "/search/issues", prQ); err != nil {
		return activity.Stats{}, err
	}
	if stats.Issues, err = c.count(ctx, token, "/search/issues", issueQ); err != nil {
		return activity.Stats{}, err
	}

	return stats, nil
}

// searchResult is the slice of GitHub's search response we care about.
// total_count is all we read; items are excluded by per_page=1.
type searchResult struct {
	TotalCount int64 `json:"total_count"`
}

// count runs one search query and returns its total_count.
func (c *Client) count(ctx context.Context, token, path, query string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	u := fmt.Sprintf("%s%s?q=%s&per_page=1", c.base, path, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("github: building request: %w", err)
	}
	// The commit search endpoint historically required this preview media
	// type; it is harmless on the others.
	req.Header.Set("Accept", "application/vnd.github.cloak-preview+json")

	// oauth2.NewClient gives us an *http.Client that injects the
	// Authorization header from the token source — the same pattern the
	// OAuth login flow uses for the /user call.
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, apperror.SourceUnavailable(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized:
		return 0, apperror.CredentialExpired(loginFromQuery(query))
	case http.StatusForbidden, http.StatusTooManyRequests:
		// GitHub reports rate limiting as 403 with an exhausted
		// X-RateLimit-Remaining, or as a plain 429.
		return 0, apperror.RateLimited()
	case http.StatusNotFound:
		return 0, apperror.NotFound("github user", loginFromQuery(query))
	default:
		return 0, apperror.SourceUnavailable(fmt.Errorf("github returned status %d", resp.StatusCode))
	}

	var result searchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, apperror.SourceUnavailable(fmt.Errorf("decoding search response: %w", err))
	}

	return result.TotalCount, nil
}

// loginFromQuery pulls the author login back out of a search query for
// error messages. Best effort — returns the raw query if parsing fails.
func loginFromQuery(query string) string {
	const prefix = "author:"
	if len(query) > len(prefix) && query[:len(prefix)] == prefix {
		login := query[len(prefix):]
		for i := 0; i < len(login); i++ {
			if login[i] == ' ' {
				return login[:i]
			}
		}
		return login
	}
	return query
}
