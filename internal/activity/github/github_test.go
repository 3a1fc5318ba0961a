package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sakif/gitquest/internal/apperror"
)

// fakeGitHub serves canned total_count responses keyed by query
// substrings, mimicking the two search endpoints.
func fakeGitHub(t *testing.T, status int, counts map[string]int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		q := r.URL.Query().Get("q")
		var total int64
		switch {
		case r.URL.Path == "/search/commits":
			total = counts["commits"]
		case strings.Contains(q, "type:pr"):
			total = counts["prs"]
		case strings.Contains(q, "type:issue"):
			total = counts["issues"]
		default:
			t.Errorf("unexpected query %q on %s", q, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"total_count": %d, "items": []}`, total)
	}))
}

func TestLifetimeStats(t *testing.T) {
	srv := fakeGitHub(t, http.StatusOK, map[string]int64{"commits": 500, "prs": 50, "issues": 20})
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	stats, err := c.LifetimeStats(context.Background(), "alice", "gho_token")
	if err != nil {
		t.Fatalf("LifetimeStats: %v", err)
	}
	if stats.Commits != 500 || stats.PRs != 50 || stats.Issues != 20 {
		t.Errorf("stats = %+v, want (500, 50, 20)", stats)
	}
}

func TestStatsInRange_AppendsDateQualifiers(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total_count": 1}`)
	}))
	defer srv.Close()

	c := NewClientWithBase(srv.URL)
	from := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	if _, err := c.StatsInRange(context.Background(), "alice", "gho_token", from, to); err != nil {
		t.Fatalf("StatsInRange: %v", err)
	}

	if len(queries) != 3 {
		t.Fatalf("got %d queries, want 3", len(queries))
	}
	wantQualifiers := []string{
		"author-date:2025-06-08..2025-06-15",
		"created:2025-06-08..2025-06-15",
		"closed:2025-06-08..2025-06-15",
	}
	for i, q := range queries {
		if !strings.Contains(q, "author:alice") {
			t.Errorf("query %d = %q, missing author qualifier", i, q)
		}
		if !strings.Contains(q, wantQualifiers[i]) {
			t.Errorf("query %d = %q, missing %q", i, q, wantQualifiers[i])
		}
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusUnauthorized, want: apperror.ErrCredentialExpired},
		{status: http.StatusForbidden, want: apperror.ErrRateLimited},
		{status: http.StatusTooManyRequests, want: apperror.ErrRateLimited},
		{status: http.StatusNotFound, want: apperror.ErrNotFound},
		{status: http.StatusBadGateway, want: apperror.ErrSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			srv := fakeGitHub(t, tt.status, nil)
			defer srv.Close()

			c := NewClientWithBase(srv.URL)
			_, err := c.LifetimeStats(context.Background(), "alice", "gho_token")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnreachableServerIsSourceUnavailable(t *testing.T) {
	c := NewClientWithBase("http://127.0.0.1:1") // nothing listens here
	_, err := c.LifetimeStats(context.Background(), "alice", "gho_token")
	if !errors.Is(err, apperror.ErrSourceUnavailable) {
		t.Errorf("error = %v, want source unavailable", err)
	}
}
