package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gitquest/internal/auth"
	"github.com/sakif/gitquest/internal/service"
)

// AchievementHandler serves the achievement catalog and the admin grant
// endpoint.
type AchievementHandler struct {
	achievements *service.AchievementService
	logger       *slog.Logger
}

func NewAchievementHandler(achievements *service.AchievementService, logger *slog.Logger) *AchievementHandler {
	return &AchievementHandler{
		achievements: achievements,
		logger:       logger,
	}
}

// HandleCatalog lists all achievements. Behind OptionalAuth: logged-in
// callers see which ones they've unlocked, anonymous callers just see the
// catalog.
//
// HTTP: GET /api/achievements
func (h *AchievementHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context()) // "" if anonymous

	entries, err := h.achievements.Catalog(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// HandleAdminGrant awards an achievement to a user.
//
// HTTP: POST /api/admin/users/{id}/achievements/{code} (behind RequireAdmin)
//
// Returns 200 with granted=false when the user already holds it — an
// expected outcome, not an error.
func (h *AchievementHandler) HandleAdminGrant(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	code := r.PathValue("code")
	if userID == "" || code == "" {
		http.Error(w, "user ID and achievement code are required", http.StatusBadRequest)
		return
	}

	result, err := h.achievements.Grant(r.Context(), userID, code)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("admin achievement grant",
		slog.String("userID", userID),
		slog.String("code", code),
		slog.Bool("granted", result.Granted),
	)

	writeJSON(w, http.StatusOK, result)
}
