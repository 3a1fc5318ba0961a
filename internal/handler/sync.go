package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gitquest/internal/auth"
	"github.com/sakif/gitquest/internal/service"
)

// SyncHandler exposes the reconciliation engine: the self-serve sync and
// the admin recalculation endpoints.
type SyncHandler struct {
	sync   *service.SyncService
	logger *slog.Logger
}

func NewSyncHandler(sync *service.SyncService, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		sync:   sync,
		logger: logger,
	}
}

// HandleSyncSelf reconciles the caller's own activity.
//
// HTTP: POST /api/sync (behind RequireAuth)
//
// Subject to the cooldown: a repeat within the interval gets a 429 with
// the remaining wait, which the frontend shows as "try again in Ns".
func (h *SyncHandler) HandleSyncSelf(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.sync.SyncUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleAdminSyncUser forces a reconciliation for any user, ignoring the
// cooldown. This is the repair tool for mis-baselined accounts — the sync
// itself detects and fixes them.
//
// HTTP: POST /api/admin/users/{id}/sync (behind RequireAdmin)
func (h *SyncHandler) HandleAdminSyncUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		http.Error(w, "user ID is required", http.StatusBadRequest)
		return
	}

	result, err := h.sync.ForceSyncUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("admin forced sync", slog.String("userID", userID))
	writeJSON(w, http.StatusOK, result)
}

// HandleAdminSyncAll reconciles every user and returns the per-user
// report. Individual failures are entries in the report, not a failure of
// the request.
//
// HTTP: POST /api/admin/sync-all (behind RequireAdmin)
func (h *SyncHandler) HandleAdminSyncAll(w http.ResponseWriter, r *http.Request) {
	reports, err := h.sync.SyncAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reports)
}
