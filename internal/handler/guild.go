package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/gitquest/internal/auth"
	"github.com/sakif/gitquest/internal/service"
)

// GuildHandler serves guild creation, membership, and lookup.
type GuildHandler struct {
	guilds *service.GuildService
	logger *slog.Logger
}

func NewGuildHandler(guilds *service.GuildService, logger *slog.Logger) *GuildHandler {
	return &GuildHandler{
		guilds: guilds,
		logger: logger,
	}
}

// HandleCreate creates a guild owned by the caller.
//
// HTTP: POST /api/guilds
// REQUEST BODY: {"name": "The Rebase Raiders"}
func (h *GuildHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid guild JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	guild, err := h.guilds.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, guild)
}

// HandleGet returns a guild with its member IDs.
//
// HTTP: GET /api/guilds/{id}
func (h *GuildHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("id")
	if guildID == "" {
		http.Error(w, "guild ID is required", http.StatusBadRequest)
		return
	}

	guild, err := h.guilds.Get(r.Context(), guildID)
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := h.guilds.Members(r.Context(), guildID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"guild":   guild,
		"members": members,
	})
}

// HandleJoin enrolls the caller in a guild.
//
// HTTP: POST /api/guilds/{id}/join
func (h *GuildHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	guildID := r.PathValue("id")
	if guildID == "" {
		http.Error(w, "guild ID is required", http.StatusBadRequest)
		return
	}

	if err := h.guilds.Join(r.Context(), guildID, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleLeave removes the caller from a guild.
//
// HTTP: POST /api/guilds/{id}/leave
func (h *GuildHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	guildID := r.PathValue("id")
	if guildID == "" {
		http.Error(w, "guild ID is required", http.StatusBadRequest)
		return
	}

	if err := h.guilds.Leave(r.Context(), guildID, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
