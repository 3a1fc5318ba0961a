package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/gitquest/internal/auth"
	"github.com/sakif/gitquest/internal/model"
	"github.com/sakif/gitquest/internal/service"
)

// CharacterHandler serves character creation, the own-character view, and
// the leaderboard.
type CharacterHandler struct {
	characters *service.CharacterService
	logger     *slog.Logger
}

func NewCharacterHandler(characters *service.CharacterService, logger *slog.Logger) *CharacterHandler {
	return &CharacterHandler{
		characters: characters,
		logger:     logger,
	}
}

// HandleCreate creates the caller's character.
//
// HTTP: POST /api/characters
// REQUEST BODY: {"class": "warrior"}
func (h *CharacterHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Class model.Class `json:"class"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid character JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	ch, err := h.characters.Create(r.Context(), userID, req.Class)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ch)
}

// HandleGetOwn returns the caller's character with progress and stats.
//
// HTTP: GET /api/characters/me
func (h *CharacterHandler) HandleGetOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	view, err := h.characters.GetOwn(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// HandleLeaderboard returns the top characters.
//
// HTTP: GET /api/leaderboard?limit=N
func (h *CharacterHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.characters.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
