package handler

import (
	"net/http"

	"fanarena/internal/domain"
	"fanarena/internal/middleware"
	"fanarena/internal/service"
	"fanarena/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// TournamentHandler handles the tournament lifecycle endpoints
type TournamentHandler struct {
	tournaments *service.TournamentService
	log         *logger.Logger
}

// NewTournamentHandler creates a new tournament handler
func NewTournamentHandler(tournaments *service.TournamentService, log *logger.Logger) *TournamentHandler {
	return &TournamentHandler{tournaments: tournaments, log: log}
}

// List handles GET /tournaments
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournaments.List(r.Context())
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tournaments": tournaments})
}

// Get handles GET /tournaments/{id}
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournaments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, tournament)
}

// Create handles POST /tournaments (moderator)
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTournamentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	tournament, err := h.tournaments.Create(r.Context(), middleware.GetUser(r.Context()), &req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, tournament)
}

// Update handles PUT /tournaments/{id} (moderator)
func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateTournamentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	tournament, err := h.tournaments.Update(r.Context(), middleware.GetUser(r.Context()), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, tournament)
}

// Delete handles DELETE /tournaments/{id} (moderator)
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tournaments.Delete(r.Context(), middleware.GetUser(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Join handles POST /tournaments/{id}/join
func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req domain.JoinTournamentRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, h.log, err)
			return
		}
	}

	tournament, err := h.tournaments.Join(r.Context(), middleware.GetUser(r.Context()), chi.URLParam(r, "id"), req.CharacterID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, tournament)
}

// Leave handles POST /tournaments/{id}/leave
func (h *TournamentHandler) Leave(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournaments.Leave(r.Context(), middleware.GetUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, tournament)
}

// Start handles POST /tournaments/{id}/start (moderator)
func (h *TournamentHandler) Start(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournaments.Start(r.Context(), middleware.GetUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, tournament)
}

// AdvanceMatch handles POST /tournaments/{id}/matches/{matchId}/advance (moderator)
func (h *TournamentHandler) AdvanceMatch(w http.ResponseWriter, r *http.Request) {
	var req domain.MatchVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	tournament, err := h.tournaments.AdvanceMatch(r.Context(), middleware.GetUser(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "matchId"), req.WinnerID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, tournament)
}

// Vote handles POST /tournaments/{id}/matches/{matchId}/vote
func (h *TournamentHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req domain.MatchVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	tournament, err := h.tournaments.Vote(r.Context(), middleware.GetUser(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "matchId"), req.WinnerID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, tournament)
}
