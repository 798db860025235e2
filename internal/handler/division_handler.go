package handler

import (
	"net/http"

	"fanarena/internal/domain"
	"fanarena/internal/middleware"
	"fanarena/internal/service"
	"fanarena/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// DivisionHandler handles season, membership, and fight endpoints
type DivisionHandler struct {
	seasons *service.SeasonService
	fights  *service.FightService
	log     *logger.Logger
}

// NewDivisionHandler creates a new division handler
func NewDivisionHandler(seasons *service.SeasonService, fights *service.FightService, log *logger.Logger) *DivisionHandler {
	return &DivisionHandler{seasons: seasons, fights: fights, log: log}
}

// ListSeasons handles GET /divisions/seasons
func (h *DivisionHandler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.seasons.List(r.Context())
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"seasons": seasons})
}

// CreateSeason handles POST /divisions/seasons (moderator)
func (h *DivisionHandler) CreateSeason(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSeasonRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	season, err := h.seasons.Create(r.Context(), middleware.GetUser(r.Context()), &req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, season)
}

// PatchSeason handles PATCH /divisions/seasons/{id} (moderator)
func (h *DivisionHandler) PatchSeason(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSeasonRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	season, err := h.seasons.Patch(r.Context(), middleware.GetUser(r.Context()), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, season)
}

// ActivateSeason handles POST /divisions/seasons/{id}/activate (moderator)
func (h *DivisionHandler) ActivateSeason(w http.ResponseWriter, r *http.Request) {
	season, err := h.seasons.Activate(r.Context(), middleware.GetUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, season)
}

// DeactivateSeason handles POST /divisions/seasons/{id}/deactivate (moderator)
func (h *DivisionHandler) DeactivateSeason(w http.ResponseWriter, r *http.Request) {
	season, err := h.seasons.Deactivate(r.Context(), middleware.GetUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, season)
}

// Join handles POST /divisions/join
func (h *DivisionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req domain.JoinDivisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	membership, err := h.fights.JoinDivision(r.Context(), middleware.GetUser(r.Context()), &req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, membership)
}

// Leave handles POST /divisions/leave
func (h *DivisionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req domain.LeaveDivisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	if err := h.fights.LeaveDivision(r.Context(), middleware.GetUser(r.Context()), req.DivisionID); err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// CreateTitleFight handles POST /divisions/{id}/title-fight (moderator)
func (h *DivisionHandler) CreateTitleFight(w http.ResponseWriter, r *http.Request) {
	h.createFight(w, r, domain.FightTitle)
}

// CreateContenderMatch handles POST /divisions/{id}/contender-match (moderator)
func (h *DivisionHandler) CreateContenderMatch(w http.ResponseWriter, r *http.Request) {
	h.createFight(w, r, domain.FightContender)
}

// CreateOfficialFight handles POST /divisions/{id}/official-fight (moderator)
func (h *DivisionHandler) CreateOfficialFight(w http.ResponseWriter, r *http.Request) {
	h.createFight(w, r, domain.FightOfficial)
}

func (h *DivisionHandler) createFight(w http.ResponseWriter, r *http.Request, fightType domain.FightType) {
	var req domain.CreateFightRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	fight, err := h.fights.CreateFight(r.Context(), middleware.GetUser(r.Context()),
		chi.URLParam(r, "id"), fightType, &req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, fight)
}

// ListFights handles GET /divisions/{id}/fights
func (h *DivisionHandler) ListFights(w http.ResponseWriter, r *http.Request) {
	fights, err := h.fights.ListFights(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"fights": fights})
}

// GetFight handles GET /divisions/fights/{fightId}
func (h *DivisionHandler) GetFight(w http.ResponseWriter, r *http.Request) {
	fight, err := h.fights.GetFight(r.Context(), chi.URLParam(r, "fightId"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, fight)
}

// Vote handles POST /divisions/vote
func (h *DivisionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req domain.FightVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.log, err)
		return
	}

	fight, err := h.fights.Vote(r.Context(), middleware.GetUser(r.Context()), &req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, fight)
}

// Overview handles GET /divisions/overview
func (h *DivisionHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.fights.Overview(r.Context(), h.seasons)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}
