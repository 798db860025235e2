package service

import (
	"context"
	"sort"
	"time"

	"fanarena/internal/domain"
	"fanarena/internal/store"
	apperrors "fanarena/pkg/errors"
	"fanarena/pkg/logger"

	"github.com/google/uuid"
)

// SeasonService manages division seasons. Season status is never stored; it
// is derived from the locked flag and the bounds every time it is read, so
// the stored record can never drift from what callers observe.
type SeasonService struct {
	store store.Store
	log   *logger.Logger
	now   func() time.Time
}

// NewSeasonService creates a new season service
func NewSeasonService(st store.Store, log *logger.Logger) *SeasonService {
	return &SeasonService{store: st, log: log, now: time.Now}
}

// WithClock replaces the wall clock. Used in tests.
func (s *SeasonService) WithClock(now func() time.Time) *SeasonService {
	s.now = now
	return s
}

// SeasonView is a season together with its derived status
type SeasonView struct {
	domain.DivisionSeason
	State domain.SeasonState `json:"state"`
}

// List returns all seasons with derived status, oldest first
func (s *SeasonService) List(ctx context.Context) ([]SeasonView, error) {
	now := s.now()
	var out []SeasonView
	err := s.store.View(ctx, func(state *store.State) error {
		out = make([]SeasonView, 0, len(state.Seasons))
		for _, season := range state.Seasons {
			out = append(out, SeasonView{DivisionSeason: *season, State: season.State(now)})
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list seasons", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Create registers a new season. Moderator only. Seasons start locked unless
// the request says otherwise.
func (s *SeasonService) Create(ctx context.Context, actor *domain.AuthUser, req *domain.CreateSeasonRequest) (*SeasonView, error) {
	if !actor.IsModerator() {
		return nil, apperrors.NewAccessDeniedError("only moderators can create seasons")
	}
	if req.Name == "" || req.DivisionID == "" {
		return nil, apperrors.NewValidationError("name and division_id are required", nil)
	}
	if req.StartAt != nil && req.EndAt != nil && !req.EndAt.After(*req.StartAt) {
		return nil, apperrors.NewValidationError("end_at must be after start_at", nil)
	}

	now := s.now()
	season := &domain.DivisionSeason{
		ID:          uuid.NewString(),
		DivisionID:  req.DivisionID,
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		IsLocked:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsLocked != nil {
		season.IsLocked = *req.IsLocked
	}

	err := s.store.Update(ctx, func(state *store.State) error {
		state.Seasons[season.ID] = season
		return nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create season", err)
	}
	return &SeasonView{DivisionSeason: *season, State: season.State(now)}, nil
}

// Patch updates season metadata and bounds. Moderator only.
func (s *SeasonService) Patch(ctx context.Context, actor *domain.AuthUser, id string, req *domain.UpdateSeasonRequest) (*SeasonView, error) {
	if !actor.IsModerator() {
		return nil, apperrors.NewAccessDeniedError("only moderators can update seasons")
	}

	now := s.now()
	var out *SeasonView
	err := s.store.Update(ctx, func(state *store.State) error {
		season, ok := state.Seasons[id]
		if !ok {
			return apperrors.NewNotFoundError("season not found")
		}
		if req.Name != nil {
			season.Name = *req.Name
		}
		if req.Description != nil {
			season.Description = *req.Description
		}
		if req.Icon != nil {
			season.Icon = *req.Icon
		}
		if req.StartAt != nil {
			season.StartAt = req.StartAt
		}
		if req.EndAt != nil {
			season.EndAt = req.EndAt
		}
		season.UpdatedAt = now
		out = &SeasonView{DivisionSeason: *season, State: season.State(now)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Activate unlocks the season immediately: the start bound moves to now so
// the derived status flips to active regardless of any scheduled window.
// Moderator only.
func (s *SeasonService) Activate(ctx context.Context, actor *domain.AuthUser, id string) (*SeasonView, error) {
	if !actor.IsModerator() {
		return nil, apperrors.NewAccessDeniedError("only moderators can activate seasons")
	}

	now := s.now()
	var out *SeasonView
	err := s.store.Update(ctx, func(state *store.State) error {
		season, ok := state.Seasons[id]
		if !ok {
			return apperrors.NewNotFoundError("season not found")
		}
		season.IsLocked = false
		start := now
		season.StartAt = &start
		season.UpdatedAt = now
		out = &SeasonView{DivisionSeason: *season, State: season.State(now)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("season_id", id).Info("Season activated")
	return out, nil
}

// Deactivate relocks the season and evicts every team registration of its
// division. The start bound is cleared so the sweep cannot silently
// reactivate it. Moderator only.
func (s *SeasonService) Deactivate(ctx context.Context, actor *domain.AuthUser, id string) (*SeasonView, error) {
	if !actor.IsModerator() {
		return nil, apperrors.NewAccessDeniedError("only moderators can deactivate seasons")
	}

	now := s.now()
	var out *SeasonView
	var evicted int
	err := s.store.Update(ctx, func(state *store.State) error {
		season, ok := state.Seasons[id]
		if !ok {
			return apperrors.NewNotFoundError("season not found")
		}
		season.IsLocked = true
		season.StartAt = nil
		season.UpdatedAt = now
		evicted = evictDivisionMemberships(state, season.DivisionID)
		out = &SeasonView{DivisionSeason: *season, State: season.State(now)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(map[string]interface{}{
		"season_id": id,
		"evicted":   evicted,
	}).Info("Season deactivated")
	return out, nil
}

// Sweep re-evaluates every season against the clock: locked seasons whose
// window is open get unlocked; unlocked seasons whose window closed get
// relocked, and their division's registrations are evicted. The eviction is
// destructive; the sweep cannot restore a removed registration.
func (s *SeasonService) Sweep(ctx context.Context) error {
	now := s.now()
	return s.store.Update(ctx, func(state *store.State) error {
		for _, season := range state.Seasons {
			if season.IsLocked {
				inWindow := season.StartAt != nil && !now.Before(*season.StartAt) &&
					(season.EndAt == nil || now.Before(*season.EndAt))
				if inWindow {
					season.IsLocked = false
					season.UpdatedAt = now
					s.log.WithField("season_id", season.ID).Info("Season sweep: unlocked")
				}
				continue
			}
			if season.EndAt != nil && !now.Before(*season.EndAt) {
				season.IsLocked = true
				season.UpdatedAt = now
				evicted := evictDivisionMemberships(state, season.DivisionID)
				s.log.WithFields(map[string]interface{}{
					"season_id": season.ID,
					"evicted":   evicted,
				}).Info("Season sweep: ended, registrations evicted")
			}
		}
		return nil
	})
}

// RequireActiveSeason rejects unless the division has a season whose derived
// status is exactly active. Shared by division join and fight creation.
func RequireActiveSeason(state *store.State, divisionID string, now time.Time) error {
	for _, season := range state.Seasons {
		if season.DivisionID == divisionID && season.State(now) == domain.SeasonActive {
			return nil
		}
	}
	return apperrors.NewDivisionLockedError("division season is not active")
}

func evictDivisionMemberships(state *store.State, divisionID string) int {
	evicted := 0
	for key, m := range state.Memberships {
		if m.DivisionID == divisionID {
			delete(state.Memberships, key)
			evicted++
		}
	}
	return evicted
}
