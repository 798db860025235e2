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
	"golang.org/x/sync/errgroup"
)

// FightService builds division fights, records fight votes, and applies the
// vote-visibility gate on every read path. The gate is the platform's only
// integrity guarantee against vote-count sniping before lock time, so no
// fight record leaves this package ungated.
type FightService struct {
	store    store.Store
	resolver UserResolver
	cache    *CacheService
	log      *logger.Logger
	now      func() time.Time
}

// NewFightService creates a new fight service. cache may be nil.
func NewFightService(st store.Store, resolver UserResolver, cache *CacheService, log *logger.Logger) *FightService {
	return &FightService{
		store:    st,
		resolver: resolver,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock. Used in tests.
func (s *FightService) WithClock(now func() time.Time) *FightService {
	s.now = now
	return s
}

// ApplyVisibility is the vote gate. Live fights pass through untouched;
// final-reveal fights come back with all tallies zeroed and votes_hidden set
// until the deadline passes or the fight leaves the active state.
func ApplyVisibility(f domain.DivisionFight, now time.Time) domain.DivisionFight {
	if f.VoteVisibility != domain.VisibilityFinal {
		return f
	}
	if !now.Before(f.EndTime) || f.Status != domain.FightActive {
		return f
	}
	masked := f
	masked.Counts = domain.FightCounts{}
	masked.Votes = nil
	masked.VotesHidden = true
	return masked
}

// JoinDivision registers the actor's team in a division. Gated on the
// division having an exactly-active season.
func (s *FightService) JoinDivision(ctx context.Context, actor *domain.AuthUser, req *domain.JoinDivisionRequest) (*domain.DivisionMembership, error) {
	if req.DivisionID == "" || req.TeamName == "" {
		return nil, apperrors.NewValidationError("division_id and team_name are required", nil)
	}

	now := s.now()
	membership := &domain.DivisionMembership{
		UserID:        actor.ID,
		DivisionID:    req.DivisionID,
		TeamName:      req.TeamName,
		LeadCharacter: req.LeadCharacter,
		JoinedAt:      now,
	}

	err := s.store.Update(ctx, func(state *store.State) error {
		if err := RequireActiveSeason(state, req.DivisionID, now); err != nil {
			return err
		}
		key := domain.MembershipKey(req.DivisionID, actor.ID)
		if _, ok := state.Memberships[key]; ok {
			return apperrors.NewAlreadyJoinedError("already registered in this division")
		}
		state.Memberships[key] = membership
		return nil
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// LeaveDivision removes the actor's team registration
func (s *FightService) LeaveDivision(ctx context.Context, actor *domain.AuthUser, divisionID string) error {
	return s.store.Update(ctx, func(state *store.State) error {
		key := domain.MembershipKey(divisionID, actor.ID)
		if _, ok := state.Memberships[key]; !ok {
			return apperrors.NewNotFoundError("division registration not found")
		}
		delete(state.Memberships, key)
		return nil
	})
}

// CreateFight builds a title, contender, or official fight between two
// registered teams. Moderator only; gated on an active season. Both team
// snapshots are frozen at creation time.
func (s *FightService) CreateFight(ctx context.Context, actor *domain.AuthUser, divisionID string, fightType domain.FightType, req *domain.CreateFightRequest) (*domain.DivisionFight, error) {
	if !actor.IsModerator() {
		return nil, apperrors.NewAccessDeniedError("only moderators can create fights")
	}
	if req.Team1UserID == "" || req.Team2UserID == "" {
		return nil, apperrors.NewValidationError("both team user ids are required", nil)
	}
	if req.DurationHours <= 0 {
		return nil, apperrors.NewValidationError("duration_hours must be positive", nil)
	}
	visibility := domain.VoteVisibility(req.VoteVisibility)
	if visibility == "" {
		visibility = domain.VisibilityFinal
	}
	if visibility != domain.VisibilityLive && visibility != domain.VisibilityFinal {
		return nil, apperrors.NewValidationError("vote_visibility must be live or final", nil)
	}

	now := s.now()
	fight := &domain.DivisionFight{
		ID:             uuid.NewString(),
		DivisionID:     divisionID,
		Type:           fightType,
		Status:         domain.FightActive,
		EndTime:        now.Add(time.Duration(req.DurationHours) * time.Hour),
		Votes:          []domain.FightVote{},
		VoteVisibility: visibility,
		CreatedAt:      now,
	}
	if req.BettingPeriodHours > 0 {
		bettingEnd := now.Add(time.Duration(req.BettingPeriodHours) * time.Hour)
		fight.BettingEndsAt = &bettingEnd
	}

	err := s.store.Update(ctx, func(state *store.State) error {
		if err := RequireActiveSeason(state, divisionID, now); err != nil {
			return err
		}
		team1, err := s.snapshotTeam(ctx, state, divisionID, req.Team1UserID)
		if err != nil {
			return err
		}
		team2, err := s.snapshotTeam(ctx, state, divisionID, req.Team2UserID)
		if err != nil {
			return err
		}
		fight.Team1 = *team1
		fight.Team2 = *team2
		state.Fights[fight.ID] = fight
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, divisionID)
	s.log.WithFields(map[string]interface{}{
		"fight_id":    fight.ID,
		"division_id": divisionID,
		"fight_type":  string(fightType),
	}).Info("Division fight created")

	gated := ApplyVisibility(*fight, now)
	return &gated, nil
}

// snapshotTeam freezes a team's display name and lead character into the
// fight record, preferring the division registration over the profile.
func (s *FightService) snapshotTeam(ctx context.Context, state *store.State, divisionID, userID string) (*domain.FightTeam, error) {
	team := &domain.FightTeam{UserID: userID}
	if m, ok := state.Memberships[domain.MembershipKey(divisionID, userID)]; ok {
		team.TeamName = m.TeamName
		team.LeadCharacter = m.LeadCharacter
		return team, nil
	}
	resolved, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to resolve fight team", err)
	}
	team.TeamName = resolved.TeamName
	if team.TeamName == "" {
		team.TeamName = resolved.Username
	}
	team.LeadCharacter = resolved.LeadCharacter
	return team, nil
}

// Vote upserts the actor's vote on a fight and rebuilds the tally from the
// full voter list. Recounting instead of incrementing keeps the aggregate
// from drifting when a vote changes sides.
func (s *FightService) Vote(ctx context.Context, actor *domain.AuthUser, req *domain.FightVoteRequest) (*domain.DivisionFight, error) {
	if req.FightID == "" {
		return nil, apperrors.NewValidationError("fight_id is required", nil)
	}
	if req.Team != 1 && req.Team != 2 {
		return nil, apperrors.NewValidationError("team must be 1 or 2", nil)
	}

	now := s.now()
	var divisionID string
	var out domain.DivisionFight
	err := s.store.Update(ctx, func(state *store.State) error {
		fight, ok := state.Fights[req.FightID]
		if !ok {
			return apperrors.NewNotFoundError("fight not found")
		}
		if fight.Status != domain.FightActive || !now.Before(fight.EndTime) {
			return apperrors.NewInvalidStatusError("fight voting is closed")
		}

		updated := false
		for i := range fight.Votes {
			if fight.Votes[i].UserID == actor.ID {
				fight.Votes[i].Team = req.Team
				updated = true
				break
			}
		}
		if !updated {
			fight.Votes = append(fight.Votes, domain.FightVote{UserID: actor.ID, Team: req.Team})
		}
		fight.RecountVotes()
		divisionID = fight.DivisionID
		out = *fight
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, divisionID)
	gated := ApplyVisibility(out, now)
	return &gated, nil
}

// ListFights returns a division's fights, newest first, gated
func (s *FightService) ListFights(ctx context.Context, divisionID string) ([]domain.DivisionFight, error) {
	load := func(ctx context.Context) ([]domain.DivisionFight, error) {
		return s.loadGatedFights(ctx, divisionID)
	}
	if s.cache != nil {
		return s.cache.GetFightsWithCache(ctx, divisionID, load)
	}
	return load(ctx)
}

// GetFight returns one fight by id, gated
func (s *FightService) GetFight(ctx context.Context, id string) (*domain.DivisionFight, error) {
	now := s.now()
	var out *domain.DivisionFight
	err := s.store.View(ctx, func(state *store.State) error {
		fight, ok := state.Fights[id]
		if !ok {
			return apperrors.NewNotFoundError("fight not found")
		}
		gated := ApplyVisibility(*fight, now)
		out = &gated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DivisionOverview aggregates seasons and gated fights for the landing view
type DivisionOverview struct {
	Seasons []SeasonView           `json:"seasons"`
	Fights  []domain.DivisionFight `json:"fights"`
}

// Overview loads seasons and fights in parallel, both already gated
func (s *FightService) Overview(ctx context.Context, seasons *SeasonService) (*DivisionOverview, error) {
	overview := &DivisionOverview{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		views, err := seasons.List(gCtx)
		if err != nil {
			return err
		}
		overview.Seasons = views
		return nil
	})
	g.Go(func() error {
		fights, err := s.loadGatedFights(gCtx, "")
		if err != nil {
			return err
		}
		overview.Fights = fights
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}

// loadGatedFights reads fights from the store and applies the gate before
// anything is returned or cached. Empty divisionID means all divisions.
func (s *FightService) loadGatedFights(ctx context.Context, divisionID string) ([]domain.DivisionFight, error) {
	now := s.now()
	var out []domain.DivisionFight
	err := s.store.View(ctx, func(state *store.State) error {
		out = make([]domain.DivisionFight, 0, len(state.Fights))
		for _, fight := range state.Fights {
			if divisionID != "" && fight.DivisionID != divisionID {
				continue
			}
			out = append(out, ApplyVisibility(*fight, now))
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list fights", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *FightService) invalidateCache(ctx context.Context, divisionID string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateFights(ctx, divisionID)
}
