package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fanarena/internal/bracket"
	"fanarena/internal/domain"
	"fanarena/internal/store"
	apperrors "fanarena/pkg/errors"
	"fanarena/pkg/logger"

	"github.com/google/uuid"
)

const defaultMaxParticipants = 32

// TournamentService exposes the tournament lifecycle. Every mutation is a
// single store.Update call: validation happens inside the callback against
// the current document, so no partial write can ever land.
type TournamentService struct {
	store    store.Store
	resolver UserResolver
	notifier Notifier
	awarder  CreditAwarder
	log      *logger.Logger
	now      func() time.Time
}

// NewTournamentService creates a new tournament service
func NewTournamentService(st store.Store, resolver UserResolver, notifier Notifier, awarder CreditAwarder, log *logger.Logger) *TournamentService {
	return &TournamentService{
		store:    st,
		resolver: resolver,
		notifier: notifier,
		awarder:  awarder,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock. Used in tests.
func (s *TournamentService) WithClock(now func() time.Time) *TournamentService {
	s.now = now
	return s
}

// List returns all tournaments, newest first
func (s *TournamentService) List(ctx context.Context) ([]domain.Tournament, error) {
	var out []domain.Tournament
	err := s.store.View(ctx, func(state *store.State) error {
		out = make([]domain.Tournament, 0, len(state.Tournaments))
		for _, t := range state.Tournaments {
			out = append(out, *t)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list tournaments", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get returns one tournament by id
func (s *TournamentService) Get(ctx context.Context, id string) (*domain.Tournament, error) {
	var out *domain.Tournament
	err := s.store.View(ctx, func(state *store.State) error {
		t, ok := state.Tournaments[id]
		if !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		copied := *t
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create creates an upcoming tournament with no participants. Moderator only.
func (s *TournamentService) Create(ctx context.Context, actor *domain.AuthUser, req *domain.CreateTournamentRequest) (*domain.Tournament, error) {
	if !actor.IsModerator() {
		return nil, apperrors.NewAccessDeniedError("only moderators can create tournaments")
	}
	if req.Title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if req.TournamentType != "" && req.TournamentType != string(domain.SingleElimination) {
		return nil, apperrors.NewValidationError("unsupported tournament type", map[string]interface{}{
			"tournament_type": req.TournamentType,
		})
	}
	maxParticipants := req.MaxParticipants
	if maxParticipants <= 0 {
		maxParticipants = defaultMaxParticipants
	}

	now := s.now()
	t := &domain.Tournament{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Description:      req.Description,
		MaxParticipants:  maxParticipants,
		Type:             domain.SingleElimination,
		Status:           domain.TournamentUpcoming,
		Participants:     []domain.Participant{},
		RecruitmentEndAt: req.RecruitmentEndAt,
		BattleTime:       req.BattleTime,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.store.Update(ctx, func(state *store.State) error {
		state.Tournaments[t.ID] = t
		return nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create tournament", err)
	}

	s.log.WithFields(map[string]interface{}{
		"tournament_id": t.ID,
		"created_by":    actor.ID,
	}).Info("Tournament created")
	return t, nil
}

// Update patches tournament metadata. Moderator only.
func (s *TournamentService) Update(ctx context.Context, actor *domain.AuthUser, id string, req *domain.UpdateTournamentRequest) (*domain.Tournament, error) {
	if !actor.IsModerator() {
		return nil, apperrors.NewAccessDeniedError("only moderators can update tournaments")
	}

	var out *domain.Tournament
	err := s.store.Update(ctx, func(state *store.State) error {
		t, ok := state.Tournaments[id]
		if !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.Description != nil {
			t.Description = *req.Description
		}
		if req.MaxParticipants != nil {
			if *req.MaxParticipants < len(t.Participants) {
				return apperrors.NewValidationError("max_participants below current participant count", nil)
			}
			t.MaxParticipants = *req.MaxParticipants
		}
		if req.RecruitmentEndAt != nil {
			t.RecruitmentEndAt = req.RecruitmentEndAt
		}
		if req.BattleTime != nil {
			t.BattleTime = *req.BattleTime
		}
		t.UpdatedAt = s.now()
		copied := *t
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the tournament record outright. Moderator only.
func (s *TournamentService) Delete(ctx context.Context, actor *domain.AuthUser, id string) error {
	if !actor.IsModerator() {
		return apperrors.NewAccessDeniedError("only moderators can delete tournaments")
	}
	return s.store.Update(ctx, func(state *store.State) error {
		if _, ok := state.Tournaments[id]; !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		delete(state.Tournaments, id)
		return nil
	})
}

// Join registers the actor as a participant while recruitment is open
func (s *TournamentService) Join(ctx context.Context, actor *domain.AuthUser, id, characterID string) (*domain.Tournament, error) {
	resolved, err := s.resolver.Resolve(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to resolve user", err)
	}

	var out *domain.Tournament
	err = s.store.Update(ctx, func(state *store.State) error {
		t, ok := state.Tournaments[id]
		if !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		if t.Status != domain.TournamentUpcoming {
			return apperrors.NewInvalidStatusError("tournament is not open for registration")
		}
		if t.HasParticipant(actor.ID) {
			return apperrors.NewAlreadyJoinedError("already joined this tournament")
		}
		if len(t.Participants) >= t.MaxParticipants {
			return apperrors.NewTournamentFullError("tournament is full")
		}

		p := domain.Participant{
			UserID:   actor.ID,
			Username: resolved.Username,
			JoinedAt: s.now(),
		}
		if characterID != "" {
			p.CharacterID = characterID
			p.CharacterName = resolved.CharacterName
		}
		t.Participants = append(t.Participants, p)
		t.UpdatedAt = s.now()
		copied := *t
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Leave removes the actor from an upcoming tournament
func (s *TournamentService) Leave(ctx context.Context, actor *domain.AuthUser, id string) (*domain.Tournament, error) {
	var out *domain.Tournament
	err := s.store.Update(ctx, func(state *store.State) error {
		t, ok := state.Tournaments[id]
		if !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		if t.Status != domain.TournamentUpcoming {
			return apperrors.NewInvalidStatusError("cannot leave once the tournament started")
		}
		if !t.HasParticipant(actor.ID) {
			return apperrors.NewValidationError("not a participant of this tournament", nil)
		}

		kept := t.Participants[:0]
		for _, p := range t.Participants {
			if p.UserID != actor.ID {
				kept = append(kept, p)
			}
		}
		t.Participants = kept
		t.UpdatedAt = s.now()
		copied := *t
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Start freezes the participant list, snapshots seeding points, generates
// the bracket, and activates the tournament. Moderator only.
func (s *TournamentService) Start(ctx context.Context, actor *domain.AuthUser, id string) (*domain.Tournament, error) {
	if !actor.IsModerator() {
		return nil, apperrors.NewAccessDeniedError("only moderators can start tournaments")
	}

	var out *domain.Tournament
	err := s.store.Update(ctx, func(state *store.State) error {
		t, ok := state.Tournaments[id]
		if !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		return s.startLocked(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	started, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out = started
	s.notifier.NotifyParticipants(ctx, out, "tournament_started", "The tournament has started, check your bracket")
	return out, nil
}

// startLocked performs the start transition inside the mutation boundary.
// Shared with the hourly sweep's recruitment-close path.
func (s *TournamentService) startLocked(ctx context.Context, t *domain.Tournament) error {
	if t.Status != domain.TournamentUpcoming {
		return apperrors.NewInvalidStatusError("tournament is not upcoming")
	}
	if len(t.Participants) < 2 {
		return apperrors.NewNotEnoughParticipantsError("at least 2 participants required to start")
	}

	// Seeding points are frozen here; nothing re-reads them later.
	for i := range t.Participants {
		resolved, err := s.resolver.Resolve(ctx, t.Participants[i].UserID)
		if err != nil {
			return apperrors.NewInternalError(
				fmt.Sprintf("failed to snapshot points for %s", t.Participants[i].UserID), err)
		}
		t.Participants[i].Points = resolved.Points
		if t.Participants[i].Username == "" {
			t.Participants[i].Username = resolved.Username
		}
	}

	rounds, err := bracket.Generate(t.Participants)
	if err != nil {
		return apperrors.NewNotEnoughParticipantsError(err.Error())
	}

	now := s.now()
	t.Brackets = rounds
	t.Status = domain.TournamentActive
	t.Stats = domain.TournamentStats{TotalMatches: bracket.CountMatches(rounds)}
	started := now
	t.StartedAt = &started
	t.UpdatedAt = now

	if err := bracket.ResolveByes(t, now); err != nil {
		return apperrors.NewInternalError("failed to resolve byes", err)
	}
	bracket.MarkFirstRoundReady(t)
	return nil
}

// AdvanceMatch applies a reported winner. Moderator only.
func (s *TournamentService) AdvanceMatch(ctx context.Context, actor *domain.AuthUser, id, matchID, winnerID string) (*domain.Tournament, error) {
	if !actor.IsModerator() {
		return nil, apperrors.NewAccessDeniedError("only moderators can advance matches")
	}
	if winnerID == "" {
		return nil, apperrors.NewValidationError("winner_id is required", nil)
	}

	var completed bool
	err := s.store.Update(ctx, func(state *store.State) error {
		t, ok := state.Tournaments[id]
		if !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		if err := bracket.Advance(t, matchID, winnerID, s.now()); err != nil {
			return mapBracketError(err)
		}
		if t.Status == domain.TournamentCompleted {
			completed = true
			s.awarder.AwardWinnerCredit(state, winnerID, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if completed {
		s.log.WithFields(map[string]interface{}{
			"tournament_id": id,
			"winner_id":     winnerID,
		}).Info("Tournament completed")
		s.notifier.NotifyParticipants(ctx, out, "tournament_completed", "The tournament has finished")
	}
	return out, nil
}

// Vote records one authenticated vote on a match. A user votes at most once
// per match; the match must be open for voting.
func (s *TournamentService) Vote(ctx context.Context, actor *domain.AuthUser, id, matchID, winnerID string) (*domain.Tournament, error) {
	if winnerID == "" {
		return nil, apperrors.NewValidationError("winner_id is required", nil)
	}

	var out *domain.Tournament
	err := s.store.Update(ctx, func(state *store.State) error {
		t, ok := state.Tournaments[id]
		if !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		match := t.FindMatch(matchID)
		if match == nil {
			return apperrors.NewNotFoundError("match not found")
		}
		if match.Status != domain.MatchActive && match.Status != domain.MatchReady {
			return apperrors.NewMatchInactiveError("match is not open for voting")
		}
		if match.Voters[actor.ID] {
			return apperrors.NewAlreadyVotedError("already voted on this match")
		}

		switch {
		case match.Player1.Type == domain.SlotPlayer && match.Player1.ParticipantID == winnerID:
			match.Votes.Player1++
		case match.Player2.Type == domain.SlotPlayer && match.Player2.ParticipantID == winnerID:
			match.Votes.Player2++
		default:
			return apperrors.NewValidationError("winner is not a participant of this match", nil)
		}

		if match.Voters == nil {
			match.Voters = map[string]bool{}
		}
		match.Voters[actor.ID] = true
		t.Stats.TotalVotes++
		t.UpdatedAt = s.now()
		copied := *t
		out = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// mapBracketError translates engine sentinels into transport errors
func mapBracketError(err error) error {
	switch err {
	case bracket.ErrMatchNotFound:
		return apperrors.NewNotFoundError("match not found")
	case bracket.ErrTournamentNotActive:
		return apperrors.NewInvalidStatusError("tournament is not active")
	case bracket.ErrMatchAlreadyCompleted:
		return apperrors.NewInvalidStatusError("match is already completed")
	case bracket.ErrWinnerNotInMatch:
		return apperrors.NewValidationError("winner is not a participant of this match", nil)
	default:
		return apperrors.NewInternalError("bracket operation failed", err)
	}
}
