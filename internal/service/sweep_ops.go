package service

import (
	"context"

	"fanarena/internal/bracket"
	"fanarena/internal/domain"
	"fanarena/internal/store"
	apperrors "fanarena/pkg/errors"
)

// System-triggered lifecycle operations used by the periodic sweeps. These
// skip the moderator check (the scheduler is not an HTTP actor) but go
// through the exact same bracket engine and mutation boundary as the
// handler-triggered operations.

// StartBySystem starts a tournament whose recruitment window closed
func (s *TournamentService) StartBySystem(ctx context.Context, id string) error {
	err := s.store.Update(ctx, func(state *store.State) error {
		t, ok := state.Tournaments[id]
		if !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		return s.startLocked(ctx, t)
	})
	if err != nil {
		return err
	}

	started, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.notifier.NotifyParticipants(ctx, started, "tournament_started", "Recruitment closed, the bracket is live")
	return nil
}

// ActivateDueRound opens the current round for voting: every match whose
// slots are both resolved moves from ready to active. Winner propagation and
// tournament completion themselves happen at advance time, so this is the
// only work left for the battle-time sweep.
func (s *TournamentService) ActivateDueRound(ctx context.Context, id string) error {
	return s.store.Update(ctx, func(state *store.State) error {
		t, ok := state.Tournaments[id]
		if !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		if t.Status != domain.TournamentActive {
			return nil
		}
		bracket.ActivateRound(t, bracket.CurrentRound(t))
		t.UpdatedAt = s.now()
		return nil
	})
}

// AutoResolveMatches completes every current-round active match where one
// side reached the vote threshold, advancing the higher-vote side. An exact
// tie stays open even above the threshold.
func (s *TournamentService) AutoResolveMatches(ctx context.Context, id string, threshold int) error {
	var completedWinner string
	err := s.store.Update(ctx, func(state *store.State) error {
		t, ok := state.Tournaments[id]
		if !ok {
			return apperrors.NewNotFoundError("tournament not found")
		}
		if t.Status != domain.TournamentActive {
			return nil
		}

		current := bracket.CurrentRound(t)
		if current < 1 || current > len(t.Brackets) {
			return nil
		}
		for i := range t.Brackets[current-1].Matches {
			match := &t.Brackets[current-1].Matches[i]
			if match.Status != domain.MatchActive {
				continue
			}
			if match.Votes.Player1 < threshold && match.Votes.Player2 < threshold {
				continue
			}
			if match.Votes.Player1 == match.Votes.Player2 {
				continue
			}

			winnerID := match.Player1.ParticipantID
			if match.Votes.Player2 > match.Votes.Player1 {
				winnerID = match.Player2.ParticipantID
			}
			if err := bracket.Advance(t, match.ID, winnerID, s.now()); err != nil {
				return mapBracketError(err)
			}
			s.log.WithFields(map[string]interface{}{
				"tournament_id": id,
				"match_id":      match.ID,
				"winner_id":     winnerID,
			}).Info("Match auto-resolved by vote threshold")

			if t.Status == domain.TournamentCompleted {
				s.awarder.AwardWinnerCredit(state, winnerID, t)
				completedWinner = winnerID
				break
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if completedWinner != "" {
		completed, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		s.log.WithFields(map[string]interface{}{
			"tournament_id": id,
			"winner_id":     completedWinner,
		}).Info("Tournament completed")
		s.notifier.NotifyParticipants(ctx, completed, "tournament_completed", "The tournament has finished")
	}
	return nil
}
