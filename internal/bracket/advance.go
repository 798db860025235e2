package bracket

import (
	"time"

	"fanarena/internal/domain"
)

// Advance applies a reported winner to a match and propagates it. On the
// final round it completes the tournament; otherwise the winner fills the
// next round's slot (even index feeds player1, odd feeds player2) and the
// fed match becomes ready once neither of its slots is still tbd.
//
// Re-invoking Advance on a completed match is rejected, never re-propagated;
// a double-advance would corrupt the downstream bracket.
func Advance(t *domain.Tournament, matchID, winnerID string, now time.Time) error {
	if t.Status != domain.TournamentActive {
		return ErrTournamentNotActive
	}

	round, index, err := domain.ParseMatchID(matchID)
	if err != nil {
		return ErrMatchNotFound
	}
	match := t.FindMatch(matchID)
	if match == nil {
		return ErrMatchNotFound
	}
	if match.Status == domain.MatchCompleted {
		return ErrMatchAlreadyCompleted
	}

	winner, ok := slotFor(match, winnerID)
	if !ok {
		return ErrWinnerNotInMatch
	}

	match.WinnerID = &winner.ParticipantID
	match.Status = domain.MatchCompleted
	t.Stats.CompletedMatches++

	if round == len(t.Brackets) {
		t.Status = domain.TournamentCompleted
		t.WinnerID = &winner.ParticipantID
		completed := now
		t.CompletedAt = &completed
		t.UpdatedAt = now
		return nil
	}

	next := &t.Brackets[round].Matches[index/2]
	filled := domain.Slot{
		Type:          domain.SlotPlayer,
		ParticipantID: winner.ParticipantID,
		Name:          winner.Name,
	}
	if index%2 == 0 {
		next.Player1 = filled
	} else {
		next.Player2 = filled
	}
	if next.Status == domain.MatchPending &&
		next.Player1.Type == domain.SlotPlayer && next.Player2.Type == domain.SlotPlayer {
		next.Status = domain.MatchReady
	}

	t.UpdatedAt = now
	return nil
}

// ResolveByes auto-completes every first-round match that pairs a
// participant against a bye, advancing the present side without a vote.
// Padding never produces a bye-versus-bye pairing, so each resolved match
// has exactly one real entrant.
func ResolveByes(t *domain.Tournament, now time.Time) error {
	if len(t.Brackets) == 0 {
		return nil
	}
	for i := range t.Brackets[0].Matches {
		match := &t.Brackets[0].Matches[i]
		if match.Status == domain.MatchCompleted {
			continue
		}
		var present *domain.Slot
		switch {
		case match.Player1.Type == domain.SlotPlayer && match.Player2.Type == domain.SlotBye:
			present = &match.Player1
		case match.Player2.Type == domain.SlotPlayer && match.Player1.Type == domain.SlotBye:
			present = &match.Player2
		default:
			continue
		}
		if err := Advance(t, match.ID, present.ParticipantID, now); err != nil {
			return err
		}
	}
	return nil
}

// MarkFirstRoundReady upgrades pending first-round matches with two real
// entrants so they accept votes as soon as the tournament starts.
func MarkFirstRoundReady(t *domain.Tournament) {
	if len(t.Brackets) == 0 {
		return
	}
	for i := range t.Brackets[0].Matches {
		match := &t.Brackets[0].Matches[i]
		if match.Status == domain.MatchPending &&
			match.Player1.Type == domain.SlotPlayer && match.Player2.Type == domain.SlotPlayer {
			match.Status = domain.MatchReady
		}
	}
}

// CurrentRound returns the number of the earliest round holding an
// uncompleted match, or the final round number when everything is decided.
// Zero means the bracket has not been generated.
func CurrentRound(t *domain.Tournament) int {
	for _, round := range t.Brackets {
		for _, match := range round.Matches {
			if match.Status != domain.MatchCompleted {
				return round.Number
			}
		}
	}
	return len(t.Brackets)
}

// RoundComplete reports whether every match of the given round is decided
func RoundComplete(t *domain.Tournament, round int) bool {
	if round < 1 || round > len(t.Brackets) {
		return false
	}
	for _, match := range t.Brackets[round-1].Matches {
		if match.Status != domain.MatchCompleted {
			return false
		}
	}
	return true
}

// ActivateRound promotes the given round's ready matches to active. Matches
// still waiting on a tbd slot stay as they are.
func ActivateRound(t *domain.Tournament, round int) {
	if round < 1 || round > len(t.Brackets) {
		return
	}
	for i := range t.Brackets[round-1].Matches {
		match := &t.Brackets[round-1].Matches[i]
		if match.Status == domain.MatchReady {
			match.Status = domain.MatchActive
		}
	}
}

func slotFor(match *domain.Match, participantID string) (domain.Slot, bool) {
	if match.Player1.Type == domain.SlotPlayer && match.Player1.ParticipantID == participantID {
		return match.Player1, true
	}
	if match.Player2.Type == domain.SlotPlayer && match.Player2.ParticipantID == participantID {
		return match.Player2, true
	}
	return domain.Slot{}, false
}
