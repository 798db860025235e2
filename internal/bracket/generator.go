// Package bracket implements single-elimination bracket generation and
// advancement as pure functions over the tournament document. Both the HTTP
// lifecycle operations and the scheduler sweeps go through this package;
// there is deliberately no second bracket algorithm anywhere else.
package bracket

import (
	"errors"
	"math"
	"sort"

	"fanarena/internal/domain"
)

var (
	ErrNotEnoughParticipants = errors.New("at least 2 participants required to generate a bracket")
	ErrMatchNotFound         = errors.New("match not found in bracket")
	ErrTournamentNotActive   = errors.New("tournament is not active")
	ErrMatchAlreadyCompleted = errors.New("match is already completed")
	ErrWinnerNotInMatch      = errors.New("winner is not a participant of this match")
)

// Generate builds the full single-elimination bracket for the given
// participants. Seeding sorts by points descending, stable on ties so the
// original join order breaks them. The sorted list is padded with byes up to
// the next power of two; round 1 pairs seed i against seed slots-1-i, and
// later rounds hold tbd slots referencing the two previous-round matches
// that feed them. Every match starts pending with zero votes.
func Generate(participants []domain.Participant) ([]domain.Round, error) {
	n := len(participants)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	totalSlots := 1 << uint(numRounds)

	seeded := make([]domain.Participant, n)
	copy(seeded, participants)
	sort.SliceStable(seeded, func(i, j int) bool {
		return seeded[i].Points > seeded[j].Points
	})

	slots := make([]domain.Slot, totalSlots)
	for i := 0; i < totalSlots; i++ {
		if i < n {
			slots[i] = domain.Slot{
				Type:          domain.SlotPlayer,
				ParticipantID: seeded[i].UserID,
				Name:          seeded[i].Username,
			}
		} else {
			slots[i] = domain.Slot{Type: domain.SlotBye}
		}
	}

	rounds := make([]domain.Round, 0, numRounds)

	firstRound := domain.Round{Number: 1, Matches: make([]domain.Match, 0, totalSlots/2)}
	for i := 0; i < totalSlots/2; i++ {
		firstRound.Matches = append(firstRound.Matches, domain.Match{
			ID:      domain.MatchID(1, i),
			Player1: slots[i],
			Player2: slots[totalSlots-1-i],
			Status:  domain.MatchPending,
			Votes:   domain.MatchVotes{},
			Voters:  map[string]bool{},
		})
	}
	rounds = append(rounds, firstRound)

	for r := 2; r <= numRounds; r++ {
		matchCount := totalSlots >> uint(r)
		round := domain.Round{Number: r, Matches: make([]domain.Match, 0, matchCount)}
		for i := 0; i < matchCount; i++ {
			round.Matches = append(round.Matches, domain.Match{
				ID: domain.MatchID(r, i),
				Player1: domain.Slot{
					Type:          domain.SlotTBD,
					SourceMatchID: domain.MatchID(r-1, i*2),
				},
				Player2: domain.Slot{
					Type:          domain.SlotTBD,
					SourceMatchID: domain.MatchID(r-1, i*2+1),
				},
				Status: domain.MatchPending,
				Votes:  domain.MatchVotes{},
				Voters: map[string]bool{},
			})
		}
		rounds = append(rounds, round)
	}

	return rounds, nil
}

// CountMatches returns the total number of matches across all rounds
func CountMatches(rounds []domain.Round) int {
	total := 0
	for _, r := range rounds {
		total += len(r.Matches)
	}
	return total
}
