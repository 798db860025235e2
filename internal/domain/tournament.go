package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TournamentType identifies the bracket format of a tournament
type TournamentType string

const (
	SingleElimination TournamentType = "single_elimination"
)

// TournamentStatus represents the tournament lifecycle state
type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

// Tournament is the aggregate root for a single-elimination competition.
// It owns its rounds and matches outright; participants are references into
// the user collaborator.
type Tournament struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	MaxParticipants  int              `json:"max_participants"`
	Type             TournamentType   `json:"tournament_type"`
	Status           TournamentStatus `json:"status"`
	Participants     []Participant    `json:"participants"`
	Brackets         []Round          `json:"brackets,omitempty"`
	WinnerID         *string          `json:"winner,omitempty"`
	Stats            TournamentStats  `json:"stats"`
	RecruitmentEndAt *time.Time       `json:"recruitment_end_at,omitempty"`
	BattleTime       string           `json:"battle_time,omitempty"` // "HH:MM"
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// TournamentStats aggregates bracket progress counters
type TournamentStats struct {
	TotalMatches     int `json:"total_matches"`
	CompletedMatches int `json:"completed_matches"`
	TotalVotes       int `json:"total_votes"`
}

// Participant is a tournament entrant. Points are snapshotted when the
// tournament starts and drive seeding; they are never re-read live.
type Participant struct {
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	CharacterID   string    `json:"character_id,omitempty"`
	CharacterName string    `json:"character_name,omitempty"`
	Points        int       `json:"points"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Round is one level of the bracket, 1-based
type Round struct {
	Number  int     `json:"round"`
	Matches []Match `json:"matches"`
}

// SlotType discriminates what occupies a match slot
type SlotType string

const (
	SlotPlayer SlotType = "player"
	SlotBye    SlotType = "bye"
	SlotTBD    SlotType = "tbd"
)

// Slot is one side of a match: a resolved participant, a bye marker, or a
// tbd marker referencing the previous-round match that feeds it.
type Slot struct {
	Type          SlotType `json:"type"`
	ParticipantID string   `json:"participant_id,omitempty"`
	Name          string   `json:"name,omitempty"`
	SourceMatchID string   `json:"source_match_id,omitempty"`
}

// MatchStatus represents the match lifecycle state
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchReady     MatchStatus = "ready"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
)

// MatchVotes holds the per-side vote tally of a match
type MatchVotes struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// Match is a single pairing inside a round. Its ID is "<round>-<index>"
// with a 0-based index within the round.
type Match struct {
	ID       string          `json:"id"`
	Player1  Slot            `json:"player1"`
	Player2  Slot            `json:"player2"`
	Status   MatchStatus     `json:"status"`
	WinnerID *string         `json:"winner,omitempty"`
	Votes    MatchVotes      `json:"votes"`
	Voters   map[string]bool `json:"voters,omitempty"`
}

// MatchID formats the canonical match identifier
func MatchID(round, index int) string {
	return fmt.Sprintf("%d-%d", round, index)
}

// ParseMatchID splits a "<round>-<index>" identifier
func ParseMatchID(id string) (round, index int, err error) {
	parts := strings.SplitN(id, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed match id %q", id)
	}
	round, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed match id %q", id)
	}
	index, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed match id %q", id)
	}
	if round < 1 || index < 0 {
		return 0, 0, fmt.Errorf("malformed match id %q", id)
	}
	return round, index, nil
}

// HasParticipant reports whether the given user is registered
func (t *Tournament) HasParticipant(userID string) bool {
	for _, p := range t.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// FindMatch locates a match by its identifier. Returns nil when the id does
// not parse or the bracket has no such match.
func (t *Tournament) FindMatch(matchID string) *Match {
	round, index, err := ParseMatchID(matchID)
	if err != nil {
		return nil
	}
	if round > len(t.Brackets) {
		return nil
	}
	matches := t.Brackets[round-1].Matches
	if index >= len(matches) {
		return nil
	}
	return &matches[index]
}

// CreateTournamentRequest is the payload for POST /tournaments
type CreateTournamentRequest struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	MaxParticipants  int        `json:"max_participants"`
	TournamentType   string     `json:"tournament_type"`
	RecruitmentEndAt *time.Time `json:"recruitment_end_at"`
	BattleTime       string     `json:"battle_time"`
}

// UpdateTournamentRequest is the payload for PUT /tournaments/:id.
// Nil fields are left untouched.
type UpdateTournamentRequest struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	MaxParticipants  *int       `json:"max_participants"`
	RecruitmentEndAt *time.Time `json:"recruitment_end_at"`
	BattleTime       *string    `json:"battle_time"`
}

// JoinTournamentRequest is the payload for POST /tournaments/:id/join
type JoinTournamentRequest struct {
	CharacterID string `json:"character_id"`
}

// MatchVoteRequest is the payload for match advance and vote endpoints
type MatchVoteRequest struct {
	WinnerID string `json:"winner_id"`
}
