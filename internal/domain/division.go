package domain

import "time"

// SeasonState is the derived status of a division season. It is never
// stored; compute it from the locked flag and the bounds at read time.
type SeasonState string

const (
	SeasonLocked    SeasonState = "locked"
	SeasonUnset     SeasonState = "unset"
	SeasonScheduled SeasonState = "scheduled"
	SeasonActive    SeasonState = "active"
	SeasonEnded     SeasonState = "ended"
)

// DivisionSeason is a time-boxed competition window for one division
type DivisionSeason struct {
	ID          string     `json:"id"`
	DivisionID  string     `json:"division_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Icon        string     `json:"icon,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	IsLocked    bool       `json:"is_locked"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// State derives the season status at the given instant. Locked wins over
// everything; otherwise the bounds decide.
func (s *DivisionSeason) State(now time.Time) SeasonState {
	if s.IsLocked {
		return SeasonLocked
	}
	if s.StartAt == nil && s.EndAt == nil {
		return SeasonUnset
	}
	if s.StartAt != nil && now.Before(*s.StartAt) {
		return SeasonScheduled
	}
	if s.EndAt != nil && !now.Before(*s.EndAt) {
		return SeasonEnded
	}
	return SeasonActive
}

// DivisionMembership is a user's team registration inside a division.
// The season sweep deletes these when the season ends.
type DivisionMembership struct {
	UserID        string    `json:"user_id"`
	DivisionID    string    `json:"division_id"`
	TeamName      string    `json:"team_name"`
	LeadCharacter string    `json:"lead_character,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
}

// MembershipKey is the State map key for a division membership
func MembershipKey(divisionID, userID string) string {
	return divisionID + ":" + userID
}

// FightType identifies the stake of a division fight
type FightType string

const (
	FightTitle     FightType = "title"
	FightContender FightType = "contender"
	FightOfficial  FightType = "official"
)

// FightStatus represents the fight lifecycle state
type FightStatus string

const (
	FightActive FightStatus = "active"
	FightLocked FightStatus = "locked"
	FightEnded  FightStatus = "ended"
)

// VoteVisibility controls when fight tallies become readable
type VoteVisibility string

const (
	VisibilityLive  VoteVisibility = "live"
	VisibilityFinal VoteVisibility = "final"
)

// FightTeam is a snapshot of one side of a fight, taken at creation time
type FightTeam struct {
	UserID        string `json:"user_id"`
	TeamName      string `json:"team_name"`
	LeadCharacter string `json:"lead_character,omitempty"`
}

// FightVote is one user's vote; Team is 1 or 2
type FightVote struct {
	UserID string `json:"user_id"`
	Team   int    `json:"team"`
}

// FightCounts is the aggregate tally, recomputed from Votes after every write
type FightCounts struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// DivisionFight is an official, title, or contender fight between two
// division teams.
type DivisionFight struct {
	ID             string         `json:"id"`
	DivisionID     string         `json:"division_id"`
	Type           FightType      `json:"fight_type"`
	Team1          FightTeam      `json:"team1"`
	Team2          FightTeam      `json:"team2"`
	Status         FightStatus    `json:"status"`
	EndTime        time.Time      `json:"end_time"`
	BettingEndsAt  *time.Time     `json:"betting_ends_at,omitempty"`
	Votes          []FightVote    `json:"votes,omitempty"`
	Counts         FightCounts    `json:"counts"`
	VoteVisibility VoteVisibility `json:"vote_visibility"`
	VotesHidden    bool           `json:"votes_hidden,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// RecountVotes rebuilds the aggregate tally from the full voter list
func (f *DivisionFight) RecountVotes() {
	counts := FightCounts{}
	for _, v := range f.Votes {
		switch v.Team {
		case 1:
			counts.Team1++
		case 2:
			counts.Team2++
		}
	}
	f.Counts = counts
}

// CreateSeasonRequest is the payload for POST /divisions/seasons
type CreateSeasonRequest struct {
	DivisionID  string     `json:"division_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	IsLocked    *bool      `json:"is_locked"`
}

// UpdateSeasonRequest is the payload for PATCH /divisions/seasons/:id.
// Nil fields are left untouched.
type UpdateSeasonRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Icon        *string    `json:"icon"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
}

// JoinDivisionRequest is the payload for POST /divisions/join
type JoinDivisionRequest struct {
	DivisionID    string `json:"division_id"`
	TeamName      string `json:"team_name"`
	LeadCharacter string `json:"lead_character"`
}

// LeaveDivisionRequest is the payload for POST /divisions/leave
type LeaveDivisionRequest struct {
	DivisionID string `json:"division_id"`
}

// CreateFightRequest is the payload for title/contender/official fight creation
type CreateFightRequest struct {
	Team1UserID        string `json:"team1_user_id"`
	Team2UserID        string `json:"team2_user_id"`
	DurationHours      int    `json:"duration_hours"`
	BettingPeriodHours int    `json:"betting_period_hours"`
	VoteVisibility     string `json:"vote_visibility"`
}

// FightVoteRequest is the payload for POST /divisions/vote
type FightVoteRequest struct {
	FightID string `json:"fight_id"`
	Team    int    `json:"team"`
}
