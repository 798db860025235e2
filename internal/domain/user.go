package domain

// Role is the authorization level carried in a session token
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
)

// AuthUser is the authenticated actor extracted from a bearer token
type AuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsModerator reports whether the actor may invoke privileged operations
func (u *AuthUser) IsModerator() bool {
	return u != nil && u.Role == RoleModerator
}

// ResolvedUser is the read-only profile snapshot the core pulls from the
// user collaborator when freezing names into fight and match records.
type ResolvedUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Points        int    `json:"points"`
	TeamName      string `json:"team_name,omitempty"`
	LeadCharacter string `json:"lead_character,omitempty"`
	CharacterName string `json:"character_name,omitempty"`
}

// WinnerCredit records a tournament win award. One credit exists per
// (user, tournament) pair, which is what makes the award idempotent.
type WinnerCredit struct {
	UserID       string `json:"user_id"`
	TournamentID string `json:"tournament_id"`
	Badge        string `json:"badge"`
}
