package store

import (
	"context"

	"fanarena/internal/domain"
)

// State is the whole application document. Every mutation reads it, changes
// it, and writes it back as one unit; no record is ever mutated outside an
// Update callback.
type State struct {
	Tournaments map[string]*domain.Tournament         `json:"tournaments"`
	Seasons     map[string]*domain.DivisionSeason     `json:"seasons"`
	Fights      map[string]*domain.DivisionFight      `json:"fights"`
	Memberships map[string]*domain.DivisionMembership `json:"memberships"`
	Credits     map[string]*domain.WinnerCredit       `json:"credits"`
	WinCounts   map[string]int                        `json:"win_counts"`
}

// NewState returns an empty document with all collections allocated
func NewState() *State {
	return &State{
		Tournaments: make(map[string]*domain.Tournament),
		Seasons:     make(map[string]*domain.DivisionSeason),
		Fights:      make(map[string]*domain.DivisionFight),
		Memberships: make(map[string]*domain.DivisionMembership),
		Credits:     make(map[string]*domain.WinnerCredit),
		WinCounts:   make(map[string]int),
	}
}

// normalize allocates any collection that deserialized as nil
func (s *State) normalize() {
	if s.Tournaments == nil {
		s.Tournaments = make(map[string]*domain.Tournament)
	}
	if s.Seasons == nil {
		s.Seasons = make(map[string]*domain.DivisionSeason)
	}
	if s.Fights == nil {
		s.Fights = make(map[string]*domain.DivisionFight)
	}
	if s.Memberships == nil {
		s.Memberships = make(map[string]*domain.DivisionMembership)
	}
	if s.Credits == nil {
		s.Credits = make(map[string]*domain.WinnerCredit)
	}
	if s.WinCounts == nil {
		s.WinCounts = make(map[string]int)
	}
}

// Store is the transactional mutation boundary shared by the HTTP handlers
// and the scheduler sweeps. Update serializes all writers: the callback sees
// the current document and its changes are committed atomically when it
// returns nil, or discarded when it returns an error. View gives read access
// under the same serialization.
//
// Callbacks must not retain references to the State or anything reachable
// from it past their return; copy what needs to outlive the call.
type Store interface {
	Update(ctx context.Context, fn func(*State) error) error
	View(ctx context.Context, fn func(*State) error) error
}
