package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fanarena/internal/domain"
	"fanarena/internal/store"
	apperrors "fanarena/pkg/errors"
	"fanarena/pkg/logger"
)

type fightFixture struct {
	fights  *FightService
	seasons *SeasonService
	store   *store.MemoryStore
}

func newFightFixture(t *testing.T) *fightFixture {
	t.Helper()
	st := store.NewMemoryStore()
	resolver := NewStaticResolver([]domain.ResolvedUser{
		{ID: "u1", Username: "alice", TeamName: "Red Hawks", LeadCharacter: "valkyrie"},
		{ID: "u2", Username: "bob", TeamName: "Blue Owls"},
	})
	clock := func() time.Time { return testClock }
	return &fightFixture{
		fights:  NewFightService(st, resolver, nil, logger.NewNop()).WithClock(clock),
		seasons: NewSeasonService(st, logger.NewNop()).WithClock(clock),
		store:   st,
	}
}

// openSeason makes the division joinable for the rest of the test
func (f *fightFixture) openSeason(t *testing.T, divisionID string) {
	t.Helper()
	unlocked := false
	start := testClock.Add(-time.Hour)
	_, err := f.seasons.Create(context.Background(), moderator(), &domain.CreateSeasonRequest{
		DivisionID: divisionID,
		Name:       divisionID + " season",
		StartAt:    &start,
		IsLocked:   &unlocked,
	})
	require.NoError(t, err)
}

func TestJoinDivision(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a team in an active season", func(t *testing.T) {
		f := newFightFixture(t)
		f.openSeason(t, "heavyweight")

		m, err := f.fights.JoinDivision(ctx, member("u1"), &domain.JoinDivisionRequest{
			DivisionID:    "heavyweight",
			TeamName:      "Red Hawks",
			LeadCharacter: "valkyrie",
		})
		require.NoError(t, err)
		assert.Equal(t, "Red Hawks", m.TeamName)

		require.NoError(t, f.store.View(ctx, func(s *store.State) error {
			assert.Contains(t, s.Memberships, domain.MembershipKey("heavyweight", "u1"))
			return nil
		}))
	})

	t.Run("rejected without an active season", func(t *testing.T) {
		f := newFightFixture(t)
		_, err := f.fights.JoinDivision(ctx, member("u1"), &domain.JoinDivisionRequest{
			DivisionID: "heavyweight",
			TeamName:   "Red Hawks",
		})
		assertKind(t, err, apperrors.KindDivisionLocked)
	})

	t.Run("duplicate registration is rejected", func(t *testing.T) {
		f := newFightFixture(t)
		f.openSeason(t, "heavyweight")
		req := &domain.JoinDivisionRequest{DivisionID: "heavyweight", TeamName: "Red Hawks"}

		_, err := f.fights.JoinDivision(ctx, member("u1"), req)
		require.NoError(t, err)
		_, err = f.fights.JoinDivision(ctx, member("u1"), req)
		assertKind(t, err, apperrors.KindAlreadyJoined)
	})

	t.Run("leave removes the registration", func(t *testing.T) {
		f := newFightFixture(t)
		f.openSeason(t, "heavyweight")
		_, err := f.fights.JoinDivision(ctx, member("u1"), &domain.JoinDivisionRequest{
			DivisionID: "heavyweight", TeamName: "Red Hawks",
		})
		require.NoError(t, err)

		require.NoError(t, f.fights.LeaveDivision(ctx, member("u1"), "heavyweight"))
		assertKind(t, f.fights.LeaveDivision(ctx, member("u1"), "heavyweight"), apperrors.KindNotFound)
	})
}

func TestCreateFight(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots teams from registrations", func(t *testing.T) {
		f := newFightFixture(t)
		f.openSeason(t, "heavyweight")
		_, err := f.fights.JoinDivision(ctx, member("u1"), &domain.JoinDivisionRequest{
			DivisionID: "heavyweight", TeamName: "Registered Hawks", LeadCharacter: "banshee",
		})
		require.NoError(t, err)

		fight, err := f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
			Team1UserID:   "u1",
			Team2UserID:   "u2",
			DurationHours: 24,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.FightTitle, fight.Type)
		assert.Equal(t, domain.FightActive, fight.Status)
		// Registration beats the profile snapshot
		assert.Equal(t, "Registered Hawks", fight.Team1.TeamName)
		assert.Equal(t, "banshee", fight.Team1.LeadCharacter)
		// No registration, so the profile team name is used
		assert.Equal(t, "Blue Owls", fight.Team2.TeamName)
		assert.True(t, fight.EndTime.Equal(testClock.Add(24*time.Hour)))
		assert.Equal(t, domain.VisibilityFinal, fight.VoteVisibility)
	})

	t.Run("betting window is optional", func(t *testing.T) {
		f := newFightFixture(t)
		f.openSeason(t, "heavyweight")

		fight, err := f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightOfficial, &domain.CreateFightRequest{
			Team1UserID:        "u1",
			Team2UserID:        "u2",
			DurationHours:      24,
			BettingPeriodHours: 2,
		})
		require.NoError(t, err)
		require.NotNil(t, fight.BettingEndsAt)
		assert.True(t, fight.BettingEndsAt.Equal(testClock.Add(2*time.Hour)))
	})

	t.Run("rejected without an active season", func(t *testing.T) {
		f := newFightFixture(t)
		_, err := f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
			Team1UserID: "u1", Team2UserID: "u2", DurationHours: 24,
		})
		assertKind(t, err, apperrors.KindDivisionLocked)
	})

	t.Run("validation failures", func(t *testing.T) {
		f := newFightFixture(t)
		f.openSeason(t, "heavyweight")

		_, err := f.fights.CreateFight(ctx, member("u1"), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
			Team1UserID: "u1", Team2UserID: "u2", DurationHours: 24,
		})
		assertKind(t, err, apperrors.KindAccessDenied)

		_, err = f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
			Team1UserID: "u1", DurationHours: 24,
		})
		assertKind(t, err, apperrors.KindValidation)

		_, err = f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
			Team1UserID: "u1", Team2UserID: "u2",
		})
		assertKind(t, err, apperrors.KindValidation)

		_, err = f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
			Team1UserID: "u1", Team2UserID: "u2", DurationHours: 24, VoteVisibility: "secret",
		})
		assertKind(t, err, apperrors.KindValidation)
	})
}

func TestFightVote(t *testing.T) {
	ctx := context.Background()

	createFight := func(t *testing.T, f *fightFixture, visibility string) *domain.DivisionFight {
		t.Helper()
		f.openSeason(t, "heavyweight")
		fight, err := f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
			Team1UserID:    "u1",
			Team2UserID:    "u2",
			DurationHours:  24,
			VoteVisibility: visibility,
		})
		require.NoError(t, err)
		return fight
	}

	t.Run("vote change moves the tally instead of double counting", func(t *testing.T) {
		f := newFightFixture(t)
		fight := createFight(t, f, string(domain.VisibilityLive))

		out, err := f.fights.Vote(ctx, member("fan-1"), &domain.FightVoteRequest{FightID: fight.ID, Team: 1})
		require.NoError(t, err)
		assert.Equal(t, domain.FightCounts{Team1: 1}, out.Counts)

		out, err = f.fights.Vote(ctx, member("fan-1"), &domain.FightVoteRequest{FightID: fight.ID, Team: 2})
		require.NoError(t, err)
		assert.Equal(t, domain.FightCounts{Team2: 1}, out.Counts)
		assert.Len(t, out.Votes, 1)
	})

	t.Run("closed fight rejects votes", func(t *testing.T) {
		f := newFightFixture(t)
		fight := createFight(t, f, string(domain.VisibilityLive))

		require.NoError(t, f.store.Update(ctx, func(s *store.State) error {
			s.Fights[fight.ID].Status = domain.FightEnded
			return nil
		}))

		_, err := f.fights.Vote(ctx, member("fan-1"), &domain.FightVoteRequest{FightID: fight.ID, Team: 1})
		assertKind(t, err, apperrors.KindInvalidStatus)
	})

	t.Run("past deadline rejects votes", func(t *testing.T) {
		f := newFightFixture(t)
		fight := createFight(t, f, string(domain.VisibilityLive))

		f.fights.WithClock(func() time.Time { return testClock.Add(25 * time.Hour) })
		_, err := f.fights.Vote(ctx, member("fan-1"), &domain.FightVoteRequest{FightID: fight.ID, Team: 1})
		assertKind(t, err, apperrors.KindInvalidStatus)
	})

	t.Run("bad payloads", func(t *testing.T) {
		f := newFightFixture(t)
		_, err := f.fights.Vote(ctx, member("fan-1"), &domain.FightVoteRequest{Team: 1})
		assertKind(t, err, apperrors.KindValidation)
		_, err = f.fights.Vote(ctx, member("fan-1"), &domain.FightVoteRequest{FightID: "x", Team: 3})
		assertKind(t, err, apperrors.KindValidation)
		_, err = f.fights.Vote(ctx, member("fan-1"), &domain.FightVoteRequest{FightID: "missing", Team: 1})
		assertKind(t, err, apperrors.KindNotFound)
	})
}

func TestApplyVisibility(t *testing.T) {
	endTime := testClock.Add(time.Hour)
	base := domain.DivisionFight{
		Status:  domain.FightActive,
		EndTime: endTime,
		Counts:  domain.FightCounts{Team1: 7, Team2: 3},
		Votes:   []domain.FightVote{{UserID: "fan-1", Team: 1}},
	}

	tests := []struct {
		name       string
		visibility domain.VoteVisibility
		status     domain.FightStatus
		now        time.Time
		wantHidden bool
	}{
		{name: "final active before deadline is masked", visibility: domain.VisibilityFinal, status: domain.FightActive, now: testClock, wantHidden: true},
		{name: "final after deadline reveals", visibility: domain.VisibilityFinal, status: domain.FightActive, now: endTime, wantHidden: false},
		{name: "final ended reveals early", visibility: domain.VisibilityFinal, status: domain.FightEnded, now: testClock, wantHidden: false},
		{name: "live is never masked", visibility: domain.VisibilityLive, status: domain.FightActive, now: testClock, wantHidden: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fight := base
			fight.VoteVisibility = tt.visibility
			fight.Status = tt.status

			gated := ApplyVisibility(fight, tt.now)

			if tt.wantHidden {
				assert.True(t, gated.VotesHidden)
				assert.Equal(t, domain.FightCounts{}, gated.Counts)
				assert.Nil(t, gated.Votes)
			} else {
				assert.False(t, gated.VotesHidden)
				assert.Equal(t, base.Counts, gated.Counts)
				assert.Len(t, gated.Votes, 1)
			}
			// The gate never mutates its input
			assert.Equal(t, domain.FightCounts{Team1: 7, Team2: 3}, fight.Counts)
		})
	}
}

func TestFightReadsAreGated(t *testing.T) {
	ctx := context.Background()
	f := newFightFixture(t)
	f.openSeason(t, "heavyweight")

	fight, err := f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
		Team1UserID:    "u1",
		Team2UserID:    "u2",
		DurationHours:  24,
		VoteVisibility: string(domain.VisibilityFinal),
	})
	require.NoError(t, err)

	_, err = f.fights.Vote(ctx, member("fan-1"), &domain.FightVoteRequest{FightID: fight.ID, Team: 1})
	require.NoError(t, err)

	t.Run("single fight read is masked", func(t *testing.T) {
		got, err := f.fights.GetFight(ctx, fight.ID)
		require.NoError(t, err)
		assert.True(t, got.VotesHidden)
		assert.Equal(t, domain.FightCounts{}, got.Counts)
		assert.Nil(t, got.Votes)
	})

	t.Run("list read is masked", func(t *testing.T) {
		list, err := f.fights.ListFights(ctx, "heavyweight")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].VotesHidden)
	})

	t.Run("reveals once the deadline passes", func(t *testing.T) {
		f.fights.WithClock(func() time.Time { return testClock.Add(25 * time.Hour) })
		defer f.fights.WithClock(func() time.Time { return testClock })

		got, err := f.fights.GetFight(ctx, fight.ID)
		require.NoError(t, err)
		assert.False(t, got.VotesHidden)
		assert.Equal(t, domain.FightCounts{Team1: 1}, got.Counts)
	})

	t.Run("stored record keeps real tallies", func(t *testing.T) {
		require.NoError(t, f.store.View(ctx, func(s *store.State) error {
			stored := s.Fights[fight.ID]
			assert.False(t, stored.VotesHidden)
			assert.Equal(t, domain.FightCounts{Team1: 1}, stored.Counts)
			return nil
		}))
	})
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	f := newFightFixture(t)
	f.openSeason(t, "heavyweight")
	f.openSeason(t, "featherweight")

	_, err := f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
		Team1UserID: "u1", Team2UserID: "u2", DurationHours: 24,
	})
	require.NoError(t, err)

	overview, err := f.fights.Overview(ctx, f.seasons)
	require.NoError(t, err)
	assert.Len(t, overview.Seasons, 2)
	assert.Len(t, overview.Fights, 1)
	// Overview fights come through the same gate
	assert.True(t, overview.Fights[0].VotesHidden)
}
