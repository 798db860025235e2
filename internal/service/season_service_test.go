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

func newSeasonFixture(t *testing.T) (*SeasonService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := NewSeasonService(st, logger.NewNop()).
		WithClock(func() time.Time { return testClock })
	return svc, st
}

func TestSeasonCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("starts locked by default", func(t *testing.T) {
		svc, _ := newSeasonFixture(t)
		view, err := svc.Create(ctx, moderator(), &domain.CreateSeasonRequest{
			DivisionID: "heavyweight",
			Name:       "Season 1",
		})
		require.NoError(t, err)
		assert.True(t, view.IsLocked)
		assert.Equal(t, domain.SeasonLocked, view.State)
	})

	t.Run("explicit unlock with open start is active", func(t *testing.T) {
		svc, _ := newSeasonFixture(t)
		unlocked := false
		start := testClock.Add(-time.Hour)
		view, err := svc.Create(ctx, moderator(), &domain.CreateSeasonRequest{
			DivisionID: "heavyweight",
			Name:       "Season 1",
			StartAt:    &start,
			IsLocked:   &unlocked,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.SeasonActive, view.State)
	})

	t.Run("inverted bounds are rejected", func(t *testing.T) {
		svc, _ := newSeasonFixture(t)
		start := testClock
		end := testClock.Add(-time.Hour)
		_, err := svc.Create(ctx, moderator(), &domain.CreateSeasonRequest{
			DivisionID: "heavyweight",
			Name:       "Season 1",
			StartAt:    &start,
			EndAt:      &end,
		})
		assertKind(t, err, apperrors.KindValidation)
	})

	t.Run("non-moderator is rejected", func(t *testing.T) {
		svc, _ := newSeasonFixture(t)
		_, err := svc.Create(ctx, member("u1"), &domain.CreateSeasonRequest{DivisionID: "d", Name: "n"})
		assertKind(t, err, apperrors.KindAccessDenied)
	})
}

func TestSeasonActivateDeactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("activate unlocks and moves the start bound", func(t *testing.T) {
		svc, _ := newSeasonFixture(t)
		future := testClock.Add(48 * time.Hour)
		created, err := svc.Create(ctx, moderator(), &domain.CreateSeasonRequest{
			DivisionID: "heavyweight",
			Name:       "Season 1",
			StartAt:    &future,
		})
		require.NoError(t, err)

		view, err := svc.Activate(ctx, moderator(), created.ID)
		require.NoError(t, err)
		assert.False(t, view.IsLocked)
		assert.Equal(t, domain.SeasonActive, view.State)
		require.NotNil(t, view.StartAt)
		assert.True(t, view.StartAt.Equal(testClock))
	})

	t.Run("deactivate relocks and evicts the division's teams", func(t *testing.T) {
		svc, st := newSeasonFixture(t)
		created, err := svc.Create(ctx, moderator(), &domain.CreateSeasonRequest{
			DivisionID: "heavyweight",
			Name:       "Season 1",
		})
		require.NoError(t, err)
		_, err = svc.Activate(ctx, moderator(), created.ID)
		require.NoError(t, err)

		require.NoError(t, st.Update(ctx, func(s *store.State) error {
			for _, uid := range []string{"u1", "u2", "u3"} {
				s.Memberships[domain.MembershipKey("heavyweight", uid)] = &domain.DivisionMembership{
					UserID: uid, DivisionID: "heavyweight", TeamName: "team-" + uid,
				}
			}
			s.Memberships[domain.MembershipKey("featherweight", "u9")] = &domain.DivisionMembership{
				UserID: "u9", DivisionID: "featherweight", TeamName: "bystander",
			}
			return nil
		}))

		view, err := svc.Deactivate(ctx, moderator(), created.ID)
		require.NoError(t, err)
		assert.True(t, view.IsLocked)
		assert.Nil(t, view.StartAt)
		assert.Equal(t, domain.SeasonLocked, view.State)

		require.NoError(t, st.View(ctx, func(s *store.State) error {
			// Only the other division's registration survives
			require.Len(t, s.Memberships, 1)
			assert.Contains(t, s.Memberships, domain.MembershipKey("featherweight", "u9"))
			return nil
		}))
	})
}

func TestSeasonSweep(t *testing.T) {
	ctx := context.Background()
	svc, st := newSeasonFixture(t)

	past := testClock.Add(-2 * time.Hour)
	nearPast := testClock.Add(-time.Hour)
	future := testClock.Add(2 * time.Hour)

	require.NoError(t, st.Update(ctx, func(s *store.State) error {
		// Locked with an open window: the sweep should unlock it
		s.Seasons["due"] = &domain.DivisionSeason{
			ID: "due", DivisionID: "d-due", IsLocked: true, StartAt: &past, EndAt: &future,
		}
		// Unlocked and past its end: the sweep should relock and evict
		s.Seasons["over"] = &domain.DivisionSeason{
			ID: "over", DivisionID: "d-over", IsLocked: false, StartAt: &past, EndAt: &nearPast,
		}
		// Locked and scheduled for later: untouched
		s.Seasons["later"] = &domain.DivisionSeason{
			ID: "later", DivisionID: "d-later", IsLocked: true, StartAt: &future,
		}
		s.Memberships[domain.MembershipKey("d-over", "u1")] = &domain.DivisionMembership{
			UserID: "u1", DivisionID: "d-over",
		}
		s.Memberships[domain.MembershipKey("d-due", "u2")] = &domain.DivisionMembership{
			UserID: "u2", DivisionID: "d-due",
		}
		return nil
	}))

	require.NoError(t, svc.Sweep(ctx))

	require.NoError(t, st.View(ctx, func(s *store.State) error {
		assert.False(t, s.Seasons["due"].IsLocked)
		assert.True(t, s.Seasons["over"].IsLocked)
		assert.True(t, s.Seasons["later"].IsLocked)
		assert.NotContains(t, s.Memberships, domain.MembershipKey("d-over", "u1"))
		assert.Contains(t, s.Memberships, domain.MembershipKey("d-due", "u2"))
		return nil
	}))
}

func TestRequireActiveSeason(t *testing.T) {
	past := testClock.Add(-time.Hour)
	future := testClock.Add(time.Hour)

	state := store.NewState()
	state.Seasons["active"] = &domain.DivisionSeason{
		ID: "active", DivisionID: "open-div", StartAt: &past, EndAt: &future,
	}
	state.Seasons["locked"] = &domain.DivisionSeason{
		ID: "locked", DivisionID: "locked-div", IsLocked: true, StartAt: &past, EndAt: &future,
	}
	state.Seasons["scheduled"] = &domain.DivisionSeason{
		ID: "scheduled", DivisionID: "later-div", StartAt: &future,
	}

	assert.NoError(t, RequireActiveSeason(state, "open-div", testClock))
	assertKind(t, RequireActiveSeason(state, "locked-div", testClock), apperrors.KindDivisionLocked)
	assertKind(t, RequireActiveSeason(state, "later-div", testClock), apperrors.KindDivisionLocked)
	assertKind(t, RequireActiveSeason(state, "no-such-div", testClock), apperrors.KindDivisionLocked)
}

func TestSeasonPatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSeasonFixture(t)

	created, err := svc.Create(ctx, moderator(), &domain.CreateSeasonRequest{
		DivisionID: "heavyweight",
		Name:       "Season 1",
	})
	require.NoError(t, err)

	name := "Season 1 Remastered"
	end := testClock.Add(72 * time.Hour)
	view, err := svc.Patch(ctx, moderator(), created.ID, &domain.UpdateSeasonRequest{
		Name:  &name,
		EndAt: &end,
	})
	require.NoError(t, err)
	assert.Equal(t, "Season 1 Remastered", view.Name)
	require.NotNil(t, view.EndAt)
	assert.True(t, view.EndAt.Equal(end))
	assert.Equal(t, "heavyweight", view.DivisionID)

	_, err = svc.Patch(ctx, moderator(), "missing", &domain.UpdateSeasonRequest{})
	assertKind(t, err, apperrors.KindNotFound)
}
