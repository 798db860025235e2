package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fanarena/internal/domain"
	"fanarena/internal/store"
	"fanarena/pkg/logger"
	"fanarena/pkg/redis"
)

func newCachedFightFixture(t *testing.T) (*fightFixture, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	cache := NewCacheService(redisClient, zap.NewNop())

	st := store.NewMemoryStore()
	resolver := NewStaticResolver(nil)
	clock := func() time.Time { return testClock }
	f := &fightFixture{
		fights:  NewFightService(st, resolver, cache, logger.NewNop()).WithClock(clock),
		seasons: NewSeasonService(st, logger.NewNop()).WithClock(clock),
		store:   st,
	}
	return f, mr, redisClient
}

func TestListFights_CacheAside(t *testing.T) {
	ctx := context.Background()
	f, mr, redisClient := newCachedFightFixture(t)
	f.openSeason(t, "heavyweight")

	fight, err := f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
		Team1UserID: "u1", Team2UserID: "u2", DurationHours: 24,
	})
	require.NoError(t, err)

	// First read misses and populates the cache
	list, err := f.fights.ListFights(ctx, "heavyweight")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fight.ID, list[0].ID)

	key := redisClient.KeyBuilder.KeyDivisionFights("heavyweight")
	cached, err := mr.Get(key)
	require.NoError(t, err)
	assert.NotEmpty(t, cached)

	// Second read is served from the cache: drop the store record and the
	// cached payload still comes back.
	require.NoError(t, f.store.Update(ctx, func(s *store.State) error {
		delete(s.Fights, fight.ID)
		return nil
	}))
	list, err = f.fights.ListFights(ctx, "heavyweight")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListFights_CachedPayloadIsGated(t *testing.T) {
	ctx := context.Background()
	f, mr, redisClient := newCachedFightFixture(t)
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

	list, err := f.fights.ListFights(ctx, "heavyweight")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].VotesHidden)

	// The serialized cache entry carries the masked payload, not the tallies
	cached, err := mr.Get(redisClient.KeyBuilder.KeyDivisionFights("heavyweight"))
	require.NoError(t, err)
	assert.NotContains(t, cached, `"team1":1`)
	assert.Contains(t, cached, `"votes_hidden":true`)
}

func TestListFights_WriteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f, mr, redisClient := newCachedFightFixture(t)
	f.openSeason(t, "heavyweight")

	fight, err := f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
		Team1UserID: "u1", Team2UserID: "u2", DurationHours: 24, VoteVisibility: string(domain.VisibilityLive),
	})
	require.NoError(t, err)

	list, err := f.fights.ListFights(ctx, "heavyweight")
	require.NoError(t, err)
	assert.Equal(t, domain.FightCounts{}, list[0].Counts)

	// A vote drops the cached entry, so the next read sees the new tally
	_, err = f.fights.Vote(ctx, member("fan-1"), &domain.FightVoteRequest{FightID: fight.ID, Team: 2})
	require.NoError(t, err)
	assert.False(t, mr.Exists(redisClient.KeyBuilder.KeyDivisionFights("heavyweight")))

	list, err = f.fights.ListFights(ctx, "heavyweight")
	require.NoError(t, err)
	assert.Equal(t, domain.FightCounts{Team2: 1}, list[0].Counts)
}

func TestGetFightsWithCache_CorruptEntryFallsBack(t *testing.T) {
	ctx := context.Background()
	f, mr, redisClient := newCachedFightFixture(t)
	f.openSeason(t, "heavyweight")

	_, err := f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
		Team1UserID: "u1", Team2UserID: "u2", DurationHours: 24,
	})
	require.NoError(t, err)

	require.NoError(t, mr.Set(redisClient.KeyBuilder.KeyDivisionFights("heavyweight"), "{not json"))

	list, err := f.fights.ListFights(ctx, "heavyweight")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetFightsWithCache_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	f, mr, _ := newCachedFightFixture(t)
	f.openSeason(t, "heavyweight")

	_, err := f.fights.CreateFight(ctx, moderator(), "heavyweight", domain.FightTitle, &domain.CreateFightRequest{
		Team1UserID: "u1", Team2UserID: "u2", DurationHours: 24,
	})
	require.NoError(t, err)

	mr.Close()

	list, err := f.fights.ListFights(ctx, "heavyweight")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
