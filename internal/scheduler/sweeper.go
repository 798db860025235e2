// Package scheduler runs the periodic competition sweeps: recruitment
// closing and round activation on the hourly cadence, vote-threshold
// auto-resolution every ten minutes. Sweeps re-evaluate time-dependent state
// only; all bracket work happens in the same engine the HTTP path uses.
package scheduler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"fanarena/internal/domain"
	"fanarena/internal/service"
	"fanarena/internal/store"
	"fanarena/pkg/logger"
)

// SweeperConfig tunes the sweep behaviour
type SweeperConfig struct {
	VoteThreshold    int           // votes on one side that auto-resolve a match
	BattleTolerance  time.Duration // how close to battle_time counts as "now"
	IterationTimeout time.Duration // per-tournament time budget
}

// Sweeper executes the periodic sweeps. Each tournament is processed in its
// own store transaction under its own deadline: one stuck or failing
// tournament is logged and skipped, never aborting the rest of the sweep.
type Sweeper struct {
	store       store.Store
	tournaments *service.TournamentService
	seasons     *service.SeasonService
	cfg         SweeperConfig
	log         *logger.Logger
	now         func() time.Time
}

// NewSweeper creates a new sweeper
func NewSweeper(st store.Store, tournaments *service.TournamentService, seasons *service.SeasonService, cfg SweeperConfig, log *logger.Logger) *Sweeper {
	if cfg.VoteThreshold <= 0 {
		cfg.VoteThreshold = 10
	}
	if cfg.BattleTolerance <= 0 {
		cfg.BattleTolerance = 5 * time.Minute
	}
	if cfg.IterationTimeout <= 0 {
		cfg.IterationTimeout = 30 * time.Second
	}
	return &Sweeper{
		store:       st,
		tournaments: tournaments,
		seasons:     seasons,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// WithClock replaces the wall clock. Used in tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// RunHourly closes recruitment windows, activates due rounds, and sweeps
// division seasons.
func (s *Sweeper) RunHourly(ctx context.Context) {
	now := s.now()
	s.log.WithField("sweep", "hourly").Debug("Sweep started")

	for _, id := range s.collectRecruitmentDue(ctx, now) {
		s.runIsolated(ctx, "recruitment_close", id, func(ctx context.Context) error {
			return s.tournaments.StartBySystem(ctx, id)
		})
	}

	for _, id := range s.collectBattleDue(ctx, now) {
		s.runIsolated(ctx, "round_activation", id, func(ctx context.Context) error {
			return s.tournaments.ActivateDueRound(ctx, id)
		})
	}

	seasonCtx, cancel := context.WithTimeout(ctx, s.cfg.IterationTimeout)
	defer cancel()
	if err := s.seasons.Sweep(seasonCtx); err != nil {
		s.log.WithError(err).Error("Season sweep failed")
	}

	s.log.WithField("sweep", "hourly").Debug("Sweep finished")
}

// RunTenMinute auto-resolves matches that crossed the vote threshold
func (s *Sweeper) RunTenMinute(ctx context.Context) {
	s.log.WithField("sweep", "ten_minute").Debug("Sweep started")
	for _, id := range s.collectActive(ctx) {
		s.runIsolated(ctx, "vote_threshold", id, func(ctx context.Context) error {
			return s.tournaments.AutoResolveMatches(ctx, id, s.cfg.VoteThreshold)
		})
	}
	s.log.WithField("sweep", "ten_minute").Debug("Sweep finished")
}

// runIsolated gives one tournament its own deadline and swallows its error
// into the log so the sweep continues.
func (s *Sweeper) runIsolated(ctx context.Context, step, tournamentID string, fn func(context.Context) error) {
	stepCtx, cancel := context.WithTimeout(ctx, s.cfg.IterationTimeout)
	defer cancel()
	if err := fn(stepCtx); err != nil {
		s.log.WithFields(map[string]interface{}{
			"sweep_step":    step,
			"tournament_id": tournamentID,
		}).WithError(err).Error("Sweep step failed, continuing")
	}
}

func (s *Sweeper) collectRecruitmentDue(ctx context.Context, now time.Time) []string {
	var ids []string
	err := s.store.View(ctx, func(state *store.State) error {
		for id, t := range state.Tournaments {
			if t.Status != domain.TournamentUpcoming || t.RecruitmentEndAt == nil {
				continue
			}
			if !now.Before(*t.RecruitmentEndAt) && len(t.Participants) >= 2 {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).Error("Failed to scan for closed recruitment windows")
	}
	return ids
}

func (s *Sweeper) collectBattleDue(ctx context.Context, now time.Time) []string {
	var ids []string
	err := s.store.View(ctx, func(state *store.State) error {
		for id, t := range state.Tournaments {
			if t.Status != domain.TournamentActive || t.BattleTime == "" {
				continue
			}
			if withinBattleWindow(t.BattleTime, now, s.cfg.BattleTolerance) {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).Error("Failed to scan for due battle times")
	}
	return ids
}

func (s *Sweeper) collectActive(ctx context.Context) []string {
	var ids []string
	err := s.store.View(ctx, func(state *store.State) error {
		for id, t := range state.Tournaments {
			if t.Status == domain.TournamentActive {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).Error("Failed to scan active tournaments")
	}
	return ids
}

// withinBattleWindow reports whether now falls within tolerance of the
// configured HH:MM battle time, handling the midnight wraparound.
func withinBattleWindow(battleTime string, now time.Time, tolerance time.Duration) bool {
	parts := strings.SplitN(battleTime, ":", 2)
	if len(parts) != 2 {
		return false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return false
	}

	battleMinutes := hour*60 + minute
	nowMinutes := now.Hour()*60 + now.Minute()

	diff := battleMinutes - nowMinutes
	if diff < 0 {
		diff = -diff
	}
	if wrapped := 24*60 - diff; wrapped < diff {
		diff = wrapped
	}
	return time.Duration(diff)*time.Minute <= tolerance
}
