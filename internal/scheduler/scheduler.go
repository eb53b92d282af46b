package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"corsair/internal/chat"
	"corsair/internal/config"
	"corsair/internal/engine"
	"corsair/internal/logging"
	"corsair/internal/raid"
)

// Probability bounds for the Bernoulli draw. The chance climbs linearly
// from minProbability at the minimum cooldown to maxProbability at the
// maximum, before multipliers.
const (
	minProbability = 0.10
	maxProbability = 0.50
	probabilityCap = 0.90

	peakMultiplier = 1.5

	moderateActivityRate = 5.0
	highActivityRate     = 15.0
)

// Scheduler drives automatic raid starts off a fixed tick.
type Scheduler struct {
	cfg      *config.Config
	engine   *engine.Engine
	audience chat.Audience
	activity *chat.ActivityTracker
	logger   *slog.Logger
	now      func() time.Time
	randFn   func() float64
	baseline time.Time
}

// New wires a scheduler. activity may be nil, disabling the chat-activity
// multiplier.
func New(cfg *config.Config, eng *engine.Engine, audience chat.Audience, activity *chat.ActivityTracker, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		engine:   eng,
		audience: audience,
		activity: activity,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		now:      time.Now,
		randFn:   rand.Float64,
		baseline: time.Now(),
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.cfg.Scheduler.Enabled {
		s.logger.Info("scheduler disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	interval := time.Duration(s.cfg.Scheduler.TickSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler running",
		logging.Duration("tick", interval),
		logging.Int("min_cooldown_seconds", s.cfg.Scheduler.MinCooldownSeconds),
		logging.Int("max_cooldown_seconds", s.cfg.Scheduler.MaxCooldownSeconds))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.engine.Active() {
		return
	}

	viewers, err := s.audience.ViewerCount(ctx)
	if err != nil {
		s.logger.Warn("read viewer count", logging.Error(err))
		return
	}
	if viewers < s.cfg.Scheduler.MinViewers {
		return
	}

	now := s.now()
	elapsed := s.sinceLastRaid(now)
	minCooldown := time.Duration(s.cfg.Scheduler.MinCooldownSeconds) * time.Second
	maxCooldown := time.Duration(s.cfg.Scheduler.MaxCooldownSeconds) * time.Second

	if elapsed < minCooldown {
		return
	}

	forced := elapsed >= maxCooldown
	probability := s.probability(now, elapsed, minCooldown, maxCooldown)
	if !forced && s.randFn() >= probability {
		return
	}

	s.logger.Info("starting scheduled raid",
		logging.Int("viewers", viewers),
		logging.Float64("probability", probability),
		logging.Bool("forced", forced),
		logging.Duration("since_last", elapsed.Round(time.Second)))

	if _, err := s.engine.Start(ctx, viewers); err != nil {
		if errors.Is(err, raid.ErrState) {
			s.logger.Debug("scheduled start skipped", logging.Error(err))
			return
		}
		s.logger.Error("scheduled start failed", logging.Error(err))
	}
}

// probability computes the per-tick start chance before the Bernoulli draw.
func (s *Scheduler) probability(now time.Time, elapsed, minCooldown, maxCooldown time.Duration) float64 {
	span := maxCooldown - minCooldown
	progress := 1.0
	if span > 0 {
		progress = float64(elapsed-minCooldown) / float64(span)
		if progress < 0 {
			progress = 0
		}
		if progress > 1 {
			progress = 1
		}
	}
	p := minProbability + progress*(maxProbability-minProbability)

	if s.isPeakHour(now) {
		p *= peakMultiplier
	}
	p *= s.activityMultiplier()

	if p > probabilityCap {
		p = probabilityCap
	}
	return p
}

func (s *Scheduler) isPeakHour(now time.Time) bool {
	hour := now.UTC().Hour()
	for _, peak := range s.cfg.Scheduler.PeakHours {
		if hour == peak {
			return true
		}
	}
	return false
}

// activityMultiplier maps the rolling chat message rate to a boost: quiet
// rooms get none, moderate rooms a small one, busy rooms the configured
// maximum.
func (s *Scheduler) activityMultiplier() float64 {
	if s.activity == nil {
		return 1.0
	}
	rate := s.activity.MessagesPerMinute()
	switch {
	case rate >= highActivityRate:
		return s.cfg.Scheduler.ActiveMultiplier
	case rate >= moderateActivityRate:
		return 1.25
	default:
		return 1.0
	}
}

// sinceLastRaid measures elapsed time since the last session ended. Before
// any session has run, process start is the reference point so the first
// raid still waits out a cooldown.
func (s *Scheduler) sinceLastRaid(now time.Time) time.Duration {
	lastEnd := s.engine.LastEnd()
	if lastEnd.IsZero() {
		lastEnd = s.baseline
	}
	return now.Sub(lastEnd)
}

// Estimate describes when the next automatic raid is likely.
type Estimate struct {
	Enabled          bool
	Probability      float64
	SinceLast        time.Duration
	UntilForcedStart time.Duration
}

// NextRaidEstimate reports the current start probability and the time left
// until a forced start.
func (s *Scheduler) NextRaidEstimate() Estimate {
	now := s.now()
	elapsed := s.sinceLastRaid(now)
	minCooldown := time.Duration(s.cfg.Scheduler.MinCooldownSeconds) * time.Second
	maxCooldown := time.Duration(s.cfg.Scheduler.MaxCooldownSeconds) * time.Second

	est := Estimate{
		Enabled:   s.cfg.Scheduler.Enabled,
		SinceLast: elapsed,
	}
	if elapsed >= minCooldown {
		est.Probability = s.probability(now, elapsed, minCooldown, maxCooldown)
	}
	if remaining := maxCooldown - elapsed; remaining > 0 {
		est.UntilForcedStart = remaining
	}
	return est
}
