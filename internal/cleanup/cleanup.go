package cleanup

import (
	"context"
	"log/slog"
	"time"

	"corsair/internal/config"
	"corsair/internal/engine"
	"corsair/internal/history"
	"corsair/internal/logging"
)

// Service sweeps stale sessions and maintains the history database on a
// fixed interval.
type Service struct {
	cfg    *config.Config
	engine *engine.Engine
	store  *history.Store
	logger *slog.Logger
}

// New wires a cleanup service. store may be nil, in which case only the
// session sweep runs.
func New(cfg *config.Config, eng *engine.Engine, store *history.Store, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		engine: eng,
		store:  store,
		logger: logging.NewComponentLogger(logger, "cleanup"),
	}
}

// Run sweeps until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.Cleanup.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("cleanup running",
		logging.Duration("interval", interval),
		logging.Int("raid_timeout_seconds", s.cfg.Cleanup.RaidTimeoutSeconds),
		logging.Int("retention_days", s.cfg.Cleanup.RetentionDays))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	timeout := time.Duration(s.cfg.Cleanup.RaidTimeoutSeconds) * time.Second
	if s.engine.Sweep(ctx, timeout, s.cfg.Cleanup.MinParticipants, s.cfg.Cleanup.MinInvestment) {
		s.logger.Info("stale session closed")
	}

	if s.store == nil {
		return
	}
	retention := time.Duration(s.cfg.Cleanup.RetentionDays) * 24 * time.Hour
	result, err := s.store.Maintain(ctx, retention)
	if err != nil {
		s.logger.Error("history maintenance", logging.Error(err))
		return
	}
	if result.Archived > 0 || result.OrphansRemoved > 0 {
		s.logger.Info("history maintained",
			logging.Int64("archived", result.Archived),
			logging.Int64("orphans_removed", result.OrphansRemoved))
	}
}
