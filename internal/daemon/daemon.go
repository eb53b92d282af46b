package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"corsair/internal/api"
	"corsair/internal/chat"
	"corsair/internal/cleanup"
	"corsair/internal/config"
	"corsair/internal/engine"
	"corsair/internal/history"
	"corsair/internal/ledger"
	"corsair/internal/logging"
	"corsair/internal/notifications"
	"corsair/internal/raid"
	"corsair/internal/scheduler"
)

// Options allow callers to inject platform integrations. Every field is
// optional; defaults keep the daemon self-contained.
type Options struct {
	Announcer chat.Announcer
	Audience  chat.Audience
	Activity  *chat.ActivityTracker
	Notifier  notifications.Service
	Ledger    ledger.Ledger
}

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *history.Store
	ledger    ledger.Ledger
	engine    *engine.Engine
	scheduler *scheduler.Scheduler
	cleanup   *cleanup.Service
	notifier  notifications.Service
	apiServer *apiServer

	closeLedger func() error

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		lockPath: filepath.Join(cfg.Paths.DataDir, "corsaird.lock"),
	}
	d.lock = flock.New(d.lockPath)

	d.ledger = opts.Ledger
	if d.ledger == nil {
		ledgerStore, err := ledger.Open(cfg)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		d.ledger = ledgerStore
		d.closeLedger = ledgerStore.Close
	}

	announcer := opts.Announcer
	if announcer == nil {
		announcer = chat.NewLogAnnouncer(logger)
	}
	audience := opts.Audience
	if audience == nil {
		audience = chat.StaticAudience(0)
	}
	d.notifier = opts.Notifier
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}

	d.engine = engine.New(cfg, d.ledger, store, announcer, d.notifier, logger)
	d.scheduler = scheduler.New(cfg, d.engine, audience, opts.Activity, logger)
	d.cleanup = cleanup.New(cfg, d.engine, store, logger)

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	d.apiServer = server

	return d, nil
}

// Start acquires the daemon lock, recovers sessions abandoned by a previous
// process, and launches the background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another corsair daemon instance is already running")
	}

	recovered, err := d.engine.RecoverFromCrash(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("crash recovery: %w", err)
	}
	if recovered > 0 {
		d.logger.Warn("recovered abandoned sessions", logging.Int("count", recovered))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		if err := d.scheduler.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("scheduler stopped", logging.Error(err))
		}
	}()
	go func() {
		defer d.wg.Done()
		if err := d.cleanup.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("cleanup stopped", logging.Error(err))
		}
	}()

	if err := d.apiServer.start(runCtx); err != nil {
		cancel()
		d.wg.Wait()
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("corsair daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background services and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.apiServer.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("corsair daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.closeLedger != nil {
		if err := d.closeLedger(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Engine exposes the raid engine for in-process integrations (a chat
// connector calling join/invest directly).
func (d *Daemon) Engine() *engine.Engine {
	return d.engine
}

// TestNotification triggers a test notification with the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() api.DaemonStatus {
	snap := d.engine.Status()
	est := d.scheduler.NextRaidEstimate()

	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DataDir:      d.cfg.Paths.DataDir,
		LockFilePath: d.lockPath,
		Raid:         raidStatusPayload(snap),
		Scheduler: api.SchedulerStatus{
			Enabled:           est.Enabled,
			Probability:       est.Probability,
			SecondsSinceLast:  int(est.SinceLast.Seconds()),
			SecondsUntilForce: int(est.UntilForcedStart.Seconds()),
		},
	}
	return status
}

func raidStatusPayload(snap raid.Snapshot) api.RaidStatus {
	payload := api.RaidStatus{
		State:             string(snap.State),
		SessionID:         snap.ID,
		ShipType:          snap.ShipType,
		CurrentCrew:       snap.CurrentCrew,
		RequiredCrew:      snap.RequiredCrew,
		ViewerCount:       snap.ViewerCount,
		CurrentMultiplier: snap.CurrentMultiplier,
		TotalInvested:     snap.TotalInvested,
		SecondsRemaining:  int(snap.TimeRemaining.Seconds()),
	}
	if !snap.StartTime.IsZero() {
		payload.StartTime = snap.StartTime.UTC().Format(time.RFC3339)
	}
	if snap.NextMilestone != nil {
		payload.NextThreshold = snap.NextMilestone.Threshold
		payload.NextMultiplier = snap.NextMilestone.Multiplier
	}
	return payload
}
