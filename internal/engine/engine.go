package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"corsair/internal/chat"
	"corsair/internal/config"
	"corsair/internal/history"
	"corsair/internal/ledger"
	"corsair/internal/logging"
	"corsair/internal/notifications"
	"corsair/internal/raid"
)

const announceTimeout = 5 * time.Second

// Engine is the unique mutation authority for raid sessions. One instance
// serves the whole daemon; every state-changing operation runs under mu for
// its full duration. Timer callbacks carry the generation they were
// scheduled for and become no-ops once the generation moves on.
type Engine struct {
	cfg       *config.Config
	ledger    ledger.Ledger
	store     *history.Store
	announcer chat.Announcer
	notifier  notifications.Service
	logger    *slog.Logger
	now       func() time.Time
	rng       *rand.Rand

	mu         sync.Mutex
	session    *raid.Session
	generation uint64
	timers     []*time.Timer
	deadline   time.Time
	lastEnd    time.Time
	attempts   map[string]int
}

// New wires an engine. store may be nil, in which case nothing is persisted
// and crash recovery has nothing to recover. announcer and notifier may be
// nil for silent operation.
func New(cfg *config.Config, lgr ledger.Ledger, store *history.Store, announcer chat.Announcer, notifier notifications.Service, logger *slog.Logger) *Engine {
	if announcer == nil {
		announcer = chat.AnnouncerFunc(func(context.Context, string) error { return nil })
	}
	return &Engine{
		cfg:       cfg,
		ledger:    lgr,
		store:     store,
		announcer: announcer,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "engine"),
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		attempts:  make(map[string]int),
	}
}

// Start begins a new raid session for the given audience size. Fails when a
// session already exists or the viewer count is not positive.
func (e *Engine) Start(ctx context.Context, viewerCount int) (raid.Snapshot, error) {
	if viewerCount <= 0 {
		return raid.Snapshot{}, raid.Wrap(raid.ErrValidation, "start raid", fmt.Errorf("viewer count %d must be positive", viewerCount))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return e.snapshotLocked(), raid.CodeAlreadyActive.Err()
	}

	session := raid.NewSession(raid.ShipTypeFor(viewerCount, e.rng), viewerCount, e.now())
	if err := e.persistStart(ctx, session); err != nil {
		return raid.Snapshot{}, raid.Wrap(raid.ErrState, "start raid", err)
	}

	e.session = session
	e.generation++
	e.deadline = session.StartTime.Add(e.cfg.RecruitmentWindow())
	e.scheduleRecruitmentTimers(e.generation)

	e.logger.Info("raid started",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String("ship_type", session.ShipType),
		logging.Int("viewer_count", viewerCount),
		logging.Int("required_crew", session.RequiredCrew))

	e.announceLocked(fmt.Sprintf(
		"A %s has been spotted! Type !join <amount> (%d-%d points) to board. Crew needed: %d",
		session.ShipType, raid.MinInvestment, raid.MaxInvestment, session.RequiredCrew))
	if e.notifier != nil {
		if err := e.notifier.NotifyRaidStarted(ctx, session.ShipType, session.RequiredCrew); err != nil {
			e.logger.Warn("notify raid started", logging.Error(err))
		}
	}

	return e.snapshotLocked(), nil
}

// Join adds a user to the current session, debiting their investment. The
// returned message is suitable for echoing to chat whether or not the join
// succeeded.
func (e *Engine) Join(ctx context.Context, userID, username string, amount int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	balance := 0
	if userID != "" {
		var err error
		balance, err = e.ledger.Balance(ctx, userID)
		if err != nil {
			return "Raid request rejected", raid.Wrap(raid.ErrState, "read balance", err)
		}
	}

	ok, code := raid.ValidateJoin(userID, amount, balance, e.session)
	if !ok {
		return code.Message(), code.Err()
	}

	session := e.session
	if err := e.ledger.Debit(ctx, userID, amount, "raid investment "+session.ID); err != nil {
		return raid.CodeInsufficientPoints.Message(), raid.Wrap(raid.ErrValidation, "debit investment", err)
	}
	if !session.AddParticipant(userID, username, amount, e.now()) {
		// Validation passed but the insert was refused; undo the debit so
		// the ledger invariant holds.
		if err := e.ledger.Credit(ctx, userID, amount, "raid refund "+session.ID); err != nil {
			e.logger.Error("refund rejected join", logging.Error(err),
				logging.String(logging.FieldUserID, userID))
		}
		return raid.CodeAlreadyParticipating.Message(), raid.CodeAlreadyParticipating.Err()
	}
	e.persistParticipant(ctx, session, userID)

	e.logger.Info("crew member joined",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String(logging.FieldUserID, userID),
		logging.Int(logging.FieldAmount, amount),
		logging.Int("crew", len(session.Participants)))

	message := fmt.Sprintf("%s joined the crew with %d points! Crew: %d/%d",
		username, amount, len(session.Participants), session.RequiredCrew)

	if milestone := session.CheckMilestone(); milestone != nil {
		e.applyMilestoneLocked(ctx, milestone)
		message = fmt.Sprintf("%s %s Multiplier is now x%.1f!",
			message, milestone.Description, session.CurrentMultiplier)
	}

	return message, nil
}

// Invest raises an existing participant's stake during the milestone window.
func (e *Engine) Invest(ctx context.Context, userID string, amount int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	balance := 0
	if userID != "" {
		var err error
		balance, err = e.ledger.Balance(ctx, userID)
		if err != nil {
			return "Raid request rejected", raid.Wrap(raid.ErrState, "read balance", err)
		}
	}

	ok, code := raid.ValidateInvest(userID, amount, balance, e.session)
	if !ok {
		return code.Message(), code.Err()
	}

	session := e.session
	if err := e.ledger.Debit(ctx, userID, amount, "raid investment "+session.ID); err != nil {
		return raid.CodeInsufficientPoints.Message(), raid.Wrap(raid.ErrValidation, "debit investment", err)
	}
	if !session.IncreaseInvestment(userID, amount) {
		if err := e.ledger.Credit(ctx, userID, amount, "raid refund "+session.ID); err != nil {
			e.logger.Error("refund rejected investment", logging.Error(err),
				logging.String(logging.FieldUserID, userID))
		}
		return raid.CodeInvestmentTooHigh.Message(), raid.CodeInvestmentTooHigh.Err()
	}
	e.persistParticipant(ctx, session, userID)

	participant := session.Participants[userID]
	e.logger.Info("investment increased",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String(logging.FieldUserID, userID),
		logging.Int(logging.FieldAmount, amount),
		logging.Int("total_investment", participant.TotalInvestment))

	return fmt.Sprintf("%s invested %d more points (total %d)",
		participant.Username, amount, participant.TotalInvestment), nil
}

// Status returns a point-in-time view of the session slot. An inactive
// engine reports a snapshot in the inactive state.
func (e *Engine) Status() raid.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Active reports whether a session currently occupies the slot.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// LastEnd returns when the most recent session reached a terminal state.
// Zero when no session has ended since startup.
func (e *Engine) LastEnd() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastEnd
}

// ForceReset cancels any current session, refunding every participant.
// Resetting an idle engine is a no-op.
func (e *Engine) ForceReset(ctx context.Context, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	if reason == "" {
		reason = "forced reset"
	}
	e.logger.Warn("forcing session reset",
		logging.String(logging.FieldSessionID, e.session.ID),
		logging.String("reason", reason))
	e.cancelLocked(ctx, reason, history.OutcomeCanceled)
	return nil
}

func (e *Engine) snapshotLocked() raid.Snapshot {
	if e.session == nil {
		return raid.Snapshot{State: raid.StateInactive}
	}
	return e.session.Snapshot(e.now(), e.cfg.RecruitmentWindow(), e.cfg.MilestoneWindow())
}

// applyMilestoneLocked reacts to a newly reached milestone: enter the
// milestone investment window when still recruiting, persist the raised
// multiplier, and announce it.
func (e *Engine) applyMilestoneLocked(ctx context.Context, milestone *raid.Milestone) {
	session := e.session
	if session.State == raid.StateRecruiting {
		if e.transitionLocked(raid.StateMilestone) {
			e.scheduleTimer(e.generation, e.cfg.MilestoneWindow(), e.handleMilestoneExpiry)
			e.announceLocked(fmt.Sprintf(
				"%s Investment window open for %d seconds. Type !invest <amount> to raise your stake!",
				milestone.Description, int(e.cfg.MilestoneWindow().Seconds())))
		}
	}
	e.persistState(ctx, session)
	e.logger.Info("milestone reached",
		logging.String(logging.FieldSessionID, session.ID),
		logging.Int("threshold", milestone.Threshold),
		logging.Float64("multiplier", session.CurrentMultiplier))
}

// transitionLocked moves the session along a validated edge. Illegal edges
// are logged and refused rather than applied.
func (e *Engine) transitionLocked(to raid.State) bool {
	session := e.session
	if session == nil {
		return false
	}
	if ok, _ := raid.ValidateTransition(session.State, to); !ok {
		e.logger.Error("illegal state transition refused",
			logging.String(logging.FieldSessionID, session.ID),
			logging.String("from", string(session.State)),
			logging.String("to", string(to)))
		return false
	}
	session.State = to
	return true
}

func (e *Engine) scheduleRecruitmentTimers(gen uint64) {
	window := e.cfg.RecruitmentWindow()
	for _, checkpoint := range []time.Duration{60 * time.Second, 30 * time.Second} {
		if window > checkpoint {
			remaining := checkpoint
			e.scheduleTimer(gen, window-checkpoint, func(g uint64) {
				e.handleRecruitmentCheckpoint(g, remaining)
			})
		}
	}
	e.scheduleTimer(gen, window, e.handleRecruitmentExpiry)
}

func (e *Engine) scheduleTimer(gen uint64, delay time.Duration, handler func(uint64)) {
	timer := time.AfterFunc(delay, func() {
		defer e.recoverPanic()
		handler(gen)
	})
	e.timers = append(e.timers, timer)
}

func (e *Engine) handleRecruitmentCheckpoint(gen uint64, remaining time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation || e.session == nil {
		return
	}
	session := e.session
	if session.State != raid.StateRecruiting && session.State != raid.StateMilestone {
		return
	}
	e.announceLocked(fmt.Sprintf("%d seconds left to join the raid on the %s! Crew: %d/%d",
		int(remaining.Seconds()), session.ShipType,
		len(session.Participants), session.RequiredCrew))
}

func (e *Engine) handleRecruitmentExpiry(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation || e.session == nil {
		return
	}
	state := e.session.State
	if state != raid.StateRecruiting && state != raid.StateMilestone {
		return
	}
	e.finalizeLocked(context.Background())
}

func (e *Engine) handleMilestoneExpiry(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation || e.session == nil {
		return
	}
	if e.session.State != raid.StateMilestone {
		return
	}
	if !e.now().Before(e.deadline) {
		e.finalizeLocked(context.Background())
		return
	}
	if e.transitionLocked(raid.StateRecruiting) {
		e.persistState(context.Background(), e.session)
		e.announceLocked("The investment window has closed. Recruitment continues!")
	}
}

// teardownLocked releases the session slot. Pending timers are stopped and
// the generation bump invalidates any that already fired.
func (e *Engine) teardownLocked() {
	for _, timer := range e.timers {
		timer.Stop()
	}
	e.timers = nil
	e.generation++
	if e.session != nil {
		delete(e.attempts, e.session.ID)
	}
	e.session = nil
	e.lastEnd = e.now()
}

// announceLocked sends a chat message while holding the engine lock. Chat
// failures are logged, never propagated into the state machine.
func (e *Engine) announceLocked(message string) {
	ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
	defer cancel()
	if err := e.announcer.Announce(ctx, message); err != nil {
		e.logger.Warn("announcement failed", logging.Error(err),
			logging.String("message", message))
	}
}

func (e *Engine) persistStart(ctx context.Context, session *raid.Session) error {
	if e.store == nil {
		return nil
	}
	return e.store.StartSession(ctx, session)
}

func (e *Engine) persistState(ctx context.Context, session *raid.Session) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateState(ctx, session.ID, session.State, session.CurrentMultiplier, session.TotalInvested()); err != nil {
		e.logger.Error("persist session state", logging.Error(err),
			logging.String(logging.FieldSessionID, session.ID))
	}
}

func (e *Engine) persistParticipant(ctx context.Context, session *raid.Session, userID string) {
	if e.store == nil {
		return
	}
	participant, ok := session.Participants[userID]
	if !ok {
		return
	}
	if err := e.store.UpsertParticipant(ctx, session.ID, participant); err != nil {
		e.logger.Error("persist participant", logging.Error(err),
			logging.String(logging.FieldSessionID, session.ID),
			logging.String(logging.FieldUserID, userID))
	}
}
