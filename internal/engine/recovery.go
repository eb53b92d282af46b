package engine

import (
	"context"
	"fmt"

	"corsair/internal/history"
	"corsair/internal/logging"
	"corsair/internal/raid"
)

// maxRecoveryAttempts bounds how many times a single session may be nursed
// through runtime failures before it is forcibly cancelled.
const maxRecoveryAttempts = 3

// recoverPanic converts a panic in a timer goroutine into a recovery pass.
// Timer handlers run outside any request so a panic here would otherwise
// kill the process with the session stuck mid-transition.
func (e *Engine) recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", r)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recoverLocked(context.Background(), err)
}

// recoverLocked dispatches a runtime failure to a per-state handler. After
// maxRecoveryAttempts for the same session the engine gives up and cancels
// with a refund, guaranteeing the slot ends at a valid terminal state.
func (e *Engine) recoverLocked(ctx context.Context, cause error) {
	session := e.session
	if session == nil {
		return
	}

	e.attempts[session.ID]++
	attempt := e.attempts[session.ID]
	e.logger.Error("recovering session",
		logging.Error(cause),
		logging.String(logging.FieldSessionID, session.ID),
		logging.String(logging.FieldState, string(session.State)),
		logging.Int("attempt", attempt))

	if attempt > maxRecoveryAttempts {
		e.logger.Error("recovery attempts exhausted",
			logging.String(logging.FieldSessionID, session.ID))
		if e.notifier != nil {
			exhausted := raid.Wrap(raid.ErrRecoveryExhausted, "recover session", cause)
			if err := e.notifier.NotifyError(ctx, exhausted, "raid recovery"); err != nil {
				e.logger.Warn("notify recovery failure", logging.Error(err))
			}
		}
		e.cancelLocked(ctx, "recovery attempts exhausted", history.OutcomeFailed)
		return
	}

	switch session.State {
	case raid.StateRecruiting, raid.StateMilestone:
		// Re-check expiry: a failure may have eaten the terminal timer.
		if !e.now().Before(e.deadline) {
			e.finalizeLocked(ctx)
			return
		}
		e.scheduleTimer(e.generation, e.deadline.Sub(e.now()), e.handleRecruitmentExpiry)
	case raid.StateLaunching, raid.StateActive:
		// Settlement may have partially run; FinishSession is idempotent so
		// retrying from here either completes the raid or cancels it.
		e.settleLocked(ctx, history.OutcomeCompleted)
	default:
		// Completed and inactive sessions already finished their ledger
		// work; refunding here would pay participants a second time. Only
		// the slot release remains.
		e.logger.Warn("releasing terminal session after failure",
			logging.String(logging.FieldSessionID, session.ID),
			logging.String(logging.FieldState, string(session.State)))
		e.teardownLocked()
	}
}

// RecoverFromCrash closes out sessions a previous process left open.
// Participants already paid their investments, so every open session is
// refunded and marked failed. Returns the number of sessions recovered.
func (e *Engine) RecoverFromCrash(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, nil
	}

	records, err := e.store.OpenSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open sessions: %w", err)
	}

	recovered := 0
	for _, record := range records {
		for _, participant := range record.Participants {
			if participant.TotalInvestment <= 0 {
				continue
			}
			if err := e.ledger.Credit(ctx, participant.UserID, participant.TotalInvestment, "raid refund "+record.ID); err != nil {
				e.logger.Error("crash recovery refund", logging.Error(err),
					logging.String(logging.FieldSessionID, record.ID),
					logging.String(logging.FieldUserID, participant.UserID))
			}
		}
		if err := e.store.AbandonSession(ctx, record.ID, "interrupted by shutdown"); err != nil {
			e.logger.Error("close abandoned session", logging.Error(err),
				logging.String(logging.FieldSessionID, record.ID))
			continue
		}
		recovered++
		e.logger.Warn("recovered abandoned session",
			logging.String(logging.FieldSessionID, record.ID),
			logging.String(logging.FieldState, record.Status),
			logging.Int("participants", len(record.Participants)))
	}

	return recovered, nil
}
