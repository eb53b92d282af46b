package engine

import (
	"context"
	"time"

	"corsair/internal/history"
	"corsair/internal/logging"
	"corsair/internal/raid"
)

// Sweep closes out a session that has outlived its timeout, a safety net
// for timers lost to runtime failures. A stuck raid with a viable crew is
// settled as auto-completed so participants keep their winnings; anything
// else is cancelled with a refund. Reports whether a session was closed.
func (e *Engine) Sweep(ctx context.Context, timeout time.Duration, minParticipants, minInvestment int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	session := e.session
	if session == nil {
		return false
	}
	age := e.now().Sub(session.StartTime)
	if age < timeout {
		return false
	}

	e.logger.Warn("sweeping stale session",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String(logging.FieldState, string(session.State)),
		logging.Duration("age", age.Round(time.Second)))

	viable := len(session.Participants) >= minParticipants &&
		session.TotalInvested() >= minInvestment
	if viable && session.State.Live() {
		if session.State == raid.StateRecruiting || session.State == raid.StateMilestone {
			if !e.transitionLocked(raid.StateLaunching) {
				e.cancelLocked(ctx, "raid timed out", history.OutcomeCanceled)
				return true
			}
			e.persistState(ctx, session)
		}
		e.settleLocked(ctx, history.OutcomeAutoCompleted)
		return true
	}

	e.cancelLocked(ctx, "raid timed out", history.OutcomeCanceled)
	return true
}
