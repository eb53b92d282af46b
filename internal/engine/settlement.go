package engine

import (
	"context"
	"fmt"

	"corsair/internal/history"
	"corsair/internal/logging"
	"corsair/internal/raid"
)

// finalizeLocked runs the terminal evaluation when the recruitment window
// closes: a sufficient crew launches and settles, anything less cancels with
// a full refund.
func (e *Engine) finalizeLocked(ctx context.Context) {
	session := e.session
	if session == nil {
		return
	}
	if !session.Successful() {
		e.cancelLocked(ctx, fmt.Sprintf("only %d of %d required crew joined",
			len(session.Participants), session.RequiredCrew), history.OutcomeFailed)
		return
	}
	if !e.transitionLocked(raid.StateLaunching) {
		e.cancelLocked(ctx, "launch transition refused", history.OutcomeFailed)
		return
	}
	e.persistState(ctx, session)
	e.announceLocked(fmt.Sprintf("The crew of %d sets sail against the %s!",
		len(session.Participants), session.ShipType))
	e.settleLocked(ctx, history.OutcomeCompleted)
}

// settleLocked distributes rewards. The terminal history row commits before
// any credit is issued, so a crash between the two leaves a completed row
// and the credits are re-issued by recovery, never invented twice by a
// second settlement.
func (e *Engine) settleLocked(ctx context.Context, outcome history.Outcome) {
	session := e.session
	if session == nil {
		return
	}
	if session.State == raid.StateLaunching {
		if !e.transitionLocked(raid.StateActive) {
			e.cancelLocked(ctx, "settlement transition refused", history.OutcomeFailed)
			return
		}
		e.persistState(ctx, session)
	}

	rewards := session.Rewards()
	if !e.transitionLocked(raid.StateCompleted) {
		e.cancelLocked(ctx, "completion transition refused", history.OutcomeFailed)
		return
	}

	if e.store != nil {
		if err := e.store.FinishSession(ctx, session, outcome, "", rewards); err != nil {
			e.logger.Error("persist settlement", logging.Error(err),
				logging.String(logging.FieldSessionID, session.ID))
			// No credits have been issued yet, so refunding every debit
			// keeps the ledger balanced.
			e.cancelLocked(ctx, "settlement persistence failed", history.OutcomeFailed)
			return
		}
	}

	totalRewards := 0
	for userID, reward := range rewards {
		totalRewards += reward
		if err := e.ledger.Credit(ctx, userID, reward, "raid reward "+session.ID); err != nil {
			e.logger.Error("credit reward", logging.Error(err),
				logging.String(logging.FieldSessionID, session.ID),
				logging.String(logging.FieldUserID, userID),
				logging.Int(logging.FieldAmount, reward))
		}
	}

	e.logger.Info("raid completed",
		logging.String(logging.FieldSessionID, session.ID),
		logging.Int("crew", len(session.Participants)),
		logging.Int("total_invested", session.TotalInvested()),
		logging.Int("total_rewards", totalRewards),
		logging.Float64("multiplier", session.CurrentMultiplier))

	e.announceLocked(fmt.Sprintf(
		"Victory! The %s has been plundered! %d crew members share %d points (x%.1f multiplier)",
		session.ShipType, len(session.Participants), totalRewards, session.CurrentMultiplier))
	if e.notifier != nil {
		if err := e.notifier.NotifyRaidCompleted(ctx, session.ShipType, len(session.Participants), totalRewards); err != nil {
			e.logger.Warn("notify raid completed", logging.Error(err))
		}
	}

	e.teardownLocked()
}

// cancelLocked refunds every participant and closes the session with the
// given outcome. Safe to call repeatedly: once the slot is empty it does
// nothing.
func (e *Engine) cancelLocked(ctx context.Context, reason string, outcome history.Outcome) {
	session := e.session
	if session == nil {
		return
	}

	if e.store != nil {
		if err := e.store.FinishSession(ctx, session, outcome, reason, nil); err != nil {
			e.logger.Error("persist cancellation", logging.Error(err),
				logging.String(logging.FieldSessionID, session.ID))
		}
	}

	refunded := 0
	for _, participant := range session.Participants {
		if participant.TotalInvestment <= 0 {
			continue
		}
		if err := e.ledger.Credit(ctx, participant.UserID, participant.TotalInvestment, "raid refund "+session.ID); err != nil {
			e.logger.Error("credit refund", logging.Error(err),
				logging.String(logging.FieldSessionID, session.ID),
				logging.String(logging.FieldUserID, participant.UserID),
				logging.Int(logging.FieldAmount, participant.TotalInvestment))
			continue
		}
		refunded += participant.TotalInvestment
	}

	e.logger.Info("raid cancelled",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String("reason", reason),
		logging.String("outcome", string(outcome)),
		logging.Int("refunded", refunded))

	session.State = raid.StateInactive
	e.announceLocked(fmt.Sprintf("The raid has been called off: %s. All investments refunded.", reason))
	if e.notifier != nil {
		if err := e.notifier.NotifyRaidFailed(ctx, session.ShipType, reason); err != nil {
			e.logger.Warn("notify raid failed", logging.Error(err))
		}
	}

	e.teardownLocked()
}
