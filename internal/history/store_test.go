package history_test

import (
	"context"
	"testing"
	"time"

	"corsair/internal/history"
	"corsair/internal/raid"
	"corsair/internal/testsupport"
)

func newSession(t *testing.T, users ...string) *raid.Session {
	t.Helper()
	session := raid.NewSession("Merchant Sloop", 5, time.Now())
	for _, user := range users {
		if !session.AddParticipant(user, user, 200, time.Now()) {
			t.Fatalf("add participant %s", user)
		}
	}
	return session
}

func TestStartSessionLeavesOpenRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := newSession(t, "alice", "bob")
	if err := store.StartSession(ctx, session); err != nil {
		t.Fatalf("start session: %v", err)
	}
	for _, p := range session.Participants {
		if err := store.UpsertParticipant(ctx, session.ID, p); err != nil {
			t.Fatalf("upsert participant: %v", err)
		}
	}

	open, err := store.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("open sessions: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open session, got %d", len(open))
	}
	rec := open[0]
	if !rec.Live() {
		t.Fatal("open row reported terminal")
	}
	if state, ok := rec.State(); !ok || state != raid.StateRecruiting {
		t.Fatalf("open row state = %q, %v", rec.Status, ok)
	}
	if len(rec.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(rec.Participants))
	}
}

func TestFinishSessionRecordsOutcomeAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := newSession(t, "alice", "bob")
	if err := store.StartSession(ctx, session); err != nil {
		t.Fatalf("start session: %v", err)
	}
	for _, p := range session.Participants {
		if err := store.UpsertParticipant(ctx, session.ID, p); err != nil {
			t.Fatalf("upsert participant: %v", err)
		}
	}

	rewards := map[string]int{"alice": 300, "bob": 300}
	if err := store.FinishSession(ctx, session, history.OutcomeCompleted, "", rewards); err != nil {
		t.Fatalf("finish session: %v", err)
	}

	rec, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if rec == nil || rec.Live() {
		t.Fatalf("expected terminal row, got %+v", rec)
	}
	if rec.Status != string(history.OutcomeCompleted) {
		t.Fatalf("status = %q", rec.Status)
	}
	if rec.TotalRewards != 600 {
		t.Fatalf("total rewards = %d, want 600", rec.TotalRewards)
	}

	stats, err := store.PlayerStats(ctx, "alice")
	if err != nil {
		t.Fatalf("player stats: %v", err)
	}
	if stats.RaidsJoined != 1 || stats.RaidsWon != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.TotalInvested != 200 || stats.TotalRewarded != 300 {
		t.Fatalf("stats totals = %+v", stats)
	}

	open, err := store.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("open sessions: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open sessions, got %d", len(open))
	}
}

func TestFinishSessionIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := newSession(t, "alice", "bob")
	if err := store.StartSession(ctx, session); err != nil {
		t.Fatalf("start session: %v", err)
	}
	for _, p := range session.Participants {
		if err := store.UpsertParticipant(ctx, session.ID, p); err != nil {
			t.Fatalf("upsert participant: %v", err)
		}
	}

	rewards := map[string]int{"alice": 300, "bob": 300}
	if err := store.FinishSession(ctx, session, history.OutcomeCompleted, "", rewards); err != nil {
		t.Fatalf("first finish: %v", err)
	}
	// A second finish is a no-op: stats must not double-count.
	if err := store.FinishSession(ctx, session, history.OutcomeCompleted, "", rewards); err != nil {
		t.Fatalf("second finish: %v", err)
	}

	stats, err := store.PlayerStats(ctx, "alice")
	if err != nil {
		t.Fatalf("player stats: %v", err)
	}
	if stats.RaidsJoined != 1 || stats.TotalRewarded != 300 {
		t.Fatalf("stats double-counted: %+v", stats)
	}
}

func TestFailedRaidDoesNotCountAsWin(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := newSession(t, "alice")
	if err := store.StartSession(ctx, session); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := store.UpsertParticipant(ctx, session.ID, session.Participants["alice"]); err != nil {
		t.Fatalf("upsert participant: %v", err)
	}
	if err := store.FinishSession(ctx, session, history.OutcomeFailed, "only 1 of 2 required crew joined", nil); err != nil {
		t.Fatalf("finish session: %v", err)
	}

	stats, err := store.PlayerStats(ctx, "alice")
	if err != nil {
		t.Fatalf("player stats: %v", err)
	}
	if stats.RaidsJoined != 1 || stats.RaidsWon != 0 {
		t.Fatalf("failed raid counted as win: %+v", stats)
	}

	rec, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if rec.FailureReason != "only 1 of 2 required crew joined" {
		t.Fatalf("failure reason = %q", rec.FailureReason)
	}
}

func TestAbandonSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := newSession(t, "alice")
	if err := store.StartSession(ctx, session); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := store.AbandonSession(ctx, session.ID, "interrupted by shutdown"); err != nil {
		t.Fatalf("abandon: %v", err)
	}

	rec, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if rec.Live() || rec.Status != string(history.OutcomeFailed) {
		t.Fatalf("abandoned row = %+v", rec)
	}
	// Abandoning again is harmless.
	if err := store.AbandonSession(ctx, session.ID, "again"); err != nil {
		t.Fatalf("second abandon: %v", err)
	}
	rec, _ = store.GetSession(ctx, session.ID)
	if rec.FailureReason != "interrupted by shutdown" {
		t.Fatalf("reason overwritten: %q", rec.FailureReason)
	}
}

func TestRecentSessionsAndTopPlayers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		session := newSession(t, "alice", "bob")
		if err := store.StartSession(ctx, session); err != nil {
			t.Fatalf("start session: %v", err)
		}
		for _, p := range session.Participants {
			if err := store.UpsertParticipant(ctx, session.ID, p); err != nil {
				t.Fatalf("upsert participant: %v", err)
			}
		}
		rewards := map[string]int{"alice": 300 + i, "bob": 300}
		if err := store.FinishSession(ctx, session, history.OutcomeCompleted, "", rewards); err != nil {
			t.Fatalf("finish session: %v", err)
		}
	}

	recent, err := store.RecentSessions(ctx, 2)
	if err != nil {
		t.Fatalf("recent sessions: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent sessions, got %d", len(recent))
	}
	for _, rec := range recent {
		if len(rec.Participants) != 2 {
			t.Fatalf("session %s carries %d participants, want 2", rec.ID, len(rec.Participants))
		}
	}
	crew := map[string]bool{}
	for _, p := range recent[0].Participants {
		crew[p.UserID] = true
		if p.TotalInvestment != 200 {
			t.Fatalf("participant %s investment = %d, want 200", p.UserID, p.TotalInvestment)
		}
	}
	if !crew["alice"] || !crew["bob"] {
		t.Fatalf("participant set = %v", crew)
	}

	players, err := store.TopPlayers(ctx, 10)
	if err != nil {
		t.Fatalf("top players: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
	if players[0].UserID != "alice" {
		t.Fatalf("leaderboard order: %+v", players[0])
	}
	if players[0].RaidsJoined != 3 {
		t.Fatalf("alice raids joined = %d, want 3", players[0].RaidsJoined)
	}
}

func TestMaintainArchivesOldRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	session := newSession(t, "alice", "bob")
	if err := store.StartSession(ctx, session); err != nil {
		t.Fatalf("start session: %v", err)
	}
	for _, p := range session.Participants {
		if err := store.UpsertParticipant(ctx, session.ID, p); err != nil {
			t.Fatalf("upsert participant: %v", err)
		}
	}
	if err := store.FinishSession(ctx, session, history.OutcomeCompleted, "", session.Rewards()); err != nil {
		t.Fatalf("finish session: %v", err)
	}

	// A zero retention archives everything that is already terminal.
	result, err := store.Maintain(ctx, 0)
	if err != nil {
		t.Fatalf("maintain: %v", err)
	}
	if result.Archived != 1 {
		t.Fatalf("archived = %d, want 1", result.Archived)
	}
	if result.OrphansRemoved != 2 {
		t.Fatalf("orphans removed = %d, want 2", result.OrphansRemoved)
	}

	rec, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if rec != nil {
		t.Fatal("archived row still present in main table")
	}
}
