package scheduler

import (
	"context"
	"testing"
	"time"

	"corsair/internal/chat"
	"corsair/internal/engine"
	"corsair/internal/logging"
	"corsair/internal/testsupport"
)

func newTestScheduler(t *testing.T, viewers int) (*Scheduler, *engine.Engine) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithRecruitmentSeconds(300))
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.MinCooldownSeconds = 1800
	cfg.Scheduler.MaxCooldownSeconds = 3600
	cfg.Scheduler.MinViewers = 3
	cfg.Scheduler.ActiveMultiplier = 1.5
	cfg.Scheduler.PeakHours = nil

	eng := engine.New(cfg, testsupport.SeededLedger(nil), nil, nil, nil, logging.NewNop())
	s := New(cfg, eng, chat.StaticAudience(viewers), nil, logging.NewNop())
	return s, eng
}

// at pins the scheduler clock relative to its baseline.
func at(s *Scheduler, elapsed time.Duration) {
	ref := s.baseline.Add(elapsed)
	s.now = func() time.Time { return ref }
}

func TestProbabilityRampsBetweenCooldowns(t *testing.T) {
	s, _ := newTestScheduler(t, 10)
	minCooldown := 1800 * time.Second
	maxCooldown := 3600 * time.Second
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC) // off-peak hour

	cases := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"at minimum cooldown", minCooldown, minProbability},
		{"midway", minCooldown + 900*time.Second, 0.30},
		{"at maximum cooldown", maxCooldown, maxProbability},
		{"far past maximum", 2 * maxCooldown, maxProbability},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.probability(now, tc.elapsed, minCooldown, maxCooldown)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("probability(%s) = %v, want %v", tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestProbabilityPeakHourBoost(t *testing.T) {
	s, _ := newTestScheduler(t, 10)
	s.cfg.Scheduler.PeakHours = []int{20}
	minCooldown := 1800 * time.Second
	maxCooldown := 3600 * time.Second

	offPeak := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	peak := time.Date(2026, 3, 1, 20, 30, 0, 0, time.UTC)

	base := s.probability(offPeak, minCooldown, minCooldown, maxCooldown)
	boosted := s.probability(peak, minCooldown, minCooldown, maxCooldown)
	if diff := boosted - base*peakMultiplier; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("peak probability = %v, want %v", boosted, base*peakMultiplier)
	}

	// The boost never lifts the chance past the cap.
	capped := s.probability(peak, maxCooldown, minCooldown, maxCooldown)
	if capped > probabilityCap {
		t.Fatalf("probability %v exceeds cap %v", capped, probabilityCap)
	}
}

func TestActivityMultiplier(t *testing.T) {
	s, _ := newTestScheduler(t, 10)
	if got := s.activityMultiplier(); got != 1.0 {
		t.Fatalf("nil tracker multiplier = %v, want 1.0", got)
	}

	tracker := chat.NewActivityTracker(time.Minute)
	s.activity = tracker
	if got := s.activityMultiplier(); got != 1.0 {
		t.Fatalf("quiet room multiplier = %v, want 1.0", got)
	}

	now := time.Now()
	for i := 0; i < 8; i++ {
		tracker.RecordAt(now)
	}
	if got := s.activityMultiplier(); got != 1.25 {
		t.Fatalf("moderate room multiplier = %v, want 1.25", got)
	}

	for i := 0; i < 20; i++ {
		tracker.RecordAt(now)
	}
	if got := s.activityMultiplier(); got != s.cfg.Scheduler.ActiveMultiplier {
		t.Fatalf("busy room multiplier = %v, want %v", got, s.cfg.Scheduler.ActiveMultiplier)
	}
}

func TestTickRespectsMinimumCooldown(t *testing.T) {
	s, eng := newTestScheduler(t, 10)
	s.randFn = func() float64 { return 0 } // always draw a start

	at(s, 10*time.Minute)
	s.tick(context.Background())
	if eng.Active() {
		t.Fatal("raid started inside the minimum cooldown")
	}
}

func TestTickStartsOnWinningDraw(t *testing.T) {
	s, eng := newTestScheduler(t, 10)
	s.randFn = func() float64 { return 0 }

	at(s, 35*time.Minute)
	s.tick(context.Background())
	if !eng.Active() {
		t.Fatal("winning draw did not start a raid")
	}
}

func TestTickSkipsOnLosingDraw(t *testing.T) {
	s, eng := newTestScheduler(t, 10)
	s.randFn = func() float64 { return 0.999 }

	at(s, 35*time.Minute)
	s.tick(context.Background())
	if eng.Active() {
		t.Fatal("losing draw started a raid")
	}
}

func TestTickForcesStartPastMaximumCooldown(t *testing.T) {
	s, eng := newTestScheduler(t, 10)
	s.randFn = func() float64 { return 0.999 } // the draw always loses

	at(s, 61*time.Minute)
	s.tick(context.Background())
	if !eng.Active() {
		t.Fatal("raid not forced past the maximum cooldown")
	}
}

func TestTickRequiresMinimumViewers(t *testing.T) {
	s, eng := newTestScheduler(t, 2) // below MinViewers of 3
	s.randFn = func() float64 { return 0 }

	at(s, 61*time.Minute)
	s.tick(context.Background())
	if eng.Active() {
		t.Fatal("raid started below the viewer floor")
	}
}

func TestTickSkipsWhileRaidActive(t *testing.T) {
	s, eng := newTestScheduler(t, 10)
	s.randFn = func() float64 { return 0 }

	if _, err := eng.Start(context.Background(), 10); err != nil {
		t.Fatalf("start: %v", err)
	}
	at(s, 61*time.Minute)
	s.tick(context.Background())

	snap := eng.Status()
	if snap.ViewerCount != 10 {
		t.Fatalf("tick replaced the running session: %+v", snap)
	}
}

func TestNextRaidEstimate(t *testing.T) {
	s, _ := newTestScheduler(t, 10)

	at(s, 10*time.Minute)
	est := s.NextRaidEstimate()
	if !est.Enabled {
		t.Fatal("estimate reports scheduler disabled")
	}
	if est.Probability != 0 {
		t.Fatalf("probability inside cooldown = %v, want 0", est.Probability)
	}
	if est.UntilForcedStart != 50*time.Minute {
		t.Fatalf("until forced start = %s, want 50m", est.UntilForcedStart)
	}

	at(s, 61*time.Minute)
	est = s.NextRaidEstimate()
	if est.Probability == 0 {
		t.Fatal("probability past cooldown is zero")
	}
	if est.UntilForcedStart != 0 {
		t.Fatalf("until forced start past maximum = %s, want 0", est.UntilForcedStart)
	}
}
