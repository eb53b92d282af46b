package raid

import (
	"testing"
	"time"
)

func TestRequiredCrew(t *testing.T) {
	cases := []struct {
		viewers int
		want    int
	}{
		{1, 2},
		{5, 2},
		{9, 2},
		{10, 2}, // round(1.0) but floor of 2 applies
		{25, 3},
		{50, 5},
		{100, 10},
		{154, 15},
	}
	for _, tc := range cases {
		if got := RequiredCrew(tc.viewers); got != tc.want {
			t.Errorf("RequiredCrew(%d) = %d, want %d", tc.viewers, got, tc.want)
		}
	}
}

func TestMilestonesForSmallAudience(t *testing.T) {
	milestones := MilestonesFor(5)
	if len(milestones) != 2 {
		t.Fatalf("expected 2 milestones, got %d", len(milestones))
	}
	if milestones[0].Threshold != 3 || milestones[0].Multiplier != 1.8 {
		t.Fatalf("unexpected first milestone: %+v", milestones[0])
	}
	if milestones[1].Threshold != 5 || milestones[1].Multiplier != 2.0 {
		t.Fatalf("unexpected second milestone: %+v", milestones[1])
	}
}

func TestMilestonesForLargeAudience(t *testing.T) {
	milestones := MilestonesFor(100)
	if len(milestones) != 3 {
		t.Fatalf("expected 3 milestones, got %d", len(milestones))
	}
	wantThresholds := []int{10, 15, 20}
	wantMultipliers := []float64{1.8, 2.0, 2.5}
	for i, m := range milestones {
		if m.Threshold != wantThresholds[i] || m.Multiplier != wantMultipliers[i] {
			t.Errorf("milestone %d = %+v, want threshold %d multiplier %v",
				i, m, wantThresholds[i], wantMultipliers[i])
		}
	}
	// Thresholds must be strictly increasing.
	for i := 1; i < len(milestones); i++ {
		if milestones[i].Threshold <= milestones[i-1].Threshold {
			t.Fatalf("thresholds not increasing: %+v", milestones)
		}
	}
}

func TestNewSession(t *testing.T) {
	now := time.Now()
	session := NewSession("Trade Galleon", 50, now)
	if session.ID == "" {
		t.Fatal("missing session id")
	}
	if session.State != StateRecruiting {
		t.Fatalf("new session state = %s", session.State)
	}
	if session.RequiredCrew != 5 {
		t.Fatalf("required crew = %d, want 5", session.RequiredCrew)
	}
	if session.CurrentMultiplier != BaseMultiplier {
		t.Fatalf("multiplier = %v, want %v", session.CurrentMultiplier, BaseMultiplier)
	}
}

func TestAddParticipant(t *testing.T) {
	session := NewSession("Merchant Sloop", 5, time.Now())
	if !session.AddParticipant("u1", "alice", 200, time.Now()) {
		t.Fatal("first join refused")
	}
	if session.AddParticipant("u1", "alice", 200, time.Now()) {
		t.Fatal("duplicate join accepted")
	}
	session.State = StateActive
	if session.AddParticipant("u2", "bob", 200, time.Now()) {
		t.Fatal("join accepted after launch")
	}
}

func TestIncreaseInvestmentCaps(t *testing.T) {
	session := NewSession("Merchant Sloop", 5, time.Now())
	session.AddParticipant("u1", "alice", 1000, time.Now())
	session.State = StateMilestone

	if !session.IncreaseInvestment("u1", 1000) {
		t.Fatal("top-up to the cap refused")
	}
	if session.IncreaseInvestment("u1", 100) {
		t.Fatal("investment above per-raid cap accepted")
	}
	if got := session.Participants["u1"].TotalInvestment; got != MaxTotalInvestment {
		t.Fatalf("total investment = %d, want %d", got, MaxTotalInvestment)
	}
	if session.IncreaseInvestment("ghost", 100) {
		t.Fatal("top-up for non-participant accepted")
	}
}

func TestCheckMilestoneMonotone(t *testing.T) {
	session := NewSession("Merchant Sloop", 5, time.Now())
	for i, user := range []string{"a", "b"} {
		session.AddParticipant(user, user, 100, time.Now())
		if m := session.CheckMilestone(); m != nil {
			t.Fatalf("milestone reached at %d participants", i+1)
		}
	}

	session.AddParticipant("c", "c", 100, time.Now())
	m := session.CheckMilestone()
	if m == nil || m.Threshold != 3 {
		t.Fatalf("expected threshold-3 milestone, got %+v", m)
	}
	if session.CurrentMultiplier != 1.8 {
		t.Fatalf("multiplier = %v, want 1.8", session.CurrentMultiplier)
	}

	// Re-checking with no new crew must not move the multiplier.
	if m := session.CheckMilestone(); m != nil {
		t.Fatalf("milestone re-applied: %+v", m)
	}

	session.AddParticipant("d", "d", 100, time.Now())
	session.AddParticipant("e", "e", 100, time.Now())
	m = session.CheckMilestone()
	if m == nil || m.Multiplier != 2.0 {
		t.Fatalf("expected multiplier 2.0 milestone, got %+v", m)
	}

	// The multiplier never decreases.
	delete(session.Participants, "e")
	delete(session.Participants, "d")
	if m := session.CheckMilestone(); m != nil {
		t.Fatalf("milestone applied after crew shrank: %+v", m)
	}
	if session.CurrentMultiplier != 2.0 {
		t.Fatalf("multiplier decreased to %v", session.CurrentMultiplier)
	}
}

func TestRewardsFloor(t *testing.T) {
	session := NewSession("Merchant Sloop", 5, time.Now())
	session.AddParticipant("u1", "alice", 105, time.Now())
	session.AddParticipant("u2", "bob", 333, time.Now())

	rewards := session.Rewards()
	if rewards["u1"] != 157 { // floor(105 * 1.5)
		t.Fatalf("reward u1 = %d, want 157", rewards["u1"])
	}
	if rewards["u2"] != 499 { // floor(333 * 1.5)
		t.Fatalf("reward u2 = %d, want 499", rewards["u2"])
	}
}

func TestSnapshotTimeRemaining(t *testing.T) {
	start := time.Now()
	session := NewSession("Merchant Sloop", 5, start)

	snap := session.Snapshot(start.Add(30*time.Second), 120*time.Second, 30*time.Second)
	if snap.TimeRemaining != 90*time.Second {
		t.Fatalf("time remaining = %s, want 90s", snap.TimeRemaining)
	}

	snap = session.Snapshot(start.Add(5*time.Minute), 120*time.Second, 30*time.Second)
	if snap.TimeRemaining != 0 {
		t.Fatalf("time remaining past deadline = %s, want 0", snap.TimeRemaining)
	}

	if snap.NextMilestone == nil || snap.NextMilestone.Threshold != 3 {
		t.Fatalf("unexpected next milestone: %+v", snap.NextMilestone)
	}
}

func TestShipTypeForTiers(t *testing.T) {
	cases := []struct {
		viewers int
		names   []string
	}{
		{5, shipTiers[0].names},
		{10, shipTiers[0].names},
		{11, shipTiers[1].names},
		{30, shipTiers[1].names},
		{100, shipTiers[2].names},
		{500, shipTiers[3].names},
	}
	for _, tc := range cases {
		ship := ShipTypeFor(tc.viewers, nil)
		found := false
		for _, name := range tc.names {
			if ship == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("ShipTypeFor(%d) = %q, not in expected tier", tc.viewers, ship)
		}
	}
}
