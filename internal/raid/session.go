package raid

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Investment bounds enforced for the life of a session.
const (
	MinInvestment      = 100
	MaxInvestment      = 1000
	MaxTotalInvestment = 2000
)

// BaseMultiplier is the reward multiplier every session starts at.
const BaseMultiplier = 1.5

// Participant records one user's stake in the current session. Created on
// join, mutated only by invest, removed only with the whole session.
type Participant struct {
	UserID            string
	Username          string
	InitialInvestment int
	TotalInvestment   int
	JoinTime          time.Time
}

// Milestone is a participant-count threshold that raises the reward
// multiplier when crossed.
type Milestone struct {
	Threshold   int
	Multiplier  float64
	Description string
}

// Session is the in-memory aggregate for one raid instance. It owns no locks
// or timers; the engine mutates it while holding its own mutex.
type Session struct {
	ID                string
	ShipType          string
	RequiredCrew      int
	ViewerCount       int
	BaseMultiplier    float64
	CurrentMultiplier float64
	Participants      map[string]*Participant
	Milestones        []Milestone
	State             State
	StartTime         time.Time
}

// NewSession builds a recruiting session sized for the given audience.
func NewSession(shipType string, viewerCount int, now time.Time) *Session {
	return &Session{
		ID:                uuid.NewString(),
		ShipType:          shipType,
		RequiredCrew:      RequiredCrew(viewerCount),
		ViewerCount:       viewerCount,
		BaseMultiplier:    BaseMultiplier,
		CurrentMultiplier: BaseMultiplier,
		Participants:      make(map[string]*Participant),
		Milestones:        MilestonesFor(viewerCount),
		State:             StateRecruiting,
		StartTime:         now.UTC(),
	}
}

// RequiredCrew derives the participant threshold for success from the viewer
// count sampled at session start. Floor of 2 protects very small audiences.
func RequiredCrew(viewerCount int) int {
	if viewerCount < 10 {
		return 2
	}
	crew := int(math.Round(float64(viewerCount) * 0.1))
	if crew < 2 {
		return 2
	}
	return crew
}

// MilestonesFor derives the multiplier table from the viewer count. Small
// audiences get fixed thresholds; larger ones scale with attendance.
// Thresholds and multipliers are strictly increasing.
func MilestonesFor(viewerCount int) []Milestone {
	if viewerCount < 10 {
		return []Milestone{
			{Threshold: 3, Multiplier: 1.8, Description: "Crew growing stronger!"},
			{Threshold: 5, Multiplier: 2.0, Description: "Full crew assembled!"},
		}
	}
	t := int(math.Round(0.1 * float64(viewerCount)))
	if t < 3 {
		t = 3
	}
	return []Milestone{
		{Threshold: t, Multiplier: 1.8, Description: "Initial crew assembled!"},
		{Threshold: t * 3 / 2, Multiplier: 2.0, Description: "Strong crew formed!"},
		{Threshold: t * 2, Multiplier: 2.5, Description: "Legendary crew ready!"},
	}
}

// AddParticipant inserts a new participant. Validation happens before this
// call; this only guards the structural invariants.
func (s *Session) AddParticipant(userID, username string, investment int, now time.Time) bool {
	if !s.State.AcceptsJoin() {
		return false
	}
	if _, exists := s.Participants[userID]; exists {
		return false
	}
	s.Participants[userID] = &Participant{
		UserID:            userID,
		Username:          username,
		InitialInvestment: investment,
		TotalInvestment:   investment,
		JoinTime:          now.UTC(),
	}
	return true
}

// IncreaseInvestment adds to an existing participant's stake during the
// milestone window.
func (s *Session) IncreaseInvestment(userID string, additional int) bool {
	if s.State != StateMilestone {
		return false
	}
	participant, ok := s.Participants[userID]
	if !ok {
		return false
	}
	if participant.TotalInvestment+additional > MaxTotalInvestment {
		return false
	}
	participant.TotalInvestment += additional
	return true
}

// CheckMilestone raises the multiplier to the highest satisfied threshold
// whose multiplier exceeds the current value. The multiplier never
// decreases. Returns the milestone applied, if any.
func (s *Session) CheckMilestone() *Milestone {
	count := len(s.Participants)
	var reached *Milestone
	for i := range s.Milestones {
		m := &s.Milestones[i]
		if count >= m.Threshold && m.Multiplier > s.CurrentMultiplier {
			reached = m
		}
	}
	if reached != nil {
		s.CurrentMultiplier = reached.Multiplier
	}
	return reached
}

// NextMilestone returns the first threshold not yet reached, or nil.
func (s *Session) NextMilestone() *Milestone {
	count := len(s.Participants)
	for i := range s.Milestones {
		if count < s.Milestones[i].Threshold {
			return &s.Milestones[i]
		}
	}
	return nil
}

// Rewards computes floor(total_investment * current_multiplier) per user.
func (s *Session) Rewards() map[string]int {
	rewards := make(map[string]int, len(s.Participants))
	for userID, participant := range s.Participants {
		rewards[userID] = int(math.Floor(float64(participant.TotalInvestment) * s.CurrentMultiplier))
	}
	return rewards
}

// TotalInvested sums every participant's stake.
func (s *Session) TotalInvested() int {
	total := 0
	for _, participant := range s.Participants {
		total += participant.TotalInvestment
	}
	return total
}

// Successful reports whether the crew threshold was met.
func (s *Session) Successful() bool {
	return len(s.Participants) >= s.RequiredCrew
}

// Snapshot is an eventually consistent read-only view of a session.
type Snapshot struct {
	ID                string
	State             State
	ShipType          string
	CurrentCrew       int
	RequiredCrew      int
	ViewerCount       int
	CurrentMultiplier float64
	TotalInvested     int
	StartTime         time.Time
	TimeRemaining     time.Duration
	NextMilestone     *Milestone
}

// Snapshot captures the session for status queries. recruitmentWindow bounds
// the remaining-time computation; milestone windows report their fixed span.
func (s *Session) Snapshot(now time.Time, recruitmentWindow, milestoneWindow time.Duration) Snapshot {
	snap := Snapshot{
		ID:                s.ID,
		State:             s.State,
		ShipType:          s.ShipType,
		CurrentCrew:       len(s.Participants),
		RequiredCrew:      s.RequiredCrew,
		ViewerCount:       s.ViewerCount,
		CurrentMultiplier: s.CurrentMultiplier,
		TotalInvested:     s.TotalInvested(),
		StartTime:         s.StartTime,
	}
	switch s.State {
	case StateRecruiting:
		remaining := recruitmentWindow - now.UTC().Sub(s.StartTime)
		if remaining < 0 {
			remaining = 0
		}
		snap.TimeRemaining = remaining
	case StateMilestone:
		snap.TimeRemaining = milestoneWindow
	}
	if next := s.NextMilestone(); next != nil {
		copied := *next
		snap.NextMilestone = &copied
	}
	return snap
}
