package history

import (
	"time"

	"corsair/internal/raid"
)

// Outcome describes how a recorded raid ended.
type Outcome string

const (
	OutcomeCompleted     Outcome = "completed"
	OutcomeAutoCompleted Outcome = "auto_completed"
	OutcomeCanceled      Outcome = "canceled"
	OutcomeFailed        Outcome = "failed"
)

// Record is one raid row. Live sessions have a nil EndTime and carry their
// current engine state in Status; terminal rows carry an Outcome value.
type Record struct {
	ID              string
	ShipType        string
	ViewerCount     int
	RequiredCrew    int
	BaseMultiplier  float64
	FinalMultiplier float64
	TotalInvested   int
	TotalRewards    int
	Status          string
	FailureReason   string
	StartTime       time.Time
	EndTime         *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Participants []ParticipantRecord
}

// Live reports whether the row belongs to a session that never reached a
// terminal update.
func (r *Record) Live() bool {
	return r != nil && r.EndTime == nil
}

// State interprets a live row's status column as an engine state.
func (r *Record) State() (raid.State, bool) {
	if !r.Live() {
		return "", false
	}
	return raid.ParseState(r.Status)
}

// ParticipantRecord is one crew member row for a raid.
type ParticipantRecord struct {
	RaidID            string
	UserID            string
	Username          string
	InitialInvestment int
	TotalInvestment   int
	Reward            int
	JoinTime          time.Time
}

// PlayerStats aggregates a user's raid activity.
type PlayerStats struct {
	UserID        string
	Username      string
	RaidsJoined   int
	RaidsWon      int
	TotalInvested int
	TotalRewarded int
	LastRaidAt    *time.Time
}

const recordColumns = `id, ship_type, viewer_count, required_crew, base_multiplier,
    final_multiplier, total_invested, total_rewards, status, failure_reason,
    start_time, end_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec           Record
		failureReason *string
		startTime     string
		endTime       *string
		createdAt     string
		updatedAt     string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.ShipType,
		&rec.ViewerCount,
		&rec.RequiredCrew,
		&rec.BaseMultiplier,
		&rec.FinalMultiplier,
		&rec.TotalInvested,
		&rec.TotalRewards,
		&rec.Status,
		&failureReason,
		&startTime,
		&endTime,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	if failureReason != nil {
		rec.FailureReason = *failureReason
	}
	rec.StartTime = parseTimeString(startTime)
	if endTime != nil {
		parsed := parseTimeString(*endTime)
		rec.EndTime = &parsed
	}
	rec.CreatedAt = parseTimeString(createdAt)
	rec.UpdatedAt = parseTimeString(updatedAt)
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed
	}
	return time.Time{}
}
