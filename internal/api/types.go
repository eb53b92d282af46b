package api

// RaidStatus describes the current session slot in a transport-friendly
// format.
type RaidStatus struct {
	State             string  `json:"state"`
	SessionID         string  `json:"sessionId,omitempty"`
	ShipType          string  `json:"shipType,omitempty"`
	CurrentCrew       int     `json:"currentCrew"`
	RequiredCrew      int     `json:"requiredCrew"`
	ViewerCount       int     `json:"viewerCount"`
	CurrentMultiplier float64 `json:"currentMultiplier"`
	TotalInvested     int     `json:"totalInvested"`
	StartTime         string  `json:"startTime,omitempty"`
	SecondsRemaining  int     `json:"secondsRemaining"`
	NextThreshold     int     `json:"nextThreshold,omitempty"`
	NextMultiplier    float64 `json:"nextMultiplier,omitempty"`
}

// SchedulerStatus reports the automatic raid scheduler's outlook.
type SchedulerStatus struct {
	Enabled           bool    `json:"enabled"`
	Probability       float64 `json:"probability"`
	SecondsSinceLast  int     `json:"secondsSinceLast"`
	SecondsUntilForce int     `json:"secondsUntilForce"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	DataDir      string          `json:"dataDir"`
	LockFilePath string          `json:"lockFilePath"`
	Raid         RaidStatus      `json:"raid"`
	Scheduler    SchedulerStatus `json:"scheduler"`
}

// PlayerStats is a user's aggregate raid record.
type PlayerStats struct {
	UserID        string `json:"userId"`
	Username      string `json:"username,omitempty"`
	RaidsJoined   int    `json:"raidsJoined"`
	RaidsWon      int    `json:"raidsWon"`
	TotalInvested int    `json:"totalInvested"`
	TotalRewarded int    `json:"totalRewarded"`
	LastRaidAt    string `json:"lastRaidAt,omitempty"`
	Balance       int    `json:"balance"`
}

// HistoryEntry is one finished raid.
type HistoryEntry struct {
	ID              string  `json:"id"`
	ShipType        string  `json:"shipType"`
	Status          string  `json:"status"`
	FailureReason   string  `json:"failureReason,omitempty"`
	Crew            int     `json:"crew"`
	RequiredCrew    int     `json:"requiredCrew"`
	FinalMultiplier float64 `json:"finalMultiplier"`
	TotalInvested   int     `json:"totalInvested"`
	TotalRewards    int     `json:"totalRewards"`
	StartTime       string  `json:"startTime,omitempty"`
	EndTime         string  `json:"endTime,omitempty"`
}

// StartRaidRequest asks the daemon to begin a session.
type StartRaidRequest struct {
	ViewerCount int `json:"viewerCount"`
}

// ResetRequest asks the daemon to cancel the current session.
type ResetRequest struct {
	Reason string `json:"reason,omitempty"`
}

// HistoryResponse wraps finished raids for API responses.
type HistoryResponse struct {
	Raids []HistoryEntry `json:"raids"`
}

// LeaderboardResponse wraps ranked player aggregates.
type LeaderboardResponse struct {
	Players []PlayerStats `json:"players"`
}

// MessageResponse carries a single human-readable result line.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
