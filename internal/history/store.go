package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"corsair/internal/config"
	"corsair/internal/raid"
)

// Store manages raid history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and verifies the
// schema version.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartSession records a session the moment it begins recruiting. The row
// has no end_time until a terminal update, so crash recovery can find it.
func (s *Store) StartSession(ctx context.Context, session *raid.Session) error {
	if session == nil {
		return errors.New("session is nil")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO raid_history (
            id, ship_type, viewer_count, required_crew, base_multiplier,
            final_multiplier, total_invested, total_rewards, status,
            failure_reason, start_time, end_time, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		session.ID,
		session.ShipType,
		session.ViewerCount,
		session.RequiredCrew,
		session.BaseMultiplier,
		session.CurrentMultiplier,
		session.TotalInvested(),
		0,
		string(session.State),
		nil,
		session.StartTime.UTC().Format(time.RFC3339Nano),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// UpdateState stores the session's current state and multiplier on its live
// row.
func (s *Store) UpdateState(ctx context.Context, sessionID string, state raid.State, multiplier float64, totalInvested int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE raid_history
         SET status = ?, final_multiplier = ?, total_invested = ?, updated_at = ?
         WHERE id = ? AND end_time IS NULL`,
		string(state), multiplier, totalInvested, now, sessionID,
	)
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	return nil
}

// UpsertParticipant records a crew member join or investment increase.
func (s *Store) UpsertParticipant(ctx context.Context, sessionID string, p *raid.Participant) error {
	if p == nil {
		return errors.New("participant is nil")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO raid_participants (
            raid_id, user_id, username, initial_investment, total_investment,
            reward, join_time
        ) VALUES (?, ?, ?, ?, ?, 0, ?)
        ON CONFLICT(raid_id, user_id) DO UPDATE SET
            total_investment = excluded.total_investment`,
		sessionID,
		p.UserID,
		p.Username,
		p.InitialInvestment,
		p.TotalInvestment,
		p.JoinTime.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// FinishSession closes a session row with its outcome, stores per-user
// rewards, and folds the results into player_raid_stats. All of it commits
// in one transaction so settlement is recorded exactly once.
func (s *Store) FinishSession(ctx context.Context, session *raid.Session, outcome Outcome, reason string, rewards map[string]int) error {
	if session == nil {
		return errors.New("session is nil")
	}
	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339Nano)

	totalRewards := 0
	for _, reward := range rewards {
		totalRewards += reward
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finish tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE raid_history
         SET status = ?, failure_reason = ?, final_multiplier = ?,
             total_invested = ?, total_rewards = ?, end_time = ?, updated_at = ?
         WHERE id = ? AND end_time IS NULL`,
		string(outcome),
		nullableString(reason),
		session.CurrentMultiplier,
		session.TotalInvested(),
		totalRewards,
		stamp,
		stamp,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish rows affected: %w", err)
	}
	if affected == 0 {
		// Already terminal: a retry after a partial failure. Nothing to do.
		return tx.Commit()
	}

	won := outcome == OutcomeCompleted || outcome == OutcomeAutoCompleted
	for _, p := range session.Participants {
		reward := rewards[p.UserID]
		if _, err := tx.ExecContext(ctx,
			`UPDATE raid_participants SET reward = ?, total_investment = ?
             WHERE raid_id = ? AND user_id = ?`,
			reward, p.TotalInvestment, session.ID, p.UserID,
		); err != nil {
			return fmt.Errorf("record reward: %w", err)
		}

		wonIncrement := 0
		if won {
			wonIncrement = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO player_raid_stats (
                user_id, username, raids_joined, raids_won, total_invested,
                total_rewarded, last_raid_at
            ) VALUES (?, ?, 1, ?, ?, ?, ?)
            ON CONFLICT(user_id) DO UPDATE SET
                username = excluded.username,
                raids_joined = raids_joined + 1,
                raids_won = raids_won + excluded.raids_won,
                total_invested = total_invested + excluded.total_invested,
                total_rewarded = total_rewarded + excluded.total_rewarded,
                last_raid_at = excluded.last_raid_at`,
			p.UserID, p.Username, wonIncrement, p.TotalInvestment, reward, stamp,
		); err != nil {
			return fmt.Errorf("update player stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish: %w", err)
	}
	return nil
}

// AbandonSession marks a still-open session failed without touching
// participant rewards. Used by crash recovery, where the refunds happen
// through the ledger rather than settlement.
func (s *Store) AbandonSession(ctx context.Context, sessionID, reason string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE raid_history
         SET status = ?, failure_reason = ?, end_time = ?, updated_at = ?
         WHERE id = ? AND end_time IS NULL`,
		string(OutcomeFailed), nullableString(reason), now, now, sessionID,
	)
	if err != nil {
		return fmt.Errorf("abandon session: %w", err)
	}
	return nil
}

// GetSession fetches a raid row with its participants. Returns nil when the
// session is unknown.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM raid_history WHERE id = ?`, sessionID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := s.attachParticipants(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// OpenSessions returns every row without an end_time, oldest first. After a
// clean shutdown this is empty; after a crash it holds the sessions that
// need recovery.
func (s *Store) OpenSessions(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM raid_history
         WHERE end_time IS NULL ORDER BY start_time`)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan open session: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open sessions: %w", err)
	}

	for _, rec := range records {
		if err := s.attachParticipants(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// RecentSessions returns terminal raid rows, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM raid_history
         WHERE end_time IS NOT NULL ORDER BY end_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recent session: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent sessions: %w", err)
	}

	for _, rec := range records {
		if err := s.attachParticipants(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// PlayerStats returns a user's aggregate raid record. Unknown users get an
// empty record, not an error.
func (s *Store) PlayerStats(ctx context.Context, userID string) (*PlayerStats, error) {
	var (
		stats      PlayerStats
		lastRaidAt *string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, raids_joined, raids_won, total_invested,
                total_rewarded, last_raid_at
         FROM player_raid_stats WHERE user_id = ?`, userID,
	).Scan(
		&stats.UserID,
		&stats.Username,
		&stats.RaidsJoined,
		&stats.RaidsWon,
		&stats.TotalInvested,
		&stats.TotalRewarded,
		&lastRaidAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &PlayerStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player stats: %w", err)
	}
	if lastRaidAt != nil {
		parsed := parseTimeString(*lastRaidAt)
		stats.LastRaidAt = &parsed
	}
	return &stats, nil
}

// TopPlayers returns player aggregates ordered by total rewards earned.
func (s *Store) TopPlayers(ctx context.Context, limit int) ([]*PlayerStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, username, raids_joined, raids_won, total_invested,
                total_rewarded, last_raid_at
         FROM player_raid_stats ORDER BY total_rewarded DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list top players: %w", err)
	}
	defer rows.Close()

	var players []*PlayerStats
	for rows.Next() {
		var (
			stats      PlayerStats
			lastRaidAt *string
		)
		if err := rows.Scan(
			&stats.UserID,
			&stats.Username,
			&stats.RaidsJoined,
			&stats.RaidsWon,
			&stats.TotalInvested,
			&stats.TotalRewarded,
			&lastRaidAt,
		); err != nil {
			return nil, fmt.Errorf("scan player stats: %w", err)
		}
		if lastRaidAt != nil {
			parsed := parseTimeString(*lastRaidAt)
			stats.LastRaidAt = &parsed
		}
		players = append(players, &stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top players: %w", err)
	}
	return players, nil
}

func (s *Store) attachParticipants(ctx context.Context, rec *Record) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT raid_id, user_id, username, initial_investment,
                total_investment, reward, join_time
         FROM raid_participants WHERE raid_id = ? ORDER BY join_time`, rec.ID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p        ParticipantRecord
			joinTime string
		)
		if err := rows.Scan(
			&p.RaidID,
			&p.UserID,
			&p.Username,
			&p.InitialInvestment,
			&p.TotalInvestment,
			&p.Reward,
			&joinTime,
		); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		p.JoinTime = parseTimeString(joinTime)
		rec.Participants = append(rec.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate participants: %w", err)
	}
	return nil
}
