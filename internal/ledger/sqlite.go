package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"corsair/internal/config"
)

// Store is a SQLite-backed ledger. Balances live in user_points and every
// debit or credit appends a row to point_transactions.
type Store struct {
	db   *sql.DB
	path string
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS user_points (
    user_id TEXT PRIMARY KEY,
    balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS point_transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    reason TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_point_transactions_user
    ON point_transactions(user_id, created_at);
`

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "ledger.db")
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

	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Balance returns the user's current point balance. Unknown users have a
// zero balance.
func (s *Store) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM user_points WHERE user_id = ?`, userID,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// Debit removes amount from the user's balance. The conditional UPDATE makes
// the balance check and the withdrawal a single atomic statement.
func (s *Store) Debit(ctx context.Context, userID string, amount int, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin debit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE user_points SET balance = balance - ?, updated_at = ?
         WHERE user_id = ? AND balance >= ?`,
		amount, now, userID, amount,
	)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %s needs %d", ErrInsufficientFunds, userID, amount)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO point_transactions (user_id, amount, reason, created_at)
         VALUES (?, ?, ?, ?)`,
		userID, -amount, reason, now,
	); err != nil {
		return fmt.Errorf("record debit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit debit: %w", err)
	}
	return nil
}

// Credit adds amount to the user's balance, creating the row if needed.
func (s *Store) Credit(ctx context.Context, userID string, amount int, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_points (user_id, balance, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(user_id) DO UPDATE SET
             balance = balance + excluded.balance,
             updated_at = excluded.updated_at`,
		userID, amount, now,
	); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO point_transactions (user_id, amount, reason, created_at)
         VALUES (?, ?, ?, ?)`,
		userID, amount, reason, now,
	); err != nil {
		return fmt.Errorf("record credit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credit: %w", err)
	}
	return nil
}

// Transactions returns the most recent ledger entries for a user, newest
// first.
func (s *Store) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, amount, reason, created_at
         FROM point_transactions WHERE user_id = ?
         ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var entries []Transaction
	for rows.Next() {
		var entry Transaction
		var created string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Amount, &entry.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		entry.CreatedAt = parseTimeString(created)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return entries, nil
}

// Transaction is one debit or credit applied to a user balance.
type Transaction struct {
	ID        int64
	UserID    string
	Amount    int
	Reason    string
	CreatedAt time.Time
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
