package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process ledger used by tests and by deployments that do
// not persist balances.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[string]int)}
}

// Seed sets a user's balance directly, replacing any existing value.
func (m *Memory) Seed(userID string, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = balance
}

func (m *Memory) Balance(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *Memory) Debit(_ context.Context, userID string, amount int, _ string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[userID] < amount {
		return fmt.Errorf("%w: user %s needs %d", ErrInsufficientFunds, userID, amount)
	}
	m.balances[userID] -= amount
	return nil
}

func (m *Memory) Credit(_ context.Context, userID string, amount int, _ string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amount
	return nil
}
