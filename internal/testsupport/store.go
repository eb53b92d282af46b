package testsupport

import (
	"testing"

	"corsair/internal/config"
	"corsair/internal/history"
	"corsair/internal/ledger"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenLedger opens a SQLite ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeededLedger builds an in-memory ledger with the given balances.
func SeededLedger(balances map[string]int) *ledger.Memory {
	mem := ledger.NewMemory()
	for userID, balance := range balances {
		mem.Seed(userID, balance)
	}
	return mem
}
