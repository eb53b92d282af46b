package ledger_test

import (
	"context"
	"errors"
	"testing"

	"corsair/internal/ledger"
	"corsair/internal/testsupport"
)

func TestStoreCreditDebitBalance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if balance, err := store.Balance(ctx, "alice"); err != nil || balance != 0 {
		t.Fatalf("fresh balance = %d, %v", balance, err)
	}

	if err := store.Credit(ctx, "alice", 1000, "seed"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.Debit(ctx, "alice", 400, "raid investment"); err != nil {
		t.Fatalf("debit: %v", err)
	}
	balance, err := store.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 600 {
		t.Fatalf("balance = %d, want 600", balance)
	}
}

func TestStoreDebitInsufficientFunds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if err := store.Credit(ctx, "bob", 100, "seed"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	err := store.Debit(ctx, "bob", 101, "raid investment")
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	// The failed debit must not change the balance.
	if balance, _ := store.Balance(ctx, "bob"); balance != 100 {
		t.Fatalf("balance after failed debit = %d, want 100", balance)
	}
	// Debiting an unknown user fails the same way.
	if err := store.Debit(ctx, "ghost", 50, "raid investment"); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("debit unknown user: %v", err)
	}
}

func TestStoreRejectsNonPositiveAmounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if err := store.Credit(ctx, "alice", 0, "seed"); err == nil {
		t.Fatal("zero credit accepted")
	}
	if err := store.Debit(ctx, "alice", -5, "raid investment"); err == nil {
		t.Fatal("negative debit accepted")
	}
}

func TestStoreTransactions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if err := store.Credit(ctx, "alice", 1000, "seed"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := store.Debit(ctx, "alice", 300, "raid investment abc"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	entries, err := store.Transactions(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Amount != -300 || entries[0].Reason != "raid investment abc" {
		t.Fatalf("unexpected newest entry: %+v", entries[0])
	}
	if entries[1].Amount != 1000 {
		t.Fatalf("unexpected oldest entry: %+v", entries[1])
	}
}

func TestMemoryLedger(t *testing.T) {
	mem := ledger.NewMemory()
	mem.Seed("alice", 500)
	ctx := context.Background()

	if err := mem.Debit(ctx, "alice", 500, "raid investment"); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := mem.Debit(ctx, "alice", 1, "raid investment"); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("overdraft: %v", err)
	}
	if err := mem.Credit(ctx, "alice", 750, "raid reward"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if balance, _ := mem.Balance(ctx, "alice"); balance != 750 {
		t.Fatalf("balance = %d, want 750", balance)
	}
}
