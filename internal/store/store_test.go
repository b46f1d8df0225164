package store

import (
	"errors"
	"testing"

	"expresso/internal/core"
)

func loadAll(t *testing.T, s *Store) {
	t.Helper()
	if err := s.ReplaceAccounts([]core.Account{{ID: 1, Name: "Carteira", Kind: core.Wallet, Balance: core.Cents(1000)}, {ID: 9, Name: "Viagem", Kind: core.GoalVault, Balance: core.Cents(4000)}}); err != nil {
		t.Fatalf("replace accounts: %v", err)
	}
	if err := s.ReplaceCategories([]core.Category{{ID: 1, Name: core.TransferCategoryName, Default: true}, {ID: 2, Name: "Mercado"}}); err != nil {
		t.Fatalf("replace categories: %v", err)
	}
	if err := s.ReplaceTransactions(nil); err != nil {
		t.Fatalf("replace transactions: %v", err)
	}
	if err := s.ReplaceGoals([]core.Goal{{ID: 3, Name: "Viagem", Target: core.Cents(10000), VaultAccountID: 9}}); err != nil {
		t.Fatalf("replace goals: %v", err)
	}
}

func TestSnapshotFailsClosedUntilAllReady(t *testing.T) {
	s := New()
	if _, err := s.Snapshot(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	s.MarkLoading(Accounts)
	_ = s.ReplaceAccounts(nil)
	_ = s.ReplaceCategories(nil)
	_ = s.ReplaceTransactions(nil)
	if _, err := s.Snapshot(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("three of four collections must still be not ready, got %v", err)
	}
	if s.Ready() {
		t.Fatalf("Ready() = true with goals never loaded")
	}

	_ = s.ReplaceGoals(nil)
	if _, err := s.Snapshot(); err != nil {
		t.Fatalf("snapshot after full load: %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	s := New()
	if got := s.Status(Goals); got != Idle {
		t.Fatalf("initial status = %s", got)
	}
	s.MarkLoading(Goals)
	if got := s.Status(Goals); got != Loading {
		t.Fatalf("status = %s, want loading", got)
	}
	s.MarkFailed(Goals, errors.New("boom"))
	if got := s.Status(Goals); got != Failed || s.Err(Goals) == nil {
		t.Fatalf("status = %s err=%v, want error", got, s.Err(Goals))
	}
	_ = s.ReplaceGoals(nil)
	if got := s.Status(Goals); got != Ready || s.Err(Goals) != nil {
		t.Fatalf("status = %s err=%v, want ready", got, s.Err(Goals))
	}
}

func TestFailedReloadKeepsDataAndMarksStale(t *testing.T) {
	s := New()
	loadAll(t, s)
	s.MarkFailed(Transactions, errors.New("timeout"))

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.IsStale(Transactions) || snap.IsStale(Accounts) {
		t.Fatalf("unexpected stale set %v", snap.Stale)
	}
	if len(snap.Accounts()) != 2 {
		t.Fatalf("accounts lost after failed reload of another collection")
	}
}

func TestReplaceCopiesInput(t *testing.T) {
	s := New()
	loadAll(t, s)
	in := []core.Category{{ID: 7, Name: "Lazer"}}
	_ = s.ReplaceCategories(in)
	in[0].Name = "mutated"

	snap, _ := s.Snapshot()
	c, ok := snap.Category(7)
	if !ok || c.Name != "Lazer" {
		t.Fatalf("store aliased caller slice: %+v", c)
	}

	out := snap.Categories()
	out[0].Name = "mutated again"
	if c, _ := snap.Category(7); c.Name != "Lazer" {
		t.Fatalf("snapshot accessor leaked internal slice")
	}
}

func TestSnapshotCachedPerVersion(t *testing.T) {
	s := New()
	loadAll(t, s)
	a, _ := s.Snapshot()
	b, _ := s.Snapshot()
	if a != b {
		t.Fatalf("expected the same snapshot for an unchanged version")
	}
	_ = s.ReplaceTransactions(nil)
	c, _ := s.Snapshot()
	if c == a || c.Version <= a.Version {
		t.Fatalf("expected a new snapshot after replace (old v%d new v%d)", a.Version, c.Version)
	}
}

func TestSavedAmountReadsVaultBalance(t *testing.T) {
	s := New()
	loadAll(t, s)
	snap, _ := s.Snapshot()
	g, ok := snap.Goal(3)
	if !ok {
		t.Fatalf("goal missing")
	}
	if got := snap.SavedAmount(g); got.Cents != 4000 {
		t.Fatalf("saved = %d, want 4000", got.Cents)
	}
	if owner, ok := snap.GoalByVault(9); !ok || owner.ID != 3 {
		t.Fatalf("GoalByVault(9) = %+v, %v", owner, ok)
	}
	if got := snap.SavedAmount(core.Goal{VaultAccountID: 404}); !got.IsZero() {
		t.Fatalf("missing vault must read as zero, got %d", got.Cents)
	}
}

func TestIsTransferLeg(t *testing.T) {
	s := New()
	loadAll(t, s)
	snap, _ := s.Snapshot()
	if !snap.IsTransferLeg(core.Transaction{CategoryID: 1}) {
		t.Fatalf("transfer category leg not detected")
	}
	if snap.IsTransferLeg(core.Transaction{CategoryID: 2}) {
		t.Fatalf("regular category flagged as transfer")
	}
	if !snap.IsTransferLeg(core.Transaction{CategoryID: 99, CategoryName: core.TransferCategoryName}) {
		t.Fatalf("unknown category must fall back to the reported name")
	}
}

func TestSubscribeAndClose(t *testing.T) {
	s := New()
	events, cancel := s.Subscribe()
	defer cancel()

	_ = s.ReplaceAccounts(nil)
	_ = s.ReplaceAccounts(nil) // coalesced, must not block
	ev := <-events
	if ev.Collection != Accounts || ev.Version == 0 {
		t.Fatalf("unexpected event %+v", ev)
	}

	s.Close()
	if _, ok := <-events; ok {
		// drain a coalesced event if one was pending
		if _, ok := <-events; ok {
			t.Fatalf("channel not closed after Close")
		}
	}
	if err := s.ReplaceGoals(nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	cancel() // safe after Close
}
