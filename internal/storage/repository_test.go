package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"expresso/internal/core"
	"expresso/internal/ledger"
	"expresso/internal/remote"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "expresso.db"), nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expresso.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path, nil)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		_ = repo.Close()
	}
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.InsertProfile(ctx, core.Profile{Name: "Ana", Email: "ana@example.com"}, "hash")
	if err != nil || p.ID == 0 {
		t.Fatalf("insert = %+v, %v", p, err)
	}
	got, hash, err := repo.GetProfile(ctx, p.ID)
	if err != nil || got != p || hash != "hash" {
		t.Fatalf("get = %+v %q %v", got, hash, err)
	}
	if _, _, err := repo.GetProfile(ctx, 404); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("missing profile = %v", err)
	}
	fixed, err := repo.InsertProfile(ctx, core.Profile{ID: 50, Name: "Dev", Email: "dev@local"}, "h")
	if err != nil || fixed.ID != 50 {
		t.Fatalf("explicit id = %+v, %v", fixed, err)
	}
}

func TestTransferLegsArePaired(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p, _ := repo.InsertProfile(ctx, core.Profile{Name: "Ana", Email: "a@b.c"}, "h")
	a, _ := repo.InsertAccount(ctx, core.Account{OwnerID: p.ID, Name: "Nubank", Kind: core.Checking, OpeningBalance: core.Cents(1000)})
	g, err := repo.InsertGoal(ctx, core.Goal{OwnerID: p.ID, Name: "Viagem", Target: core.Cents(5000), TargetDate: core.NewDate(2025, 1, 1)},
		core.Account{OwnerID: p.ID, Name: "Viagem", Kind: core.GoalVault})
	if err != nil {
		t.Fatalf("insert goal: %v", err)
	}
	at := core.NewTimestamp(2024, 5, 1, 10, 30)
	d, c, err := repo.InsertTransfer(ctx,
		core.Transaction{OwnerID: p.ID, AccountID: a.ID, CategoryID: 1, Amount: core.Cents(-300), Description: "para", OperatedAt: at},
		core.Transaction{OwnerID: p.ID, AccountID: g.VaultAccountID, CategoryID: 1, Amount: core.Cents(300), Description: "de", OperatedAt: at})
	if err != nil || d.ID == 0 || c.ID == 0 || d.ID == c.ID {
		t.Fatalf("transfer = %d/%d, %v", d.ID, c.ID, err)
	}

	got, err := repo.GetTransaction(ctx, p.ID, c.ID)
	if err != nil || !got.OperatedAt.Equal(at.Time) || got.Amount.Cents != 300 {
		t.Fatalf("credit leg = %+v, %v", got, err)
	}

	ids, err := repo.DeleteTransaction(ctx, p.ID, d.ID)
	if err != nil || len(ids) != 2 {
		t.Fatalf("delete = %v, %v", ids, err)
	}
	left, _ := repo.ListTransactions(ctx, p.ID)
	if len(left) != 0 {
		t.Fatalf("legs left: %+v", left)
	}
	if _, err := repo.DeleteTransaction(ctx, p.ID, d.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("second delete = %v", err)
	}
}

func TestCategoryUpdateAndDeleteScopedByOwner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p, _ := repo.InsertProfile(ctx, core.Profile{Name: "Ana", Email: "a@b.c"}, "h")
	other, _ := repo.InsertProfile(ctx, core.Profile{Name: "Bia", Email: "b@b.c"}, "h")
	c, _ := repo.InsertCategory(ctx, core.Category{OwnerID: p.ID, Name: "Pets"})

	if err := repo.UpdateCategory(ctx, core.Category{ID: c.ID, OwnerID: other.ID, Name: "x"}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("cross-owner update = %v", err)
	}
	if err := repo.DeleteCategory(ctx, other.ID, c.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("cross-owner delete = %v", err)
	}
	if err := repo.DeleteCategory(ctx, p.ID, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

// The ledger service runs unchanged on top of SQLite.
func TestLedgerServiceOverSQLite(t *testing.T) {
	ctx := context.Background()
	svc := ledger.NewService(newTestRepo(t))
	p, err := svc.RegisterOwner(ctx, core.Profile{Name: "Ana", Email: "a@b.c"}, "segredo1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	acct, err := svc.CreateAccount(ctx, remote.AccountRequest{OwnerID: p.ID, Name: "Nubank", Kind: core.Checking, OpeningBalance: core.Cents(5000)})
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	goal, err := svc.CreateGoal(ctx, remote.GoalRequest{OwnerID: p.ID, Name: "Viagem", Target: core.Cents(10000), TargetDate: core.NewDate(2025, 6, 1)})
	if err != nil {
		t.Fatalf("goal: %v", err)
	}
	if _, err := svc.CreateTransfer(ctx, remote.TransferRequest{OwnerID: p.ID, SourceID: acct.ID, DestinationID: goal.VaultAccountID, Amount: core.Cents(2000), OperatedAt: core.NewTimestamp(2024, 1, 2, 8, 0)}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	accounts, err := svc.ListAccounts(ctx, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	balances := map[int64]int64{}
	for _, a := range accounts {
		balances[a.ID] = a.Balance.Cents
	}
	if balances[acct.ID] != 3000 || balances[goal.VaultAccountID] != 2000 {
		t.Fatalf("balances = %v", balances)
	}
	if err := svc.DeleteProfile(ctx, p.ID, "segredo1"); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	if left, _ := svc.ListAccounts(ctx, p.ID); len(left) != 0 {
		t.Fatalf("accounts left after owner deletion: %v", left)
	}
}
