package aggregate

import (
	"encoding/json"
	"testing"

	"expresso/internal/core"
	"expresso/internal/remote"
	"expresso/internal/store"
)

const (
	walletID   = 1
	checkingID = 2
	vaultID    = 9

	transferCat = 1
	foodCat     = 2
	salaryCat   = 3
	foodTwinCat = 4
)

func fixture(txs ...core.Transaction) *store.Snapshot {
	var walletSum, checkingSum, vaultSum core.Money
	for _, tx := range txs {
		switch tx.AccountID {
		case walletID:
			walletSum = walletSum.Add(tx.Amount)
		case checkingID:
			checkingSum = checkingSum.Add(tx.Amount)
		case vaultID:
			vaultSum = vaultSum.Add(tx.Amount)
		}
	}
	accounts := []core.Account{
		{ID: walletID, Name: "Wallet", Kind: core.Wallet, OpeningBalance: core.Cents(10000), Balance: core.Cents(10000).Add(walletSum)},
		{ID: checkingID, Name: "Nubank", Kind: core.Checking, Balance: checkingSum},
		{ID: vaultID, Name: "Viagem", Kind: core.GoalVault, Balance: vaultSum},
	}
	categories := []core.Category{
		{ID: transferCat, Name: core.TransferCategoryName, Default: true},
		{ID: foodCat, Name: "Mercado"},
		{ID: salaryCat, Name: "Salário"},
		{ID: foodTwinCat, Name: "Mercado"},
	}
	goals := []core.Goal{{ID: 5, Name: "Viagem", Target: core.Cents(20000), VaultAccountID: vaultID}}
	return store.NewSnapshot(1, accounts, categories, txs, goals)
}

func tx(id, account, category, cents int64, y, m, d, h int) core.Transaction {
	return core.Transaction{
		ID: id, AccountID: account, CategoryID: category, Amount: core.Cents(cents),
		Description: "t", OperatedAt: core.NewTimestamp(y, m, d, h, 0),
	}
}

func transfer(id, from, to, cents int64, y, m, d int) []core.Transaction {
	return []core.Transaction{
		tx(id, from, transferCat, -cents, y, m, d, 10),
		tx(id+1, to, transferCat, cents, y, m, d, 10),
	}
}

func TestWalletScenario(t *testing.T) {
	snap := fixture(
		tx(1, walletID, foodCat, -3000, 2024, 1, 5, 12),
		tx(2, walletID, salaryCat, 5000, 2024, 1, 10, 9),
	)
	a, _ := snap.Account(walletID)
	if a.Balance.Cents != 12000 {
		t.Fatalf("balance = %s, want 120.00", a.Balance)
	}
	jan := MonthFilter(2024, 1)
	b := Breakdown(snap, jan)
	if len(b.Expenses) != 1 || b.Expenses.Get(foodCat).Cents != 3000 {
		t.Fatalf("expenses = %+v", b.Expenses)
	}
	if b.Receipts.Get(salaryCat).Cents != 5000 {
		t.Fatalf("receipts = %+v", b.Receipts)
	}
	if drift := Reconcile(snap); len(drift) != 0 {
		t.Fatalf("unexpected drift %+v", drift)
	}
}

func TestTransferToGoalScenario(t *testing.T) {
	before := fixture(tx(1, walletID, foodCat, -3000, 2024, 1, 5, 12))
	legs := transfer(10, walletID, vaultID, 4000, 2024, 1, 12)
	after := fixture(append([]core.Transaction{tx(1, walletID, foodCat, -3000, 2024, 1, 5, 12)}, legs...)...)

	g, _ := after.Goal(5)
	if d := after.SavedAmount(g).Sub(before.SavedAmount(g)); d.Cents != 4000 {
		t.Fatalf("saved grew by %s", d)
	}
	wb, _ := before.Account(walletID)
	wa, _ := after.Account(walletID)
	if d := wb.Balance.Sub(wa.Balance); d.Cents != 4000 {
		t.Fatalf("wallet dropped by %s", d)
	}

	f := MonthFilter(2024, 1)
	f.IncludeVaults = true
	b := Breakdown(after, f)
	if b.Receipts.Get(transferCat).Cents != 0 || b.Expenses.Get(transferCat).Cents != 0 {
		t.Fatalf("transfer legs leaked into breakdown: %+v", b)
	}
	totals := PeriodTotals(after, f)
	if totals.Receipts.Cents != 0 || totals.Expenses.Cents != 3000 || totals.Net.Cents != -3000 {
		t.Fatalf("totals = %+v", totals)
	}
	if drift := Reconcile(after); len(drift) != 0 {
		t.Fatalf("unexpected drift %+v", drift)
	}
}

func TestTransferLegsExcludedWithoutDefaultFlag(t *testing.T) {
	var dtos []remote.CategoryDTO
	body := `[{"id":1,"clienteId":1,"nome":"Transferências"},{"id":2,"clienteId":1,"nome":"Mercado"}]`
	if err := json.Unmarshal([]byte(body), &dtos); err != nil {
		t.Fatal(err)
	}
	categories := make([]core.Category, 0, len(dtos))
	for _, d := range dtos {
		categories = append(categories, d.Category())
	}
	accounts := []core.Account{
		{ID: walletID, Name: "Wallet", Kind: core.Wallet, Balance: core.Cents(-4000)},
		{ID: checkingID, Name: "Nubank", Kind: core.Checking, Balance: core.Cents(4000)},
	}
	snap := store.NewSnapshot(1, accounts, categories, transfer(10, walletID, checkingID, 4000, 2024, 1, 12), nil)

	f := MonthFilter(2024, 1)
	b := Breakdown(snap, f)
	if len(b.Receipts) != 0 || len(b.Expenses) != 0 {
		t.Fatalf("transfer legs leaked into breakdown: receipts=%v expenses=%v", b.Receipts, b.Expenses)
	}
	if totals := PeriodTotals(snap, f); !totals.Receipts.IsZero() || !totals.Expenses.IsZero() {
		t.Fatalf("totals = %+v", totals)
	}
}

func TestBreakdownKeyedByIDNotName(t *testing.T) {
	snap := fixture(
		tx(1, walletID, foodCat, -1000, 2024, 1, 5, 12),
		tx(2, walletID, foodTwinCat, -2500, 2024, 1, 6, 12),
		tx(3, walletID, 404, -700, 2024, 1, 7, 12),
	)
	b := Breakdown(snap, MonthFilter(2024, 1))
	if len(b.Expenses) != 3 || b.Expenses.Total().Cents != 4200 {
		t.Fatalf("expenses = %+v", b.Expenses)
	}
	named := b.Expenses.Named(snap)
	want := []core.CategoryAmount{
		{Name: "Mercado", Amount: core.Cents(2500)},
		{Name: "Mercado", Amount: core.Cents(1000)},
		{Name: UncategorizedName, Amount: core.Cents(700)},
	}
	for i, w := range want {
		if named[i] != w {
			t.Fatalf("row %d = %+v, want %+v", i, named[i], w)
		}
	}
}

func TestFilterBoundsAndAccounts(t *testing.T) {
	snap := fixture(
		tx(1, walletID, foodCat, -1000, 2024, 1, 1, 0),
		tx(2, walletID, foodCat, -1000, 2024, 1, 31, 23),
		tx(3, walletID, foodCat, -1000, 2024, 2, 1, 0),
		tx(4, checkingID, foodCat, -500, 2024, 1, 15, 8),
	)
	jan := MonthFilter(2024, 1)
	if got := PeriodTotals(snap, jan).Expenses.Cents; got != 2500 {
		t.Fatalf("january expenses = %d", got)
	}
	if got := PeriodTotals(snap, jan.WithAccount(checkingID)).Expenses.Cents; got != 500 {
		t.Fatalf("checking expenses = %d", got)
	}
	if got := PeriodTotals(snap, Filter{}).Expenses.Cents; got != 3500 {
		t.Fatalf("unbounded expenses = %d", got)
	}
}

func TestBalanceEvolution(t *testing.T) {
	snap := fixture(
		tx(1, walletID, foodCat, -2000, 2023, 12, 20, 9),
		tx(2, walletID, foodCat, -3000, 2024, 1, 5, 12),
		tx(3, walletID, salaryCat, 5000, 2024, 1, 10, 9),
		tx(4, walletID, foodCat, -1000, 2024, 1, 10, 18),
	)
	f := MonthFilter(2024, 1).WithAccount(walletID)
	s := BalanceEvolution(snap, f)
	if s.Opening.Cents != 8000 {
		t.Fatalf("opening = %s", s.Opening)
	}
	want := []Point{
		{Label: StartLabel, Balance: core.Cents(8000)},
		{Label: "05/01", Day: core.NewDate(2024, 1, 5), Balance: core.Cents(5000)},
		{Label: "10/01", Day: core.NewDate(2024, 1, 10), Balance: core.Cents(9000)},
	}
	if len(s.Points) != len(want) {
		t.Fatalf("points = %+v", s.Points)
	}
	for i, w := range want {
		p := s.Points[i]
		if p.Label != w.Label || p.Balance != w.Balance || !p.Day.Equal(w.Day.Time) {
			t.Fatalf("point %d = %+v, want %+v", i, p, w)
		}
	}
	if s.Closing().Cents != 9000 {
		t.Fatalf("closing = %s", s.Closing())
	}

	again := BalanceEvolution(snap, f)
	if len(again.Points) != len(s.Points) || again.Opening != s.Opening {
		t.Fatalf("not idempotent")
	}
	for i := range s.Points {
		if again.Points[i] != s.Points[i] {
			t.Fatalf("not idempotent at %d", i)
		}
	}
}

func TestBalanceEvolutionEmptyWindow(t *testing.T) {
	snap := fixture(tx(1, walletID, foodCat, -2000, 2023, 12, 20, 9))
	s := BalanceEvolution(snap, MonthFilter(2024, 3))
	if len(s.Points) != 1 || s.Points[0].Balance != s.Opening || s.Opening.Cents != 8000 {
		t.Fatalf("series = %+v", s)
	}
}

func TestProgressBounds(t *testing.T) {
	cases := []struct {
		saved, target int64
		want          float64
	}{
		{0, 0, 0},
		{500, 0, 0},
		{500, -100, 0},
		{-500, 1000, 0},
		{250, 1000, 25},
		{1000, 1000, 100},
		{5000, 1000, 100},
	}
	for _, tc := range cases {
		if got := Progress(core.Cents(tc.saved), core.Cents(tc.target)); got != tc.want {
			t.Errorf("Progress(%d, %d) = %v, want %v", tc.saved, tc.target, got, tc.want)
		}
	}
}

func TestProgressMonotonic(t *testing.T) {
	target := core.Cents(20000)
	saved := core.Money{}
	prev := Progress(saved, target)
	for i := 0; i < 10; i++ {
		saved = saved.Add(core.Cents(3000))
		p := Progress(saved, target)
		if p < prev || p > 100 {
			t.Fatalf("deposit %d: %v after %v", i, p, prev)
		}
		prev = p
	}
	for i := 0; i < 10; i++ {
		saved = saved.Sub(core.Cents(3000))
		p := Progress(saved, target)
		if p > prev || p < 0 {
			t.Fatalf("withdrawal %d: %v after %v", i, p, prev)
		}
		prev = p
	}
}

func TestGoalsViewReadsVault(t *testing.T) {
	snap := fixture(transfer(10, walletID, vaultID, 5000, 2024, 1, 12)...)
	views := Goals(snap)
	if len(views) != 1 {
		t.Fatalf("views = %+v", views)
	}
	v := views[0]
	if v.Saved.Cents != 5000 || v.Remaining.Cents != 15000 || v.Percent != 25 || v.Reached() {
		t.Fatalf("view = %+v", v)
	}
}

func TestReportUsesOriginalFormulas(t *testing.T) {
	snap := fixture(append([]core.Transaction{
		tx(1, walletID, foodCat, -3000, 2024, 1, 5, 12),
		tx(2, walletID, salaryCat, 5000, 2024, 1, 10, 9),
	}, transfer(10, walletID, vaultID, 4000, 2024, 1, 12)...)...)

	r := Report(snap, MonthFilter(2024, 1))
	if r.Opening.Cents != 10000 || r.Receipts.Cents != 5000 || r.Expenses.Cents != 3000 {
		t.Fatalf("report = %+v", r)
	}
	// closing follows the money: 100 - 30 + 50 - 40
	if r.Closing.Cents != 8000 {
		t.Fatalf("closing = %s", r.Closing)
	}
	if len(r.Transactions) != 3 || !r.Transactions[2].Transfer || r.Transactions[0].Category != "Mercado" {
		t.Fatalf("transactions = %+v", r.Transactions)
	}
}

func TestRecentJoinsNames(t *testing.T) {
	snap := fixture(
		tx(1, walletID, foodCat, -3000, 2024, 1, 5, 12),
		tx(2, 77, salaryCat, 5000, 2024, 1, 10, 9),
		tx(3, walletID, foodCat, -100, 2024, 1, 10, 9),
	)
	got := Recent(snap, 2)
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("order = %+v", got)
	}
	if got[1].Account != DeletedAccountName {
		t.Fatalf("missing account shown as %q", got[1].Account)
	}
	if len(Recent(snap, 0)) != 3 {
		t.Fatalf("n <= 0 must return everything")
	}
}

func TestTransferDestinations(t *testing.T) {
	snap := fixture()
	got := TransferDestinations(snap, walletID)
	if len(got) != 2 {
		t.Fatalf("destinations = %+v", got)
	}
	if got[0].AccountID != checkingID || got[0].GoalID != 0 {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].AccountID != vaultID || got[1].GoalID != 5 || got[1].Name != "Viagem" {
		t.Fatalf("goal destination = %+v", got[1])
	}

	fromVault := TransferDestinations(snap, vaultID)
	for _, d := range fromVault {
		if d.AccountID == vaultID {
			t.Fatalf("source listed as destination")
		}
	}
}

func TestReconcileFindsDrift(t *testing.T) {
	accounts := []core.Account{{ID: 1, Name: "W", Kind: core.Wallet, OpeningBalance: core.Cents(100), Balance: core.Cents(500)}}
	snap := store.NewSnapshot(1, accounts, nil, []core.Transaction{tx(1, 1, foodCat, 300, 2024, 1, 1, 0)}, nil)
	drift := Reconcile(snap)
	if len(drift) != 1 || drift[0].Computed.Cents != 400 || drift[0].Delta.Cents != 100 {
		t.Fatalf("drift = %+v", drift)
	}
}
