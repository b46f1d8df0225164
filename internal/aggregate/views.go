package aggregate

import (
	"sort"

	"expresso/internal/core"
	"expresso/internal/store"
)

type (
	// TransactionView is a transaction joined with display names.
	TransactionView struct {
		core.Transaction
		Category string
		Account  string
		Transfer bool
	}

	// PeriodReport is everything the report page shows for a window.
	PeriodReport struct {
		Filter       Filter
		Opening      core.Money
		Receipts     core.Money
		Expenses     core.Money
		Closing      core.Money
		Breakdown    CategoryBreakdown
		Transactions []TransactionView
	}

	// Destination is a transfer target. Goal vaults appear only through
	// their goal, with GoalID set.
	Destination struct {
		AccountID int64
		Name      string
		Kind      core.AccountKind
		GoalID    int64
	}

	// Drift is an account whose reported balance disagrees with its opening
	// balance plus its transactions.
	Drift struct {
		Account  core.Account
		Computed core.Money
		Delta    core.Money
	}
)

func view(snap *store.Snapshot, tx core.Transaction) TransactionView {
	v := TransactionView{Transaction: tx, Category: UncategorizedName, Account: DeletedAccountName}
	if c, ok := snap.Category(tx.CategoryID); ok {
		v.Category = c.Name
	}
	if a, ok := snap.Account(tx.AccountID); ok {
		v.Account = a.Name
	}
	v.Transfer = snap.IsTransferLeg(tx)
	return v
}

// Report builds the period report. Closing includes transfer legs, like
// the balance series; the receipt and expense totals do not.
func Report(snap *store.Snapshot, f Filter) PeriodReport {
	series := BalanceEvolution(snap, f)
	totals := PeriodTotals(snap, f)

	txs := f.inRange(snap)
	sortAscending(txs)
	views := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, view(snap, tx))
	}
	return PeriodReport{
		Filter:       f,
		Opening:      series.Opening,
		Receipts:     totals.Receipts,
		Expenses:     totals.Expenses,
		Closing:      series.Closing(),
		Breakdown:    Breakdown(snap, f),
		Transactions: views,
	}
}

// Recent returns the n newest transactions of every account, all of them
// when n <= 0.
func Recent(snap *store.Snapshot, n int) []TransactionView {
	txs := snap.Transactions()
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].OperatedAt.Equal(txs[j].OperatedAt.Time) {
			return txs[i].OperatedAt.After(txs[j].OperatedAt.Time)
		}
		return txs[i].ID > txs[j].ID
	})
	if n > 0 && len(txs) > n {
		txs = txs[:n]
	}
	out := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, view(snap, tx))
	}
	return out
}

// TransferDestinations lists where money from sourceID can go: the other
// plain accounts, then every goal through its vault.
func TransferDestinations(snap *store.Snapshot, sourceID int64) []Destination {
	var out []Destination
	for _, a := range snap.Accounts() {
		if a.ID == sourceID || a.Kind == core.GoalVault {
			continue
		}
		out = append(out, Destination{AccountID: a.ID, Name: a.Name, Kind: a.Kind})
	}
	for _, g := range snap.Goals() {
		if g.VaultAccountID == sourceID {
			continue
		}
		out = append(out, Destination{AccountID: g.VaultAccountID, Name: g.Name, Kind: core.GoalVault, GoalID: g.ID})
	}
	return out
}

// Reconcile checks every account balance against its opening balance plus
// the sum of its transactions.
func Reconcile(snap *store.Snapshot) []Drift {
	sums := map[int64]core.Money{}
	for _, tx := range snap.Transactions() {
		sums[tx.AccountID] = sums[tx.AccountID].Add(tx.Amount)
	}
	var out []Drift
	for _, a := range snap.Accounts() {
		computed := a.OpeningBalance.Add(sums[a.ID])
		if computed != a.Balance {
			out = append(out, Drift{Account: a, Computed: computed, Delta: a.Balance.Sub(computed)})
		}
	}
	return out
}

func sortAscending(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].OperatedAt.Equal(txs[j].OperatedAt.Time) {
			return txs[i].OperatedAt.Before(txs[j].OperatedAt.Time)
		}
		return txs[i].ID < txs[j].ID
	})
}
