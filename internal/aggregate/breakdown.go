package aggregate

import (
	"slices"
	"sort"

	"expresso/internal/core"
	"expresso/internal/store"
)

const (
	UncategorizedName  = "Sem Categoria"
	DeletedAccountName = "Conta Deletada"
)

type (
	// CategoryTotal is a magnitude summed under one category id.
	CategoryTotal struct {
		CategoryID int64
		Amount     core.Money
	}

	// CategoryTotals is ordered by CategoryID. Two categories sharing a
	// display name stay separate entries.
	CategoryTotals []CategoryTotal

	CategoryBreakdown struct {
		Receipts CategoryTotals
		Expenses CategoryTotals
	}

	Totals struct {
		Receipts core.Money
		// Expenses is the absolute value of the outflows.
		Expenses core.Money
		Net      core.Money
	}
)

// Get returns the total for a category, zero when absent.
func (ct CategoryTotals) Get(categoryID int64) core.Money {
	i := sort.Search(len(ct), func(i int) bool { return ct[i].CategoryID >= categoryID })
	if i < len(ct) && ct[i].CategoryID == categoryID {
		return ct[i].Amount
	}
	return core.Money{}
}

func (ct CategoryTotals) Total() core.Money {
	var sum core.Money
	for _, t := range ct {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// Named joins the totals against the category collection for display,
// largest amount first. Unknown ids are shown as UncategorizedName.
func (ct CategoryTotals) Named(snap *store.Snapshot) []core.CategoryAmount {
	sorted := slices.Clone(ct)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.Cmp(sorted[j].Amount) > 0
	})
	out := make([]core.CategoryAmount, 0, len(sorted))
	for _, t := range sorted {
		name := UncategorizedName
		if c, ok := snap.Category(t.CategoryID); ok {
			name = c.Name
		}
		out = append(out, core.CategoryAmount{Name: name, Amount: t.Amount})
	}
	return out
}

// Breakdown sums the filtered transactions per category, receipts and
// expenses apart, both as magnitudes. Transfer legs are left out.
func Breakdown(snap *store.Snapshot, f Filter) CategoryBreakdown {
	receipts := map[int64]core.Money{}
	expenses := map[int64]core.Money{}
	for _, tx := range f.inRange(snap) {
		if snap.IsTransferLeg(tx) {
			continue
		}
		if tx.Amount.IsPositive() {
			receipts[tx.CategoryID] = receipts[tx.CategoryID].Add(tx.Amount)
		} else if tx.Amount.IsNegative() {
			expenses[tx.CategoryID] = expenses[tx.CategoryID].Add(tx.Amount.Abs())
		}
	}
	return CategoryBreakdown{Receipts: toTotals(receipts), Expenses: toTotals(expenses)}
}

func toTotals(m map[int64]core.Money) CategoryTotals {
	out := make(CategoryTotals, 0, len(m))
	for id, amount := range m {
		out = append(out, CategoryTotal{CategoryID: id, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

// PeriodTotals sums receipts and expenses over the filtered set, transfer
// legs excluded.
func PeriodTotals(snap *store.Snapshot, f Filter) Totals {
	var t Totals
	for _, tx := range f.inRange(snap) {
		if snap.IsTransferLeg(tx) {
			continue
		}
		if tx.Amount.IsPositive() {
			t.Receipts = t.Receipts.Add(tx.Amount)
		} else {
			t.Expenses = t.Expenses.Add(tx.Amount.Abs())
		}
	}
	t.Net = t.Receipts.Sub(t.Expenses)
	return t
}
