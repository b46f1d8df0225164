// Package aggregate derives every view of the client from a store snapshot:
// category breakdowns, period totals, balance evolution, goal progress and
// the report page. All functions are pure; the same snapshot and parameters
// always produce the same output.
package aggregate

import (
	"time"

	"expresso/internal/core"
	"expresso/internal/store"
)

// Filter selects transactions by operation time and account. A zero Start or
// End leaves that side unbounded. AccountID 0 selects every account except
// goal vaults, unless IncludeVaults is set.
type Filter struct {
	Start         time.Time
	End           time.Time
	AccountID     int64
	IncludeVaults bool
}

// MonthFilter covers a whole calendar month.
func MonthFilter(year, month int) Filter {
	first, last := core.MonthRange(year, month)
	return DayFilter(first, last)
}

// DayFilter covers from..to inclusive.
func DayFilter(from, to core.Date) Filter {
	start, end := core.DayRange(from, to)
	return Filter{Start: start, End: end}
}

func (f Filter) WithAccount(id int64) Filter {
	f.AccountID = id
	return f
}

func (f Filter) contains(t time.Time) bool {
	if !f.Start.IsZero() && t.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && t.After(f.End) {
		return false
	}
	return true
}

func (f Filter) before(t time.Time) bool {
	return !f.Start.IsZero() && t.Before(f.Start)
}

// accounts returns the ids of the matched accounts. Transactions on accounts
// missing from the snapshot never match.
func (f Filter) accounts(snap *store.Snapshot) map[int64]core.Account {
	out := make(map[int64]core.Account)
	for _, a := range snap.Accounts() {
		switch {
		case f.AccountID != 0:
			if a.ID != f.AccountID {
				continue
			}
		case a.Kind == core.GoalVault && !f.IncludeVaults:
			continue
		}
		out[a.ID] = a
	}
	return out
}

// inRange returns the matched transactions inside the time window, in
// snapshot order.
func (f Filter) inRange(snap *store.Snapshot) []core.Transaction {
	accounts := f.accounts(snap)
	var out []core.Transaction
	for _, tx := range snap.Transactions() {
		if _, ok := accounts[tx.AccountID]; ok && f.contains(tx.OperatedAt.Time) {
			out = append(out, tx)
		}
	}
	return out
}
