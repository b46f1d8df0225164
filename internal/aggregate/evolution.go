package aggregate

import (
	"expresso/internal/core"
	"expresso/internal/store"
)

// StartLabel names the synthetic first point of a balance series.
const StartLabel = "Início"

const pointLabelLayout = "02/01"

type (
	Point struct {
		Label   string
		Day     core.Date // zero on the start point
		Balance core.Money
	}

	// Series is sparse: days without transactions have no point.
	Series struct {
		Opening core.Money
		Points  []Point
	}
)

// BalanceEvolution computes the running balance of the matched accounts.
// The opening balance is their opening balances plus every matched
// transaction before the window; then one point per day with activity.
// Transfer legs count, since they move real balance.
func BalanceEvolution(snap *store.Snapshot, f Filter) Series {
	accounts := f.accounts(snap)

	var opening core.Money
	for _, a := range accounts {
		opening = opening.Add(a.OpeningBalance)
	}

	var window []core.Transaction
	for _, tx := range snap.Transactions() {
		if _, ok := accounts[tx.AccountID]; !ok {
			continue
		}
		switch {
		case f.before(tx.OperatedAt.Time):
			opening = opening.Add(tx.Amount)
		case f.contains(tx.OperatedAt.Time):
			window = append(window, tx)
		}
	}
	sortAscending(window)

	s := Series{
		Opening: opening,
		Points:  []Point{{Label: StartLabel, Balance: opening}},
	}
	running := opening
	for i := 0; i < len(window); {
		day := window[i].OperatedAt.Day()
		for ; i < len(window) && window[i].OperatedAt.Day().Equal(day.Time); i++ {
			running = running.Add(window[i].Amount)
		}
		s.Points = append(s.Points, Point{Label: day.Format(pointLabelLayout), Day: day, Balance: running})
	}
	return s
}

// Closing is the balance of the last point.
func (s Series) Closing() core.Money {
	if len(s.Points) == 0 {
		return s.Opening
	}
	return s.Points[len(s.Points)-1].Balance
}
