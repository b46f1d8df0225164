package store

import (
	"slices"

	"expresso/internal/core"
)

// Snapshot is an immutable view of the four collections at one store
// version. It is the only input of the aggregation engine.
type Snapshot struct {
	Version uint64
	// Stale lists collections whose last reload failed; their data is the
	// last successfully loaded copy.
	Stale []Collection

	accounts     []core.Account
	categories   []core.Category
	transactions []core.Transaction
	goals        []core.Goal

	accountIdx  map[int64]int
	categoryIdx map[int64]int
	goalIdx     map[int64]int
	vaultIdx    map[int64]int
}

// NewSnapshot builds a snapshot from collections the caller will not mutate
// afterwards.
func NewSnapshot(version uint64, accounts []core.Account, categories []core.Category, transactions []core.Transaction, goals []core.Goal) *Snapshot {
	s := &Snapshot{
		Version:      version,
		accounts:     accounts,
		categories:   categories,
		transactions: transactions,
		goals:        goals,
		accountIdx:   make(map[int64]int, len(accounts)),
		categoryIdx:  make(map[int64]int, len(categories)),
		goalIdx:      make(map[int64]int, len(goals)),
		vaultIdx:     make(map[int64]int, len(goals)),
	}
	for i, a := range accounts {
		s.accountIdx[a.ID] = i
	}
	for i, c := range categories {
		s.categoryIdx[c.ID] = i
	}
	for i, g := range goals {
		s.goalIdx[g.ID] = i
		s.vaultIdx[g.VaultAccountID] = i
	}
	return s
}

func (s *Snapshot) Accounts() []core.Account         { return slices.Clone(s.accounts) }
func (s *Snapshot) Categories() []core.Category      { return slices.Clone(s.categories) }
func (s *Snapshot) Transactions() []core.Transaction { return slices.Clone(s.transactions) }
func (s *Snapshot) Goals() []core.Goal               { return slices.Clone(s.goals) }

func (s *Snapshot) Account(id int64) (core.Account, bool) {
	i, ok := s.accountIdx[id]
	if !ok {
		return core.Account{}, false
	}
	return s.accounts[i], true
}

func (s *Snapshot) Category(id int64) (core.Category, bool) {
	i, ok := s.categoryIdx[id]
	if !ok {
		return core.Category{}, false
	}
	return s.categories[i], true
}

func (s *Snapshot) Goal(id int64) (core.Goal, bool) {
	i, ok := s.goalIdx[id]
	if !ok {
		return core.Goal{}, false
	}
	return s.goals[i], true
}

// GoalByVault returns the goal owning the given vault account.
func (s *Snapshot) GoalByVault(accountID int64) (core.Goal, bool) {
	i, ok := s.vaultIdx[accountID]
	if !ok {
		return core.Goal{}, false
	}
	return s.goals[i], true
}

// SavedAmount is the balance of the goal's vault account, read at call time.
// A goal whose vault is not in the snapshot has saved nothing.
func (s *Snapshot) SavedAmount(g core.Goal) core.Money {
	a, ok := s.Account(g.VaultAccountID)
	if !ok {
		return core.Money{}
	}
	return a.Balance
}

// IsTransferLeg reports whether tx belongs to the reserved transfer
// category. When the category is not loaded the collaborator's denormalized
// name decides.
func (s *Snapshot) IsTransferLeg(tx core.Transaction) bool {
	if c, ok := s.Category(tx.CategoryID); ok {
		return c.IsTransfer()
	}
	return tx.CategoryName == core.TransferCategoryName
}

// IsStale reports whether c failed to reload.
func (s *Snapshot) IsStale(c Collection) bool {
	return slices.Contains(s.Stale, c)
}
