// Package memstore is a volatile ledger.Repository for tests and offline use.
package memstore

import (
	"context"
	"slices"
	"sync"

	"expresso/internal/core"
	"expresso/internal/ledger"
)

var _ ledger.Repository = (*Store)(nil)

type profileRow struct {
	profile core.Profile
	hash    string
}

// Store keeps every row in insertion order. IDs are shared across tables so
// tests can tell entities apart at a glance.
type Store struct {
	mu     sync.Mutex
	nextID int64

	profiles     map[int64]profileRow
	accounts     []core.Account
	categories   []core.Category
	transactions []core.Transaction
	goals        []core.Goal
	pairs        map[int64]int64
}

func New() *Store {
	return &Store{
		profiles: make(map[int64]profileRow),
		pairs:    make(map[int64]int64),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) InsertProfile(_ context.Context, p core.Profile, hash string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	} else if p.ID > s.nextID {
		s.nextID = p.ID
	}
	s.profiles[p.ID] = profileRow{profile: p, hash: hash}
	return p, nil
}

func (s *Store) GetProfile(_ context.Context, id int64) (core.Profile, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.profiles[id]
	if !ok {
		return core.Profile{}, "", ledger.ErrNotFound
	}
	return row.profile, row.hash, nil
}

func (s *Store) UpdateProfile(_ context.Context, p core.Profile, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; !ok {
		return ledger.ErrNotFound
	}
	s.profiles[p.ID] = profileRow{profile: p, hash: hash}
	return nil
}

func (s *Store) DeleteOwner(_ context.Context, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[ownerID]; !ok {
		return ledger.ErrNotFound
	}
	delete(s.profiles, ownerID)
	s.accounts = slices.DeleteFunc(s.accounts, func(a core.Account) bool { return a.OwnerID == ownerID })
	s.categories = slices.DeleteFunc(s.categories, func(c core.Category) bool { return c.OwnerID == ownerID })
	s.goals = slices.DeleteFunc(s.goals, func(g core.Goal) bool { return g.OwnerID == ownerID })
	s.transactions = slices.DeleteFunc(s.transactions, func(t core.Transaction) bool {
		if t.OwnerID != ownerID {
			return false
		}
		delete(s.pairs, t.ID)
		return true
	})
	return nil
}

// owned returns a copy of the rows belonging to ownerID.
func owned[T any](rows []T, owner func(T) int64, ownerID int64) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if owner(r) == ownerID {
			out = append(out, r)
		}
	}
	return out
}

func find[T any](rows []T, match func(T) bool) (int, bool) {
	i := slices.IndexFunc(rows, match)
	return i, i >= 0
}

func (s *Store) ListAccounts(_ context.Context, ownerID int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return owned(s.accounts, func(a core.Account) int64 { return a.OwnerID }, ownerID), nil
}

func (s *Store) GetAccount(_ context.Context, ownerID, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := find(s.accounts, func(a core.Account) bool { return a.ID == id && a.OwnerID == ownerID })
	if !ok {
		return core.Account{}, ledger.ErrNotFound
	}
	return s.accounts[i], nil
}

func (s *Store) InsertAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	a.Balance = core.Money{}
	s.accounts = append(s.accounts, a)
	return a, nil
}

func (s *Store) ListCategories(_ context.Context, ownerID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return owned(s.categories, func(c core.Category) int64 { return c.OwnerID }, ownerID), nil
}

func (s *Store) GetCategory(_ context.Context, ownerID, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := find(s.categories, func(c core.Category) bool { return c.ID == id && c.OwnerID == ownerID })
	if !ok {
		return core.Category{}, ledger.ErrNotFound
	}
	return s.categories[i], nil
}

func (s *Store) InsertCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := find(s.categories, func(x core.Category) bool { return x.ID == c.ID && x.OwnerID == c.OwnerID })
	if !ok {
		return ledger.ErrNotFound
	}
	s.categories[i] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := find(s.categories, func(c core.Category) bool { return c.ID == id && c.OwnerID == ownerID })
	if !ok {
		return ledger.ErrNotFound
	}
	s.categories = slices.Delete(s.categories, i, i+1)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return owned(s.transactions, func(t core.Transaction) int64 { return t.OwnerID }, ownerID), nil
}

func (s *Store) GetTransaction(_ context.Context, ownerID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := find(s.transactions, func(t core.Transaction) bool { return t.ID == id && t.OwnerID == ownerID })
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return s.transactions[i], nil
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (s *Store) InsertTransfer(_ context.Context, debit, credit core.Transaction) (core.Transaction, core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	debit.ID = s.id()
	credit.ID = s.id()
	s.transactions = append(s.transactions, debit, credit)
	s.pairs[debit.ID] = credit.ID
	s.pairs[credit.ID] = debit.ID
	return debit, credit, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := find(s.transactions, func(t core.Transaction) bool { return t.ID == id && t.OwnerID == ownerID }); !ok {
		return nil, ledger.ErrNotFound
	}
	ids := []int64{id}
	if pair, ok := s.pairs[id]; ok {
		ids = append(ids, pair)
		delete(s.pairs, pair)
		delete(s.pairs, id)
	}
	s.transactions = slices.DeleteFunc(s.transactions, func(t core.Transaction) bool { return slices.Contains(ids, t.ID) })
	return ids, nil
}

func (s *Store) ListGoals(_ context.Context, ownerID int64) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return owned(s.goals, func(g core.Goal) int64 { return g.OwnerID }, ownerID), nil
}

func (s *Store) InsertGoal(_ context.Context, g core.Goal, vault core.Account) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vault.ID = s.id()
	s.accounts = append(s.accounts, vault)
	g.ID = s.id()
	g.VaultAccountID = vault.ID
	s.goals = append(s.goals, g)
	return g, nil
}

func (s *Store) Close() error { return nil }
