// Package store holds the canonical in-memory copies of the four entity
// collections. Every write is a full replacement with collaborator-confirmed
// data; readers work on immutable snapshots.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"expresso/internal/core"
)

const (
	Accounts     Collection = "accounts"
	Categories   Collection = "categories"
	Transactions Collection = "transactions"
	Goals        Collection = "goals"
)

// AllCollections lists every collection in load order.
var AllCollections = []Collection{Accounts, Categories, Transactions, Goals}

const (
	Idle Status = iota
	Loading
	Ready
	Failed
)

var (
	// ErrNotReady is returned by Snapshot until every collection has been
	// loaded at least once.
	ErrNotReady = errors.New("store not ready")
	// ErrClosed is returned by writes after the consumer went away.
	ErrClosed = errors.New("store closed")
)

type (
	Collection string
	Status     int

	// Event notifies subscribers that a collection was replaced.
	Event struct {
		Collection Collection
		Version    uint64
	}

	collectionState struct {
		status    Status
		everReady bool
		err       error
	}
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Store is safe for concurrent use. It is meant to be created once per
// logged-in owner and passed explicitly to every consumer.
type Store struct {
	mu sync.RWMutex

	accounts     []core.Account
	categories   []core.Category
	transactions []core.Transaction
	goals        []core.Goal

	state   map[Collection]*collectionState
	version uint64
	snap    *Snapshot
	closed  bool

	subs    map[int]chan Event
	nextSub int
}

func New() *Store {
	state := make(map[Collection]*collectionState, len(AllCollections))
	for _, c := range AllCollections {
		state[c] = &collectionState{}
	}
	return &Store{
		state: state,
		subs:  make(map[int]chan Event),
	}
}

// MarkLoading flags c as being reloaded. Data already held stays readable.
func (s *Store) MarkLoading(c Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state[c]; ok && !s.closed {
		st.status = Loading
		st.err = nil
		s.snap = nil
	}
}

// MarkFailed records a failed reload of c. The previous data is kept and the
// collection is reported stale on snapshots.
func (s *Store) MarkFailed(c Collection, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state[c]; ok && !s.closed {
		st.status = Failed
		st.err = err
		s.snap = nil
	}
}

func (s *Store) ReplaceAccounts(items []core.Account) error {
	return s.replace(Accounts, func() { s.accounts = slices.Clone(items) })
}

func (s *Store) ReplaceCategories(items []core.Category) error {
	return s.replace(Categories, func() { s.categories = slices.Clone(items) })
}

func (s *Store) ReplaceTransactions(items []core.Transaction) error {
	return s.replace(Transactions, func() { s.transactions = slices.Clone(items) })
}

func (s *Store) ReplaceGoals(items []core.Goal) error {
	return s.replace(Goals, func() { s.goals = slices.Clone(items) })
}

func (s *Store) replace(c Collection, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	apply()
	s.version++
	st := s.state[c]
	st.status = Ready
	st.everReady = true
	st.err = nil
	s.snap = nil

	// Sends never block, so notifying under the lock is safe and keeps
	// unsubscribe from closing a channel mid-send.
	ev := Event{Collection: c, Version: s.version}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber has a pending event already; it will read the
			// latest version when it wakes up.
		}
	}
	return nil
}

// Status returns the load status of c.
func (s *Store) Status(c Collection) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.state[c]; ok {
		return st.status
	}
	return Idle
}

// Err returns the error of the last failed reload of c, if any.
func (s *Store) Err(c Collection) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.state[c]; ok {
		return st.err
	}
	return nil
}

// Ready reports whether every collection has been loaded at least once.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readyLocked()
}

func (s *Store) readyLocked() bool {
	for _, st := range s.state {
		if !st.everReady {
			return false
		}
	}
	return true
}

// Version increases on every replacement.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the current immutable view. It fails closed with
// ErrNotReady until all four collections have been loaded once, so no view
// is ever computed on partial data.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	if !s.readyLocked() {
		s.mu.RUnlock()
		return nil, ErrNotReady
	}
	if s.snap != nil {
		snap := s.snap
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		snap := NewSnapshot(s.version, s.accounts, s.categories, s.transactions, s.goals)
		for _, c := range AllCollections {
			if s.state[c].status == Failed {
				snap.Stale = append(snap.Stale, c)
			}
		}
		s.snap = snap
	}
	return s.snap, nil
}

// Subscribe returns a channel that receives an Event after each replacement.
// Notifications coalesce: a slow subscriber sees at least one event and should
// read the latest state from the store. Call cancel to unsubscribe.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Close detaches the store from its consumer. Results of reloads still in
// flight are discarded from then on.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
