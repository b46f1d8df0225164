package aggregate

import (
	"slices"
	"sync"

	"expresso/internal/cache"
	"expresso/internal/store"
)

const DefaultMemoSize = 128

type viewKind uint8

const (
	breakdownView viewKind = iota
	totalsView
	evolutionView
	goalsView
)

type memoKey struct {
	view    viewKind
	version uint64
	filter  Filter
}

// Memo caches derived views by snapshot version and filter. Entries of
// older versions are dropped the first time a newer snapshot is seen.
type Memo struct {
	entries *cache.LRU[memoKey, any]

	mu     sync.Mutex
	latest uint64
}

func NewMemo(size int) *Memo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	return &Memo{entries: cache.NewLRU[memoKey, any](size)}
}

func (m *Memo) Breakdown(snap *store.Snapshot, f Filter) CategoryBreakdown {
	v := memoized(m, snap, breakdownView, f, func() CategoryBreakdown { return Breakdown(snap, f) })
	return CategoryBreakdown{Receipts: slices.Clone(v.Receipts), Expenses: slices.Clone(v.Expenses)}
}

func (m *Memo) PeriodTotals(snap *store.Snapshot, f Filter) Totals {
	return memoized(m, snap, totalsView, f, func() Totals { return PeriodTotals(snap, f) })
}

func (m *Memo) BalanceEvolution(snap *store.Snapshot, f Filter) Series {
	v := memoized(m, snap, evolutionView, f, func() Series { return BalanceEvolution(snap, f) })
	return Series{Opening: v.Opening, Points: slices.Clone(v.Points)}
}

func (m *Memo) Goals(snap *store.Snapshot) []GoalView {
	return slices.Clone(memoized(m, snap, goalsView, Filter{}, func() []GoalView { return Goals(snap) }))
}

func (m *Memo) Stats() cache.Stats {
	return m.entries.Stats()
}

func memoized[T any](m *Memo, snap *store.Snapshot, kind viewKind, f Filter, compute func() T) T {
	m.evictOlder(snap.Version)
	key := memoKey{view: kind, version: snap.Version, filter: normalize(f)}
	if v, ok := m.entries.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed
		}
	}
	v := compute()
	m.entries.Set(key, v)
	return v
}

func (m *Memo) evictOlder(version uint64) {
	m.mu.Lock()
	if version <= m.latest {
		m.mu.Unlock()
		return
	}
	m.latest = version
	m.mu.Unlock()
	m.entries.DeleteFunc(func(k memoKey) bool { return k.version < version })
}

// normalize strips monotonic clock and location so equal instants share a key.
func normalize(f Filter) Filter {
	if !f.Start.IsZero() {
		f.Start = f.Start.UTC().Round(0)
	}
	if !f.End.IsZero() {
		f.End = f.End.UTC().Round(0)
	}
	return f
}
