// Package refresh reloads entity collections from the collaborator into the
// store after a mutation, grouped in named composites sized to the mutation's
// blast radius.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"expresso/internal/core"
	applog "expresso/internal/log"
	"expresso/internal/store"
)

// ErrDiscarded is returned when reload results arrived after the consumer
// abandoned the operation. Nothing was written to the store.
var ErrDiscarded = errors.New("refresh result discarded")

// Loader lists the owner's collections.
type Loader interface {
	ListAccounts(ctx context.Context, ownerID int64) ([]core.Account, error)
	ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error)
	ListTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error)
	ListGoals(ctx context.Context, ownerID int64) ([]core.Goal, error)
}

// PartialError reports which collections failed to reload. The mutation
// that triggered the refresh already succeeded and is not undone.
type PartialError struct {
	Stale  []store.Collection
	Causes map[store.Collection]error
}

func (e *PartialError) Error() string {
	names := make([]string, len(e.Stale))
	for i, c := range e.Stale {
		names[i] = string(c)
	}
	return fmt.Sprintf("partial refresh: %s stale", strings.Join(names, ", "))
}

// Cause returns the reload error of one collection. Causes are kept out of
// the unwrap chain so a partial refresh is never mistaken for the failure
// class of its causes.
func (e *PartialError) Cause(c store.Collection) error {
	return e.Causes[c]
}

type Orchestrator struct {
	store   *store.Store
	loader  Loader
	ownerID int64
	logger  *applog.Logger
}

func New(st *store.Store, loader Loader, ownerID int64, logger *applog.Logger) *Orchestrator {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Orchestrator{
		store:   st,
		loader:  loader,
		ownerID: ownerID,
		logger:  logger.WithComponent(applog.ComponentRefresh),
	}
}

func (o *Orchestrator) RefreshAccounts(ctx context.Context) error {
	return o.Refresh(ctx, store.Accounts)
}

func (o *Orchestrator) RefreshCategories(ctx context.Context) error {
	return o.Refresh(ctx, store.Categories)
}

func (o *Orchestrator) RefreshTransactions(ctx context.Context) error {
	return o.Refresh(ctx, store.Transactions)
}

func (o *Orchestrator) RefreshGoals(ctx context.Context) error {
	return o.Refresh(ctx, store.Goals)
}

// RefreshAfterTransaction covers a single transaction: its account balance
// and the transaction list.
func (o *Orchestrator) RefreshAfterTransaction(ctx context.Context) error {
	return o.Refresh(ctx, store.Accounts, store.Transactions)
}

// RefreshAfterTransfer also reloads goals, since either leg may sit on a vault.
func (o *Orchestrator) RefreshAfterTransfer(ctx context.Context) error {
	return o.Refresh(ctx, store.Accounts, store.Transactions, store.Goals)
}

// RefreshAfterGoal follows goal creation, which also creates the vault account.
func (o *Orchestrator) RefreshAfterGoal(ctx context.Context) error {
	return o.Refresh(ctx, store.Accounts, store.Goals)
}

// RefreshAfterCategorizedTransaction follows a transaction created together
// with a new category.
func (o *Orchestrator) RefreshAfterCategorizedTransaction(ctx context.Context) error {
	return o.Refresh(ctx, store.Accounts, store.Categories, store.Transactions)
}

// RefreshAll is the initial load.
func (o *Orchestrator) RefreshAll(ctx context.Context) error {
	return o.Refresh(ctx, store.AllCollections...)
}

// Retry reloads only the collections a previous refresh left stale.
func (o *Orchestrator) Retry(ctx context.Context, partial *PartialError) error {
	if partial == nil || len(partial.Stale) == 0 {
		return nil
	}
	return o.Refresh(ctx, partial.Stale...)
}

// Refresh reloads the given collections concurrently and waits for all of
// them. A failing reload never cancels its siblings.
//
// Remote calls are detached from ctx cancellation so they run to completion;
// if ctx is done by the time a result arrives, or the store was closed, the
// result is dropped instead of applied.
func (o *Orchestrator) Refresh(ctx context.Context, collections ...store.Collection) error {
	collections = dedupe(collections)
	callCtx := context.WithoutCancel(ctx)

	var (
		mu        sync.Mutex
		causes    = make(map[store.Collection]error)
		discarded int
		g         errgroup.Group
	)
	for _, c := range collections {
		o.store.MarkLoading(c)
		g.Go(func() error {
			start := time.Now()
			n, err := o.reload(ctx, callCtx, c)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrDiscarded):
				discarded++
				o.store.MarkFailed(c, err)
				o.logger.DebugContext(ctx, "Reload discarded", applog.FieldCollection, c)
			case err != nil:
				causes[c] = err
				o.store.MarkFailed(c, err)
				o.logger.WarnContext(ctx, "Reload failed",
					applog.FieldCollection, c,
					applog.FieldOwnerID, o.ownerID,
					applog.FieldError, err)
			default:
				o.logger.DebugContext(ctx, "Reloaded",
					applog.FieldCollection, c,
					"count", n,
					applog.FieldDuration, time.Since(start).Milliseconds())
			}
			return nil
		})
	}
	_ = g.Wait()

	if discarded > 0 {
		return fmt.Errorf("%w: %d of %d reloads", ErrDiscarded, discarded, len(collections))
	}
	if len(causes) > 0 {
		partial := &PartialError{Causes: causes}
		for _, c := range collections {
			if _, ok := causes[c]; ok {
				partial.Stale = append(partial.Stale, c)
			}
		}
		return partial
	}
	return nil
}

// reload lists one collection under callCtx and applies it unless ctx was
// abandoned in the meantime.
func (o *Orchestrator) reload(ctx, callCtx context.Context, c store.Collection) (int, error) {
	var (
		n     int
		apply func() error
		err   error
	)
	switch c {
	case store.Accounts:
		var items []core.Account
		items, err = o.loader.ListAccounts(callCtx, o.ownerID)
		n, apply = len(items), func() error { return o.store.ReplaceAccounts(items) }
	case store.Categories:
		var items []core.Category
		items, err = o.loader.ListCategories(callCtx, o.ownerID)
		n, apply = len(items), func() error { return o.store.ReplaceCategories(items) }
	case store.Transactions:
		var items []core.Transaction
		items, err = o.loader.ListTransactions(callCtx, o.ownerID)
		n, apply = len(items), func() error { return o.store.ReplaceTransactions(items) }
	case store.Goals:
		var items []core.Goal
		items, err = o.loader.ListGoals(callCtx, o.ownerID)
		n, apply = len(items), func() error { return o.store.ReplaceGoals(items) }
	default:
		return 0, fmt.Errorf("unknown collection %q", c)
	}

	if ctx.Err() != nil || o.store.Closed() {
		return 0, ErrDiscarded
	}
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", c, err)
	}
	if err := apply(); err != nil {
		if errors.Is(err, store.ErrClosed) {
			return 0, ErrDiscarded
		}
		return 0, err
	}
	return n, nil
}

func dedupe(in []store.Collection) []store.Collection {
	out := make([]store.Collection, 0, len(in))
	for _, c := range in {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
