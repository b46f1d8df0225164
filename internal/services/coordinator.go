// Package services holds the operation coordinators: each validates user
// input, performs the collaborator calls of one user action and triggers the
// refresh composite matching what the action can change.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	applog "expresso/internal/log"
	"expresso/internal/refresh"
	"expresso/internal/remote"
	"expresso/internal/store"
)

// Action names, as reported by Busy.
const (
	ActionCreateTransaction = "create_transaction"
	ActionDeleteTransaction = "delete_transaction"
	ActionTransfer          = "transfer"
	ActionDeposit           = "deposit"
	ActionWithdraw          = "withdraw"
	ActionCreateAccount     = "create_account"
	ActionCreateGoal        = "create_goal"
	ActionCreateCategory    = "create_category"
	ActionRenameCategory    = "rename_category"
	ActionDeleteCategory    = "delete_category"
	ActionUpdateProfile     = "update_profile"
	ActionDeleteProfile     = "delete_profile"
)

// Refresher is the set of refresh composites the coordinators trigger.
type Refresher interface {
	RefreshAccounts(ctx context.Context) error
	RefreshCategories(ctx context.Context) error
	RefreshAfterTransaction(ctx context.Context) error
	RefreshAfterTransfer(ctx context.Context) error
	RefreshAfterGoal(ctx context.Context) error
	RefreshAfterCategorizedTransaction(ctx context.Context) error
}

type Coordinator struct {
	remote    remote.Collaborator
	refresher Refresher
	store     *store.Store
	ownerID   int64
	validate  *validator.Validate
	logger    *applog.Logger

	flight   singleflight.Group
	mu       sync.Mutex
	inFlight map[string]int
}

func NewCoordinator(collab remote.Collaborator, refresher Refresher, st *store.Store, ownerID int64, logger *applog.Logger) *Coordinator {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Coordinator{
		remote:    collab,
		refresher: refresher,
		store:     st,
		ownerID:   ownerID,
		validate:  newValidator(),
		logger:    logger.WithComponent(applog.ComponentServices),
		inFlight:  make(map[string]int),
	}
}

// Busy reports whether an action is in flight, so a UI can disable its
// submit control until it settles.
func (c *Coordinator) Busy(action string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[action] > 0
}

// once runs fn for action, sharing one execution between identical
// submissions that overlap in time.
func once[T any](c *Coordinator, action string, input any, fn func() (T, error)) (T, error) {
	key := fmt.Sprintf("%s:%+v", action, input)
	v, err, shared := c.flight.Do(key, func() (any, error) {
		c.mu.Lock()
		c.inFlight[action]++
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			c.inFlight[action]--
			c.mu.Unlock()
		}()
		return fn()
	})
	if shared {
		c.logger.Debug("Duplicate submission shared", applog.FieldOperation, action)
	}
	result, _ := v.(T)
	return result, err
}

// snapshot returns the current snapshot, nil when the store is not ready.
// Local pre-checks are skipped without one.
func (c *Coordinator) snapshot() *store.Snapshot {
	snap, err := c.store.Snapshot()
	if err != nil {
		return nil
	}
	return snap
}

// detach returns the context mutations are sent under. A mutation runs to
// completion even when the caller gives up, so the collaborator is never left
// guessing whether it committed.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// discarded returns ErrDiscarded when the caller abandoned the operation or
// the store was closed while a mutation was in flight. Its result, failed or
// not, is then dropped and nothing is refreshed.
func (c *Coordinator) discarded(ctx context.Context, action string) error {
	if ctx.Err() == nil && !c.store.Closed() {
		return nil
	}
	c.logger.DebugContext(ctx, "Mutation result discarded", applog.FieldOperation, action)
	return fmt.Errorf("%s: %w", action, refresh.ErrDiscarded)
}

func (c *Coordinator) logRefresh(ctx context.Context, action string, err error) {
	if err != nil {
		c.logger.WarnContext(ctx, "Refresh after mutation incomplete",
			applog.FieldOperation, action,
			applog.FieldError, err)
	}
}

func (c *Coordinator) logFailure(ctx context.Context, action string, err error) {
	c.logger.InfoContext(ctx, "Operation failed", applog.NewFields().
		WithOperation(action).
		WithOwner(c.ownerID).
		WithErrorType(errorType(Classify(err))).
		WithError(err).ToSlice()...)
}

func errorType(k ErrorKind) string {
	switch k {
	case KindValidation:
		return applog.ErrorTypeValidation
	case KindRejection:
		return applog.ErrorTypeRejection
	case KindTransport:
		return applog.ErrorTypeNetwork
	case KindPartialRefresh:
		return applog.ErrorTypePartial
	default:
		return applog.ErrorTypeInternal
	}
}
