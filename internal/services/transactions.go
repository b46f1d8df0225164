package services

import (
	"context"
	"fmt"

	"expresso/internal/core"
	applog "expresso/internal/log"
	"expresso/internal/remote"
)

// Outcome tags the result of CreateTransaction.
type Outcome int

const (
	OutcomeNone Outcome = iota
	// OutcomeCreated: transaction created with an existing category.
	OutcomeCreated
	// OutcomeBothCreated: inline category and transaction both created.
	OutcomeBothCreated
	// OutcomeCategoryOnly: the category was created, the transaction failed.
	OutcomeCategoryOnly
	// OutcomeCategoryFailed: category creation failed, nothing was attempted.
	OutcomeCategoryFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeBothCreated:
		return "both_created"
	case OutcomeCategoryOnly:
		return "category_only"
	case OutcomeCategoryFailed:
		return "category_failed"
	default:
		return "none"
	}
}

type TransactionResult struct {
	Outcome     Outcome
	Transaction core.Transaction
	// Category is set when an inline category was created.
	Category *core.Category
}

// CreateTransaction creates a transaction, first creating its category when
// NewCategory is given. The transaction is never attempted unless the
// category call returned an id.
func (c *Coordinator) CreateTransaction(ctx context.Context, in NewTransaction) (TransactionResult, error) {
	if err := c.check(in); err != nil {
		return TransactionResult{}, err
	}
	kind, _ := core.ParseTransactionKind(in.Kind)
	amount, _ := core.ParseAmount(in.Amount)
	at, _ := core.ParseTimestamp(in.OperatedAt)

	if snap := c.snapshot(); snap != nil {
		if a, ok := snap.Account(in.AccountID); ok && !a.Kind.Transactable() {
			return TransactionResult{}, fmt.Errorf("account %d: %w", a.ID, ErrDirectVaultTransaction)
		}
	}

	return once(c, ActionCreateTransaction, in, func() (TransactionResult, error) {
		var res TransactionResult
		categoryID := in.CategoryID
		if in.NewCategory != "" {
			cat, err := c.remote.CreateCategory(detach(ctx), c.ownerID, in.NewCategory)
			if derr := c.discarded(ctx, ActionCreateTransaction); derr != nil {
				return res, derr
			}
			if err != nil {
				res.Outcome = OutcomeCategoryFailed
				c.logFailure(ctx, ActionCreateTransaction, err)
				return res, err
			}
			res.Category = &cat
			categoryID = cat.ID
		}

		tx, err := c.remote.CreateTransaction(detach(ctx), remote.TransactionRequest{
			OwnerID:     c.ownerID,
			AccountID:   in.AccountID,
			CategoryID:  categoryID,
			Kind:        kind,
			Amount:      core.Signed(kind, amount),
			Description: in.Description,
			OperatedAt:  at,
		})
		if derr := c.discarded(ctx, ActionCreateTransaction); derr != nil {
			return res, derr
		}
		if err != nil {
			c.logFailure(ctx, ActionCreateTransaction, err)
			if res.Category == nil {
				return res, err
			}
			res.Outcome = OutcomeCategoryOnly
			c.logRefresh(ctx, ActionCreateTransaction, c.refresher.RefreshCategories(ctx))
			return res, &StepError{CategoryID: res.Category.ID, CategoryName: res.Category.Name, Err: err}
		}
		res.Transaction = tx

		c.logger.InfoContext(ctx, "Transaction created", applog.NewFields().
			WithTransaction(tx.ID, tx.AccountID, tx.CategoryID, tx.Amount.Cents).
			WithOperation(applog.OpCreate).ToSlice()...)

		var refreshErr error
		if res.Category != nil {
			res.Outcome = OutcomeBothCreated
			refreshErr = c.refresher.RefreshAfterCategorizedTransaction(ctx)
		} else {
			res.Outcome = OutcomeCreated
			refreshErr = c.refresher.RefreshAfterTransaction(ctx)
		}
		c.logRefresh(ctx, ActionCreateTransaction, refreshErr)
		return res, refreshErr
	})
}

// DeleteTransaction deletes one transaction. Deleting a transfer leg removes
// its pair on the collaborator side, so goals are reloaded as well.
func (c *Coordinator) DeleteTransaction(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("id", "identificador inválido")
	}
	transferLeg := false
	if snap := c.snapshot(); snap != nil {
		for _, tx := range snap.Transactions() {
			if tx.ID == id {
				transferLeg = snap.IsTransferLeg(tx)
				break
			}
		}
	}

	_, err := once(c, ActionDeleteTransaction, id, func() (struct{}, error) {
		err := c.remote.DeleteTransaction(detach(ctx), c.ownerID, id)
		if derr := c.discarded(ctx, ActionDeleteTransaction); derr != nil {
			return struct{}{}, derr
		}
		if err != nil {
			c.logFailure(ctx, ActionDeleteTransaction, err)
			return struct{}{}, err
		}
		c.logger.InfoContext(ctx, "Transaction deleted",
			applog.FieldOperation, applog.OpDelete,
			applog.FieldTransactionID, id,
			"transfer_leg", transferLeg)

		var refreshErr error
		if transferLeg {
			refreshErr = c.refresher.RefreshAfterTransfer(ctx)
		} else {
			refreshErr = c.refresher.RefreshAfterTransaction(ctx)
		}
		c.logRefresh(ctx, ActionDeleteTransaction, refreshErr)
		return struct{}{}, refreshErr
	})
	return err
}
