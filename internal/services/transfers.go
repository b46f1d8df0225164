package services

import (
	"context"
	"fmt"

	"expresso/internal/core"
	applog "expresso/internal/log"
	"expresso/internal/remote"
)

// CreateTransfer moves money between two accounts with one collaborator
// call and returns the debit and credit legs.
func (c *Coordinator) CreateTransfer(ctx context.Context, in NewTransfer) ([]core.Transaction, error) {
	if err := c.check(in); err != nil {
		return nil, err
	}
	return c.transfer(ctx, ActionTransfer, in.SourceID, in.DestinationID, in.Amount, in.OperatedAt)
}

// DepositToGoal transfers from a plain account into the goal's vault.
func (c *Coordinator) DepositToGoal(ctx context.Context, in GoalDeposit) ([]core.Transaction, error) {
	if err := c.check(in); err != nil {
		return nil, err
	}
	vault, err := c.vaultOf(in.GoalID)
	if err != nil {
		return nil, err
	}
	if vault == in.SourceID {
		return nil, invalid("sourceId", "origem e destino devem ser diferentes")
	}
	return c.transfer(ctx, ActionDeposit, in.SourceID, vault, in.Amount, in.OperatedAt)
}

// WithdrawFromGoal transfers from the goal's vault to a plain account.
func (c *Coordinator) WithdrawFromGoal(ctx context.Context, in GoalWithdrawal) ([]core.Transaction, error) {
	if err := c.check(in); err != nil {
		return nil, err
	}
	vault, err := c.vaultOf(in.GoalID)
	if err != nil {
		return nil, err
	}
	if vault == in.DestinationID {
		return nil, invalid("destinationId", "origem e destino devem ser diferentes")
	}
	return c.transfer(ctx, ActionWithdraw, vault, in.DestinationID, in.Amount, in.OperatedAt)
}

func (c *Coordinator) vaultOf(goalID int64) (int64, error) {
	snap := c.snapshot()
	if snap == nil {
		return 0, fmt.Errorf("goal %d: %w", goalID, ErrUnknownGoal)
	}
	g, ok := snap.Goal(goalID)
	if !ok {
		return 0, fmt.Errorf("goal %d: %w", goalID, ErrUnknownGoal)
	}
	return g.VaultAccountID, nil
}

func (c *Coordinator) transfer(ctx context.Context, action string, sourceID, destinationID int64, amountText, atText string) ([]core.Transaction, error) {
	amount, _ := core.ParseAmount(amountText)
	at, _ := core.ParseTimestamp(atText)

	// Advisory only: two concurrent withdrawals can both pass this check.
	if snap := c.snapshot(); snap != nil {
		if src, ok := snap.Account(sourceID); ok && src.Kind == core.GoalVault && src.Balance.Cmp(amount) < 0 {
			return nil, fmt.Errorf("vault %d holds %s: %w", src.ID, src.Balance, ErrInsufficientGoalFunds)
		}
	}

	req := remote.TransferRequest{
		OwnerID:       c.ownerID,
		SourceID:      sourceID,
		DestinationID: destinationID,
		Amount:        amount,
		OperatedAt:    at,
	}
	return once(c, action, req, func() ([]core.Transaction, error) {
		legs, err := c.remote.CreateTransfer(detach(ctx), req)
		if derr := c.discarded(ctx, action); derr != nil {
			return nil, derr
		}
		if err != nil {
			c.logFailure(ctx, action, err)
			return nil, err
		}
		c.logger.InfoContext(ctx, "Transfer created",
			applog.FieldOperation, action,
			"source_id", sourceID,
			"destination_id", destinationID,
			applog.FieldAmountCents, amount.Cents)

		refreshErr := c.refresher.RefreshAfterTransfer(ctx)
		c.logRefresh(ctx, action, refreshErr)
		return legs, refreshErr
	})
}
