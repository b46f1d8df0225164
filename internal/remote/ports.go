// Package remote defines the boundary with the finance collaborator: the
// operations the client consumes, their request types, the JSON wire format
// and the error classes a call can end in.
package remote

import (
	"context"

	"expresso/internal/core"
)

// Ports for the collaborator. Every call is scoped to one owner.
type (
	AccountAPI interface {
		ListAccounts(ctx context.Context, ownerID int64) ([]core.Account, error)
		CreateAccount(ctx context.Context, req AccountRequest) (core.Account, error)
	}

	CategoryAPI interface {
		ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error)
		// CreateCategory returns the created category including its id, which
		// callers chain into follow-up calls.
		CreateCategory(ctx context.Context, ownerID int64, name string) (core.Category, error)
		UpdateCategory(ctx context.Context, ownerID, id int64, name string) (core.Category, error)
		DeleteCategory(ctx context.Context, ownerID, id int64) error
	}

	TransactionAPI interface {
		ListTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error)
		CreateTransaction(ctx context.Context, req TransactionRequest) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, ownerID, id int64) error
	}

	GoalAPI interface {
		ListGoals(ctx context.Context, ownerID int64) ([]core.Goal, error)
		// CreateGoal also creates the goal's vault account.
		CreateGoal(ctx context.Context, req GoalRequest) (core.Goal, error)
	}

	TransferAPI interface {
		// CreateTransfer returns the debit leg followed by the credit leg.
		CreateTransfer(ctx context.Context, req TransferRequest) ([]core.Transaction, error)
	}

	ProfileAPI interface {
		UpdateProfile(ctx context.Context, req ProfileUpdate) (core.Profile, error)
		DeleteProfile(ctx context.Context, ownerID int64, currentPassword string) error
	}

	// Collaborator is the full remote surface.
	Collaborator interface {
		AccountAPI
		CategoryAPI
		TransactionAPI
		GoalAPI
		TransferAPI
		ProfileAPI
	}
)

// Request types. Amounts are signed as described on core.Transaction.
type (
	AccountRequest struct {
		OwnerID        int64
		Name           string
		Kind           core.AccountKind
		OpeningBalance core.Money
	}

	// TransactionRequest carries the type flag alongside the signed amount;
	// the collaborator rejects a pair that disagrees.
	TransactionRequest struct {
		OwnerID     int64
		AccountID   int64
		CategoryID  int64
		Kind        core.TransactionKind
		Amount      core.Money
		Description string
		OperatedAt  core.Timestamp
	}

	GoalRequest struct {
		OwnerID    int64
		Name       string
		Target     core.Money
		TargetDate core.Date
	}

	// TransferRequest moves a positive Amount from Source to Destination.
	TransferRequest struct {
		OwnerID       int64
		SourceID      int64
		DestinationID int64
		Amount        core.Money
		OperatedAt    core.Timestamp
	}

	// ProfileUpdate leaves the password untouched when NewPassword is empty.
	ProfileUpdate struct {
		OwnerID         int64
		Name            string
		Email           string
		CurrentPassword string
		NewPassword     string
	}
)
