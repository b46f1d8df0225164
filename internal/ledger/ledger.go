// Package ledger is an in-process implementation of the finance
// collaborator's business rules. It backs the development server, the CLI's
// offline mode and the tests.
package ledger

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"expresso/internal/core"
)

// ErrNotFound is returned by repositories for a missing row, or a row owned
// by someone else.
var ErrNotFound = errors.New("not found")

// Repository persists ledger rows. Account balances are not stored; the
// service derives them from the transactions.
type Repository interface {
	InsertProfile(ctx context.Context, p core.Profile, passwordHash string) (core.Profile, error)
	GetProfile(ctx context.Context, id int64) (core.Profile, string, error)
	UpdateProfile(ctx context.Context, p core.Profile, passwordHash string) error
	// DeleteOwner removes the profile and every row it owns.
	DeleteOwner(ctx context.Context, ownerID int64) error

	ListAccounts(ctx context.Context, ownerID int64) ([]core.Account, error)
	GetAccount(ctx context.Context, ownerID, id int64) (core.Account, error)
	InsertAccount(ctx context.Context, a core.Account) (core.Account, error)

	ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error)
	GetCategory(ctx context.Context, ownerID, id int64) (core.Category, error)
	InsertCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, ownerID, id int64) error

	ListTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, ownerID, id int64) (core.Transaction, error)
	InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	// InsertTransfer stores both legs atomically and links them.
	InsertTransfer(ctx context.Context, debit, credit core.Transaction) (core.Transaction, core.Transaction, error)
	// DeleteTransaction removes the row and, for a transfer leg, its pair.
	DeleteTransaction(ctx context.Context, ownerID, id int64) ([]int64, error)

	ListGoals(ctx context.Context, ownerID int64) ([]core.Goal, error)
	// InsertGoal stores the vault account and the goal pointing at it.
	InsertGoal(ctx context.Context, g core.Goal, vault core.Account) (core.Goal, error)

	Close() error
}

// Event types published after each successful mutation.
const (
	EventAccountCreated     = "account.created"
	EventCategoryCreated    = "category.created"
	EventCategoryUpdated    = "category.updated"
	EventCategoryDeleted    = "category.deleted"
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
	EventTransferCreated    = "transfer.created"
	EventGoalCreated        = "goal.created"
	EventProfileUpdated     = "profile.updated"
	EventProfileDeleted     = "profile.deleted"
)

type Event struct {
	Type      string
	OwnerID   int64
	EntityID  int64
	Timestamp time.Time
}

type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// DefaultCategories are created for every new owner next to the protected
// transfer category.
var DefaultCategories = []string{"Alimentação", "Transporte", "Moradia", "Saúde", "Lazer", "Salário"}

// ReadSeedFile reads category names, one per line, skipping blanks and
// # comments. A missing file yields nil.
func ReadSeedFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out
}
