package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"expresso/internal/core"
	"expresso/internal/ledger"
	applog "expresso/internal/log"

	_ "modernc.org/sqlite"
)

var _ ledger.Repository = (*SQLiteRepository)(nil)

// Wall-clock layout for operated_at; ParseTimestamp reads it back as UTC.
const operatedAtLayout = "2006-01-02T15:04:05.999999999"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
}

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer avoids SQLITE_BUSY between the service's transactions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(applog.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	return err
}

func affected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Profiles

func (r *SQLiteRepository) InsertProfile(ctx context.Context, p core.Profile, hash string) (core.Profile, error) {
	if p.ID != 0 {
		if err := r.queries.CreateProfileWithID(ctx, p.ID, p.Name, p.Email, hash); err != nil {
			return core.Profile{}, fmt.Errorf("create profile: %w", err)
		}
		return p, nil
	}
	id, err := r.queries.CreateProfile(ctx, p.Name, p.Email, hash)
	if err != nil {
		return core.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	p.ID = id
	return p, nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, id int64) (core.Profile, string, error) {
	row, err := r.queries.GetProfile(ctx, id)
	if err != nil {
		return core.Profile{}, "", notFound(err)
	}
	return core.Profile{ID: row.ID, Name: row.Name, Email: row.Email}, row.PasswordHash, nil
}

func (r *SQLiteRepository) UpdateProfile(ctx context.Context, p core.Profile, hash string) error {
	return affected(r.queries.UpdateProfile(ctx, ProfileRow{ID: p.ID, Name: p.Name, Email: p.Email, PasswordHash: hash}))
}

func (r *SQLiteRepository) DeleteOwner(ctx context.Context, ownerID int64) error {
	err := r.inTx(ctx, func(q *Queries) error {
		return affected(q.DeleteOwner(ctx, ownerID))
	})
	if err == nil {
		r.logger.InfoContext(ctx, "Owner rows deleted", applog.FieldOwnerID, ownerID)
	}
	return err
}

// Accounts

func accountFromRow(row AccountRow) core.Account {
	return core.Account{
		ID:             row.ID,
		OwnerID:        row.OwnerID,
		Name:           row.Name,
		Kind:           core.AccountKind(row.Kind),
		OpeningBalance: core.Cents(row.OpeningCents),
	}
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, ownerID int64) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, len(rows))
	for i, row := range rows {
		out[i] = accountFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, ownerID, id int64) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, ownerID, id)
	if err != nil {
		return core.Account{}, notFound(err)
	}
	return accountFromRow(row), nil
}

func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.Account) (core.Account, error) {
	id, err := r.queries.CreateAccount(ctx, AccountRow{OwnerID: a.OwnerID, Name: a.Name, Kind: string(a.Kind), OpeningCents: a.OpeningBalance.Cents})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID = id
	a.Balance = core.Money{}
	return a, nil
}

// Categories

func categoryFromRow(row CategoryRow) core.Category {
	return core.Category{ID: row.ID, OwnerID: row.OwnerID, Name: row.Name, Default: row.IsDefault}
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = categoryFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, ownerID, id int64) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, ownerID, id)
	if err != nil {
		return core.Category{}, notFound(err)
	}
	return categoryFromRow(row), nil
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := r.queries.CreateCategory(ctx, CategoryRow{OwnerID: c.OwnerID, Name: c.Name, IsDefault: c.Default})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID = id
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	return affected(r.queries.UpdateCategory(ctx, CategoryRow{ID: c.ID, OwnerID: c.OwnerID, Name: c.Name}))
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, ownerID, id int64) error {
	return affected(r.queries.DeleteCategory(ctx, ownerID, id))
}

// Transactions

func transactionFromRow(row TransactionRow) (core.Transaction, error) {
	at, err := core.ParseTimestamp(row.OperatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	return core.Transaction{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		AccountID:   row.AccountID,
		CategoryID:  row.CategoryID,
		Amount:      core.Cents(row.AmountCents),
		Description: row.Description,
		OperatedAt:  at,
	}, nil
}

func transactionRow(t core.Transaction) TransactionRow {
	return TransactionRow{
		OwnerID:     t.OwnerID,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		OperatedAt:  t.OperatedAt.Format(operatedAtLayout),
	}
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, notFound(err)
	}
	return transactionFromRow(row)
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	id, err := r.queries.CreateTransaction(ctx, transactionRow(t))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t.ID = id

	r.logger.DebugContext(ctx, "Transaction saved",
		applog.FieldTransactionID, id,
		applog.FieldAccountID, t.AccountID,
		applog.FieldAmountCents, t.Amount.Cents)
	return t, nil
}

func (r *SQLiteRepository) InsertTransfer(ctx context.Context, debit, credit core.Transaction) (core.Transaction, core.Transaction, error) {
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		if debit.ID, err = q.CreateTransaction(ctx, transactionRow(debit)); err != nil {
			return fmt.Errorf("create debit leg: %w", err)
		}
		row := transactionRow(credit)
		row.PairID = sql.NullInt64{Int64: debit.ID, Valid: true}
		if credit.ID, err = q.CreateTransaction(ctx, row); err != nil {
			return fmt.Errorf("create credit leg: %w", err)
		}
		return q.SetTransactionPair(ctx, debit.ID, credit.ID)
	})
	if err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}
	return debit, credit, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id int64) ([]int64, error) {
	var ids []int64
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetTransaction(ctx, ownerID, id)
		if err != nil {
			return notFound(err)
		}
		ids = append(ids[:0], id)
		if row.PairID.Valid {
			ids = append(ids, row.PairID.Int64)
		}
		for _, d := range ids {
			if _, err := q.DeleteTransaction(ctx, ownerID, d); err != nil {
				return fmt.Errorf("delete transaction %d: %w", d, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Goals

func (r *SQLiteRepository) ListGoals(ctx context.Context, ownerID int64) ([]core.Goal, error) {
	rows, err := r.queries.ListGoals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.Goal, 0, len(rows))
	for _, row := range rows {
		date, err := core.ParseDate(row.TargetDate)
		if err != nil {
			return nil, fmt.Errorf("goal %d: %w", row.ID, err)
		}
		out = append(out, core.Goal{
			ID:             row.ID,
			OwnerID:        row.OwnerID,
			Name:           row.Name,
			Target:         core.Cents(row.TargetCents),
			TargetDate:     date,
			VaultAccountID: row.VaultAccountID,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) InsertGoal(ctx context.Context, g core.Goal, vault core.Account) (core.Goal, error) {
	err := r.inTx(ctx, func(q *Queries) error {
		vaultID, err := q.CreateAccount(ctx, AccountRow{OwnerID: vault.OwnerID, Name: vault.Name, Kind: string(vault.Kind), OpeningCents: vault.OpeningBalance.Cents})
		if err != nil {
			return fmt.Errorf("create vault: %w", err)
		}
		g.VaultAccountID = vaultID
		g.ID, err = q.CreateGoal(ctx, GoalRow{
			OwnerID:        g.OwnerID,
			Name:           g.Name,
			TargetCents:    g.Target.Cents,
			TargetDate:     g.TargetDate.String(),
			VaultAccountID: vaultID,
		})
		if err != nil {
			return fmt.Errorf("create goal: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	return g, nil
}
