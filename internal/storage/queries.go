package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type (
	ProfileRow struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
	}

	AccountRow struct {
		ID           int64
		OwnerID      int64
		Name         string
		Kind         string
		OpeningCents int64
	}

	CategoryRow struct {
		ID        int64
		OwnerID   int64
		Name      string
		IsDefault bool
	}

	TransactionRow struct {
		ID          int64
		OwnerID     int64
		AccountID   int64
		CategoryID  int64
		AmountCents int64
		Description string
		OperatedAt  string
		PairID      sql.NullInt64
	}

	GoalRow struct {
		ID             int64
		OwnerID        int64
		Name           string
		TargetCents    int64
		TargetDate     string
		VaultAccountID int64
	}
)

const createProfile = `INSERT INTO profiles (name, email, password_hash) VALUES (?, ?, ?) RETURNING id`

func (q *Queries) CreateProfile(ctx context.Context, name, email, hash string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createProfile, name, email, hash).Scan(&id)
	return id, err
}

const createProfileWithID = `INSERT INTO profiles (id, name, email, password_hash) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateProfileWithID(ctx context.Context, id int64, name, email, hash string) error {
	_, err := q.db.ExecContext(ctx, createProfileWithID, id, name, email, hash)
	return err
}

const getProfile = `SELECT id, name, email, password_hash FROM profiles WHERE id = ?`

func (q *Queries) GetProfile(ctx context.Context, id int64) (ProfileRow, error) {
	var p ProfileRow
	err := q.db.QueryRowContext(ctx, getProfile, id).Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash)
	return p, err
}

const updateProfile = `UPDATE profiles SET name = ?, email = ?, password_hash = ? WHERE id = ?`

func (q *Queries) UpdateProfile(ctx context.Context, p ProfileRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateProfile, p.Name, p.Email, p.PasswordHash, p.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Owner-scoped deletes, in dependency order.
var deleteOwnerRows = []string{
	`DELETE FROM goals WHERE owner_id = ?`,
	`DELETE FROM transactions WHERE owner_id = ?`,
	`DELETE FROM categories WHERE owner_id = ?`,
	`DELETE FROM accounts WHERE owner_id = ?`,
	`DELETE FROM profiles WHERE id = ?`,
}

func (q *Queries) DeleteOwner(ctx context.Context, ownerID int64) (int64, error) {
	var affected int64
	for _, stmt := range deleteOwnerRows {
		res, err := q.db.ExecContext(ctx, stmt, ownerID)
		if err != nil {
			return 0, err
		}
		affected, _ = res.RowsAffected()
	}
	// The last statement removes the profile itself.
	return affected, nil
}

const listAccounts = `SELECT id, owner_id, name, kind, opening_cents FROM accounts WHERE owner_id = ? ORDER BY id`

func (q *Queries) ListAccounts(ctx context.Context, ownerID int64) ([]AccountRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccountRow
	for rows.Next() {
		var a AccountRow
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Kind, &a.OpeningCents); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const getAccount = `SELECT id, owner_id, name, kind, opening_cents FROM accounts WHERE owner_id = ? AND id = ?`

func (q *Queries) GetAccount(ctx context.Context, ownerID, id int64) (AccountRow, error) {
	var a AccountRow
	err := q.db.QueryRowContext(ctx, getAccount, ownerID, id).Scan(&a.ID, &a.OwnerID, &a.Name, &a.Kind, &a.OpeningCents)
	return a, err
}

const createAccount = `INSERT INTO accounts (owner_id, name, kind, opening_cents) VALUES (?, ?, ?, ?) RETURNING id`

func (q *Queries) CreateAccount(ctx context.Context, a AccountRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createAccount, a.OwnerID, a.Name, a.Kind, a.OpeningCents).Scan(&id)
	return id, err
}

const listCategories = `SELECT id, owner_id, name, is_default FROM categories WHERE owner_id = ? ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context, ownerID int64) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		var c CategoryRow
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.IsDefault); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getCategory = `SELECT id, owner_id, name, is_default FROM categories WHERE owner_id = ? AND id = ?`

func (q *Queries) GetCategory(ctx context.Context, ownerID, id int64) (CategoryRow, error) {
	var c CategoryRow
	err := q.db.QueryRowContext(ctx, getCategory, ownerID, id).Scan(&c.ID, &c.OwnerID, &c.Name, &c.IsDefault)
	return c, err
}

const createCategory = `INSERT INTO categories (owner_id, name, is_default) VALUES (?, ?, ?) RETURNING id`

func (q *Queries) CreateCategory(ctx context.Context, c CategoryRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCategory, c.OwnerID, c.Name, c.IsDefault).Scan(&id)
	return id, err
}

const updateCategory = `UPDATE categories SET name = ? WHERE owner_id = ? AND id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, c CategoryRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCategory, c.Name, c.OwnerID, c.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteCategory = `DELETE FROM categories WHERE owner_id = ? AND id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, ownerID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, ownerID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const transactionColumns = `id, owner_id, account_id, category_id, amount_cents, description, operated_at, pair_id`

func scanTransaction(scan func(...any) error) (TransactionRow, error) {
	var t TransactionRow
	err := scan(&t.ID, &t.OwnerID, &t.AccountID, &t.CategoryID, &t.AmountCents, &t.Description, &t.OperatedAt, &t.PairID)
	return t, err
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = ? ORDER BY operated_at, id`

func (q *Queries) ListTransactions(ctx context.Context, ownerID int64) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = ? AND id = ?`

func (q *Queries) GetTransaction(ctx context.Context, ownerID, id int64) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, ownerID, id).Scan)
}

const createTransaction = `INSERT INTO transactions (owner_id, account_id, category_id, amount_cents, description, operated_at, pair_id)
VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`

func (q *Queries) CreateTransaction(ctx context.Context, t TransactionRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction,
		t.OwnerID, t.AccountID, t.CategoryID, t.AmountCents, t.Description, t.OperatedAt, t.PairID).Scan(&id)
	return id, err
}

const setTransactionPair = `UPDATE transactions SET pair_id = ? WHERE id = ?`

func (q *Queries) SetTransactionPair(ctx context.Context, id, pairID int64) error {
	_, err := q.db.ExecContext(ctx, setTransactionPair, pairID, id)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE owner_id = ? AND id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, ownerID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, ownerID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listGoals = `SELECT id, owner_id, name, target_cents, target_date, vault_account_id FROM goals WHERE owner_id = ? ORDER BY id`

func (q *Queries) ListGoals(ctx context.Context, ownerID int64) ([]GoalRow, error) {
	rows, err := q.db.QueryContext(ctx, listGoals, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GoalRow
	for rows.Next() {
		var g GoalRow
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.TargetCents, &g.TargetDate, &g.VaultAccountID); err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

const createGoal = `INSERT INTO goals (owner_id, name, target_cents, target_date, vault_account_id) VALUES (?, ?, ?, ?, ?) RETURNING id`

func (q *Queries) CreateGoal(ctx context.Context, g GoalRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createGoal, g.OwnerID, g.Name, g.TargetCents, g.TargetDate, g.VaultAccountID).Scan(&id)
	return id, err
}
