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

// Queries holds the SQL used by SQLiteRepository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Expense is the row shape of the expenses table.
type Expense struct {
	ID          int64
	Category    string
	AmountCents int64
	Date        sql.NullString
}

const expenseColumns = `id, category, amount_cents, date`

const createExpense = `INSERT INTO expenses (category, amount_cents, date)
VALUES (?, ?, ?)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	Category    string
	AmountCents int64
	Date        sql.NullString
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense, arg.Category, arg.AmountCents, arg.Date)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses
ORDER BY date DESC NULLS LAST, id DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	return q.list(ctx, listExpenses)
}

const listExpensesBetween = `SELECT ` + expenseColumns + ` FROM expenses
WHERE date >= ? AND date < ?
ORDER BY date DESC NULLS LAST, id DESC`

// ListExpensesBetween returns expenses with from <= date < to (YYYY-MM-DD strings).
func (q *Queries) ListExpensesBetween(ctx context.Context, from, to string) ([]Expense, error) {
	return q.list(ctx, listExpensesBetween, from, to)
}

const updateExpense = `UPDATE expenses
SET category = ?, amount_cents = ?, date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + expenseColumns

type UpdateExpenseParams struct {
	ID          int64
	Category    string
	AmountCents int64
	Date        sql.NullString
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, updateExpense, arg.Category, arg.AmountCents, arg.Date, arg.ID)
	return scanExpense(row)
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

// DeleteExpense returns the number of deleted rows.
func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) list(ctx context.Context, query string, args ...any) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.Category, &e.AmountCents, &e.Date); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanExpense(row *sql.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Category, &e.AmountCents, &e.Date)
	return e, err
}
