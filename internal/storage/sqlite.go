package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"expenses/internal/core"
	applog "expenses/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Default(applog.ComponentStorage)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent handlers.
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

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) List(ctx context.Context, month *core.Month) ([]core.Expense, error) {
	var (
		rows []Expense
		err  error
	)
	if month == nil {
		rows, err = r.queries.ListExpenses(ctx)
	} else {
		from, to := month.Range()
		rows, err = r.queries.ListExpensesBetween(ctx, from.String(), to.String())
	}
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	items := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := row.toCore()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return row.toCore()
}

func (r *SQLiteRepository) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Category:    e.Category,
		AmountCents: e.Amount.Cents,
		Date:        nullDate(e.Date),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		applog.FieldExpenseID, row.ID,
		applog.FieldCategory, row.Category,
		applog.FieldAmountCents, row.AmountCents)

	return row.toCore()
}

func (r *SQLiteRepository) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	row, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		ID:          e.ID,
		Category:    e.Category,
		AmountCents: e.Amount.Cents,
		Date:        nullDate(e.Date),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return row.toCore()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	r.logger.InfoContext(ctx, "Expense deleted from SQLite", applog.FieldExpenseID, id)
	return nil
}

func (e Expense) toCore() (core.Expense, error) {
	out := core.Expense{
		ID:       e.ID,
		Category: e.Category,
		Amount:   core.Money{Cents: e.AmountCents},
	}
	if e.Date.Valid && e.Date.String != "" {
		d, err := core.ParseDate(e.Date.String)
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		out.Date = &d
	}
	return out, nil
}

func nullDate(d *core.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
