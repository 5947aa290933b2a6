package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

// PostgresRepository stores expenses in PostgreSQL through a pgx pool.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *applog.Logger
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(ctx context.Context, databaseURL string, logger *applog.Logger) (*PostgresRepository, error) {
	if logger == nil {
		logger = applog.Default(applog.ComponentStorage)
	}
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresRepository{pool: pool, logger: logger.WithComponent(applog.ComponentStorage)}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const pgColumns = `id, category, amount_cents, date`

func (r *PostgresRepository) List(ctx context.Context, month *core.Month) ([]core.Expense, error) {
	query := `SELECT ` + pgColumns + ` FROM expenses`
	var args []any
	if month != nil {
		from, to := month.Range()
		query += ` WHERE date >= $1 AND date < $2`
		args = append(args, from.Time, to.Time)
	}
	query += ` ORDER BY date DESC NULLS LAST, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var items []core.Expense
	for rows.Next() {
		e, err := scanPgExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (core.Expense, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM expenses WHERE id = $1`, id)
	e, err := scanPgExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO expenses (category, amount_cents, date) VALUES ($1, $2, $3) RETURNING `+pgColumns,
		e.Category, e.Amount.Cents, pgDate(e.Date))
	created, err := scanPgExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	r.logger.InfoContext(ctx, "Expense saved to Postgres",
		applog.FieldExpenseID, created.ID,
		applog.FieldCategory, created.Category,
		applog.FieldAmountCents, created.Amount.Cents)
	return created, nil
}

func (r *PostgresRepository) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE expenses SET category = $1, amount_cents = $2, date = $3, updated_at = now()
		 WHERE id = $4 RETURNING `+pgColumns,
		e.Category, e.Amount.Cents, pgDate(e.Date), e.ID)
	updated, err := scanPgExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.InfoContext(ctx, "Expense deleted from Postgres", applog.FieldExpenseID, id)
	return nil
}

func scanPgExpense(row pgx.Row) (core.Expense, error) {
	var (
		e     core.Expense
		cents int64
		date  *time.Time
	)
	if err := row.Scan(&e.ID, &e.Category, &cents, &date); err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.Money{Cents: cents}
	if date != nil {
		d := core.NewDate(date.Year(), int(date.Month()), date.Day())
		e.Date = &d
	}
	return e, nil
}

func pgDate(d *core.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.Time
}
