package storage

import (
	"context"
	"errors"

	"expenses/internal/core"
)

// ErrNotFound is returned when no expense has the requested id.
var ErrNotFound = errors.New("expense not found")

// Repository is the persistence port behind the REST backend.
type Repository interface {
	// List returns expenses ordered by date desc, then id desc. A nil month
	// returns every expense.
	List(ctx context.Context, month *core.Month) ([]core.Expense, error)
	Get(ctx context.Context, id int64) (core.Expense, error)
	// Create stores e and returns it with its assigned id.
	Create(ctx context.Context, e core.Expense) (core.Expense, error)
	// Update replaces category, amount and date of e.ID.
	Update(ctx context.Context, e core.Expense) (core.Expense, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}
