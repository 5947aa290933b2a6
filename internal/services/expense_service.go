package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/storage"
)

// Publisher announces store changes. *amqp.Client implements it.
type Publisher interface {
	PublishExpenseChanged(ctx context.Context, msg *amqp.ExpenseChangedMessage) error
}

// Metrics counts service activity for the /metrics endpoint.
type Metrics struct {
	Created       int64
	Updated       int64
	Deleted       int64
	CacheHits     int64
	CacheMisses   int64
	PublishErrors int64
}

// ExpenseService owns the expense store: validation, list caching and change
// notification all go through it.
type ExpenseService struct {
	repo      storage.Repository
	lists     cache.Cache[[]core.Expense]
	publisher Publisher
	logger    *applog.Logger

	// generation counts mutations; a list read before a mutation must not
	// be cached after it.
	cacheMu    sync.Mutex
	generation uint64

	created, updated, deleted int64
	hits, misses, pubErrors   int64
}

// NewExpenseService wires a repository with an optional list cache and
// publisher. Either may be nil.
func NewExpenseService(repo storage.Repository, lists cache.Cache[[]core.Expense], publisher Publisher, logger *applog.Logger) *ExpenseService {
	if logger == nil {
		logger = applog.Default(applog.ComponentExpense)
	}
	return &ExpenseService{
		repo:      repo,
		lists:     lists,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentExpense),
	}
}

// ListExpenses returns expenses for month ("YYYY-MM") or all of them when
// month is empty. An unparsable month yields core.ErrInvalidMonth.
func (s *ExpenseService) ListExpenses(ctx context.Context, month string) ([]core.Expense, error) {
	var filter *core.Month
	key := "all"
	if month != "" {
		m, err := core.ParseMonth(month)
		if err != nil {
			return nil, err
		}
		filter = &m
		key = m.String()
	}

	var gen uint64
	if s.lists != nil {
		gen = s.currentGeneration()
		if items, ok := s.lists.Get(key); ok {
			atomic.AddInt64(&s.hits, 1)
			s.logger.DebugContext(ctx, "Expense list cache hit", applog.FieldMonth, key, applog.FieldCount, len(items))
			return cloneList(items), nil
		}
		atomic.AddInt64(&s.misses, 1)
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list expenses (month=%s): %w", key, err)
	}
	if s.lists != nil {
		s.fill(key, gen, items)
	}
	return items, nil
}

func (s *ExpenseService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// fill caches items unless a mutation happened since gen was read.
func (s *ExpenseService) fill(key string, gen uint64, items []core.Expense) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != gen {
		s.logger.Debug("Skipping cache fill after concurrent change", applog.FieldMonth, key)
		return
	}
	s.lists.Set(key, cloneList(items))
}

func (s *ExpenseService) invalidate() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	s.lists.Purge()
}

// CreateExpense validates and stores a new expense.
func (s *ExpenseService) CreateExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	e, err := in.ToExpense()
	if err != nil {
		return core.Expense{}, err
	}
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	atomic.AddInt64(&s.created, 1)

	s.logger.InfoContext(ctx, "Expense created",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithExpense(created.ID, created.Category, created.Amount.Cents).
			ToSlice()...)
	s.changed(ctx, created.ID, amqp.ActionCreated, created)
	return created, nil
}

// UpdateExpense replaces category, amount and date of an existing expense.
// Unknown ids yield storage.ErrNotFound.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id int64, in ExpenseInput) (core.Expense, error) {
	e, err := in.ToExpense()
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id
	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	atomic.AddInt64(&s.updated, 1)

	s.logger.InfoContext(ctx, "Expense updated",
		applog.NewFields().
			WithOperation(applog.OpUpdate).
			WithExpense(updated.ID, updated.Category, updated.Amount.Cents).
			ToSlice()...)
	s.changed(ctx, id, amqp.ActionUpdated, updated)
	return updated, nil
}

// DeleteExpense removes an expense. Unknown ids yield storage.ErrNotFound.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	atomic.AddInt64(&s.deleted, 1)

	s.logger.InfoContext(ctx, "Expense deleted", applog.FieldOperation, applog.OpDelete, applog.FieldExpenseID, id)
	s.changed(ctx, id, amqp.ActionDeleted, core.Expense{ID: id})
	return nil
}

// changed invalidates cached lists and publishes a notification. Publishing
// failures are logged; the mutation has already been stored.
func (s *ExpenseService) changed(ctx context.Context, id int64, action string, e core.Expense) {
	if s.lists != nil {
		s.invalidate()
	}
	if s.publisher == nil {
		return
	}

	month := ""
	if e.Date != nil {
		month = e.Date.Format("2006-01")
	}
	if err := s.publisher.PublishExpenseChanged(ctx, amqp.NewExpenseChangedMessage(id, action, month)); err != nil {
		atomic.AddInt64(&s.pubErrors, 1)
		s.logger.WarnContext(ctx, "Failed to publish expense change",
			applog.FieldExpenseID, id,
			"action", action,
			applog.FieldError, err)
	}
}

// Ping checks that the store is reachable.
func (s *ExpenseService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// CacheSize returns the number of cached lists.
func (s *ExpenseService) CacheSize() int {
	if s.lists == nil {
		return 0
	}
	return s.lists.Size()
}

func (s *ExpenseService) Metrics() Metrics {
	return Metrics{
		Created:       atomic.LoadInt64(&s.created),
		Updated:       atomic.LoadInt64(&s.updated),
		Deleted:       atomic.LoadInt64(&s.deleted),
		CacheHits:     atomic.LoadInt64(&s.hits),
		CacheMisses:   atomic.LoadInt64(&s.misses),
		PublishErrors: atomic.LoadInt64(&s.pubErrors),
	}
}

func cloneList(items []core.Expense) []core.Expense {
	out := make([]core.Expense, len(items))
	for i, e := range items {
		if e.Date != nil {
			d := *e.Date
			e.Date = &d
		}
		out[i] = e
	}
	return out
}
