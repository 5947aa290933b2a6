package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"expenses/internal/core"
	"expenses/internal/storage"
)

// Store keeps expenses in process memory. Data is lost on restart.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Expense
}

var _ storage.Repository = (*Store)(nil)

func New(seed []core.Expense) *Store {
	s := &Store{nextID: 1, items: make(map[int64]core.Expense)}
	for _, e := range seed {
		e.ID = s.nextID
		s.items[e.ID] = cloneExpense(e)
		s.nextID++
	}
	return s
}

// NewFromFiles seeds the store from base/seed_expenses.txt when present.
// Each line is "YYYY-MM-DD,Category,Amount"; blank lines and # comments are skipped.
func NewFromFiles(base string) *Store {
	return New(readSeed(filepath.Join(base, "seed_expenses.txt")))
}

func (s *Store) List(_ context.Context, month *core.Month) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		if month != nil && (e.Date == nil || !month.Contains(*e.Date)) {
			continue
		}
		out = append(out, cloneExpense(e))
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].DateString(), out[j].DateString()
		if di != dj {
			if di == "" || dj == "" {
				return dj == ""
			}
			return di > dj
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	return cloneExpense(e), nil
}

func (s *Store) Create(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	s.items[e.ID] = cloneExpense(e)
	return cloneExpense(e), nil
}

func (s *Store) Update(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[e.ID]; !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	s.items[e.ID] = cloneExpense(e)
	return cloneExpense(e), nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func cloneExpense(e core.Expense) core.Expense {
	if e.Date != nil {
		d := *e.Date
		e.Date = &d
	}
	return e
}

func readSeed(path string) []core.Expense {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Expense
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ",", 3)
		if len(parts) != 3 {
			continue
		}
		amount, err := core.ParseAmount(parts[2])
		if err != nil {
			continue
		}
		e := core.Expense{Category: strings.TrimSpace(parts[1]), Amount: amount}
		if d, err := core.ParseDate(parts[0]); err == nil {
			e.Date = &d
		}
		if e.Validate() != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}
