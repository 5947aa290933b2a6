package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"expenses/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "expenses.db"), nil)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func ptr(d core.Date) *core.Date { return &d }

func TestSQLiteRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	food, err := repo.Create(ctx, core.Expense{Category: "Food", Amount: core.Money{Cents: 1250}, Date: ptr(core.NewDate(2024, 1, 5))})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if food.ID == 0 || food.DateString() != "2024-01-05" {
		t.Fatalf("unexpected created row %+v", food)
	}
	rent, _ := repo.Create(ctx, core.Expense{Category: "Rent", Amount: core.Money{Cents: 50000}, Date: ptr(core.NewDate(2024, 2, 1))})
	undated, _ := repo.Create(ctx, core.Expense{Category: "Misc", Amount: core.Money{Cents: 5}})
	if undated.Date != nil {
		t.Fatalf("expected nil date, got %v", undated.Date)
	}

	all, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != rent.ID || all[1].ID != food.ID || all[2].ID != undated.ID {
		t.Fatalf("unexpected order %+v", all)
	}

	jan := core.Month{Year: 2024, Month: 1}
	items, err := repo.List(ctx, &jan)
	if err != nil || len(items) != 1 || items[0].ID != food.ID {
		t.Fatalf("unexpected month list %+v err=%v", items, err)
	}

	food.Amount = core.Money{Cents: 1500}
	food.Category = "Groceries"
	updated, err := repo.Update(ctx, food)
	if err != nil || updated.Amount.Cents != 1500 || updated.Category != "Groceries" {
		t.Fatalf("unexpected update %+v err=%v", updated, err)
	}

	if _, err := repo.Update(ctx, core.Expense{ID: 999, Category: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, rent.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, rent.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, rent.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path, nil)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		repo.Close()
	}
}

func TestPgxMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@db:5432/x":   "pgx5://u:p@db:5432/x",
		"postgresql://u:p@db:5432/x": "pgx5://u:p@db:5432/x",
		"pgx5://db/x":                "pgx5://db/x",
	}
	for in, want := range cases {
		if got := pgxMigrateURL(in); got != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}
}
