//go:build integration

package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"expenses/internal/core"
)

// Integration tests require a reachable PostgreSQL database.
// Run with: DATABASE_URL=postgres://... go test -tags=integration ./internal/storage

func TestIntegration_PostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := NewPostgresRepository(ctx, databaseURL, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer repo.Close()

	if _, err := repo.pool.Exec(ctx, `DELETE FROM expenses`); err != nil {
		t.Fatalf("reset table: %v", err)
	}

	food, err := repo.Create(ctx, core.Expense{Category: "Food", Amount: core.Money{Cents: 1250}, Date: ptr(core.NewDate(2024, 1, 5))})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rent, err := repo.Create(ctx, core.Expense{Category: "Rent", Amount: core.Money{Cents: 50000}, Date: ptr(core.NewDate(2024, 2, 1))})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	undated, err := repo.Create(ctx, core.Expense{Category: "Misc", Amount: core.Money{Cents: 5}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != rent.ID || all[1].ID != food.ID || all[2].ID != undated.ID {
		t.Fatalf("unexpected order %+v", all)
	}

	jan := core.Month{Year: 2024, Month: 1}
	got, err := repo.List(ctx, &jan)
	if err != nil || len(got) != 1 || got[0].ID != food.ID {
		t.Fatalf("month filter: %+v, %v", got, err)
	}

	food.Amount = core.Money{Cents: 1500}
	updated, err := repo.Update(ctx, food)
	if err != nil || updated.Amount.String() != "15.00" || updated.DateString() != "2024-01-05" {
		t.Fatalf("update: %+v, %v", updated, err)
	}
	if _, err := repo.Update(ctx, core.Expense{ID: -1, Category: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update unknown: %v", err)
	}

	if err := repo.Delete(ctx, rent.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, rent.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := repo.Get(ctx, rent.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
}
