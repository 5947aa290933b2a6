package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"expenses/internal/core"
)

// fakeRow hands fixed column values to Scan in id, category, cents, date order.
type fakeRow struct {
	id       int64
	category string
	cents    int64
	date     *time.Time
	err      error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 4 {
		return errors.New("unexpected column count")
	}
	*dest[0].(*int64) = r.id
	*dest[1].(*string) = r.category
	*dest[2].(*int64) = r.cents
	*dest[3].(**time.Time) = r.date
	return nil
}

func TestScanPgExpense(t *testing.T) {
	// pgx returns DATE columns as midnight UTC; a non-UTC zone must not shift the day
	loc := time.FixedZone("CET", 3600)
	dated := time.Date(2024, 1, 5, 0, 0, 0, 0, loc)

	e, err := scanPgExpense(fakeRow{id: 3, category: "Food", cents: 1250, date: &dated})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if e.ID != 3 || e.Category != "Food" || e.Amount.String() != "12.50" || e.DateString() != "2024-01-05" {
		t.Fatalf("unexpected expense %+v", e)
	}

	e, err = scanPgExpense(fakeRow{id: 4, category: "Misc", cents: 5})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if e.Date != nil {
		t.Fatalf("expected nil date, got %v", e.Date)
	}

	if _, err := scanPgExpense(fakeRow{err: pgx.ErrNoRows}); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestPgDate(t *testing.T) {
	if pgDate(nil) != nil {
		t.Error("nil date should be NULL")
	}
	zero := core.Date{}
	if pgDate(&zero) != nil {
		t.Error("zero date should be NULL")
	}

	d := core.NewDate(2024, 2, 29)
	got, ok := pgDate(&d).(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %T", pgDate(&d))
	}
	back, err := scanPgExpense(fakeRow{id: 1, category: "Rent", cents: 1, date: &got})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if back.DateString() != "2024-02-29" {
		t.Errorf("round trip = %q", back.DateString())
	}
}
