package core

import (
	"encoding/json"
	"testing"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-01")
	if err != nil || m.Year != 2024 || m.Month != 1 {
		t.Fatalf("unexpected month %+v err=%v", m, err)
	}
	if m.String() != "2024-01" {
		t.Fatalf("unexpected string %q", m.String())
	}
	for _, bad := range []string{"", "2024", "2024-13", "01-2024", "abc"} {
		if _, err := ParseMonth(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestMonthContainsAndRange(t *testing.T) {
	m := Month{Year: 2024, Month: 12}
	if !m.Contains(NewDate(2024, 12, 31)) || m.Contains(NewDate(2025, 1, 1)) {
		t.Fatalf("unexpected containment for %s", m)
	}
	from, to := m.Range()
	if from.String() != "2024-12-01" || to.String() != "2025-01-01" {
		t.Fatalf("unexpected range %s..%s", from, to)
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-01-05"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, _ := json.Marshal(d)
	if string(b) != `"2024-01-05"` {
		t.Fatalf("unexpected json %s", b)
	}
	if err := json.Unmarshal([]byte(`"05/01/2024"`), &d); err == nil {
		t.Fatalf("expected error for bad layout")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Category: "Food", Amount: Money{Cents: 0}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Expense{
		{Category: " ", Amount: Money{Cents: 1}},
		{Category: "Food", Amount: Money{Cents: -1}},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
	if (Expense{}).DateString() != "" {
		t.Fatalf("expected empty date string")
	}
}

func TestGroupByCategoryAndTotal(t *testing.T) {
	items := []Expense{
		{ID: 1, Category: "Food", Amount: Money{Cents: 1250}},
		{ID: 2, Category: "Rent", Amount: Money{Cents: 50000}},
		{ID: 3, Category: "Food", Amount: Money{Cents: 750}},
	}
	groups := GroupByCategory(items)
	if len(groups) != 2 || groups[0].Name != "Food" || groups[1].Name != "Rent" {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if groups[0].Amount.Cents != 2000 {
		t.Fatalf("expected Food=2000, got %d", groups[0].Amount.Cents)
	}
	if Total(items).Cents != 52000 {
		t.Fatalf("unexpected total %d", Total(items).Cents)
	}
	if len(GroupByCategory(nil)) != 0 || Total(nil).Cents != 0 {
		t.Fatalf("expected empty results for nil input")
	}
}
