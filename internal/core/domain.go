package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage layout for expense dates.
const DateLayout = "2006-01-02"

// DefaultCategory replaces a blank category on create and update.
const DefaultCategory = "Uncategorized"

type (
	Date struct {
		time.Time
	}

	Month struct {
		Year  int
		Month int // 1-12
	}

	// Expense is one record as owned by the store. Date is optional.
	Expense struct {
		ID       int64
		Category string
		Amount   Money
		Date     *Date
	}
)

var (
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyCategory   = errors.New("empty category")
	ErrCategoryTooLong = errors.New("category too long (max 80 characters)")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC calendar date.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseMonth parses a YYYY-MM month selector.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: int(t.Month())}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Contains reports whether d falls inside the month.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && int(d.Month()) == m.Month
}

// Range returns the first day of the month and the first day of the next one.
func (m Month) Range() (from, to Date) {
	start := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
	return Date{Time: start}, Date{Time: start.AddDate(0, 1, 0)}
}

// DateString returns the record date or "" when it has none.
func (e Expense) DateString() string {
	if e.Date == nil {
		return ""
	}
	return e.Date.String()
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Category) > 80 {
		return ErrCategoryTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
