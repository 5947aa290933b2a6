package api

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"expenses/internal/core"
)

// Expense is the wire form of one record:
// {"id":1,"category":"Food","amount":12.5,"date":"2024-01-05"}.
type Expense struct {
	ID       int64   `json:"id"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Date     *string `json:"date"`
}

// FromCore converts a stored expense to its wire form.
func FromCore(e core.Expense) Expense {
	out := Expense{ID: e.ID, Category: e.Category, Amount: e.Amount.Float()}
	if e.Date != nil {
		s := e.Date.String()
		out.Date = &s
	}
	return out
}

// ToCore converts a wire record. A date that does not parse is dropped; an
// amount that is negative or out of range is an error.
func (e Expense) ToCore() (core.Expense, error) {
	m, err := core.MoneyFromFloat(e.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d amount %v: %w", e.ID, e.Amount, err)
	}
	out := core.Expense{ID: e.ID, Category: e.Category, Amount: m}
	if e.Date != nil && *e.Date != "" {
		if d, err := core.ParseDate(*e.Date); err == nil {
			out.Date = &d
		}
	}
	return out, nil
}

// Amount is a user-typed amount. It is sent as a JSON number when it parses
// as one and as a JSON string otherwise, so the backend decides validity.
type Amount string

func (a Amount) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(a))
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return json.Marshal(string(a))
}

// ExpenseRequest is the body of POST and PUT. A nil Date is sent as null.
type ExpenseRequest struct {
	Category string  `json:"category"`
	Amount   Amount  `json:"amount"`
	Date     *string `json:"date"`
}

// NewExpenseRequest builds a request body from form values. An empty date
// becomes null.
func NewExpenseRequest(category, amount, date string) ExpenseRequest {
	req := ExpenseRequest{Category: category, Amount: Amount(amount)}
	if date != "" {
		req.Date = &date
	}
	return req
}

// ErrorBody is the JSON body of a non-success response.
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody is the JSON body of a successful delete.
type MessageBody struct {
	Message string `json:"message"`
}
