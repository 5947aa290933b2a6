package services

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

// ExpenseInput is a create or update request body as received on the wire.
// Amount is kept raw because clients send either a JSON number or a string.
type ExpenseInput struct {
	Category string          `json:"category"`
	Amount   json.RawMessage `json:"amount"`
	Date     *string         `json:"date"`
}

// ToExpense normalizes the input: a blank category becomes
// core.DefaultCategory, a missing amount is zero, and a missing or
// unparsable date becomes today's UTC date.
func (in ExpenseInput) ToExpense() (core.Expense, error) {
	amount, err := parseRawAmount(in.Amount)
	if err != nil {
		return core.Expense{}, err
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = core.DefaultCategory
	}

	date := core.Today()
	if in.Date != nil && strings.TrimSpace(*in.Date) != "" {
		if d, err := core.ParseDate(*in.Date); err == nil {
			date = d
		}
	}

	e := core.Expense{Category: category, Amount: amount, Date: &date}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func parseRawAmount(raw json.RawMessage) (core.Money, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return core.Money{}, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return core.Money{}, core.ErrInvalidAmount
		}
		m, err := core.ParseAmount(s)
		if err != nil {
			return core.Money{}, core.ErrInvalidAmount
		}
		return m, nil
	case 'n', 't', 'f', '{', '[':
		return core.Money{}, core.ErrInvalidAmount
	}

	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	m, err := core.MoneyFromDecimal(d)
	if err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	return m, nil
}
