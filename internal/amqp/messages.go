package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Change actions carried by ExpenseChangedMessage.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseChangedMessage announces that the expense store changed.
// It carries no record data; consumers refetch through the REST API.
type ExpenseChangedMessage struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Month     string    `json:"month,omitempty"` // YYYY-MM of the record date, empty when undated
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseChangedMessage creates a change message stamped with the current time.
func NewExpenseChangedMessage(id int64, action, month string) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		ID:        id,
		Action:    action,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseChangedMessageFromJSON decodes and validates a message body.
func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	return &msg, nil
}
