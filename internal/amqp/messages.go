package amqp

import (
	"encoding/json"
	"time"
)

// RoutingKey is the routing key of "expense recorded" events.
const RoutingKey = "expense.recorded"

// ExpenseRecordedMessage announces that an expense was stored in SQLite.
// It carries only the row id; consumers read the row itself from the database.
type ExpenseRecordedMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseRecordedMessage(id int64) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
