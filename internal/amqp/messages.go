package amqp

import (
	"encoding/json"
	"time"
)

const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// TransactionRecordedMessage is a lightweight event published after a
// transaction is stored. It carries only identifiers; the worker fetches
// the full record from the database.
type TransactionRecordedMessage struct {
	Kind      string    `json:"kind"` // income or expense
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(kind string, id, userID int64, date string) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		Kind:      kind,
		ID:        id,
		UserID:    userID,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
