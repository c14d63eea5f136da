package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"dompet/internal/core"
)

// Message types, carried in the AMQP Type property.
const (
	TypeTransactionSync   = "transaction.sync"
	TypeTransactionDelete = "transaction.delete"
)

// TransactionSyncMessage asks the worker to mirror a transaction. It carries
// only the ID and version; the worker loads the row itself.
type TransactionSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("sync message without id")
	}
	return &msg, nil
}

// TransactionDeleteMessage carries the full deleted row, since it no longer
// exists in the database when the worker sees it.
type TransactionDeleteMessage struct {
	ID          int64      `json:"id"`
	AccountID   int64      `json:"account_id"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	IsExpense   bool       `json:"is_expense"`
	Category    string     `json:"category"`
	Timestamp   time.Time  `json:"timestamp"`
}

func NewTransactionDeleteMessage(t core.Transaction) *TransactionDeleteMessage {
	return &TransactionDeleteMessage{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Date:        t.Date.String(),
		Description: t.Description,
		Amount:      t.Amount.Rounded(),
		IsExpense:   t.IsExpense,
		Category:    t.Category,
		Timestamp:   time.Now(),
	}
}

func (m *TransactionDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionDeleteMessageFromJSON(data []byte) (*TransactionDeleteMessage, error) {
	var msg TransactionDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Transaction rebuilds the deleted row.
func (m *TransactionDeleteMessage) Transaction() (core.Transaction, error) {
	date, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete message %d: %w", m.ID, err)
	}
	return core.Transaction{
		ID:          m.ID,
		AccountID:   m.AccountID,
		Date:        date,
		Description: m.Description,
		Amount:      m.Amount,
		IsExpense:   m.IsExpense,
		Category:    m.Category,
	}, nil
}
