package events

import (
	"encoding/json"
	"time"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/money"
)

// Routing keys on the ledger exchange.
const (
	ExpenseRecorded    = "expense.recorded"
	SettlementRecorded = "settlement.recorded"
)

// AllocationMessage is one resolved share of an expense.
type AllocationMessage struct {
	MemberID string `json:"member_id"`
	Amount   string `json:"amount"`
}

// ExpenseRecordedMessage is published after an expense has been appended to
// a group's ledger. Amounts are fixed-point strings in the expense currency.
type ExpenseRecordedMessage struct {
	ExpenseID   string              `json:"expense_id"`
	GroupID     string              `json:"group_id"`
	Amount      string              `json:"amount"`
	Currency    string              `json:"currency"`
	PayerID     string              `json:"payer_id"`
	Strategy    string              `json:"strategy"`
	Allocations []AllocationMessage `json:"allocations"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NewExpenseRecordedMessage builds the message for a stored expense.
func NewExpenseRecordedMessage(e *models.Expense) *ExpenseRecordedMessage {
	msg := &ExpenseRecordedMessage{
		ExpenseID:   e.ID,
		GroupID:     e.GroupID,
		Amount:      money.String(e.Amount, e.Currency),
		Currency:    e.Currency,
		PayerID:     e.PayerID,
		Strategy:    string(e.Strategy),
		Allocations: make([]AllocationMessage, 0, len(e.Allocations)),
		Timestamp:   time.Unix(e.CreatedAt, 0).UTC(),
	}
	for _, a := range e.Allocations {
		msg.Allocations = append(msg.Allocations, AllocationMessage{
			MemberID: a.MemberID,
			Amount:   money.String(a.Amount, e.Currency),
		})
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedMessageFromJSON decodes a message published by this package.
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SettlementRecordedMessage is published after a payment between two members
// has been recorded.
type SettlementRecordedMessage struct {
	SettlementID string    `json:"settlement_id"`
	GroupID      string    `json:"group_id"`
	FromMemberID string    `json:"from_member_id"`
	ToMemberID   string    `json:"to_member_id"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewSettlementRecordedMessage builds the message for a stored settlement.
func NewSettlementRecordedMessage(s *models.Settlement) *SettlementRecordedMessage {
	return &SettlementRecordedMessage{
		SettlementID: s.ID,
		GroupID:      s.GroupID,
		FromMemberID: s.FromMemberID,
		ToMemberID:   s.ToMemberID,
		Amount:       money.String(s.Amount, s.Currency),
		Currency:     s.Currency,
		Timestamp:    time.Unix(s.CreatedAt, 0).UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SettlementRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
