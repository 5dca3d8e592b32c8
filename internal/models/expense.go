package models

import "github.com/shopspring/decimal"

// SplitStrategy is the method used to divide an expense among participants.
type SplitStrategy string

const (
	// SplitEqual divides the amount evenly; leftover minor units go to the
	// earliest joiners.
	SplitEqual SplitStrategy = "equal"
	// SplitPercentage assigns each participant a percentage of the amount.
	SplitPercentage SplitStrategy = "percentage"
	// SplitCustomAmount assigns each participant an explicit amount.
	SplitCustomAmount SplitStrategy = "custom_amount"
)

// Valid reports whether s is a known strategy.
func (s SplitStrategy) Valid() bool {
	switch s {
	case SplitEqual, SplitPercentage, SplitCustomAmount:
		return true
	}
	return false
}

// Expense is an immutable record of one payment made on behalf of a group.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group that owns this expense.
	GroupID string

	// Amount is the total paid. Always positive.
	Amount decimal.Decimal

	// Currency is the ISO 4217 code, equal to the group's currency.
	Currency string

	// Description is what the money was spent on.
	Description string

	// PayerID is the member who paid. The payer need not be a participant.
	PayerID string

	// Strategy is how Amount was divided.
	Strategy SplitStrategy

	// Allocations are the resolved shares, one per participant, summing
	// exactly to Amount.
	Allocations []Allocation

	// CreatedBy is the user ID that recorded the expense.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Allocation is one participant's share of an expense.
type Allocation struct {
	// MemberID is the participant.
	MemberID string

	// Share is the value the caller supplied: a percentage for
	// SplitPercentage, an amount for SplitCustomAmount, unset for SplitEqual.
	Share decimal.NullDecimal

	// Amount is the resolved share in the expense currency.
	Amount decimal.Decimal
}

// ParticipantIDs returns the member IDs of the allocations in order.
func (e *Expense) ParticipantIDs() []string {
	ids := make([]string, len(e.Allocations))
	for i, a := range e.Allocations {
		ids[i] = a.MemberID
	}
	return ids
}
