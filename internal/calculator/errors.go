package calculator

import (
	"errors"
	"fmt"

	"github.com/mmynk/groupledger/internal/money"
)

// Input validation errors. They are returned wrapped in a *ValidationError
// that names the offending field.
var (
	ErrEmptyParticipants       = errors.New("at least one participant is required")
	ErrNonPositiveAmount       = errors.New("amount must be greater than zero")
	ErrDuplicateParticipant    = errors.New("participant is listed more than once")
	ErrPercentageSumMismatch   = errors.New("percentages must total 100")
	ErrCustomAmountSumMismatch = errors.New("custom amounts must total the expense amount")
	ErrNegativeShare           = errors.New("shares cannot be negative")
	ErrUnknownStrategy         = errors.New("unknown split strategy")
)

// Data-integrity errors. The expense store and the member directory disagree;
// the aggregator cannot recover from these. Returned wrapped in an
// *IntegrityError.
var (
	ErrUnknownMember      = errors.New("member is not in the group roster")
	ErrAllocationMismatch = errors.New("allocations do not sum to the expense amount")
	ErrCurrencyMismatch   = errors.New("ledger mixes currencies")
	ErrUnbalancedLedger   = errors.New("balances do not sum to zero")
)

// ValidationError reports a rejected split together with the input field that
// caused it, so a form can highlight it.
type ValidationError struct {
	Err    error
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Field, e.Err, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, field, detail string) error {
	return &ValidationError{Err: err, Field: field, Detail: detail}
}

// IntegrityError reports ledger data that cannot be reconciled with the roster.
type IntegrityError struct {
	Err       error
	ExpenseID string
	MemberID  string
}

func (e *IntegrityError) Error() string {
	msg := e.Err.Error()
	if e.ExpenseID != "" {
		msg += ": expense " + e.ExpenseID
	}
	if e.MemberID != "" {
		msg += ": member " + e.MemberID
	}
	return msg
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// Kind returns the stable name of the error kind carried by err, for clients
// that render field-level messages. It returns "" for errors not defined here.
func Kind(err error) string {
	kinds := []struct {
		target error
		name   string
	}{
		{ErrEmptyParticipants, "EmptyParticipants"},
		{ErrNonPositiveAmount, "NonPositiveAmount"},
		{ErrDuplicateParticipant, "DuplicateParticipant"},
		{ErrPercentageSumMismatch, "PercentageSumMismatch"},
		{ErrCustomAmountSumMismatch, "CustomAmountSumMismatch"},
		{ErrNegativeShare, "NegativeShare"},
		{ErrUnknownStrategy, "UnknownStrategy"},
		{money.ErrInvalidCurrency, "InvalidCurrency"},
		{money.ErrPrecision, "AmountPrecision"},
		{money.ErrOverflow, "AmountOverflow"},
		{ErrUnknownMember, "UnknownMember"},
		{ErrAllocationMismatch, "AllocationMismatch"},
		{ErrCurrencyMismatch, "CurrencyMismatch"},
		{ErrUnbalancedLedger, "UnbalancedLedger"},
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.name
		}
	}
	return ""
}

// Field returns the input field named by a *ValidationError in err's chain.
func Field(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Field
	}
	return ""
}
