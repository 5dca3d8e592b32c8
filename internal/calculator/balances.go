package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/money"
)

// ExpenseForBalance represents an expense with the minimal information needed for balance calculations.
// Allocations must already be resolved by ResolveSplit.
type ExpenseForBalance struct {
	ID          string
	Amount      decimal.Decimal
	Currency    string
	PayerID     string
	Allocations []models.Allocation
}

// SettlementForBalance represents a settlement with the minimal information needed for balance calculations.
type SettlementForBalance struct {
	ID           string
	FromMemberID string // Who paid (debtor settling up)
	ToMemberID   string // Who received (creditor being paid)
	Amount       decimal.Decimal
	Currency     string
}

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	MemberID   string
	MemberName string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal // Paid for expenses plus settlements sent
	TotalOwed  decimal.Decimal // Share of expenses plus settlements received
}

// CalculateBalances returns each roster member's net balance over expenses.
// Positive means the group owes the member, negative means the member owes.
func CalculateBalances(members []models.Member, expenses []ExpenseForBalance) (map[string]decimal.Decimal, error) {
	balances, err := CalculateGroupBalances(members, expenses, nil)
	if err != nil {
		return nil, err
	}
	net := make(map[string]decimal.Decimal, len(balances))
	for _, b := range balances {
		net[b.MemberID] = b.NetBalance
	}
	return net, nil
}

// CalculateGroupBalances replays expenses and settlements against the member
// roster and returns one MemberBalance per member, in roster order.
//
// Algorithm:
//   - every roster member starts at zero
//   - for each expense: the payer is credited the full amount, each
//     participant is debited its allocation
//   - for each settlement: the sender is credited, the receiver debited
//   - net_balance = total_paid - total_owed
//
// The result does not depend on the order of expenses or settlements, and the
// net balances always sum to zero. Entries that reference members outside the
// roster, mix currencies, or carry allocations that do not add up are reported
// as *IntegrityError instead of being skipped.
func CalculateGroupBalances(members []models.Member, expenses []ExpenseForBalance, settlements []SettlementForBalance) ([]MemberBalance, error) {
	currency, err := ledgerCurrency(expenses, settlements)
	if err != nil {
		return nil, err
	}

	// Track minor-unit totals per roster member
	paid := make(map[string]int64, len(members))
	owed := make(map[string]int64, len(members))
	var roster []models.Member
	for _, m := range members {
		if _, exists := paid[m.ID]; exists {
			continue
		}
		paid[m.ID] = 0
		owed[m.ID] = 0
		roster = append(roster, m)
	}

	for _, expense := range expenses {
		if _, ok := paid[expense.PayerID]; !ok {
			return nil, &IntegrityError{Err: ErrUnknownMember, ExpenseID: expense.ID, MemberID: expense.PayerID}
		}
		amount, err := money.ToMinor(expense.Amount, currency)
		if err != nil {
			return nil, &IntegrityError{Err: err, ExpenseID: expense.ID}
		}

		var allocated int64
		for _, alloc := range expense.Allocations {
			if _, ok := owed[alloc.MemberID]; !ok {
				return nil, &IntegrityError{Err: ErrUnknownMember, ExpenseID: expense.ID, MemberID: alloc.MemberID}
			}
			share, err := money.ToMinor(alloc.Amount, currency)
			if err != nil {
				return nil, &IntegrityError{Err: err, ExpenseID: expense.ID, MemberID: alloc.MemberID}
			}
			if share < 0 {
				return nil, &IntegrityError{Err: ErrAllocationMismatch, ExpenseID: expense.ID, MemberID: alloc.MemberID}
			}
			if owed[alloc.MemberID], err = money.AddMinor(owed[alloc.MemberID], share); err != nil {
				return nil, &IntegrityError{Err: err, ExpenseID: expense.ID, MemberID: alloc.MemberID}
			}
			if allocated, err = money.AddMinor(allocated, share); err != nil {
				return nil, &IntegrityError{Err: err, ExpenseID: expense.ID}
			}
		}
		if allocated != amount || len(expense.Allocations) == 0 {
			return nil, &IntegrityError{Err: ErrAllocationMismatch, ExpenseID: expense.ID}
		}

		if paid[expense.PayerID], err = money.AddMinor(paid[expense.PayerID], amount); err != nil {
			return nil, &IntegrityError{Err: err, ExpenseID: expense.ID, MemberID: expense.PayerID}
		}
	}

	for _, s := range settlements {
		if _, ok := paid[s.FromMemberID]; !ok {
			return nil, &IntegrityError{Err: ErrUnknownMember, MemberID: s.FromMemberID}
		}
		if _, ok := owed[s.ToMemberID]; !ok {
			return nil, &IntegrityError{Err: ErrUnknownMember, MemberID: s.ToMemberID}
		}
		amount, err := money.ToMinor(s.Amount, currency)
		if err != nil {
			return nil, &IntegrityError{Err: err}
		}
		if amount <= 0 {
			return nil, &IntegrityError{Err: ErrNonPositiveAmount, MemberID: s.FromMemberID}
		}
		if paid[s.FromMemberID], err = money.AddMinor(paid[s.FromMemberID], amount); err != nil {
			return nil, &IntegrityError{Err: err, MemberID: s.FromMemberID}
		}
		if owed[s.ToMemberID], err = money.AddMinor(owed[s.ToMemberID], amount); err != nil {
			return nil, &IntegrityError{Err: err, MemberID: s.ToMemberID}
		}
	}

	balances := make([]MemberBalance, len(roster))
	var sum int64
	for i, m := range roster {
		// Both totals are non-negative, so the difference cannot overflow
		net := paid[m.ID] - owed[m.ID]
		if sum, err = money.AddMinor(sum, net); err != nil {
			return nil, &IntegrityError{Err: err, MemberID: m.ID}
		}
		balances[i] = MemberBalance{
			MemberID:   m.ID,
			MemberName: m.DisplayName,
			NetBalance: money.FromMinor(net, currency),
			TotalPaid:  money.FromMinor(paid[m.ID], currency),
			TotalOwed:  money.FromMinor(owed[m.ID], currency),
		}
	}
	if sum != 0 {
		return nil, &IntegrityError{Err: ErrUnbalancedLedger}
	}

	return balances, nil
}

// TotalSpent sums the expense amounts.
func TotalSpent(expenses []ExpenseForBalance) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// ledgerCurrency returns the single currency used by expenses and settlements.
func ledgerCurrency(expenses []ExpenseForBalance, settlements []SettlementForBalance) (string, error) {
	currency := ""
	check := func(c, expenseID string) error {
		if c == "" {
			return nil
		}
		if currency == "" {
			currency = c
			return nil
		}
		if c != currency {
			return &IntegrityError{Err: ErrCurrencyMismatch, ExpenseID: expenseID}
		}
		return nil
	}
	for _, e := range expenses {
		if err := check(e.Currency, e.ID); err != nil {
			return "", err
		}
	}
	for _, s := range settlements {
		if err := check(s.Currency, ""); err != nil {
			return "", err
		}
	}
	return currency, nil
}
