package api

type ValidateSplitRequest struct {
	// GroupID is optional. When set, participants must belong to the group,
	// equal splits follow the group's join order and Currency defaults to the
	// group currency.
	GroupID      string         `json:"groupId,omitempty"`
	Amount       string         `json:"amount"`
	Currency     string         `json:"currency,omitempty"`
	Strategy     string         `json:"strategy"`
	Participants []*Participant `json:"participants"`
}

type ValidateSplitResponse struct {
	Allocations []*Allocation `json:"allocations"`
}

type CreateExpenseRequest struct {
	GroupID string `json:"groupId"`
	Amount  string `json:"amount"`

	// Currency defaults to the group currency and must match it when set.
	Currency     string         `json:"currency,omitempty"`
	Description  string         `json:"description,omitempty"`
	PayerID      string         `json:"payerId"`
	Strategy     string         `json:"strategy"`
	Participants []*Participant `json:"participants"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID string `json:"groupId"`
}

type ListExpensesResponse struct {
	Expenses   []*Expense `json:"expenses"`
	TotalSpent string     `json:"totalSpent"`
}
