package api

// User is a registered account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
}

// Member is a participant of a group, either a registered user or a guest
// without an account.
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	UserID      string `json:"userId,omitempty"`
	Position    int    `json:"position"`
	JoinedAt    int64  `json:"joinedAt"`
	LeftAt      int64  `json:"leftAt,omitempty"`
	Active      bool   `json:"active"`
}

// Group is a set of members sharing an expense ledger.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	JoinCode    string    `json:"joinCode"`
	Currency    string    `json:"currency"`
	CreatedBy   string    `json:"createdBy"`
	Members     []*Member `json:"members"`
	CreatedAt   int64     `json:"createdAt"`
}

// Participant names a member taking part in an expense. Share is a
// percentage for the "percentage" strategy, an amount for "custom_amount"
// and must be empty for "equal".
type Participant struct {
	MemberID string `json:"memberId"`
	Share    string `json:"share,omitempty"`
}

// Allocation is the resolved portion of an expense owed by one member.
type Allocation struct {
	MemberID string `json:"memberId"`
	Share    string `json:"share,omitempty"`
	Amount   string `json:"amount"`
}

// Expense is a recorded payment made by one member on behalf of others.
type Expense struct {
	ID          string        `json:"id"`
	GroupID     string        `json:"groupId"`
	Amount      string        `json:"amount"`
	Currency    string        `json:"currency"`
	Description string        `json:"description,omitempty"`
	PayerID     string        `json:"payerId"`
	Strategy    string        `json:"strategy"`
	Allocations []*Allocation `json:"allocations"`
	CreatedBy   string        `json:"createdBy"`
	CreatedAt   int64         `json:"createdAt"`
}

// Settlement is a payment from one member to another made outside the ledger.
type Settlement struct {
	ID           string `json:"id"`
	GroupID      string `json:"groupId"`
	FromMemberID string `json:"fromMemberId"`
	ToMemberID   string `json:"toMemberId"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Note         string `json:"note,omitempty"`
	CreatedBy    string `json:"createdBy"`
	CreatedAt    int64  `json:"createdAt"`
}

// MemberBalance is one member's position in the group ledger. A positive
// NetBalance means the member is owed money.
type MemberBalance struct {
	MemberID   string `json:"memberId"`
	MemberName string `json:"memberName"`
	NetBalance string `json:"netBalance"`
	TotalPaid  string `json:"totalPaid"`
	TotalOwed  string `json:"totalOwed"`
	// Label is the display text, e.g. "owed $40.00" or "settled up".
	Label  string `json:"label"`
	Active bool   `json:"active"`
}
