package api

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Currency is an ISO 4217 code; the server default applies when empty.
	Currency string `json:"currency,omitempty"`
	// GuestNames adds members without accounts after the creator.
	GuestNames []string `json:"guestNames,omitempty"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type JoinGroupRequest struct {
	JoinCode string `json:"joinCode"`
}

type JoinGroupResponse struct {
	Group *Group `json:"group"`
}

type AddMemberRequest struct {
	GroupID     string `json:"groupId"`
	DisplayName string `json:"displayName"`
}

type AddMemberResponse struct {
	Member *Member `json:"member"`
}

type LeaveGroupRequest struct {
	GroupID string `json:"groupId"`
	// MemberID defaults to the caller. Any active member may remove a guest.
	MemberID string `json:"memberId,omitempty"`
}

type LeaveGroupResponse struct{}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupBalancesResponse struct {
	Currency   string           `json:"currency"`
	TotalSpent string           `json:"totalSpent"`
	Balances   []*MemberBalance `json:"balances"`
}

type RecordSettlementRequest struct {
	GroupID      string `json:"groupId"`
	FromMemberID string `json:"fromMemberId"`
	ToMemberID   string `json:"toMemberId"`
	Amount       string `json:"amount"`
	Note         string `json:"note,omitempty"`
}

type RecordSettlementResponse struct {
	Settlement *Settlement `json:"settlement"`
}

type ListSettlementsRequest struct {
	GroupID string `json:"groupId"`
}

type ListSettlementsResponse struct {
	Settlements []*Settlement `json:"settlements"`
}
