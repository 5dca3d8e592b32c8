package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/calculator"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/money"
	"github.com/mmynk/groupledger/internal/storage"
	"github.com/mmynk/groupledger/pkg/api"
	"github.com/mmynk/groupledger/pkg/api/apiconnect"
)

// GroupService implements the Connect GroupService
type GroupService struct {
	apiconnect.UnimplementedGroupServiceHandler
	store storage.Store
	opts  options
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, opts ...Option) *GroupService {
	return &GroupService{store: store, opts: newOptions(opts)}
}

// CreateGroup creates a new group with the caller as its first member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"guests_count", len(req.Msg.GuestNames),
	)

	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, invalidField("Required", "name", ErrNameRequired)
	}

	currency := req.Msg.Currency
	if strings.TrimSpace(currency) == "" {
		currency = s.opts.defaultCurrency
	}
	currency, err = money.NormalizeCurrency(currency)
	if err != nil {
		return nil, invalidField("InvalidCurrency", "currency", err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, internalError("failed to load creator", err, "user_id", userID)
	}

	group := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(req.Msg.Description),
		Currency:    currency,
		CreatedBy:   userID,
		Members: []models.Member{
			{ID: user.ID, DisplayName: user.DisplayName, UserID: user.ID},
		},
	}
	for i, guest := range req.Msg.GuestNames {
		guest = strings.TrimSpace(guest)
		if guest == "" {
			return nil, invalidField("Required", fmt.Sprintf("guestNames[%d]", i), ErrNameRequired)
		}
		group.Members = append(group.Members, models.Member{DisplayName: guest})
	}

	// Save to storage (generates IDs, join code and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, internalError("failed to create group", err)
	}

	slog.Info("Group created", "group_id", group.ID, "currency", group.Currency)

	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups retrieves the groups the caller belongs to.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListGroups request received", "user_id", userID)

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, internalError("failed to list groups", err, "user_id", userID)
	}

	out := make([]*api.Group, len(groups))
	for i, group := range groups {
		out[i] = toAPIGroup(group)
	}

	slog.Info("ListGroups successful", "count", len(groups))

	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// JoinGroup adds the caller to the group with the given join code. Joining a
// group twice is a no-op.
func (s *GroupService) JoinGroup(ctx context.Context, req *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(req.Msg.JoinCode)
	if code == "" {
		return nil, invalidField("Required", "joinCode", ErrJoinCodeRequired)
	}

	group, err := s.store.GetGroupByJoinCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if err != nil {
		return nil, internalError("failed to look up join code", err)
	}

	if group.IsActiveMember(userID) {
		return connect.NewResponse(&api.JoinGroupResponse{Group: toAPIGroup(group)}), nil
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, internalError("failed to load user", err, "user_id", userID)
	}
	member := &models.Member{ID: user.ID, DisplayName: user.DisplayName, UserID: user.ID}
	if err := s.store.AddGroupMember(ctx, group.ID, member); err != nil {
		return nil, toConnectError(err)
	}

	group, err = s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, internalError("failed to reload group", err, "group_id", group.ID)
	}

	slog.Info("Member joined group", "group_id", group.ID, "user_id", userID)

	return connect.NewResponse(&api.JoinGroupResponse{Group: toAPIGroup(group)}), nil
}

// AddMember adds a guest member without an account, e.g. a friend who never
// signs up but still shares costs.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	group, userID, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Msg.DisplayName)
	if name == "" {
		return nil, invalidField("Required", "displayName", ErrNameRequired)
	}

	member := &models.Member{DisplayName: name}
	if err := s.store.AddGroupMember(ctx, group.ID, member); err != nil {
		return nil, internalError("failed to add member", err, "group_id", group.ID)
	}

	slog.Info("Guest member added", "group_id", group.ID, "member_id", member.ID, "added_by", userID)

	return connect.NewResponse(&api.AddMemberResponse{Member: toAPIMember(*member)}), nil
}

// LeaveGroup removes the caller, or a guest member, from the group. The
// member must be settled up; their past expenses stay in the ledger.
func (s *GroupService) LeaveGroup(ctx context.Context, req *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.LeaveGroupResponse], error) {
	group, userID, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	memberID := strings.TrimSpace(req.Msg.MemberID)
	if memberID == "" {
		memberID = userID
	}
	member, ok := group.FindMember(memberID)
	if !ok || !member.Active() {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("%w: %s", ErrUnknownMember, memberID))
	}
	if memberID != userID && member.UserID != "" {
		return nil, connect.NewError(connect.CodePermissionDenied, ErrNotGuest)
	}

	balances, _, err := s.balances(ctx, group)
	if err != nil {
		return nil, err
	}
	for _, b := range balances {
		if b.MemberID == memberID && !b.NetBalance.IsZero() {
			return nil, connect.NewError(connect.CodeFailedPrecondition,
				fmt.Errorf("%w: %s", ErrUnsettledBalance, calculator.FormatBalance(b.NetBalance, group.Currency)))
		}
	}

	if err := s.store.RemoveGroupMember(ctx, group.ID, memberID); err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("Member left group", "group_id", group.ID, "member_id", memberID, "removed_by", userID)

	return connect.NewResponse(&api.LeaveGroupResponse{}), nil
}

// GetGroupBalances replays the group's ledger and returns every member's net
// balance in join order.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	slog.Info("GetGroupBalances request received", "group_id", req.Msg.GroupID)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	balances, totalSpent, err := s.balances(ctx, group)
	if err != nil {
		return nil, err
	}

	active := make(map[string]bool, len(group.Members))
	for _, m := range group.ActiveMembers() {
		active[m.ID] = true
	}

	out := make([]*api.MemberBalance, len(balances))
	for i, b := range balances {
		out[i] = &api.MemberBalance{
			MemberID:   b.MemberID,
			MemberName: b.MemberName,
			NetBalance: money.String(b.NetBalance, group.Currency),
			TotalPaid:  money.String(b.TotalPaid, group.Currency),
			TotalOwed:  money.String(b.TotalOwed, group.Currency),
			Label:      calculator.FormatBalance(b.NetBalance, group.Currency),
			Active:     active[b.MemberID],
		}
	}

	slog.Info("GetGroupBalances successful",
		"group_id", group.ID,
		"members_count", len(out),
	)

	return connect.NewResponse(&api.GetGroupBalancesResponse{
		Currency:   group.Currency,
		TotalSpent: money.String(totalSpent, group.Currency),
		Balances:   out,
	}), nil
}

// RecordSettlement records that one member paid another outside the ledger.
func (s *GroupService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	slog.Info("RecordSettlement request received",
		"group_id", req.Msg.GroupID,
		"from", req.Msg.FromMemberID,
		"to", req.Msg.ToMemberID,
		"amount", req.Msg.Amount,
	)

	group, userID, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(req.Msg.Amount, "amount")
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, invalidField("NonPositiveAmount", "amount", ErrAmountNotPositive)
	}
	if _, err := money.ToMinor(amount, group.Currency); err != nil {
		return nil, invalidField(calculator.Kind(err), "amount", err)
	}

	from := strings.TrimSpace(req.Msg.FromMemberID)
	to := strings.TrimSpace(req.Msg.ToMemberID)
	if !group.IsActiveMember(from) {
		return nil, invalidField("UnknownMember", "fromMemberId", fmt.Errorf("%w: %s", ErrUnknownMember, from))
	}
	if !group.IsActiveMember(to) {
		return nil, invalidField("UnknownMember", "toMemberId", fmt.Errorf("%w: %s", ErrUnknownMember, to))
	}
	if from == to {
		return nil, invalidField("SelfSettlement", "toMemberId", ErrSelfSettlement)
	}

	settlement := &models.Settlement{
		GroupID:      group.ID,
		FromMemberID: from,
		ToMemberID:   to,
		Amount:       amount,
		Currency:     group.Currency,
		CreatedBy:    userID,
		Note:         strings.TrimSpace(req.Msg.Note),
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		return nil, internalError("failed to save settlement", err, "group_id", group.ID)
	}
	s.opts.metrics.SettlementRecorded()

	if err := s.opts.publisher.PublishSettlementRecorded(ctx, settlement); err != nil {
		slog.Warn("Failed to publish settlement event", "settlement_id", settlement.ID, "error", err)
	}

	slog.Info("Settlement recorded", "settlement_id", settlement.ID, "group_id", group.ID)

	return connect.NewResponse(&api.RecordSettlementResponse{Settlement: toAPISettlement(settlement)}), nil
}

// ListSettlements retrieves a group's settlements, oldest first.
func (s *GroupService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	settlements, err := s.store.ListSettlementsByGroup(ctx, group.ID)
	if err != nil {
		return nil, internalError("failed to list settlements", err, "group_id", group.ID)
	}

	out := make([]*api.Settlement, len(settlements))
	for i, st := range settlements {
		out[i] = toAPISettlement(st)
	}

	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: out}), nil
}

// balances replays the group's ledger against its full roster, including
// members who have left.
func (s *GroupService) balances(ctx context.Context, group *models.Group) ([]calculator.MemberBalance, decimal.Decimal, error) {
	expenses, settlements, err := loadLedger(ctx, s.store, group.ID)
	if err != nil {
		return nil, decimal.Zero, internalError("failed to load ledger", err, "group_id", group.ID)
	}

	forBalance := toBalanceExpenses(expenses)
	balances, err := calculator.CalculateGroupBalances(group.Members, forBalance, toBalanceSettlements(settlements))
	if err != nil {
		slog.Error("Ledger integrity check failed",
			"group_id", group.ID,
			"kind", calculator.Kind(err),
			"error", err,
		)
		return nil, decimal.Zero, toConnectError(err)
	}

	return balances, calculator.TotalSpent(forBalance), nil
}
