package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/calculator"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/money"
	"github.com/mmynk/groupledger/internal/storage"
	"github.com/mmynk/groupledger/pkg/api"
	"github.com/mmynk/groupledger/pkg/api/apiconnect"
)

// ExpenseService implements the Connect ExpenseService
type ExpenseService struct {
	apiconnect.UnimplementedExpenseServiceHandler
	store storage.Store
	opts  options
}

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store, opts ...Option) *ExpenseService {
	return &ExpenseService{store: store, opts: newOptions(opts)}
}

// ValidateSplit checks a proposed split and returns the resolved allocations
// without recording anything.
func (s *ExpenseService) ValidateSplit(ctx context.Context, req *connect.Request[api.ValidateSplitRequest]) (*connect.Response[api.ValidateSplitResponse], error) {
	slog.Debug("ValidateSplit request received",
		"group_id", req.Msg.GroupID,
		"strategy", req.Msg.Strategy,
		"participants_count", len(req.Msg.Participants),
	)

	split, err := splitRequestFromAPI(req.Msg.Amount, req.Msg.Currency, req.Msg.Strategy, req.Msg.Participants)
	if err != nil {
		return nil, s.rejected(err)
	}

	var group *models.Group
	if req.Msg.GroupID != "" {
		group, _, err = groupForCaller(ctx, s.store, req.Msg.GroupID)
		if err != nil {
			return nil, err
		}
		if err := useGroupCurrency(&split, group); err != nil {
			return nil, s.rejected(err)
		}
	}

	allocations, err := resolveForGroup(split, group)
	if err != nil {
		return nil, s.rejected(err)
	}
	if group != nil {
		if err := checkParticipants(group, split.Participants); err != nil {
			return nil, s.rejected(err)
		}
	}

	currency, _ := money.NormalizeCurrency(split.Currency)
	return connect.NewResponse(&api.ValidateSplitResponse{
		Allocations: toAPIAllocations(allocations, currency),
	}), nil
}

// CreateExpense validates a split and appends the expense to the group ledger.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	slog.Info("CreateExpense request received",
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
		"strategy", req.Msg.Strategy,
		"participants_count", len(req.Msg.Participants),
	)

	group, userID, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	split, err := splitRequestFromAPI(req.Msg.Amount, req.Msg.Currency, req.Msg.Strategy, req.Msg.Participants)
	if err != nil {
		return nil, s.rejected(err)
	}
	if err := useGroupCurrency(&split, group); err != nil {
		return nil, s.rejected(err)
	}

	allocations, err := resolveForGroup(split, group)
	if err != nil {
		return nil, s.rejected(err)
	}

	// Payer defaults to the caller
	payerID := strings.TrimSpace(req.Msg.PayerID)
	if payerID == "" {
		payerID = userID
	}
	if !group.IsActiveMember(payerID) {
		return nil, s.rejected(invalidField("UnknownMember", "payerId", fmt.Errorf("%w: %s", ErrUnknownPayer, payerID)))
	}
	if err := checkParticipants(group, split.Participants); err != nil {
		return nil, s.rejected(err)
	}

	expense := &models.Expense{
		GroupID:     group.ID,
		Amount:      split.Amount,
		Currency:    group.Currency,
		Description: strings.TrimSpace(req.Msg.Description),
		PayerID:     payerID,
		Strategy:    split.Strategy,
		Allocations: allocations,
		CreatedBy:   userID,
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, internalError("failed to save expense", err, "group_id", group.ID)
	}
	s.opts.metrics.ExpenseRecorded(string(expense.Strategy))

	if err := s.opts.publisher.PublishExpenseRecorded(ctx, expense); err != nil {
		slog.Warn("Failed to publish expense event", "expense_id", expense.ID, "error", err)
	}

	slog.Info("Expense recorded",
		"expense_id", expense.ID,
		"group_id", group.ID,
		"amount", money.String(expense.Amount, expense.Currency),
		"currency", expense.Currency,
	)

	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// GetExpense retrieves an expense of a group the caller belongs to.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	slog.Info("GetExpense request received", "expense_id", req.Msg.ExpenseID)

	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if err != nil {
		return nil, internalError("failed to load expense", err, "expense_id", req.Msg.ExpenseID)
	}

	if _, _, err := groupForCaller(ctx, s.store, expense.GroupID); err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// ListExpenses retrieves a group's expenses, oldest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	slog.Info("ListExpenses request received", "group_id", req.Msg.GroupID)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		return nil, internalError("failed to list expenses", err, "group_id", group.ID)
	}

	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toAPIExpense(e)
	}

	slog.Info("ListExpenses successful", "group_id", group.ID, "count", len(expenses))

	return connect.NewResponse(&api.ListExpensesResponse{
		Expenses:   out,
		TotalSpent: money.String(calculator.TotalSpent(toBalanceExpenses(expenses)), group.Currency),
	}), nil
}

// rejected counts a refused split and converts err for the caller.
func (s *ExpenseService) rejected(err error) error {
	cerr := toConnectError(err)
	if cerr.Code() == connect.CodeInvalidArgument {
		s.opts.metrics.SplitRejected(cerr.Meta().Get(ErrorKindKey))
		slog.Debug("Split rejected", "kind", cerr.Meta().Get(ErrorKindKey), "error", err)
	}
	return cerr
}

func splitRequestFromAPI(amount, currency, strategy string, participants []*api.Participant) (calculator.SplitRequest, error) {
	total, err := parseAmount(amount, "amount")
	if err != nil {
		return calculator.SplitRequest{}, err
	}
	st := models.SplitStrategy(strings.TrimSpace(strategy))
	shares, err := participantsFromAPI(participants, st)
	if err != nil {
		return calculator.SplitRequest{}, err
	}
	return calculator.SplitRequest{
		Amount:       total,
		Currency:     strings.TrimSpace(currency),
		Strategy:     st,
		Participants: shares,
	}, nil
}

// useGroupCurrency fills in the group currency when split has none and
// rejects any other currency. Malformed codes are left for ResolveSplit.
func useGroupCurrency(split *calculator.SplitRequest, group *models.Group) error {
	if split.Currency == "" {
		split.Currency = group.Currency
		return nil
	}
	if c, err := money.NormalizeCurrency(split.Currency); err == nil && c != group.Currency {
		return invalidField("CurrencyMismatch", "currency",
			fmt.Errorf("%w: %s, group uses %s", ErrCurrencyNotGroup, c, group.Currency))
	}
	return nil
}

// resolveForGroup resolves split, giving equal-split remainders to the
// earliest-joined members of group. Errors index participants in request order.
func resolveForGroup(split calculator.SplitRequest, group *models.Group) ([]models.Allocation, error) {
	if group == nil || split.Strategy != models.SplitEqual {
		return calculator.ResolveSplit(split)
	}
	if _, err := calculator.ResolveSplit(split); err != nil {
		return nil, err
	}
	split.Participants = calculator.OrderByRoster(split.Participants, group.Members)
	return calculator.ResolveSplit(split)
}

// checkParticipants rejects participants who are not active members of group.
func checkParticipants(group *models.Group, participants []calculator.ParticipantShare) error {
	for i, p := range participants {
		if !group.IsActiveMember(p.MemberID) {
			return invalidField("UnknownMember", fmt.Sprintf("participants[%d]", i),
				fmt.Errorf("%w: %s", ErrUnknownMember, p.MemberID))
		}
	}
	return nil
}
