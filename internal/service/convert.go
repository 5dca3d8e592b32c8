package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/calculator"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/money"
	"github.com/mmynk/groupledger/pkg/api"
)

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPIMember(m models.Member) *api.Member {
	return &api.Member{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		UserID:      m.UserID,
		Position:    m.Position,
		JoinedAt:    m.JoinedAt,
		LeftAt:      m.LeftAt,
		Active:      m.Active(),
	}
}

func toAPIGroup(g *models.Group) *api.Group {
	members := make([]*api.Member, len(g.Members))
	for i, m := range g.Members {
		members[i] = toAPIMember(m)
	}
	return &api.Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		JoinCode:    g.JoinCode,
		Currency:    g.Currency,
		CreatedBy:   g.CreatedBy,
		Members:     members,
		CreatedAt:   g.CreatedAt,
	}
}

func toAPIAllocations(allocations []models.Allocation, currency string) []*api.Allocation {
	out := make([]*api.Allocation, len(allocations))
	for i, a := range allocations {
		out[i] = &api.Allocation{
			MemberID: a.MemberID,
			Amount:   money.String(a.Amount, currency),
		}
		if a.Share.Valid {
			out[i].Share = a.Share.Decimal.String()
		}
	}
	return out
}

func toAPIExpense(e *models.Expense) *api.Expense {
	return &api.Expense{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Amount:      money.String(e.Amount, e.Currency),
		Currency:    e.Currency,
		Description: e.Description,
		PayerID:     e.PayerID,
		Strategy:    string(e.Strategy),
		Allocations: toAPIAllocations(e.Allocations, e.Currency),
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

func toAPISettlement(s *models.Settlement) *api.Settlement {
	return &api.Settlement{
		ID:           s.ID,
		GroupID:      s.GroupID,
		FromMemberID: s.FromMemberID,
		ToMemberID:   s.ToMemberID,
		Amount:       money.String(s.Amount, s.Currency),
		Currency:     s.Currency,
		Note:         s.Note,
		CreatedBy:    s.CreatedBy,
		CreatedAt:    s.CreatedAt,
	}
}

// parseAmount reads a request amount, reporting failures against field.
func parseAmount(s, field string) (decimal.Decimal, error) {
	d, err := money.Parse(s)
	if err != nil {
		return decimal.Zero, invalidField("InvalidAmount", field, err)
	}
	return d, nil
}

// participantsFromAPI converts request participants. Shares are parsed only
// for strategies that use them.
func participantsFromAPI(participants []*api.Participant, strategy models.SplitStrategy) ([]calculator.ParticipantShare, error) {
	out := make([]calculator.ParticipantShare, len(participants))
	for i, p := range participants {
		if p == nil {
			p = &api.Participant{}
		}
		out[i].MemberID = strings.TrimSpace(p.MemberID)
		if strategy == models.SplitEqual || !strategy.Valid() {
			continue
		}
		field := fmt.Sprintf("participants[%d].share", i)
		if strings.TrimSpace(p.Share) == "" {
			return nil, invalidField("InvalidAmount", field, ErrShareRequired)
		}
		share, err := parseAmount(p.Share, field)
		if err != nil {
			return nil, err
		}
		out[i].Share = share
	}
	return out, nil
}

func toBalanceExpenses(expenses []*models.Expense) []calculator.ExpenseForBalance {
	out := make([]calculator.ExpenseForBalance, len(expenses))
	for i, e := range expenses {
		out[i] = calculator.ExpenseForBalance{
			ID:          e.ID,
			Amount:      e.Amount,
			Currency:    e.Currency,
			PayerID:     e.PayerID,
			Allocations: e.Allocations,
		}
	}
	return out
}

func toBalanceSettlements(settlements []*models.Settlement) []calculator.SettlementForBalance {
	out := make([]calculator.SettlementForBalance, len(settlements))
	for i, s := range settlements {
		out[i] = calculator.SettlementForBalance{
			ID:           s.ID,
			FromMemberID: s.FromMemberID,
			ToMemberID:   s.ToMemberID,
			Amount:       s.Amount,
			Currency:     s.Currency,
		}
	}
	return out
}
