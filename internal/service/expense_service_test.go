package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/pkg/api"
)

func participants(ids ...string) []*api.Participant {
	out := make([]*api.Participant, len(ids))
	for i, id := range ids {
		out[i] = &api.Participant{MemberID: id}
	}
	return out
}

func withShares(pairs ...string) []*api.Participant {
	out := make([]*api.Participant, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, &api.Participant{MemberID: pairs[i], Share: pairs[i+1]})
	}
	return out
}

func amounts(allocations []*api.Allocation) map[string]string {
	out := make(map[string]string, len(allocations))
	for _, a := range allocations {
		out[a.MemberID] = a.Amount
	}
	return out
}

func TestValidateSplit(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	tests := []struct {
		name string
		req  *api.ValidateSplitRequest
		want map[string]string
	}{
		{
			name: "equal split remainder goes to first participants",
			req:  &api.ValidateSplitRequest{Amount: "10.00", Currency: "USD", Strategy: "equal", Participants: participants("A", "B", "C")},
			want: map[string]string{"A": "3.34", "B": "3.33", "C": "3.33"},
		},
		{
			name: "single participant",
			req:  &api.ValidateSplitRequest{Amount: "7.25", Currency: "usd", Strategy: "equal", Participants: participants("A")},
			want: map[string]string{"A": "7.25"},
		},
		{
			name: "percentages within tolerance",
			req:  &api.ValidateSplitRequest{Amount: "10", Currency: "USD", Strategy: "percentage", Participants: withShares("A", "50", "B", "30", "C", "20.005")},
			want: map[string]string{"A": "5.00", "B": "3.00", "C": "2.00"},
		},
		{
			name: "custom amounts",
			req:  &api.ValidateSplitRequest{Amount: "100", Currency: "USD", Strategy: "custom_amount", Participants: withShares("A", "45.50", "B", "54.50")},
			want: map[string]string{"A": "45.50", "B": "54.50"},
		},
		{
			name: "zero-decimal currency",
			req:  &api.ValidateSplitRequest{Amount: "1000", Currency: "JPY", Strategy: "equal", Participants: participants("A", "B", "C")},
			want: map[string]string{"A": "334", "B": "333", "C": "333"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.expenses.ValidateSplit(ctx, withToken(alice.Token, tt.req))
			require.NoError(t, err)
			assert.Equal(t, tt.want, amounts(resp.Msg.Allocations))
		})
	}
}

func TestValidateSplit_Rejections(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	group := env.newGroup(t, alice, bob)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   *api.ValidateSplitRequest
		kind  string
		field string
	}{
		{"no participants", &api.ValidateSplitRequest{Amount: "10", Currency: "USD", Strategy: "equal"}, "EmptyParticipants", "participants"},
		{"blank participant", &api.ValidateSplitRequest{Amount: "10", Currency: "USD", Strategy: "equal", Participants: participants("A", " ")}, "EmptyParticipants", "participants[1]"},
		{"zero amount", &api.ValidateSplitRequest{Amount: "0", Currency: "USD", Strategy: "equal", Participants: participants("A")}, "NonPositiveAmount", "amount"},
		{"negative amount", &api.ValidateSplitRequest{Amount: "-5", Currency: "USD", Strategy: "equal", Participants: participants("A")}, "NonPositiveAmount", "amount"},
		{"duplicate", &api.ValidateSplitRequest{Amount: "10", Currency: "USD", Strategy: "equal", Participants: participants("A", "B", "A")}, "DuplicateParticipant", "participants[2]"},
		{"percentages off", &api.ValidateSplitRequest{Amount: "10", Currency: "USD", Strategy: "percentage", Participants: withShares("A", "50", "B", "30", "C", "19")}, "PercentageSumMismatch", "participants"},
		{"custom amounts off", &api.ValidateSplitRequest{Amount: "100", Currency: "USD", Strategy: "custom_amount", Participants: withShares("A", "40", "B", "40", "C", "10")}, "CustomAmountSumMismatch", "participants"},
		{"negative share", &api.ValidateSplitRequest{Amount: "10", Currency: "USD", Strategy: "custom_amount", Participants: withShares("A", "15", "B", "-5")}, "NegativeShare", "participants[1].share"},
		{"missing share", &api.ValidateSplitRequest{Amount: "10", Currency: "USD", Strategy: "percentage", Participants: withShares("A", "100", "B", "")}, "InvalidAmount", "participants[1].share"},
		{"unknown strategy", &api.ValidateSplitRequest{Amount: "10", Currency: "USD", Strategy: "shares", Participants: participants("A")}, "UnknownStrategy", "strategy"},
		{"missing currency", &api.ValidateSplitRequest{Amount: "10", Strategy: "equal", Participants: participants("A")}, "InvalidCurrency", "currency"},
		{"sub-cent amount", &api.ValidateSplitRequest{Amount: "10.005", Currency: "USD", Strategy: "equal", Participants: participants("A")}, "AmountPrecision", "amount"},
		{"amount not a number", &api.ValidateSplitRequest{Amount: "lots", Currency: "USD", Strategy: "equal", Participants: participants("A")}, "InvalidAmount", "amount"},
		{"currency differs from group", &api.ValidateSplitRequest{GroupID: group.ID, Amount: "1001", Currency: "JPY", Strategy: "equal", Participants: participants(alice.ID, bob.ID)}, "CurrencyMismatch", "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.expenses.ValidateSplit(ctx, withToken(alice.Token, tt.req))
			assertCode(t, err, connect.CodeInvalidArgument, tt.kind)

			var cerr *connect.Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Meta().Get(ErrorFieldKey))
		})
	}
}

func TestValidateSplit_GroupRosterOrder(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	group := env.newGroup(t, alice, bob, carol)

	// Listed out of join order; the extra cent still goes to Alice, who joined first
	resp, err := env.expenses.ValidateSplit(context.Background(), withToken(bob.Token, &api.ValidateSplitRequest{
		GroupID:      group.ID,
		Amount:       "10",
		Strategy:     "equal",
		Participants: participants(carol.ID, bob.ID, alice.ID),
	}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Allocations, 3)
	assert.Equal(t, alice.ID, resp.Msg.Allocations[0].MemberID)
	assert.Equal(t, "3.34", resp.Msg.Allocations[0].Amount)
	assert.Equal(t, "3.33", amounts(resp.Msg.Allocations)[carol.ID])

	_, err = env.expenses.ValidateSplit(context.Background(), withToken(bob.Token, &api.ValidateSplitRequest{
		GroupID:      group.ID,
		Amount:       "10",
		Strategy:     "equal",
		Participants: participants(alice.ID, "stranger"),
	}))
	assertCode(t, err, connect.CodeInvalidArgument, "UnknownMember")
}

func TestCreateExpense_AndGetExpense(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	group := env.newGroup(t, alice, bob)
	ctx := context.Background()

	created, err := env.expenses.CreateExpense(ctx, withToken(bob.Token, &api.CreateExpenseRequest{
		GroupID:      group.ID,
		Amount:       "80",
		Description:  " Dinner ",
		PayerID:      alice.ID,
		Strategy:     "percentage",
		Participants: withShares(alice.ID, "25", bob.ID, "75"),
	}))
	require.NoError(t, err)

	expense := created.Msg.Expense
	assert.NotEmpty(t, expense.ID)
	assert.Equal(t, "80.00", expense.Amount)
	assert.Equal(t, "USD", expense.Currency)
	assert.Equal(t, "Dinner", expense.Description)
	assert.Equal(t, alice.ID, expense.PayerID)
	assert.Equal(t, bob.ID, expense.CreatedBy)
	require.Len(t, expense.Allocations, 2)
	assert.Equal(t, "25", expense.Allocations[0].Share)
	assert.Equal(t, "20.00", expense.Allocations[0].Amount)
	assert.Equal(t, "60.00", expense.Allocations[1].Amount)

	got, err := env.expenses.GetExpense(ctx, withToken(alice.Token, &api.GetExpenseRequest{ExpenseID: expense.ID}))
	require.NoError(t, err)
	assert.Equal(t, expense, got.Msg.Expense)

	_, err = env.expenses.GetExpense(ctx, withToken(alice.Token, &api.GetExpenseRequest{ExpenseID: "nonexistent-id"}))
	assertCode(t, err, connect.CodeNotFound, "")

	outsider := env.register(t, "outsider")
	_, err = env.expenses.GetExpense(ctx, withToken(outsider.Token, &api.GetExpenseRequest{ExpenseID: expense.ID}))
	assertCode(t, err, connect.CodePermissionDenied, "")

	published, _ := env.publisher.counts()
	assert.Equal(t, 1, published)
}

func TestCreateExpense_Rejections(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	group := env.newGroup(t, alice, bob)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *api.CreateExpenseRequest
		kind string
	}{
		{"payer outside group", &api.CreateExpenseRequest{Amount: "10", PayerID: "stranger", Strategy: "equal", Participants: participants(alice.ID)}, "UnknownMember"},
		{"participant outside group", &api.CreateExpenseRequest{Amount: "10", Strategy: "equal", Participants: participants(alice.ID, "stranger")}, "UnknownMember"},
		{"other currency", &api.CreateExpenseRequest{Amount: "10", Currency: "EUR", Strategy: "equal", Participants: participants(alice.ID)}, "CurrencyMismatch"},
		{"custom mismatch", &api.CreateExpenseRequest{Amount: "100", Strategy: "custom_amount", Participants: withShares(alice.ID, "40", bob.ID, "50")}, "CustomAmountSumMismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.GroupID = group.ID
			_, err := env.expenses.CreateExpense(ctx, withToken(alice.Token, tt.req))
			assertCode(t, err, connect.CodeInvalidArgument, tt.kind)
		})
	}

	list, err := env.expenses.ListExpenses(ctx, withToken(alice.Token, &api.ListExpensesRequest{GroupID: group.ID}))
	require.NoError(t, err)
	assert.Empty(t, list.Msg.Expenses, "rejected expenses are never stored")

	published, _ := env.publisher.counts()
	assert.Zero(t, published)
}

func TestCreateExpense_NonMember(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice")
	mallory := env.register(t, "mallory")
	group := env.newGroup(t, alice)

	_, err := env.expenses.CreateExpense(context.Background(), withToken(mallory.Token, &api.CreateExpenseRequest{
		GroupID:      group.ID,
		Amount:       "10",
		Strategy:     "equal",
		Participants: participants(alice.ID),
	}))
	assertCode(t, err, connect.CodePermissionDenied, "")
}

func TestListExpenses(t *testing.T) {
	env := setupTestServer(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	group := env.newGroup(t, alice, bob)
	ctx := context.Background()

	for _, amount := range []string{"12.50", "7.25", "0.01"} {
		_, err := env.expenses.CreateExpense(ctx, withToken(alice.Token, &api.CreateExpenseRequest{
			GroupID:      group.ID,
			Amount:       amount,
			Strategy:     "equal",
			Participants: participants(alice.ID, bob.ID),
		}))
		require.NoError(t, err)
	}

	resp, err := env.expenses.ListExpenses(ctx, withToken(bob.Token, &api.ListExpensesRequest{GroupID: group.ID}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Expenses, 3)
	assert.Equal(t, "12.50", resp.Msg.Expenses[0].Amount)
	assert.Equal(t, "0.01", resp.Msg.Expenses[2].Amount)
	assert.Equal(t, "19.76", resp.Msg.TotalSpent)

	// One cent among two: Alice joined first
	assert.Equal(t, map[string]string{alice.ID: "0.01", bob.ID: "0.00"}, amounts(resp.Msg.Expenses[2].Allocations))

	balances := balancesByMember(t, env, bob.Token, group.ID)
	assert.Equal(t, "9.87", balances[alice.ID].NetBalance)
	assert.Equal(t, "-9.87", balances[bob.ID].NetBalance)
}
