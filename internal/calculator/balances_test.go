package calculator

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/money"
)

var roster = []models.Member{
	{ID: "A", DisplayName: "Alice", Position: 0},
	{ID: "B", DisplayName: "Bob", Position: 1},
	{ID: "C", DisplayName: "Charlie", Position: 2},
}

func resolved(t *testing.T, id, payer, amount string, strategy models.SplitStrategy, participants []ParticipantShare) ExpenseForBalance {
	t.Helper()
	allocs, err := ResolveSplit(SplitRequest{
		Amount: dec(amount), Currency: "USD", Strategy: strategy, Participants: participants,
	})
	require.NoError(t, err)
	return ExpenseForBalance{ID: id, Amount: dec(amount), Currency: "USD", PayerID: payer, Allocations: allocs}
}

func netOf(t *testing.T, net map[string]decimal.Decimal) map[string]string {
	t.Helper()
	out := make(map[string]string, len(net))
	for id, v := range net {
		out[id] = v.StringFixed(2)
	}
	return out
}

func TestCalculateBalances_SinglePayer(t *testing.T) {
	expenses := []ExpenseForBalance{
		resolved(t, "e1", "A", "60.00", models.SplitEqual, members("A", "B", "C")),
	}

	net, err := CalculateBalances(roster, expenses)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "40.00", "B": "-20.00", "C": "-20.00"}, netOf(t, net))
}

func TestCalculateBalances_NoExpenses(t *testing.T) {
	net, err := CalculateBalances(roster, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "0.00", "B": "0.00", "C": "0.00"}, netOf(t, net))
}

func TestCalculateBalances_PayerNotParticipant(t *testing.T) {
	expenses := []ExpenseForBalance{
		resolved(t, "e1", "C", "30.00", models.SplitCustomAmount, shares("A", "10", "B", "20")),
	}

	net, err := CalculateBalances(roster, expenses)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "-10.00", "B": "-20.00", "C": "30.00"}, netOf(t, net))
}

func TestCalculateGroupBalances(t *testing.T) {
	expenses := []ExpenseForBalance{
		resolved(t, "e1", "A", "60.00", models.SplitEqual, members("A", "B", "C")),
		resolved(t, "e2", "B", "10.00", models.SplitEqual, members("A", "B", "C")),
		resolved(t, "e3", "C", "50.00", models.SplitPercentage, shares("A", "50", "B", "50")),
	}
	settlements := []SettlementForBalance{
		{ID: "s1", FromMemberID: "B", ToMemberID: "A", Amount: dec("5.00"), Currency: "USD"},
	}

	balances, err := CalculateGroupBalances(roster, expenses, settlements)
	require.NoError(t, err)
	require.Len(t, balances, 3)

	// roster order is preserved
	assert.Equal(t, "A", balances[0].MemberID)
	assert.Equal(t, "Alice", balances[0].MemberName)
	assert.Equal(t, "B", balances[1].MemberID)
	assert.Equal(t, "C", balances[2].MemberID)

	// A: paid 60, owes 20 + 3.34 + 25, received 5  => 60 - 53.34 = 6.66
	assert.Equal(t, "60.00", balances[0].TotalPaid.StringFixed(2))
	assert.Equal(t, "53.34", balances[0].TotalOwed.StringFixed(2))
	assert.Equal(t, "6.66", balances[0].NetBalance.StringFixed(2))

	// B: paid 10 + 5, owes 20 + 3.33 + 25 => 15 - 48.33 = -33.33
	assert.Equal(t, "-33.33", balances[1].NetBalance.StringFixed(2))

	// C: paid 50, owes 20 + 3.33 => 26.67
	assert.Equal(t, "26.67", balances[2].NetBalance.StringFixed(2))

	sum := decimal.Zero
	for _, b := range balances {
		sum = sum.Add(b.NetBalance)
	}
	assert.True(t, sum.IsZero(), "balances sum to %s", sum)
}

func TestCalculateBalances_UnknownMember(t *testing.T) {
	tests := []struct {
		name        string
		expenses    []ExpenseForBalance
		settlements []SettlementForBalance
		wantMember  string
	}{
		{
			name: "unknown participant",
			expenses: []ExpenseForBalance{
				resolved(t, "e1", "A", "30.00", models.SplitEqual, members("A", "B", "Mallory")),
			},
			wantMember: "Mallory",
		},
		{
			name: "unknown payer",
			expenses: []ExpenseForBalance{
				resolved(t, "e1", "Mallory", "30.00", models.SplitEqual, members("A", "B")),
			},
			wantMember: "Mallory",
		},
		{
			name: "unknown settlement receiver",
			settlements: []SettlementForBalance{
				{FromMemberID: "A", ToMemberID: "Mallory", Amount: dec("1")},
			},
			wantMember: "Mallory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateGroupBalances(roster, tt.expenses, tt.settlements)
			require.ErrorIs(t, err, ErrUnknownMember)

			var ierr *IntegrityError
			require.ErrorAs(t, err, &ierr)
			assert.Equal(t, tt.wantMember, ierr.MemberID)
		})
	}
}

func TestCalculateBalances_IntegrityFaults(t *testing.T) {
	good := resolved(t, "e1", "A", "30.00", models.SplitEqual, members("A", "B", "C"))

	tampered := good
	tampered.ID = "e2"
	tampered.Amount = dec("31.00")
	_, err := CalculateBalances(roster, []ExpenseForBalance{good, tampered})
	assert.ErrorIs(t, err, ErrAllocationMismatch)

	empty := ExpenseForBalance{ID: "e3", Amount: dec("5"), Currency: "USD", PayerID: "A"}
	_, err = CalculateBalances(roster, []ExpenseForBalance{empty})
	assert.ErrorIs(t, err, ErrAllocationMismatch)

	euro := good
	euro.ID = "e4"
	euro.Currency = "EUR"
	_, err = CalculateBalances(roster, []ExpenseForBalance{good, euro})
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestCalculateBalances_HistoricalMember(t *testing.T) {
	withLeaver := append(append([]models.Member{}, roster...), models.Member{ID: "D", Position: 3, LeftAt: 1700000000})
	expenses := []ExpenseForBalance{
		resolved(t, "e1", "D", "40.00", models.SplitEqual, members("A", "B", "C", "D")),
	}

	net, err := CalculateBalances(withLeaver, expenses)
	require.NoError(t, err)
	assert.Equal(t, "30.00", net["D"].StringFixed(2))
}

func TestCalculateBalances_TotalsOverflow(t *testing.T) {
	// Each expense fits in int64 minor units, their sum does not
	huge := resolved(t, "e1", "A", "50000000000000000", models.SplitEqual, members("B"))
	again := huge
	again.ID = "e2"

	_, err := CalculateBalances(roster, []ExpenseForBalance{huge, again})
	require.Error(t, err)
	assert.ErrorIs(t, err, money.ErrOverflow)
	var ierr *IntegrityError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "AmountOverflow", Kind(err))

	net, err := CalculateBalances(roster, []ExpenseForBalance{huge})
	require.NoError(t, err)
	assert.True(t, net["A"].IsPositive())
}

func TestCalculateGroupBalances_SettlementOverflow(t *testing.T) {
	big := SettlementForBalance{FromMemberID: "A", ToMemberID: "B", Amount: dec("50000000000000000"), Currency: "USD"}
	_, err := CalculateGroupBalances(roster, nil, []SettlementForBalance{big, big})
	assert.ErrorIs(t, err, money.ErrOverflow)
}

// randomParts splits total into n positive integer parts.
func randomParts(rng *rand.Rand, total int64, n int) []int64 {
	parts := make([]int64, n)
	rest := total - int64(n)
	for i := range n - 1 {
		x := rng.Int64N(rest + 1)
		parts[i] = 1 + x
		rest -= x
	}
	parts[n-1] = 1 + rest
	return parts
}

func randomExpense(t *testing.T, rng *rand.Rand, id string) ExpenseForBalance {
	t.Helper()
	ids := []string{"A", "B", "C"}
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	n := rng.IntN(3) + 1
	cents := rng.Int64N(100_000) + int64(n)

	strategy := []models.SplitStrategy{models.SplitEqual, models.SplitPercentage, models.SplitCustomAmount}[rng.IntN(3)]
	participants := members(ids[:n]...)
	switch strategy {
	case models.SplitPercentage:
		// Basis points, so shares like 33.33 leave a remainder for the last participant
		for i, bp := range randomParts(rng, 10_000, n) {
			participants[i].Share = decimal.New(bp, -2)
		}
	case models.SplitCustomAmount:
		for i, c := range randomParts(rng, cents, n) {
			participants[i].Share = money.FromMinor(c, "USD")
		}
	}

	amount := money.FromMinor(cents, "USD")
	allocs, err := ResolveSplit(SplitRequest{
		Amount: amount, Currency: "USD", Strategy: strategy, Participants: participants,
	})
	require.NoError(t, err, "%s split of %s", strategy, amount)
	return ExpenseForBalance{ID: id, Amount: amount, Currency: "USD", PayerID: ids[rng.IntN(3)], Allocations: allocs}
}

func randomSettlement(rng *rand.Rand, id string) SettlementForBalance {
	ids := []string{"A", "B", "C"}
	from := rng.IntN(3)
	to := (from + 1 + rng.IntN(2)) % 3
	return SettlementForBalance{
		ID: id, FromMemberID: ids[from], ToMemberID: ids[to],
		Amount: money.FromMinor(rng.Int64N(50_000)+1, "USD"), Currency: "USD",
	}
}

// TestCalculateBalances_Properties checks the zero-sum and order independence
// properties over random ledgers mixing every split strategy and settlements.
func TestCalculateBalances_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	for round := range 100 {
		var expenses []ExpenseForBalance
		for i := range rng.IntN(20) + 1 {
			expenses = append(expenses, randomExpense(t, rng, fmt.Sprintf("e%d", i)))
		}
		var settlements []SettlementForBalance
		for i := range rng.IntN(5) {
			settlements = append(settlements, randomSettlement(rng, fmt.Sprintf("s%d", i)))
		}

		balances, err := CalculateGroupBalances(roster, expenses, settlements)
		require.NoError(t, err, "round %d", round)

		sum, paid, owed := decimal.Zero, decimal.Zero, decimal.Zero
		for _, b := range balances {
			sum = sum.Add(b.NetBalance)
			paid = paid.Add(b.TotalPaid)
			owed = owed.Add(b.TotalOwed)
			require.True(t, b.NetBalance.Equal(b.TotalPaid.Sub(b.TotalOwed)), "round %d: member %s", round, b.MemberID)
		}
		require.True(t, sum.IsZero(), "round %d: balances sum to %s", round, sum)
		require.True(t, paid.Equal(owed), "round %d: paid %s, owed %s", round, paid, owed)

		shuffledExpenses := append([]ExpenseForBalance(nil), expenses...)
		rng.Shuffle(len(shuffledExpenses), func(i, j int) {
			shuffledExpenses[i], shuffledExpenses[j] = shuffledExpenses[j], shuffledExpenses[i]
		})
		shuffledSettlements := append([]SettlementForBalance(nil), settlements...)
		rng.Shuffle(len(shuffledSettlements), func(i, j int) {
			shuffledSettlements[i], shuffledSettlements[j] = shuffledSettlements[j], shuffledSettlements[i]
		})
		again, err := CalculateGroupBalances(roster, shuffledExpenses, shuffledSettlements)
		require.NoError(t, err)
		assert.Equal(t, netByMember(balances), netByMember(again), "round %d", round)
	}
}

func netByMember(balances []MemberBalance) map[string]string {
	out := make(map[string]string, len(balances))
	for _, b := range balances {
		out[b.MemberID] = b.NetBalance.StringFixed(2)
	}
	return out
}

func TestTotalSpent(t *testing.T) {
	expenses := []ExpenseForBalance{{Amount: dec("10.50")}, {Amount: dec("4.50")}}
	assert.Equal(t, "15.00", TotalSpent(expenses).StringFixed(2))
}
