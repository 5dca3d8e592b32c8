package calculator

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/money"
)

var (
	hundred = decimal.NewFromInt(100)
	// tolerance is how far percentages or custom amounts may drift from their
	// target total and still be accepted.
	tolerance = decimal.New(1, -2)
)

// ParticipantShare is one participant of a proposed expense.
type ParticipantShare struct {
	MemberID string
	// Share is a percentage for SplitPercentage and an amount for
	// SplitCustomAmount. Ignored for SplitEqual.
	Share decimal.Decimal
}

// SplitRequest is a proposed expense to validate and resolve.
type SplitRequest struct {
	Amount   decimal.Decimal
	Currency string
	Strategy models.SplitStrategy
	// Participants must be in group join order for SplitEqual; see
	// OrderByRoster.
	Participants []ParticipantShare
}

// ResolveSplit validates req and returns one allocation per participant, in
// input order. The allocation amounts always sum exactly to req.Amount.
//
// Algorithm (all arithmetic in integer minor units):
//   - equal: amount / n each; the amount % n leftover units go one each to the
//     first participants.
//   - percentage: round(amount * pct / 100) for all but the last participant,
//     who receives the remainder.
//   - custom_amount: shares are used as given; a residue within tolerance is
//     absorbed by the last participant.
func ResolveSplit(req SplitRequest) ([]models.Allocation, error) {
	currency, err := money.NormalizeCurrency(req.Currency)
	if err != nil {
		return nil, invalid(err, "currency", "")
	}
	if !req.Amount.IsPositive() {
		return nil, invalid(ErrNonPositiveAmount, "amount", req.Amount.String())
	}
	total, err := money.ToMinor(req.Amount, currency)
	if err != nil {
		return nil, invalid(err, "amount", "")
	}
	if len(req.Participants) == 0 {
		return nil, invalid(ErrEmptyParticipants, "participants", "")
	}

	seen := make(map[string]struct{}, len(req.Participants))
	for i, p := range req.Participants {
		field := fmt.Sprintf("participants[%d]", i)
		if p.MemberID == "" {
			return nil, invalid(ErrEmptyParticipants, field, "member id is required")
		}
		if _, dup := seen[p.MemberID]; dup {
			return nil, invalid(ErrDuplicateParticipant, field, p.MemberID)
		}
		seen[p.MemberID] = struct{}{}
		if req.Strategy != models.SplitEqual && p.Share.IsNegative() {
			return nil, invalid(ErrNegativeShare, field+".share", p.Share.String())
		}
	}

	switch req.Strategy {
	case models.SplitEqual:
		return splitEqual(total, currency, req.Participants), nil
	case models.SplitPercentage:
		return splitPercentage(total, currency, req.Participants)
	case models.SplitCustomAmount:
		return splitCustom(req.Amount, total, currency, req.Participants)
	default:
		return nil, invalid(ErrUnknownStrategy, "strategy", string(req.Strategy))
	}
}

func splitEqual(total int64, currency string, participants []ParticipantShare) []models.Allocation {
	n := int64(len(participants))
	base, remainder := total/n, total%n

	allocations := make([]models.Allocation, len(participants))
	for i, p := range participants {
		units := base
		if int64(i) < remainder {
			units++
		}
		allocations[i] = models.Allocation{
			MemberID: p.MemberID,
			Amount:   money.FromMinor(units, currency),
		}
	}
	return allocations
}

func splitPercentage(total int64, currency string, participants []ParticipantShare) ([]models.Allocation, error) {
	sum := decimal.Zero
	for _, p := range participants {
		sum = sum.Add(p.Share)
	}
	if sum.Sub(hundred).Abs().GreaterThan(tolerance) {
		return nil, invalid(ErrPercentageSumMismatch, "participants", "total is "+sum.String())
	}

	totalDec := decimal.NewFromInt(total)
	units := make([]int64, len(participants))
	var allocated int64
	last := len(participants) - 1
	for i, p := range participants[:last] {
		units[i] = totalDec.Mul(p.Share).DivRound(hundred, 0).IntPart()
		allocated += units[i]
	}
	units[last] = total - allocated
	if units[last] < 0 {
		return nil, invalid(ErrNegativeShare, fmt.Sprintf("participants[%d].share", last), "rounding leaves a negative remainder")
	}

	return buildAllocations(participants, units, currency), nil
}

func splitCustom(amount decimal.Decimal, total int64, currency string, participants []ParticipantShare) ([]models.Allocation, error) {
	sum := decimal.Zero
	for _, p := range participants {
		sum = sum.Add(p.Share)
	}
	if sum.Sub(amount).Abs().GreaterThan(tolerance) {
		return nil, invalid(ErrCustomAmountSumMismatch, "participants",
			fmt.Sprintf("shares total %s, expected %s", money.String(sum, currency), money.String(amount, currency)))
	}

	exp := money.Exponent(currency)
	units := make([]int64, len(participants))
	var allocated int64
	last := len(participants) - 1
	for i, p := range participants[:last] {
		units[i] = p.Share.Shift(exp).Round(0).IntPart()
		allocated += units[i]
	}
	units[last] = total - allocated
	if units[last] < 0 {
		return nil, invalid(ErrNegativeShare, fmt.Sprintf("participants[%d].share", last), "rounding leaves a negative remainder")
	}

	return buildAllocations(participants, units, currency), nil
}

func buildAllocations(participants []ParticipantShare, units []int64, currency string) []models.Allocation {
	allocations := make([]models.Allocation, len(participants))
	for i, p := range participants {
		allocations[i] = models.Allocation{
			MemberID: p.MemberID,
			Share:    decimal.NewNullDecimal(p.Share),
			Amount:   money.FromMinor(units[i], currency),
		}
	}
	return allocations
}

// OrderByRoster returns participants sorted by their position in roster
// (join order). Participants missing from roster keep their relative order
// after all known ones.
func OrderByRoster(participants []ParticipantShare, roster []models.Member) []ParticipantShare {
	position := make(map[string]int, len(roster))
	for _, m := range roster {
		if _, ok := position[m.ID]; !ok {
			position[m.ID] = m.Position
		}
	}
	rank := func(p ParticipantShare) (int, bool) {
		pos, ok := position[p.MemberID]
		return pos, ok
	}

	ordered := slices.Clone(participants)
	slices.SortStableFunc(ordered, func(a, b ParticipantShare) int {
		pa, okA := rank(a)
		pb, okB := rank(b)
		switch {
		case okA && okB:
			return pa - pb
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
	return ordered
}
