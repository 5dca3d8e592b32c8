package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupledger/internal/money"
)

// FormatBalance renders a net balance as "owed $X" when positive, "owes $X"
// when negative and "settled up" at zero.
func FormatBalance(net decimal.Decimal, currency string) string {
	switch net.Sign() {
	case 1:
		return "owed " + money.Format(net, currency)
	case -1:
		return "owes " + money.Format(net.Abs(), currency)
	default:
		return "settled up"
	}
}
