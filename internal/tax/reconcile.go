package tax

import "github.com/shopspring/decimal"

// ReconciledPrice is a paired net/gross amount in minor currency units.
type ReconciledPrice struct {
	Net   int64
	Gross int64
}

// Reconcile converts a single amount plus a tax rate into the paired
// net/gross price. When includesTax is true the amount is treated as
// gross and the net is derived; otherwise the amount is net and the
// gross is derived.
//
// Rounding is half-up to the minor unit and fully deterministic: callers
// recompute this live as operators edit price and rate fields, and the
// preview and commit passes must agree to the cent.
func Reconcile(price int64, includesTax bool, ratePercent float64) ReconciledPrice {
	factor := decimal.NewFromInt(1).Add(
		decimal.NewFromFloat(ratePercent).Div(decimal.NewFromInt(100)))

	amount := decimal.NewFromInt(price)
	if includesTax {
		// DivRound and Round round half away from zero, which is
		// half-up for non-negative prices.
		return ReconciledPrice{
			Net:   amount.DivRound(factor, 0).IntPart(),
			Gross: price,
		}
	}
	return ReconciledPrice{
		Net:   price,
		Gross: amount.Mul(factor).Round(0).IntPart(),
	}
}
