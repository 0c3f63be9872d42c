package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CalculateDiscount computes the discount amount for an eligible coupon
// against the given order total.
//
//   - PERCENTAGE: total × value / 100
//   - FIXED_AMOUNT: min(value, total), so the discount never exceeds the total
//   - FREE_SHIPPING: zero; the shipping waiver is applied to shipping_amount
//     by the caller
//   - any other type: zero
//
// The result is rounded to 2 decimal places and is never negative.
func CalculateDiscount(c *Coupon, orderTotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Type {
	case TypePercentage:
		amount = orderTotal.Mul(c.Value).Div(hundred)
	case TypeFixedAmount:
		amount = decimal.Min(c.Value, orderTotal)
	case TypeFreeShipping:
		amount = decimal.Zero
	default:
		amount = decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}
