package order

import "github.com/shopspring/decimal"

// Aggregate combines the monetary components of an order into its total:
//
//	total = subtotal + tax + shipping − discount
//
// The result is rounded to 2 decimal places. It is deliberately not clamped
// at zero: whether a discount may push a total negative is a product
// decision, and callers that need a floor apply it themselves.
//
// Every place a total is shown or persisted must go through this function so
// displayed and stored values cannot drift.
func Aggregate(subtotal, tax, shipping, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Add(shipping).Sub(discount).Round(2)
}

// ItemTotal computes a line item total: quantity × unit price.
func ItemTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Recalculate re-derives the order's stored amounts from its components:
// each line's total, the subtotal, and the order total. The stored subtotal
// is kept as-is when the order was loaded without its line items.
func Recalculate(o *Order) {
	if len(o.Items) > 0 {
		subtotal := decimal.Zero
		for i := range o.Items {
			o.Items[i].Total = ItemTotal(o.Items[i].Quantity, o.Items[i].UnitPrice)
			subtotal = subtotal.Add(o.Items[i].Total)
		}
		o.Subtotal = subtotal.Round(2)
	}
	o.Total = Aggregate(o.Subtotal, o.TaxAmount, o.ShippingAmount, o.DiscountAmount)
}
