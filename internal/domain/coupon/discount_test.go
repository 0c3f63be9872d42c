package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name   string
		coupon Coupon
		total  decimal.Decimal
		want   decimal.Decimal
	}{
		{
			name:   "percentage",
			coupon: Coupon{Type: TypePercentage, Value: decimal.NewFromInt(10)},
			total:  decimal.NewFromInt(6000),
			want:   decimal.NewFromInt(600),
		},
		{
			name:   "percentage rounds to cents",
			coupon: Coupon{Type: TypePercentage, Value: decimal.NewFromInt(15)},
			total:  decimal.RequireFromString("33.33"),
			want:   decimal.RequireFromString("5.00"),
		},
		{
			name:   "percentage of zero total",
			coupon: Coupon{Type: TypePercentage, Value: decimal.NewFromInt(50)},
			total:  decimal.Zero,
			want:   decimal.Zero,
		},
		{
			name:   "fixed amount below total",
			coupon: Coupon{Type: TypeFixedAmount, Value: decimal.NewFromInt(500)},
			total:  decimal.NewFromInt(1500),
			want:   decimal.NewFromInt(500),
		},
		{
			name:   "fixed amount capped at total",
			coupon: Coupon{Type: TypeFixedAmount, Value: decimal.NewFromInt(2000)},
			total:  decimal.NewFromInt(1500),
			want:   decimal.NewFromInt(1500),
		},
		{
			name:   "free shipping discounts nothing",
			coupon: Coupon{Type: TypeFreeShipping, Value: decimal.NewFromInt(99)},
			total:  decimal.NewFromInt(1500),
			want:   decimal.Zero,
		},
		{
			name:   "unknown type defaults to zero",
			coupon: Coupon{Type: Type("BOGO"), Value: decimal.NewFromInt(10)},
			total:  decimal.NewFromInt(1500),
			want:   decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDiscount(&tt.coupon, tt.total)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestCalculateDiscount_NeverExceedsTotal(t *testing.T) {
	fixed := Coupon{Type: TypeFixedAmount, Value: decimal.NewFromInt(2000)}
	for _, total := range []int64{0, 1, 1500, 2000, 90000} {
		d := CalculateDiscount(&fixed, decimal.NewFromInt(total))
		assert.True(t, d.LessThanOrEqual(decimal.NewFromInt(total)),
			"discount %s exceeds total %d", d, total)
	}
}
