package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode(" save10 "))
	assert.Equal(t, "HALF_OFF-2", NormalizeCode("half_off-2"))
}

func TestCoupon_Validate(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	valid := func() Coupon {
		return Coupon{
			Code:  "SAVE10",
			Type:  TypePercentage,
			Value: decimal.NewFromInt(10),
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Coupon)
		wantField string
	}{
		{"valid coupon", func(*Coupon) {}, ""},
		{"code too short", func(c *Coupon) { c.Code = "AB" }, "code"},
		{"code with lowercase", func(c *Coupon) { c.Code = "save10" }, "code"},
		{"code too long", func(c *Coupon) { c.Code = "ABCDEFGHIJKLMNOPQRSTU" }, "code"},
		{"unknown type", func(c *Coupon) { c.Type = "GIFT" }, "type"},
		{"negative value", func(c *Coupon) { c.Value = decimal.NewFromInt(-1) }, "value"},
		{"too many fractional digits", func(c *Coupon) { c.Value = decimal.RequireFromString("9.999") }, "value"},
		{"percentage above 100", func(c *Coupon) { c.Value = decimal.NewFromInt(101) }, "value"},
		{"fixed amount above 100 is fine", func(c *Coupon) {
			c.Type = TypeFixedAmount
			c.Value = decimal.NewFromInt(250)
		}, ""},
		{"zero usage limit", func(c *Coupon) { c.UsageLimit = intPtr(0) }, "usage_limit"},
		{"zero per-user limit", func(c *Coupon) { c.UsageLimitPerUser = intPtr(0) }, "usage_limit_per_user"},
		{"starts after expires", func(c *Coupon) {
			c.StartsAt = &later
			c.ExpiresAt = &now
		}, "starts_at"},
		{"valid window", func(c *Coupon) {
			c.StartsAt = &now
			c.ExpiresAt = &later
		}, ""},
		{"negative minimum", func(c *Coupon) { c.MinimumAmount = decPtr(-5) }, "minimum_amount"},
		{"minimum not below maximum", func(c *Coupon) {
			c.MinimumAmount = decPtr(100)
			c.MaximumAmount = decPtr(100)
		}, "minimum_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantField, fe.Field)
		})
	}
}
