// Package coupon implements discount codes: field validation, eligibility
// evaluation against an order total and a user's redemption history, and
// discount amount calculation.
package coupon

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage applies a percentage of the order total.
	TypePercentage Type = "PERCENTAGE"
	// TypeFixedAmount applies a fixed monetary discount capped at the order total.
	TypeFixedAmount Type = "FIXED_AMOUNT"
	// TypeFreeShipping waives the shipping amount. The discount amount itself
	// is zero; the caller zeroes shipping_amount when this type applies.
	TypeFreeShipping Type = "FREE_SHIPPING"
)

// Eligibility failures. Messages are surfaced to the caller verbatim.
var (
	ErrNotFound          = errors.New("Invalid coupon code")
	ErrNotActive         = errors.New("Coupon is not active")
	ErrNotYetValid       = errors.New("Coupon is not yet valid")
	ErrExpired           = errors.New("Coupon has expired")
	ErrUsageLimitReached = errors.New("Coupon usage limit reached")
	ErrUserLimitReached  = errors.New("You have reached the usage limit for this coupon")
)

// Admin-side failures.
var (
	// ErrDuplicateCode is returned when creating a coupon with a code that
	// already exists.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrInUse is returned when deletion is attempted on a coupon that
	// orders still reference.
	ErrInUse = errors.New("coupon is referenced by orders")
)

// MinimumAmountError indicates the order total is below the coupon's
// minimum_amount bound.
type MinimumAmountError struct {
	Minimum decimal.Decimal
}

func (e *MinimumAmountError) Error() string {
	return fmt.Sprintf("Minimum order amount of $%s required", e.Minimum)
}

// MaximumAmountError indicates the order total exceeds the coupon's
// maximum_amount bound.
type MaximumAmountError struct {
	Maximum decimal.Decimal
}

func (e *MaximumAmountError) Error() string {
	return fmt.Sprintf("Maximum order amount of $%s exceeded", e.Maximum)
}

// Coupon is a discount code record.
type Coupon struct {
	ID                string
	Code              string
	Type              Type
	Value             decimal.Decimal
	Description       string
	UsageLimit        *int
	UsageLimitPerUser *int
	UsedCount         int
	IsActive          bool
	StartsAt          *time.Time
	ExpiresAt         *time.Time
	MinimumAmount     *decimal.Decimal
	MaximumAmount     *decimal.Decimal
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Repository provides lookup and mutation of coupons.
type Repository interface {
	List(ctx context.Context) ([]Coupon, error)
	GetByID(ctx context.Context, id string) (*Coupon, error)
	// FindByCode looks up a coupon by its normalized (uppercase) code.
	// Returns ErrNotFound when no such coupon exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	// Delete removes a coupon. Implementations must refuse when any order
	// references the coupon.
	Delete(ctx context.Context, id string) error
	// CountUserRedemptions returns how many orders by the given user
	// reference the coupon.
	CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error)
	// Redeem increments used_count iff the usage limit has room, in a single
	// conditional update. Returns ErrUsageLimitReached when the update
	// matched no rows.
	Redeem(ctx context.Context, id string) error
}

var codeRe = regexp.MustCompile(`^[A-Z0-9_-]{3,20}$`)

// NormalizeCode uppercases and trims a coupon code for lookup and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FieldError is a validation failure on a single coupon field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks the coupon's fields against the admin-side rules. The code
// must already be normalized.
func (c *Coupon) Validate() error {
	if !codeRe.MatchString(c.Code) {
		return &FieldError{Field: "code", Message: "must be 3-20 uppercase letters, digits, underscores or hyphens"}
	}

	switch c.Type {
	case TypePercentage, TypeFixedAmount, TypeFreeShipping:
	default:
		return &FieldError{Field: "type", Message: "unknown coupon type"}
	}

	if c.Value.IsNegative() {
		return &FieldError{Field: "value", Message: "must not be negative"}
	}
	if c.Value.Exponent() < -2 {
		return &FieldError{Field: "value", Message: "at most 2 fractional digits"}
	}
	if c.Type == TypePercentage && c.Value.GreaterThan(decimal.NewFromInt(100)) {
		return &FieldError{Field: "value", Message: "percentage must not exceed 100"}
	}

	if c.UsageLimit != nil && *c.UsageLimit <= 0 {
		return &FieldError{Field: "usage_limit", Message: "must be positive"}
	}
	if c.UsageLimitPerUser != nil && *c.UsageLimitPerUser <= 0 {
		return &FieldError{Field: "usage_limit_per_user", Message: "must be positive"}
	}

	if c.StartsAt != nil && c.ExpiresAt != nil && !c.StartsAt.Before(*c.ExpiresAt) {
		return &FieldError{Field: "starts_at", Message: "must precede expires_at"}
	}

	if c.MinimumAmount != nil && c.MinimumAmount.IsNegative() {
		return &FieldError{Field: "minimum_amount", Message: "must not be negative"}
	}
	if c.MaximumAmount != nil && c.MaximumAmount.IsNegative() {
		return &FieldError{Field: "maximum_amount", Message: "must not be negative"}
	}
	if c.MinimumAmount != nil && c.MaximumAmount != nil && !c.MinimumAmount.LessThan(*c.MaximumAmount) {
		return &FieldError{Field: "minimum_amount", Message: "must be less than maximum_amount"}
	}

	return nil
}
