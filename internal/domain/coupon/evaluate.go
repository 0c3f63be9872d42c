package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Evaluate checks whether the coupon may be applied to an order of the given
// total by a user with the given prior redemption count. Checks run in a
// fixed order and short-circuit on the first failure, so an inactive expired
// coupon reports "not active" rather than "expired".
//
// Evaluate is pure: it reads the coupon and never mutates it. Incrementing
// used_count is Repository.Redeem's job.
func Evaluate(c *Coupon, orderTotal decimal.Decimal, userRedemptions int, now time.Time) error {
	if !c.IsActive {
		return ErrNotActive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return ErrNotYetValid
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return ErrUsageLimitReached
	}
	if c.UsageLimitPerUser != nil && userRedemptions >= *c.UsageLimitPerUser {
		return ErrUserLimitReached
	}
	if c.MinimumAmount != nil && orderTotal.LessThan(*c.MinimumAmount) {
		return &MinimumAmountError{Minimum: *c.MinimumAmount}
	}
	if c.MaximumAmount != nil && orderTotal.GreaterThan(*c.MaximumAmount) {
		return &MaximumAmountError{Maximum: *c.MaximumAmount}
	}
	return nil
}

// Result is the outcome of a successful coupon evaluation.
type Result struct {
	Coupon   *Coupon
	Discount decimal.Decimal
}

// Service evaluates coupon codes against the repository and computes
// discounts. It owns the read side of redemption; Redeem performs the
// write side.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a coupon Service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Evaluate looks up the code (normalized to uppercase), counts the user's
// prior redemptions, runs the eligibility checks, and returns the computed
// discount. The returned error carries the human-readable reason for
// ineligible coupons.
func (s *Service) Evaluate(ctx context.Context, code, userID string, orderTotal decimal.Decimal) (*Result, error) {
	c, err := s.repo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	redemptions := 0
	if c.UsageLimitPerUser != nil {
		redemptions, err = s.repo.CountUserRedemptions(ctx, c.ID, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count user redemptions")
		}
	}

	if err := Evaluate(c, orderTotal, redemptions, s.now()); err != nil {
		return nil, err
	}

	return &Result{
		Coupon:   c,
		Discount: CalculateDiscount(c, orderTotal),
	}, nil
}

// Redeem consumes one use of the coupon. The repository performs a
// conditional increment, so a concurrent redemption that exhausts the limit
// surfaces as ErrUsageLimitReached here rather than overselling the coupon.
func (s *Service) Redeem(ctx context.Context, couponID string) error {
	if err := s.repo.Redeem(ctx, couponID); err != nil {
		if errors.Is(err, ErrUsageLimitReached) {
			return ErrUsageLimitReached
		}
		return errors.Wrap(err, "redeem coupon")
	}
	return nil
}
