package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/skobelev/storefront/internal/domain/coupon"
)

// ErrNotFound is returned when the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrNotDeletable is returned when deletion is attempted on a shipped or
// delivered order.
var ErrNotDeletable = errors.New("shipped or delivered orders cannot be deleted")

// Service owns order mutations: coupon application, status transitions, and
// the delete guard. All invariants are enforced here, before persistence,
// rather than in any UI layer.
type Service struct {
	orders  Repository
	coupons *coupon.Service
	now     func() time.Time
}

// NewService creates an order Service.
func NewService(orders Repository, coupons *coupon.Service) *Service {
	return &Service{orders: orders, coupons: coupons, now: time.Now}
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List returns all orders.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// ApplyCoupon evaluates the code against the order's pre-discount total,
// records the discount on the order, consumes one use of the coupon, and
// persists the updated amounts. The eligibility error, when present, carries
// the human-readable reason.
func (s *Service) ApplyCoupon(ctx context.Context, orderID, code string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	preDiscount := Aggregate(o.Subtotal, o.TaxAmount, o.ShippingAmount, decimal.Zero)

	res, err := s.coupons.Evaluate(ctx, code, o.UserID, preDiscount)
	if err != nil {
		return nil, err
	}

	o.CouponID = res.Coupon.ID
	o.DiscountAmount = res.Discount
	if res.Coupon.Type == coupon.TypeFreeShipping {
		o.ShippingAmount = decimal.Zero
	}
	Recalculate(o)

	// The conditional increment closes the window between the eligibility
	// read and the redemption write under concurrent use.
	if err := s.coupons.Redeem(ctx, res.Coupon.ID); err != nil {
		return nil, err
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// UpdateStatus transitions the order to the given status, enforcing the
// state machine and stamping shipped_at/delivered_at on first arrival.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := Transition(o, next, s.now()); err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, o); err != nil {
		return nil, errors.Wrap(err, "persist status")
	}
	return o, nil
}

// Update recomputes the order's derived amounts and persists it.
func (s *Service) Update(ctx context.Context, o *Order) error {
	Recalculate(o)
	return s.orders.Update(ctx, o)
}

// Delete removes an order unless it has shipped or been delivered.
func (s *Service) Delete(ctx context.Context, orderID string) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanDelete(o) {
		return ErrNotDeletable
	}
	return s.orders.Delete(ctx, orderID)
}
