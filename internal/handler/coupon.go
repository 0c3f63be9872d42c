package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/skobelev/storefront/internal/domain/coupon"
)

type couponRequest struct {
	Code              string           `json:"code"`
	Type              string           `json:"type"`
	Value             decimal.Decimal  `json:"value"`
	Description       string           `json:"description"`
	UsageLimit        *int             `json:"usage_limit"`
	UsageLimitPerUser *int             `json:"usage_limit_per_user"`
	IsActive          bool             `json:"is_active"`
	StartsAt          *time.Time       `json:"starts_at"`
	ExpiresAt         *time.Time       `json:"expires_at"`
	MinimumAmount     *decimal.Decimal `json:"minimum_amount"`
	MaximumAmount     *decimal.Decimal `json:"maximum_amount"`
}

type couponResponse struct {
	ID                string           `json:"id"`
	Code              string           `json:"code"`
	Type              string           `json:"type"`
	Value             decimal.Decimal  `json:"value"`
	Description       string           `json:"description,omitempty"`
	UsageLimit        *int             `json:"usage_limit,omitempty"`
	UsageLimitPerUser *int             `json:"usage_limit_per_user,omitempty"`
	UsedCount         int              `json:"used_count"`
	IsActive          bool             `json:"is_active"`
	StartsAt          *time.Time       `json:"starts_at,omitempty"`
	ExpiresAt         *time.Time       `json:"expires_at,omitempty"`
	MinimumAmount     *decimal.Decimal `json:"minimum_amount,omitempty"`
	MaximumAmount     *decimal.Decimal `json:"maximum_amount,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:                c.ID,
		Code:              c.Code,
		Type:              string(c.Type),
		Value:             c.Value,
		Description:       c.Description,
		UsageLimit:        c.UsageLimit,
		UsageLimitPerUser: c.UsageLimitPerUser,
		UsedCount:         c.UsedCount,
		IsActive:          c.IsActive,
		StartsAt:          c.StartsAt,
		ExpiresAt:         c.ExpiresAt,
		MinimumAmount:     c.MinimumAmount,
		MaximumAmount:     c.MaximumAmount,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (req *couponRequest) toDomain() *coupon.Coupon {
	return &coupon.Coupon{
		Code:              coupon.NormalizeCode(req.Code),
		Type:              coupon.Type(req.Type),
		Value:             req.Value,
		Description:       req.Description,
		UsageLimit:        req.UsageLimit,
		UsageLimitPerUser: req.UsageLimitPerUser,
		IsActive:          req.IsActive,
		StartsAt:          req.StartsAt,
		ExpiresAt:         req.ExpiresAt,
		MinimumAmount:     req.MinimumAmount,
		MaximumAmount:     req.MaximumAmount,
	}
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]couponResponse, len(coupons))
	for i := range coupons {
		out[i] = toCouponResponse(&coupons[i])
	}
	respondData(w, http.StatusOK, out)
}

func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toCouponResponse(c))
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := req.toDomain()
	if u, ok := UserFromContext(r.Context()); ok {
		c.CreatedBy = u.ID
	}
	if err := c.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := h.coupons.Create(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, toCouponResponse(c))
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := h.coupons.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	c := req.toDomain()
	c.ID = existing.ID
	c.UsedCount = existing.UsedCount
	c.CreatedBy = existing.CreatedBy
	if err := c.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := h.coupons.Update(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toCouponResponse(c))
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "coupon deleted")
}

type validateCouponRequest struct {
	Code       string          `json:"code"`
	UserID     string          `json:"user_id"`
	OrderTotal decimal.Decimal `json:"order_total"`
}

type validateCouponResponse struct {
	Valid    bool             `json:"valid"`
	Reason   string           `json:"reason,omitempty"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
	Coupon   *couponResponse  `json:"coupon,omitempty"`
}

// eligibilityReason reports whether err is one of the coupon eligibility
// failures, returning its human-readable message.
func eligibilityReason(err error) (string, bool) {
	for _, sentinel := range []error{
		coupon.ErrNotFound,
		coupon.ErrNotActive,
		coupon.ErrNotYetValid,
		coupon.ErrExpired,
		coupon.ErrUsageLimitReached,
		coupon.ErrUserLimitReached,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error(), true
		}
	}

	var minErr *coupon.MinimumAmountError
	if errors.As(err, &minErr) {
		return minErr.Error(), true
	}
	var maxErr *coupon.MaximumAmountError
	if errors.As(err, &maxErr) {
		return maxErr.Error(), true
	}
	return "", false
}

// validateCoupon runs the eligibility checks without consuming a use. An
// ineligible coupon is a successful validation with valid=false, not an
// error.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.couponSvc.Evaluate(r.Context(), req.Code, req.UserID, req.OrderTotal)
	if err != nil {
		if reason, ok := eligibilityReason(err); ok {
			respondData(w, http.StatusOK, validateCouponResponse{Valid: false, Reason: reason})
			return
		}
		respondDomainError(w, r, err)
		return
	}

	cr := toCouponResponse(res.Coupon)
	respondData(w, http.StatusOK, validateCouponResponse{
		Valid:    true,
		Discount: &res.Discount,
		Coupon:   &cr,
	})
}
