// Package handler exposes the admin HTTP API: JSON envelope responses over a
// chi router, with session authentication and per-permission authorization.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/skobelev/storefront/internal/auth"
	"github.com/skobelev/storefront/internal/domain/catalog"
	"github.com/skobelev/storefront/internal/domain/coupon"
	"github.com/skobelev/storefront/internal/domain/order"
	"github.com/skobelev/storefront/internal/domain/user"
)

// Handler holds the services and repositories behind the admin API.
type Handler struct {
	auth       *auth.Service
	coupons    coupon.Repository
	couponSvc  *coupon.Service
	orders     *order.Service
	users      user.Repository
	roles      user.RoleRepository
	colors     catalog.ColorRepository
	sizes      catalog.SizeRepository
	categories catalog.CategoryRepository
}

// Config bundles the Handler's dependencies.
type Config struct {
	Auth       *auth.Service
	Coupons    coupon.Repository
	CouponSvc  *coupon.Service
	Orders     *order.Service
	Users      user.Repository
	Roles      user.RoleRepository
	Colors     catalog.ColorRepository
	Sizes      catalog.SizeRepository
	Categories catalog.CategoryRepository
}

// New constructs a Handler.
func New(cfg Config) *Handler {
	return &Handler{
		auth:       cfg.Auth,
		coupons:    cfg.Coupons,
		couponSvc:  cfg.CouponSvc,
		orders:     cfg.Orders,
		users:      cfg.Users,
		roles:      cfg.Roles,
		colors:     cfg.Colors,
		sizes:      cfg.Sizes,
		categories: cfg.Categories,
	}
}

// Routes assembles the /api/v1 router. Everything except the auth endpoints
// requires a session; mutation endpoints additionally require the matching
// write permission.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/forgot-password", h.forgotPassword)
		r.Post("/reset-password", h.resetPassword)
		r.With(h.requireSession).Get("/me", h.me)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Route("/coupons", func(r chi.Router) {
			r.With(h.requirePermission(user.PermCouponsRead)).Get("/", h.listCoupons)
			r.With(h.requirePermission(user.PermCouponsRead)).Get("/{id}", h.getCoupon)
			r.With(h.requirePermission(user.PermCouponsRead)).Post("/validate", h.validateCoupon)
			r.With(h.requirePermission(user.PermCouponsWrite)).Post("/", h.createCoupon)
			r.With(h.requirePermission(user.PermCouponsWrite)).Put("/{id}", h.updateCoupon)
			r.With(h.requirePermission(user.PermCouponsWrite)).Delete("/{id}", h.deleteCoupon)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(h.requirePermission(user.PermOrdersRead)).Get("/", h.listOrders)
			r.With(h.requirePermission(user.PermOrdersRead)).Get("/{id}", h.getOrder)
			r.With(h.requirePermission(user.PermOrdersWrite)).Put("/{id}", h.updateOrder)
			r.With(h.requirePermission(user.PermOrdersWrite)).Put("/{id}/status", h.updateOrderStatus)
			r.With(h.requirePermission(user.PermOrdersWrite)).Post("/{id}/apply-coupon", h.applyCoupon)
			r.With(h.requirePermission(user.PermOrdersWrite)).Delete("/{id}", h.deleteOrder)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.requirePermission(user.PermUsersRead)).Get("/", h.listUsers)
			r.With(h.requirePermission(user.PermUsersRead)).Get("/{id}", h.getUser)
			r.With(h.requirePermission(user.PermUsersWrite)).Post("/", h.createUser)
			r.With(h.requirePermission(user.PermUsersWrite)).Put("/{id}", h.updateUser)
			r.With(h.requirePermission(user.PermUsersWrite)).Delete("/{id}", h.deleteUser)
		})

		r.Route("/roles", func(r chi.Router) {
			r.With(h.requirePermission(user.PermRolesRead)).Get("/", h.listRoles)
			r.With(h.requirePermission(user.PermRolesRead)).Get("/{id}", h.getRole)
			r.With(h.requirePermission(user.PermRolesWrite)).Post("/", h.createRole)
			r.With(h.requirePermission(user.PermRolesWrite)).Put("/{id}", h.updateRole)
			r.With(h.requirePermission(user.PermRolesWrite)).Delete("/{id}", h.deleteRole)
		})

		h.mountCatalog(r)
	})

	return r
}

// timeFormat is used for all timestamps in responses.
const timeFormat = "2006-01-02T15:04:05Z07:00"

// envelope is the uniform JSON response shape.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: true, Message: msg})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decode parses the request body into dst, rejecting unknown fields.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

// respondDomainError maps domain errors onto the HTTP error taxonomy.
// Unrecognized errors are logged and reported as a generic 500 so internal
// details never leak to the client.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr *coupon.FieldError
	if errors.As(err, &fieldErr) {
		respondError(w, http.StatusUnprocessableEntity, fieldErr.Error())
		return
	}

	var transitionErr *order.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		respondError(w, http.StatusUnprocessableEntity, transitionErr.Error())
		return
	}

	switch {
	case errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, user.ErrRoleNotFound),
		errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, coupon.ErrDuplicateCode),
		errors.Is(err, coupon.ErrInUse),
		errors.Is(err, user.ErrDuplicateEmail),
		errors.Is(err, user.ErrDuplicateRole),
		errors.Is(err, user.ErrHasDependents),
		errors.Is(err, catalog.ErrDuplicateValue),
		errors.Is(err, catalog.ErrInUse),
		errors.Is(err, order.ErrNotDeletable):
		respondError(w, http.StatusConflict, err.Error())

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNoSession),
		errors.Is(err, auth.ErrResetTokenInvalid):
		respondError(w, http.StatusUnauthorized, err.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
