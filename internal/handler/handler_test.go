package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skobelev/storefront/internal/auth"
	"github.com/skobelev/storefront/internal/domain/coupon"
	"github.com/skobelev/storefront/internal/domain/order"
	"github.com/skobelev/storefront/internal/domain/user"
)

type testEnv struct {
	handler *Handler
	router  http.Handler
	coupons *memCouponRepo
	orders  *memOrderRepo
	users   *memUserRepo
	roles   *memRoleRepo
	colors  *memColorRepo

	adminToken  string
	viewerToken string
}

// newTestEnv builds a Handler over in-memory repositories with two signed-in
// users: an admin holding every permission and a viewer holding only the read
// permissions.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	couponRepo := newMemCouponRepo()
	orderRepo := newMemOrderRepo()
	userRepo := newMemUserRepo()
	roleRepo := newMemRoleRepo()
	sessionRepo := newMemSessionRepo()
	colorRepo := newMemColorRepo()

	authSvc := auth.NewService(userRepo, sessionRepo, time.Hour)
	couponSvc := coupon.NewService(couponRepo)
	orderSvc := order.NewService(orderRepo, couponSvc)

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)

	adminRole := user.Role{ID: "role-admin", Name: "admin", Permissions: user.AllPermissions}
	viewerRole := user.Role{ID: "role-viewer", Name: "viewer", Permissions: []user.Permission{
		user.PermCouponsRead, user.PermOrdersRead, user.PermUsersRead,
		user.PermRolesRead, user.PermCatalogRead,
	}}

	admin := &user.User{Email: "admin@example.com", PasswordHash: hash, Roles: []user.Role{adminRole}}
	require.NoError(t, userRepo.Create(ctx, admin))
	viewer := &user.User{Email: "viewer@example.com", PasswordHash: hash, Roles: []user.Role{viewerRole}}
	require.NoError(t, userRepo.Create(ctx, viewer))

	adminSess, err := authSvc.SignIn(ctx, "admin@example.com", "correct horse")
	require.NoError(t, err)
	viewerSess, err := authSvc.SignIn(ctx, "viewer@example.com", "correct horse")
	require.NoError(t, err)

	h := New(Config{
		Auth:       authSvc,
		Coupons:    couponRepo,
		CouponSvc:  couponSvc,
		Orders:     orderSvc,
		Users:      userRepo,
		Roles:      roleRepo,
		Colors:     colorRepo,
		Sizes:      &memSizeRepo{},
		Categories: &memCategoryRepo{},
	})

	return &testEnv{
		handler:     h,
		router:      h.Routes(),
		coupons:     couponRepo,
		orders:      orderRepo,
		users:       userRepo,
		roles:       roleRepo,
		colors:      colorRepo,
		adminToken:  adminSess.Token,
		viewerToken: viewerSess.Token,
	}
}

func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/auth/login", "",
		`{"email":"admin@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	data := env.Data.(map[string]any)
	assert.NotEmpty(t, data["token"])
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/auth/login", "",
		`{"email":"admin@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "invalid email or password", env.Message)
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/auth/login", "",
		`{"email":"nobody@example.com","password":"whatever"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decodeEnvelope(t, rec).Message)
}

func TestMe(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodGet, "/auth/me", e.adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]any)
	assert.Equal(t, "admin@example.com", data["email"])
}

func TestRequireSession(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodGet, "/coupons/", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodGet, "/coupons/", "bogus-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	e := newTestEnv(t)

	// Viewer can read but not write.
	rec := e.do(http.MethodGet, "/coupons/", e.viewerToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodPost, "/coupons/", e.viewerToken,
		`{"code":"SAVE10","type":"PERCENTAGE","value":"10","is_active":true}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "insufficient permissions", decodeEnvelope(t, rec).Message)
}

func TestCreateCoupon(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/coupons/", e.adminToken,
		`{"code":"save10","type":"PERCENTAGE","value":"10","is_active":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]any)
	assert.Equal(t, "SAVE10", data["code"], "code should be normalized to uppercase")
}

func TestCreateCoupon_InvalidField(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/coupons/", e.adminToken,
		`{"code":"SAVE10","type":"PERCENTAGE","value":"150","is_active":true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "percentage must not exceed 100")
}

func TestCreateCoupon_Duplicate(t *testing.T) {
	e := newTestEnv(t)

	body := `{"code":"SAVE10","type":"PERCENTAGE","value":"10","is_active":true}`
	rec := e.do(http.MethodPost, "/coupons/", e.adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(http.MethodPost, "/coupons/", e.adminToken, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestValidateCoupon(t *testing.T) {
	e := newTestEnv(t)

	min := decimal.NewFromInt(50)
	require.NoError(t, e.coupons.Create(context.Background(), &coupon.Coupon{
		Code:          "BIGSPEND",
		Type:          coupon.TypePercentage,
		Value:         decimal.NewFromInt(20),
		IsActive:      true,
		MinimumAmount: &min,
	}))

	t.Run("eligible", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/coupons/validate", e.adminToken,
			`{"code":"BIGSPEND","user_id":"user-1","order_total":"100"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		data := decodeEnvelope(t, rec).Data.(map[string]any)
		assert.Equal(t, true, data["valid"])
		assert.Equal(t, "20", data["discount"])
	})

	t.Run("below minimum", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/coupons/validate", e.adminToken,
			`{"code":"BIGSPEND","user_id":"user-1","order_total":"30"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		data := decodeEnvelope(t, rec).Data.(map[string]any)
		assert.Equal(t, false, data["valid"])
		assert.Equal(t, "Minimum order amount of $50 required", data["reason"])
	})

	t.Run("unknown code", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/coupons/validate", e.adminToken,
			`{"code":"NOPE","user_id":"user-1","order_total":"100"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		data := decodeEnvelope(t, rec).Data.(map[string]any)
		assert.Equal(t, false, data["valid"])
		assert.Equal(t, "Invalid coupon code", data["reason"])
	})
}

func seedOrder(t *testing.T, e *testEnv, status order.Status, payment order.PaymentStatus) string {
	t.Helper()
	o := &order.Order{
		OrderNumber:    "ORD-1001",
		UserID:         "user-1",
		Status:         status,
		PaymentStatus:  payment,
		Subtotal:       decimal.NewFromInt(100),
		TaxAmount:      decimal.NewFromInt(10),
		ShippingAmount: decimal.NewFromInt(5),
		Total:          decimal.NewFromInt(115),
	}
	require.NoError(t, e.orders.Create(context.Background(), o))
	return o.ID
}

func TestUpdateOrderStatus(t *testing.T) {
	e := newTestEnv(t)
	id := seedOrder(t, e, order.StatusPending, order.PaymentPending)

	rec := e.do(http.MethodPut, "/orders/"+id+"/status", e.adminToken,
		`{"status":"CONFIRMED"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec).Data.(map[string]any)
	assert.Equal(t, "CONFIRMED", data["status"])
}

func TestUpdateOrderStatus_IllegalTransition(t *testing.T) {
	e := newTestEnv(t)
	id := seedOrder(t, e, order.StatusPending, order.PaymentPending)

	rec := e.do(http.MethodPut, "/orders/"+id+"/status", e.adminToken,
		`{"status":"DELIVERED"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "cannot transition order from PENDING to DELIVERED")
}

func TestUpdateOrderStatus_RefundRequiresPaid(t *testing.T) {
	e := newTestEnv(t)
	id := seedOrder(t, e, order.StatusDelivered, order.PaymentPending)

	rec := e.do(http.MethodPut, "/orders/"+id+"/status", e.adminToken,
		`{"status":"REFUNDED"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteOrder_ShippedRefused(t *testing.T) {
	e := newTestEnv(t)
	id := seedOrder(t, e, order.StatusShipped, order.PaymentPaid)

	rec := e.do(http.MethodDelete, "/orders/"+id, e.adminToken, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestApplyCoupon(t *testing.T) {
	e := newTestEnv(t)
	id := seedOrder(t, e, order.StatusPending, order.PaymentPending)

	require.NoError(t, e.coupons.Create(context.Background(), &coupon.Coupon{
		Code:     "SAVE20",
		Type:     coupon.TypePercentage,
		Value:    decimal.NewFromInt(20),
		IsActive: true,
	}))

	rec := e.do(http.MethodPost, "/orders/"+id+"/apply-coupon", e.adminToken,
		`{"code":"SAVE20"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec).Data.(map[string]any)
	// Pre-discount total 115, 20% off.
	assert.Equal(t, "23", data["discount_amount"])
	assert.Equal(t, "92", data["total"])
}

func TestApplyCoupon_Ineligible(t *testing.T) {
	e := newTestEnv(t)
	id := seedOrder(t, e, order.StatusPending, order.PaymentPending)

	require.NoError(t, e.coupons.Create(context.Background(), &coupon.Coupon{
		Code:     "DISABLED",
		Type:     coupon.TypePercentage,
		Value:    decimal.NewFromInt(20),
		IsActive: false,
	}))

	rec := e.do(http.MethodPost, "/orders/"+id+"/apply-coupon", e.adminToken,
		`{"code":"DISABLED"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Coupon is not active", decodeEnvelope(t, rec).Message)
}

func TestDeleteUser_WithDependents(t *testing.T) {
	e := newTestEnv(t)

	u := &user.User{Email: "busy@example.com"}
	require.NoError(t, e.users.Create(context.Background(), u))
	e.users.counts[u.ID] = user.Counts{Orders: 2}

	rec := e.do(http.MethodDelete, "/users/"+u.ID, e.adminToken, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteRole_Assigned(t *testing.T) {
	e := newTestEnv(t)

	role := &user.Role{Name: "support", Permissions: []user.Permission{user.PermOrdersRead}}
	require.NoError(t, e.roles.Create(context.Background(), role))
	e.roles.userCount[role.ID] = 3

	rec := e.do(http.MethodDelete, "/roles/"+role.ID, e.adminToken, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateRole_UnknownPermission(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/roles/", e.adminToken,
		`{"name":"odd","permissions":["coupons:fly"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestColorValidation(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/colors/", e.adminToken,
		`{"name":"Crimson","value":"not-a-hex"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(http.MethodPost, "/colors/", e.adminToken,
		`{"name":"Crimson","value":"#DC143C"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestNotFoundMapsTo404(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodGet, "/coupons/missing", e.adminToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodGet, "/orders/missing", e.adminToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
