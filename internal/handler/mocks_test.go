package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/skobelev/storefront/internal/auth"
	"github.com/skobelev/storefront/internal/domain/catalog"
	"github.com/skobelev/storefront/internal/domain/coupon"
	"github.com/skobelev/storefront/internal/domain/order"
	"github.com/skobelev/storefront/internal/domain/user"
)

type memCouponRepo struct {
	coupons map[string]*coupon.Coupon
	redeems map[string]int
	nextID  int
}

func newMemCouponRepo() *memCouponRepo {
	return &memCouponRepo{
		coupons: make(map[string]*coupon.Coupon),
		redeems: make(map[string]int),
	}
}

func (m *memCouponRepo) List(context.Context) ([]coupon.Coupon, error) {
	out := make([]coupon.Coupon, 0, len(m.coupons))
	for _, c := range m.coupons {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCouponRepo) GetByID(_ context.Context, id string) (*coupon.Coupon, error) {
	c, ok := m.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	for _, c := range m.coupons {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (m *memCouponRepo) Create(_ context.Context, c *coupon.Coupon) error {
	for _, existing := range m.coupons {
		if existing.Code == c.Code {
			return coupon.ErrDuplicateCode
		}
	}
	m.nextID++
	c.ID = "coupon-" + strconv.Itoa(m.nextID)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *memCouponRepo) Update(_ context.Context, c *coupon.Coupon) error {
	if _, ok := m.coupons[c.ID]; !ok {
		return coupon.ErrNotFound
	}
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *memCouponRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.coupons[id]; !ok {
		return coupon.ErrNotFound
	}
	delete(m.coupons, id)
	return nil
}

func (m *memCouponRepo) CountUserRedemptions(_ context.Context, couponID, userID string) (int, error) {
	return m.redeems[couponID+"/"+userID], nil
}

func (m *memCouponRepo) Redeem(_ context.Context, id string) error {
	c, ok := m.coupons[id]
	if !ok {
		return coupon.ErrNotFound
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return coupon.ErrUsageLimitReached
	}
	c.UsedCount++
	return nil
}

type memOrderRepo struct {
	orders map[string]*order.Order
	nextID int
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*order.Order)}
}

func (m *memOrderRepo) List(context.Context) ([]order.Order, error) {
	out := make([]order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *memOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	op := *o
	return &op, nil
}

func (m *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.nextID++
	o.ID = "order-" + strconv.Itoa(m.nextID)
	op := *o
	m.orders[o.ID] = &op
	return nil
}

func (m *memOrderRepo) Update(_ context.Context, o *order.Order) error {
	if _, ok := m.orders[o.ID]; !ok {
		return order.ErrNotFound
	}
	op := *o
	m.orders[o.ID] = &op
	return nil
}

func (m *memOrderRepo) UpdateStatus(ctx context.Context, o *order.Order) error {
	return m.Update(ctx, o)
}

func (m *memOrderRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.orders[id]; !ok {
		return order.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

type memUserRepo struct {
	users  map[string]*user.User
	counts map[string]user.Counts
	nextID int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:  make(map[string]*user.User),
		counts: make(map[string]user.Counts),
	}
}

func (m *memUserRepo) List(context.Context) ([]user.User, error) {
	out := make([]user.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	up := *u
	return &up, nil
}

func (m *memUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			up := *u
			return &up, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUserRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return user.ErrDuplicateEmail
		}
	}
	m.nextID++
	u.ID = "user-" + strconv.Itoa(m.nextID)
	up := *u
	m.users[u.ID] = &up
	return nil
}

func (m *memUserRepo) Update(_ context.Context, u *user.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	up := *u
	m.users[u.ID] = &up
	return nil
}

func (m *memUserRepo) Counts(_ context.Context, id string) (user.Counts, error) {
	if _, ok := m.users[id]; !ok {
		return user.Counts{}, user.ErrNotFound
	}
	return m.counts[id], nil
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) SetRoles(_ context.Context, userID string, roleIDs []string) error {
	u, ok := m.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.Roles = nil
	for _, id := range roleIDs {
		u.Roles = append(u.Roles, user.Role{ID: id})
	}
	return nil
}

type memRoleRepo struct {
	roles     map[string]*user.Role
	userCount map[string]int
	nextID    int
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{
		roles:     make(map[string]*user.Role),
		userCount: make(map[string]int),
	}
}

func (m *memRoleRepo) List(context.Context) ([]user.Role, error) {
	out := make([]user.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memRoleRepo) GetByID(_ context.Context, id string) (*user.Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, user.ErrRoleNotFound
	}
	rp := *r
	return &rp, nil
}

func (m *memRoleRepo) Create(_ context.Context, r *user.Role) error {
	for _, existing := range m.roles {
		if existing.Name == r.Name {
			return user.ErrDuplicateRole
		}
	}
	m.nextID++
	r.ID = "role-" + strconv.Itoa(m.nextID)
	rp := *r
	m.roles[r.ID] = &rp
	return nil
}

func (m *memRoleRepo) Update(_ context.Context, r *user.Role) error {
	if _, ok := m.roles[r.ID]; !ok {
		return user.ErrRoleNotFound
	}
	rp := *r
	m.roles[r.ID] = &rp
	return nil
}

func (m *memRoleRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.roles[id]; !ok {
		return user.ErrRoleNotFound
	}
	if m.userCount[id] > 0 {
		return user.ErrHasDependents
	}
	delete(m.roles, id)
	return nil
}

func (m *memRoleRepo) UserCount(_ context.Context, id string) (int, error) {
	return m.userCount[id], nil
}

type memSessionRepo struct {
	sessions map[string]*auth.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*auth.Session)}
}

func (m *memSessionRepo) Create(_ context.Context, s *auth.Session) error {
	sp := *s
	m.sessions[s.Token] = &sp
	return nil
}

func (m *memSessionRepo) Get(_ context.Context, token string) (*auth.Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return nil, auth.ErrNoSession
	}
	sp := *s
	return &sp, nil
}

func (m *memSessionRepo) Delete(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *memSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for token, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

type memColorRepo struct {
	colors map[string]*catalog.Color
	inUse  map[string]bool
	nextID int
}

func newMemColorRepo() *memColorRepo {
	return &memColorRepo{
		colors: make(map[string]*catalog.Color),
		inUse:  make(map[string]bool),
	}
}

func (m *memColorRepo) List(context.Context) ([]catalog.Color, error) {
	out := make([]catalog.Color, 0, len(m.colors))
	for _, c := range m.colors {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memColorRepo) GetByID(_ context.Context, id string) (*catalog.Color, error) {
	c, ok := m.colors[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memColorRepo) Create(_ context.Context, c *catalog.Color) error {
	for _, existing := range m.colors {
		if existing.Value == c.Value {
			return catalog.ErrDuplicateValue
		}
	}
	m.nextID++
	c.ID = "color-" + strconv.Itoa(m.nextID)
	cp := *c
	m.colors[c.ID] = &cp
	return nil
}

func (m *memColorRepo) Update(_ context.Context, c *catalog.Color) error {
	if _, ok := m.colors[c.ID]; !ok {
		return catalog.ErrNotFound
	}
	cp := *c
	m.colors[c.ID] = &cp
	return nil
}

func (m *memColorRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.colors[id]; !ok {
		return catalog.ErrNotFound
	}
	if m.inUse[id] {
		return catalog.ErrInUse
	}
	delete(m.colors, id)
	return nil
}

type memSizeRepo struct{}

func (m *memSizeRepo) List(context.Context) ([]catalog.Size, error) { return nil, nil }
func (m *memSizeRepo) GetByID(context.Context, string) (*catalog.Size, error) {
	return nil, catalog.ErrNotFound
}
func (m *memSizeRepo) Create(context.Context, *catalog.Size) error { return nil }
func (m *memSizeRepo) Update(context.Context, *catalog.Size) error { return catalog.ErrNotFound }
func (m *memSizeRepo) Delete(context.Context, string) error        { return catalog.ErrNotFound }

type memCategoryRepo struct{}

func (m *memCategoryRepo) List(context.Context) ([]catalog.Category, error) { return nil, nil }
func (m *memCategoryRepo) GetByID(context.Context, string) (*catalog.Category, error) {
	return nil, catalog.ErrNotFound
}
func (m *memCategoryRepo) Create(context.Context, *catalog.Category) error { return nil }
func (m *memCategoryRepo) Update(context.Context, *catalog.Category) error { return catalog.ErrNotFound }
func (m *memCategoryRepo) Delete(context.Context, string) error            { return catalog.ErrNotFound }
