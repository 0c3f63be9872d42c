package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skobelev/storefront/internal/domain/coupon"
)

const couponColumns = `id, code, type, value, description,
	usage_limit, usage_limit_per_user, used_count, is_active,
	starts_at, expires_at, minimum_amount, maximum_amount,
	COALESCE(created_by, ''), created_at, updated_at`

const (
	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	getCouponSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	findCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = UPPER($1)`

	insertCouponSQL = `INSERT INTO coupons (id, code, type, value, description,
		usage_limit, usage_limit_per_user, used_count, is_active,
		starts_at, expires_at, minimum_amount, maximum_amount, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''))`

	updateCouponSQL = `UPDATE coupons SET code = $2, type = $3, value = $4, description = $5,
		usage_limit = $6, usage_limit_per_user = $7, is_active = $8,
		starts_at = $9, expires_at = $10, minimum_amount = $11, maximum_amount = $12,
		updated_at = now()
		WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons c WHERE c.id = $1
		AND NOT EXISTS (SELECT 1 FROM orders o WHERE o.coupon_id = c.id)`

	couponExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE id = $1)`

	countUserRedemptionsSQL = `SELECT COUNT(*) FROM orders WHERE coupon_id = $1 AND user_id = $2`

	// The conditional increment is the whole point: under concurrent
	// redemption, zero rows affected means the limit was reached by another
	// request between our eligibility read and this write.
	redeemCouponSQL = `UPDATE coupons SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing coupons")
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// GetByID returns a coupon or coupon.ErrNotFound.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting coupon %q", id)
	}
	return collectOneCoupon(rows, id)
}

// FindByCode looks up a coupon by code. The query uppercases the parameter,
// matching the normalized stored form.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "finding coupon by code %q", code)
	}
	return collectOneCoupon(rows, code)
}

// Create persists a new coupon. Duplicate codes surface as ErrDuplicateCode.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, c.Type, c.Value, c.Description,
		c.UsageLimit, c.UsageLimitPerUser, c.UsedCount, c.IsActive,
		c.StartsAt, c.ExpiresAt, c.MinimumAmount, c.MaximumAmount, c.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return errors.Wrapf(err, "creating coupon %q", c.Code)
	}
	return nil
}

// Update persists coupon edits. used_count is deliberately not writable here;
// only Redeem mutates it.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Code, c.Type, c.Value, c.Description,
		c.UsageLimit, c.UsageLimitPerUser, c.IsActive,
		c.StartsAt, c.ExpiresAt, c.MinimumAmount, c.MaximumAmount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return errors.Wrapf(err, "updating coupon %q", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes a coupon unless orders reference it.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return coupon.ErrInUse
		}
		return errors.Wrapf(err, "deleting coupon %q", id)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, couponExistsSQL, id).Scan(&exists); err != nil {
			return errors.Wrapf(err, "deleting coupon %q", id)
		}
		if exists {
			return coupon.ErrInUse
		}
		return coupon.ErrNotFound
	}
	return nil
}

// CountUserRedemptions counts the user's orders referencing the coupon.
func (r *CouponRepository) CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUserRedemptionsSQL, couponID, userID).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "counting redemptions for coupon %q", couponID)
	}
	return n, nil
}

// Redeem performs the atomic conditional increment of used_count.
func (r *CouponRepository) Redeem(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, redeemCouponSQL, id)
	if err != nil {
		return errors.Wrapf(err, "redeeming coupon %q", id)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimitReached
	}
	return nil
}

func collectOneCoupon(rows pgx.Rows, key string) (*coupon.Coupon, error) {
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "scanning coupon %q", key)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Type, &c.Value, &c.Description,
		&c.UsageLimit, &c.UsageLimitPerUser, &c.UsedCount, &c.IsActive,
		&c.StartsAt, &c.ExpiresAt, &c.MinimumAmount, &c.MaximumAmount,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}
