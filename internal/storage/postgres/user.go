package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skobelev/storefront/internal/domain/user"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone,
	reset_token, reset_expires_at, created_at, updated_at`

const (
	listUsersSQL = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	getUserSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	findUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	insertUserSQL = `INSERT INTO users (id, email, password_hash, first_name, last_name, phone)
		VALUES ($1, $2, $3, $4, $5, $6)`

	updateUserSQL = `UPDATE users SET email = $2, password_hash = $3,
		first_name = $4, last_name = $5, phone = $6,
		reset_token = $7, reset_expires_at = $8, updated_at = now()
		WHERE id = $1`

	deleteUserSQL = `DELETE FROM users WHERE id = $1`

	userCountsSQL = `SELECT
		(SELECT COUNT(*) FROM orders WHERE user_id = $1),
		(SELECT COUNT(*) FROM products WHERE created_by = $1),
		(SELECT COUNT(*) FROM reviews WHERE user_id = $1),
		(SELECT COUNT(*) FROM addresses WHERE user_id = $1)`

	userRolesSQL = `SELECT r.id, r.name, r.description, r.created_at
		FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1 ORDER BY r.name`

	clearUserRolesSQL  = `DELETE FROM user_roles WHERE user_id = $1`
	insertUserRoleSQL  = `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`
	rolePermissionsSQL = `SELECT permission FROM role_permissions WHERE role_id = $1 ORDER BY permission`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// List returns all users without role assignments loaded.
func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing users")
	}
	return pgx.CollectRows(rows, scanUser)
}

// GetByID returns a user with roles and permissions loaded.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting user %q", id)
	}
	return r.collectOneUser(ctx, rows, id)
}

// FindByEmail returns a user with roles loaded, matching case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, findUserByEmailSQL, email)
	if err != nil {
		return nil, errors.Wrapf(err, "finding user %q", email)
	}
	return r.collectOneUser(ctx, rows, email)
}

// Create persists a new user. Duplicate emails surface as ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, insertUserSQL,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicateEmail
		}
		return errors.Wrapf(err, "creating user %q", u.Email)
	}
	return nil
}

// Update persists user edits, including reset-token state.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	tag, err := r.pool.Exec(ctx, updateUserSQL,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone,
		u.ResetToken, u.ResetExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicateEmail
		}
		return errors.Wrapf(err, "updating user %q", u.ID)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Counts returns the user's dependent record counts.
func (r *UserRepository) Counts(ctx context.Context, id string) (user.Counts, error) {
	var c user.Counts
	err := r.pool.QueryRow(ctx, userCountsSQL, id).
		Scan(&c.Orders, &c.Products, &c.Reviews, &c.Addresses)
	if err != nil {
		return user.Counts{}, errors.Wrapf(err, "counting dependents for user %q", id)
	}
	return c, nil
}

// Delete removes a user. Remaining references surface as ErrHasDependents.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteUserSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return user.ErrHasDependents
		}
		return errors.Wrapf(err, "deleting user %q", id)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// SetRoles replaces the user's role assignments.
func (r *UserRepository) SetRoles(ctx context.Context, userID string, roleIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, clearUserRolesSQL, userID); err != nil {
		return errors.Wrapf(err, "clearing roles for user %q", userID)
	}
	for _, roleID := range roleIDs {
		if _, err := tx.Exec(ctx, insertUserRoleSQL, userID, roleID); err != nil {
			if isForeignKeyViolation(err) {
				return user.ErrRoleNotFound
			}
			return errors.Wrapf(err, "assigning role %q to user %q", roleID, userID)
		}
	}
	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

func (r *UserRepository) collectOneUser(ctx context.Context, rows pgx.Rows, key string) (*user.User, error) {
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrapf(err, "scanning user %q", key)
	}

	u.Roles, err = r.loadRoles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) loadRoles(ctx context.Context, userID string) ([]user.Role, error) {
	rows, err := r.pool.Query(ctx, userRolesSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing roles for user %q", userID)
	}
	roles, err := pgx.CollectRows(rows, scanRole)
	if err != nil {
		return nil, errors.Wrapf(err, "scanning roles for user %q", userID)
	}

	for i := range roles {
		roles[i].Permissions, err = loadPermissions(ctx, r.pool, roles[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return roles, nil
}

func loadPermissions(ctx context.Context, pool *pgxpool.Pool, roleID string) ([]user.Permission, error) {
	rows, err := pool.Query(ctx, rolePermissionsSQL, roleID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing permissions for role %q", roleID)
	}
	perms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (user.Permission, error) {
		var p user.Permission
		err := row.Scan(&p)
		return p, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scanning permissions for role %q", roleID)
	}
	return perms, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone,
		&u.ResetToken, &u.ResetExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func scanRole(row pgx.CollectableRow) (user.Role, error) {
	var r user.Role
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt)
	return r, err
}
