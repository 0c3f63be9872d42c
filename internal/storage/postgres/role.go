package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skobelev/storefront/internal/domain/user"
)

const (
	listRolesSQL = `SELECT id, name, description, created_at FROM roles ORDER BY name`

	getRoleSQL = `SELECT id, name, description, created_at FROM roles WHERE id = $1`

	insertRoleSQL = `INSERT INTO roles (id, name, description) VALUES ($1, $2, $3)`

	updateRoleSQL = `UPDATE roles SET name = $2, description = $3 WHERE id = $1`

	deleteRoleSQL = `DELETE FROM roles r WHERE r.id = $1
		AND NOT EXISTS (SELECT 1 FROM user_roles ur WHERE ur.role_id = r.id)`

	roleExistsSQL = `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`

	roleUserCountSQL = `SELECT COUNT(*) FROM user_roles WHERE role_id = $1`

	clearRolePermsSQL = `DELETE FROM role_permissions WHERE role_id = $1`
	insertRolePermSQL = `INSERT INTO role_permissions (role_id, permission) VALUES ($1, $2)`
)

var _ user.RoleRepository = (*RoleRepository)(nil)

// RoleRepository implements user.RoleRepository backed by PostgreSQL.
type RoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a RoleRepository that uses the given pool.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// List returns all roles with their permission sets.
func (r *RoleRepository) List(ctx context.Context) ([]user.Role, error) {
	rows, err := r.pool.Query(ctx, listRolesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing roles")
	}
	roles, err := pgx.CollectRows(rows, scanRole)
	if err != nil {
		return nil, errors.Wrap(err, "scanning roles")
	}

	for i := range roles {
		roles[i].Permissions, err = loadPermissions(ctx, r.pool, roles[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// GetByID returns a role with its permission set, or user.ErrRoleNotFound.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*user.Role, error) {
	rows, err := r.pool.Query(ctx, getRoleSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting role %q", id)
	}

	role, err := pgx.CollectExactlyOneRow(rows, scanRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrRoleNotFound
		}
		return nil, errors.Wrapf(err, "scanning role %q", id)
	}

	role.Permissions, err = loadPermissions(ctx, r.pool, role.ID)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// Create persists a new role and its permission set in one transaction.
func (r *RoleRepository) Create(ctx context.Context, role *user.Role) error {
	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertRoleSQL, role.ID, role.Name, role.Description); err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicateRole
		}
		return errors.Wrapf(err, "creating role %q", role.Name)
	}
	if err := writePermissions(ctx, tx, role); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

// Update persists role edits, replacing the permission set.
func (r *RoleRepository) Update(ctx context.Context, role *user.Role) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, updateRoleSQL, role.ID, role.Name, role.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicateRole
		}
		return errors.Wrapf(err, "updating role %q", role.ID)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrRoleNotFound
	}

	if _, err := tx.Exec(ctx, clearRolePermsSQL, role.ID); err != nil {
		return errors.Wrapf(err, "clearing permissions for role %q", role.ID)
	}
	if err := writePermissions(ctx, tx, role); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

// Delete removes a role unless users still reference it.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteRoleSQL, id)
	if err != nil {
		return errors.Wrapf(err, "deleting role %q", id)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, roleExistsSQL, id).Scan(&exists); err != nil {
			return errors.Wrapf(err, "deleting role %q", id)
		}
		if exists {
			return user.ErrHasDependents
		}
		return user.ErrRoleNotFound
	}
	return nil
}

// UserCount returns how many users reference the role.
func (r *RoleRepository) UserCount(ctx context.Context, id string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, roleUserCountSQL, id).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "counting users for role %q", id)
	}
	return n, nil
}

func writePermissions(ctx context.Context, tx pgx.Tx, role *user.Role) error {
	for _, p := range role.Permissions {
		if _, err := tx.Exec(ctx, insertRolePermSQL, role.ID, p); err != nil {
			return errors.Wrapf(err, "granting %q to role %q", p, role.ID)
		}
	}
	return nil
}
