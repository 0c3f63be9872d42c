// Package user holds account and role records, including the enumerated
// permission model used for admin authorization.
package user

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Permission is a single capability grantable to a role. Authorization
// checks test membership in a role's permission set; role names carry no
// meaning of their own.
type Permission string

const (
	PermCouponsRead  Permission = "coupons:read"
	PermCouponsWrite Permission = "coupons:write"
	PermOrdersRead   Permission = "orders:read"
	PermOrdersWrite  Permission = "orders:write"
	PermUsersRead    Permission = "users:read"
	PermUsersWrite   Permission = "users:write"
	PermRolesRead    Permission = "roles:read"
	PermRolesWrite   Permission = "roles:write"
	PermCatalogRead  Permission = "catalog:read"
	PermCatalogWrite Permission = "catalog:write"
)

// AllPermissions lists every known permission, in display order.
var AllPermissions = []Permission{
	PermCouponsRead, PermCouponsWrite,
	PermOrdersRead, PermOrdersWrite,
	PermUsersRead, PermUsersWrite,
	PermRolesRead, PermRolesWrite,
	PermCatalogRead, PermCatalogWrite,
}

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

var (
	ErrNotFound       = errors.New("user not found")
	ErrRoleNotFound   = errors.New("role not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateRole  = errors.New("role name already exists")
	// ErrHasDependents is returned when deletion is attempted on a user with
	// orders, products, reviews, or addresses, or on a role still attached
	// to users.
	ErrHasDependents = errors.New("record has dependents")
)

// Role is a named permission group attached many-to-many to users.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []Permission
	CreatedAt   time.Time
}

// Validate checks the role's fields.
func (r *Role) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	for _, p := range r.Permissions {
		if !p.Valid() {
			return errors.Errorf("unknown permission %q", p)
		}
	}
	return nil
}

// HasPermission reports whether the role grants p.
func (r *Role) HasPermission(p Permission) bool {
	for _, granted := range r.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

// User is an account record.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Phone          string
	ResetToken     *string
	ResetExpiresAt *time.Time
	Roles          []Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the user's profile fields.
func (u *User) Validate() error {
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return errors.New("invalid email address")
	}
	return nil
}

// HasPermission reports whether any of the user's roles grants p.
func (u *User) HasPermission(p Permission) bool {
	for i := range u.Roles {
		if u.Roles[i].HasPermission(p) {
			return true
		}
	}
	return false
}

// Counts are the user's dependent record counts, used to decide deletion
// eligibility.
type Counts struct {
	Orders    int
	Products  int
	Reviews   int
	Addresses int
}

// Zero reports whether the user has no dependent records.
func (c Counts) Zero() bool {
	return c.Orders == 0 && c.Products == 0 && c.Reviews == 0 && c.Addresses == 0
}

// Repository persists users and their role assignments.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// FindByEmail returns ErrNotFound when no account matches.
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	// Counts returns the user's dependent record counts.
	Counts(ctx context.Context, id string) (Counts, error)
	// Delete removes a user. Callers must check Counts first; implementations
	// additionally refuse when dependents exist.
	Delete(ctx context.Context, id string) error
	SetRoles(ctx context.Context, userID string, roleIDs []string) error
}

// RoleRepository persists roles and their permission sets.
type RoleRepository interface {
	List(ctx context.Context) ([]Role, error)
	GetByID(ctx context.Context, id string) (*Role, error)
	Create(ctx context.Context, r *Role) error
	Update(ctx context.Context, r *Role) error
	// Delete returns ErrHasDependents while any user references the role.
	Delete(ctx context.Context, id string) error
	// UserCount returns how many users reference the role.
	UserCount(ctx context.Context, id string) (int, error)
}
