// Package catalog holds the product attribute records managed from the admin
// surface: colors, sizes, and categories.
package catalog

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateValue is returned on a uniqueness violation.
	ErrDuplicateValue = errors.New("value already exists")
	// ErrInUse is returned when deletion is attempted on a record that
	// products still reference.
	ErrInUse = errors.New("record is referenced by products")
)

// Color is a product color attribute. Value is a hex color like "#1A2B3C".
type Color struct {
	ID        string
	Name      string
	Value     string
	SortOrder int
	CreatedAt time.Time
}

// Size is a product size attribute. Value is a size token like "XL" or "42".
type Size struct {
	ID        string
	Name      string
	Value     string
	SortOrder int
	CreatedAt time.Time
}

// Category groups products for navigation.
type Category struct {
	ID        string
	Name      string
	Slug      string
	SortOrder int
	CreatedAt time.Time
}

var (
	hexRe  = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	sizeRe = regexp.MustCompile(`^[A-Za-z0-9./ -]{1,16}$`)
	slugRe = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)
)

// Validate checks the color's fields.
func (c *Color) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if !hexRe.MatchString(c.Value) {
		return errors.New("value must be a hex color like #1A2B3C")
	}
	return nil
}

// Validate checks the size's fields.
func (s *Size) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("name is required")
	}
	if !sizeRe.MatchString(s.Value) {
		return errors.New("value must be a short size token")
	}
	return nil
}

// Validate checks the category's fields, deriving the slug from the name
// when absent.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if !slugRe.MatchString(c.Slug) {
		return errors.New("slug must be lowercase letters, digits and hyphens")
	}
	return nil
}

// Slugify lowercases a name and collapses non-alphanumeric runs to hyphens.
func Slugify(name string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ColorRepository persists colors. Delete must return ErrInUse when any
// product references the color, and implementations report uniqueness
// violations on Value as ErrDuplicateValue.
type ColorRepository interface {
	List(ctx context.Context) ([]Color, error)
	GetByID(ctx context.Context, id string) (*Color, error)
	Create(ctx context.Context, c *Color) error
	Update(ctx context.Context, c *Color) error
	Delete(ctx context.Context, id string) error
}

// SizeRepository persists sizes, with the same delete and uniqueness
// contract as ColorRepository.
type SizeRepository interface {
	List(ctx context.Context) ([]Size, error)
	GetByID(ctx context.Context, id string) (*Size, error)
	Create(ctx context.Context, s *Size) error
	Update(ctx context.Context, s *Size) error
	Delete(ctx context.Context, id string) error
}

// CategoryRepository persists categories, with the same delete and
// uniqueness contract as ColorRepository.
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id string) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}
