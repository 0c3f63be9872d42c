package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skobelev/storefront/internal/domain/catalog"
)

// The three catalog attribute repositories share one shape: list ordered by
// sort_order, uniqueness on the value column, and deletion guarded by
// product references.

const (
	listColorsSQL  = `SELECT id, name, value, sort_order, created_at FROM colors ORDER BY sort_order, name`
	getColorSQL    = `SELECT id, name, value, sort_order, created_at FROM colors WHERE id = $1`
	insertColorSQL = `INSERT INTO colors (id, name, value, sort_order) VALUES ($1, $2, $3, $4)`
	updateColorSQL = `UPDATE colors SET name = $2, value = $3, sort_order = $4 WHERE id = $1`
	deleteColorSQL = `DELETE FROM colors c WHERE c.id = $1
		AND NOT EXISTS (SELECT 1 FROM product_colors pc WHERE pc.color_id = c.id)`
	colorExistsSQL = `SELECT EXISTS (SELECT 1 FROM colors WHERE id = $1)`

	listSizesSQL  = `SELECT id, name, value, sort_order, created_at FROM sizes ORDER BY sort_order, name`
	getSizeSQL    = `SELECT id, name, value, sort_order, created_at FROM sizes WHERE id = $1`
	insertSizeSQL = `INSERT INTO sizes (id, name, value, sort_order) VALUES ($1, $2, $3, $4)`
	updateSizeSQL = `UPDATE sizes SET name = $2, value = $3, sort_order = $4 WHERE id = $1`
	deleteSizeSQL = `DELETE FROM sizes s WHERE s.id = $1
		AND NOT EXISTS (SELECT 1 FROM product_sizes ps WHERE ps.size_id = s.id)`
	sizeExistsSQL = `SELECT EXISTS (SELECT 1 FROM sizes WHERE id = $1)`

	listCategoriesSQL  = `SELECT id, name, slug, sort_order, created_at FROM categories ORDER BY sort_order, name`
	getCategorySQL     = `SELECT id, name, slug, sort_order, created_at FROM categories WHERE id = $1`
	insertCategorySQL  = `INSERT INTO categories (id, name, slug, sort_order) VALUES ($1, $2, $3, $4)`
	updateCategorySQL  = `UPDATE categories SET name = $2, slug = $3, sort_order = $4 WHERE id = $1`
	deleteCategorySQL  = `DELETE FROM categories c WHERE c.id = $1
		AND NOT EXISTS (SELECT 1 FROM products p WHERE p.category_id = c.id)`
	categoryExistsSQL = `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`
)

// ColorRepository implements catalog.ColorRepository backed by PostgreSQL.
type ColorRepository struct {
	pool *pgxpool.Pool
}

var _ catalog.ColorRepository = (*ColorRepository)(nil)

// NewColorRepository returns a ColorRepository that uses the given pool.
func NewColorRepository(pool *pgxpool.Pool) *ColorRepository {
	return &ColorRepository{pool: pool}
}

func (r *ColorRepository) List(ctx context.Context) ([]catalog.Color, error) {
	rows, err := r.pool.Query(ctx, listColorsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing colors")
	}
	return pgx.CollectRows(rows, scanColor)
}

func (r *ColorRepository) GetByID(ctx context.Context, id string) (*catalog.Color, error) {
	rows, err := r.pool.Query(ctx, getColorSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting color %q", id)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanColor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "scanning color %q", id)
	}
	return &c, nil
}

func (r *ColorRepository) Create(ctx context.Context, c *catalog.Color) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, insertColorSQL, c.ID, c.Name, c.Value, c.SortOrder)
	return attributeWriteErr(err, "creating color", c.Value)
}

func (r *ColorRepository) Update(ctx context.Context, c *catalog.Color) error {
	tag, err := r.pool.Exec(ctx, updateColorSQL, c.ID, c.Name, c.Value, c.SortOrder)
	if err := attributeWriteErr(err, "updating color", c.Value); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *ColorRepository) Delete(ctx context.Context, id string) error {
	return guardedDelete(ctx, r.pool, deleteColorSQL, colorExistsSQL, id, "color")
}

// SizeRepository implements catalog.SizeRepository backed by PostgreSQL.
type SizeRepository struct {
	pool *pgxpool.Pool
}

var _ catalog.SizeRepository = (*SizeRepository)(nil)

// NewSizeRepository returns a SizeRepository that uses the given pool.
func NewSizeRepository(pool *pgxpool.Pool) *SizeRepository {
	return &SizeRepository{pool: pool}
}

func (r *SizeRepository) List(ctx context.Context) ([]catalog.Size, error) {
	rows, err := r.pool.Query(ctx, listSizesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing sizes")
	}
	return pgx.CollectRows(rows, scanSize)
}

func (r *SizeRepository) GetByID(ctx context.Context, id string) (*catalog.Size, error) {
	rows, err := r.pool.Query(ctx, getSizeSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting size %q", id)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSize)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "scanning size %q", id)
	}
	return &s, nil
}

func (r *SizeRepository) Create(ctx context.Context, s *catalog.Size) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, insertSizeSQL, s.ID, s.Name, s.Value, s.SortOrder)
	return attributeWriteErr(err, "creating size", s.Value)
}

func (r *SizeRepository) Update(ctx context.Context, s *catalog.Size) error {
	tag, err := r.pool.Exec(ctx, updateSizeSQL, s.ID, s.Name, s.Value, s.SortOrder)
	if err := attributeWriteErr(err, "updating size", s.Value); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *SizeRepository) Delete(ctx context.Context, id string) error {
	return guardedDelete(ctx, r.pool, deleteSizeSQL, sizeExistsSQL, id, "size")
}

// CategoryRepository implements catalog.CategoryRepository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

var _ catalog.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) List(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing categories")
	}
	return pgx.CollectRows(rows, scanCategory)
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*catalog.Category, error) {
	rows, err := r.pool.Query(ctx, getCategorySQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting category %q", id)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "scanning category %q", id)
	}
	return &c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *catalog.Category) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, insertCategorySQL, c.ID, c.Name, c.Slug, c.SortOrder)
	return attributeWriteErr(err, "creating category", c.Slug)
}

func (r *CategoryRepository) Update(ctx context.Context, c *catalog.Category) error {
	tag, err := r.pool.Exec(ctx, updateCategorySQL, c.ID, c.Name, c.Slug, c.SortOrder)
	if err := attributeWriteErr(err, "updating category", c.Slug); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	return guardedDelete(ctx, r.pool, deleteCategorySQL, categoryExistsSQL, id, "category")
}

func attributeWriteErr(err error, op, value string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return catalog.ErrDuplicateValue
	}
	return errors.Wrapf(err, "%s %q", op, value)
}

// guardedDelete deletes a record only when nothing references it,
// distinguishing "still referenced" from "does not exist" for the caller.
func guardedDelete(ctx context.Context, pool *pgxpool.Pool, deleteSQL, existsSQL, id, kind string) error {
	tag, err := pool.Exec(ctx, deleteSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrInUse
		}
		return errors.Wrapf(err, "deleting %s %q", kind, id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := pool.QueryRow(ctx, existsSQL, id).Scan(&exists); err != nil {
		return errors.Wrapf(err, "deleting %s %q", kind, id)
	}
	if exists {
		return catalog.ErrInUse
	}
	return catalog.ErrNotFound
}

func scanColor(row pgx.CollectableRow) (catalog.Color, error) {
	var c catalog.Color
	err := row.Scan(&c.ID, &c.Name, &c.Value, &c.SortOrder, &c.CreatedAt)
	return c, err
}

func scanSize(row pgx.CollectableRow) (catalog.Size, error) {
	var s catalog.Size
	err := row.Scan(&s.ID, &s.Name, &s.Value, &s.SortOrder, &s.CreatedAt)
	return s, err
}

func scanCategory(row pgx.CollectableRow) (catalog.Category, error) {
	var c catalog.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder, &c.CreatedAt)
	return c, err
}
