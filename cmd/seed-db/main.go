package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skobelev/storefront/internal/auth"
	"github.com/skobelev/storefront/internal/domain/catalog"
	"github.com/skobelev/storefront/internal/domain/user"
	"github.com/skobelev/storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL   string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminEmail, "admin-email", "admin@storefront.local", "initial admin account email")
	flag.StringVar(&adminPassword, "admin-password", "", "initial admin account password (or ADMIN_SEED_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("ADMIN_SEED_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or ADMIN_SEED_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	roles := postgres.NewRoleRepository(pool)
	users := postgres.NewUserRepository(pool)

	adminRoleID, err := seedRoles(ctx, roles)
	if err != nil {
		return errors.Wrap(err, "seed roles")
	}

	if err := seedAdmin(ctx, users, adminRoleID, adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin user")
	}

	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog attributes")
	}

	return nil
}

// seedRoles creates the three stock roles. Existing roles are left untouched;
// the admin role ID is returned either way.
func seedRoles(ctx context.Context, roles user.RoleRepository) (string, error) {
	stock := []user.Role{
		{Name: "admin", Description: "Full access", Permissions: user.AllPermissions},
		{Name: "manager", Description: "Manages coupons, orders and the catalog", Permissions: []user.Permission{
			user.PermCouponsRead, user.PermCouponsWrite,
			user.PermOrdersRead, user.PermOrdersWrite,
			user.PermCatalogRead, user.PermCatalogWrite,
			user.PermUsersRead,
		}},
		{Name: "viewer", Description: "Read-only access", Permissions: []user.Permission{
			user.PermCouponsRead, user.PermOrdersRead,
			user.PermUsersRead, user.PermRolesRead, user.PermCatalogRead,
		}},
	}

	for i := range stock {
		if err := roles.Create(ctx, &stock[i]); err != nil {
			if errors.Is(err, user.ErrDuplicateRole) {
				slog.Info("role already exists", slog.String("name", stock[i].Name))
				continue
			}
			return "", errors.Wrapf(err, "create role %s", stock[i].Name)
		}
		slog.Info("created role", slog.String("name", stock[i].Name))
	}

	existing, err := roles.List(ctx)
	if err != nil {
		return "", errors.Wrap(err, "list roles")
	}
	for _, r := range existing {
		if r.Name == "admin" {
			return r.ID, nil
		}
	}
	return "", errors.New("admin role missing after seeding")
}

func seedAdmin(ctx context.Context, users user.Repository, adminRoleID, email, password string) error {
	if _, err := users.FindByEmail(ctx, email); err == nil {
		slog.Info("admin user already exists", slog.String("email", email))
		return nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return errors.Wrap(err, "check admin user")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &user.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Admin",
	}
	if err := users.Create(ctx, admin); err != nil {
		return errors.Wrap(err, "create admin user")
	}
	if err := users.SetRoles(ctx, admin.ID, []string{adminRoleID}); err != nil {
		return errors.Wrap(err, "assign admin role")
	}

	slog.Info("created admin user", slog.String("email", email))
	return nil
}

// seedCatalog inserts a starter set of colors, sizes and categories, skipping
// values that already exist.
func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	colors := postgres.NewColorRepository(pool)
	for _, c := range []catalog.Color{
		{Name: "Black", Value: "#000000", SortOrder: 1},
		{Name: "White", Value: "#FFFFFF", SortOrder: 2},
		{Name: "Navy", Value: "#001F3F", SortOrder: 3},
		{Name: "Crimson", Value: "#DC143C", SortOrder: 4},
	} {
		if err := colors.Create(ctx, &c); err != nil {
			if errors.Is(err, catalog.ErrDuplicateValue) {
				continue
			}
			return errors.Wrapf(err, "create color %s", c.Name)
		}
		slog.Info("created color", slog.String("name", c.Name))
	}

	sizes := postgres.NewSizeRepository(pool)
	for i, v := range []string{"XS", "S", "M", "L", "XL", "XXL"} {
		s := catalog.Size{Name: v, Value: v, SortOrder: i + 1}
		if err := sizes.Create(ctx, &s); err != nil {
			if errors.Is(err, catalog.ErrDuplicateValue) {
				continue
			}
			return errors.Wrapf(err, "create size %s", v)
		}
		slog.Info("created size", slog.String("value", v))
	}

	categories := postgres.NewCategoryRepository(pool)
	for i, name := range []string{"Tops", "Bottoms", "Footwear", "Accessories"} {
		c := catalog.Category{Name: name, Slug: catalog.Slugify(name), SortOrder: i + 1}
		if err := categories.Create(ctx, &c); err != nil {
			if errors.Is(err, catalog.ErrDuplicateValue) {
				continue
			}
			return errors.Wrapf(err, "create category %s", name)
		}
		slog.Info("created category", slog.String("name", name))
	}

	return nil
}
