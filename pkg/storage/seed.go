package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aspect-console/aspect/pkg/observability"
)

// SeedData is the YAML fixture format consumed by the seed command.
// Cross references (role permissions, user roles, module categories,
// category pages) are by name and resolved at load time.
type SeedData struct {
	Permissions []SeedPermission `yaml:"permissions"`
	Roles       []SeedRole       `yaml:"roles"`
	Users       []SeedUser       `yaml:"users"`
	Pages       []SeedPage       `yaml:"pages"`
	Categories  []SeedCategory   `yaml:"categories"`
	Modules     []SeedModule     `yaml:"modules"`
}

type SeedPermission struct {
	Name       string `yaml:"name"`
	Permission string `yaml:"permission"`
}

type SeedRole struct {
	Name        string   `yaml:"name"`
	Permission  string   `yaml:"permission"`
	Permissions []string `yaml:"permissions"`
}

type SeedUser struct {
	Name       string   `yaml:"name"`
	Email      string   `yaml:"email"`
	Permission string   `yaml:"permission"`
	Roles      []string `yaml:"roles"`
}

type SeedPage struct {
	Name       string `yaml:"name"`
	Icon       string `yaml:"icon"`
	Path       string `yaml:"path"`
	Component  string `yaml:"component"`
	Args       string `yaml:"args"`
	Permission string `yaml:"permission"`
}

type SeedCategory struct {
	Name       string   `yaml:"name"`
	Icon       string   `yaml:"icon"`
	Permission string   `yaml:"permission"`
	Pages      []string `yaml:"pages"`
}

type SeedModule struct {
	Name       string   `yaml:"name"`
	Icon       string   `yaml:"icon"`
	Permission string   `yaml:"permission"`
	Categories []string `yaml:"categories"`
}

// LoadSeedFile parses a YAML fixture file
func LoadSeedFile(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &data, nil
}

// Seed loads the fixture into the database. Rows are matched by name and
// only inserted when absent, so seeding is idempotent and safe to rerun
// against a populated database. Join rows are inserted only when missing.
func Seed(ctx context.Context, db *sql.DB, data *SeedData, logger *observability.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	seeder := &seeder{tx: tx}

	for _, p := range data.Permissions {
		if err := seeder.permission(ctx, p); err != nil {
			return err
		}
	}
	for _, r := range data.Roles {
		if err := seeder.role(ctx, r); err != nil {
			return err
		}
	}
	for _, u := range data.Users {
		if err := seeder.user(ctx, u); err != nil {
			return err
		}
	}
	for _, p := range data.Pages {
		if err := seeder.page(ctx, p); err != nil {
			return err
		}
	}
	for _, c := range data.Categories {
		if err := seeder.category(ctx, c); err != nil {
			return err
		}
	}
	for _, m := range data.Modules {
		if err := seeder.module(ctx, m); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	if logger != nil {
		logger.WithFields(map[string]interface{}{
			"permissions": len(data.Permissions),
			"roles":       len(data.Roles),
			"users":       len(data.Users),
			"pages":       len(data.Pages),
			"categories":  len(data.Categories),
			"modules":     len(data.Modules),
		}).Info("seeded database")
	}
	return nil
}

type seeder struct {
	tx *sql.Tx
}

// upsertByName inserts the row when no row with the same name exists and
// returns the row's id either way.
func (s *seeder) upsertByName(ctx context.Context, table, idCol, name, insertSQL string, args ...interface{}) (int64, error) {
	var id int64
	err := s.tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE name = ?", idCol, table), name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up %s %q: %w", table, name, err)
	}

	res, err := s.tx.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to seed %s %q: %w", table, name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read seeded %s id: %w", table, err)
	}
	return id, nil
}

func (s *seeder) linkIfAbsent(ctx context.Context, table, ownerCol, childCol string, ownerID, childID int64) error {
	var n int
	err := s.tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND %s = ?", table, ownerCol, childCol),
		ownerID, childID).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check %s link: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	_, err = s.tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", table, ownerCol, childCol),
		ownerID, childID)
	if err != nil {
		return fmt.Errorf("failed to seed %s link: %w", table, err)
	}
	return nil
}

func (s *seeder) idByName(ctx context.Context, table, idCol, name string) (int64, error) {
	var id int64
	err := s.tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE name = ?", idCol, table), name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("seed references unknown %s %q", table, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s %q: %w", table, name, err)
	}
	return id, nil
}

func (s *seeder) permission(ctx context.Context, p SeedPermission) error {
	_, err := s.upsertByName(ctx, "permissions", "permissionId", p.Name,
		"INSERT INTO permissions (name, permission) VALUES (?, ?)", p.Name, p.Permission)
	return err
}

func (s *seeder) role(ctx context.Context, r SeedRole) error {
	roleID, err := s.upsertByName(ctx, "roles", "roleId", r.Name,
		"INSERT INTO roles (name, permission) VALUES (?, ?)", r.Name, r.Permission)
	if err != nil {
		return err
	}
	for _, name := range r.Permissions {
		permissionID, err := s.idByName(ctx, "permissions", "permissionId", name)
		if err != nil {
			return err
		}
		if err := s.linkIfAbsent(ctx, "rolePermissions", "roleId", "permissionId", roleID, permissionID); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) user(ctx context.Context, u SeedUser) error {
	userID, err := s.upsertByName(ctx, "users", "userId", u.Name,
		"INSERT INTO users (name, email, permission) VALUES (?, ?, ?)",
		u.Name, strings.ToLower(u.Email), u.Permission)
	if err != nil {
		return err
	}
	for _, name := range u.Roles {
		roleID, err := s.idByName(ctx, "roles", "roleId", name)
		if err != nil {
			return err
		}
		if err := s.linkIfAbsent(ctx, "userRoles", "userId", "roleId", userID, roleID); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) page(ctx context.Context, p SeedPage) error {
	_, err := s.upsertByName(ctx, "pages", "pageId", p.Name,
		"INSERT INTO pages (name, icon, path, component, args, permission) VALUES (?, ?, ?, ?, ?, ?)",
		p.Name, p.Icon, p.Path, p.Component, p.Args, p.Permission)
	return err
}

func (s *seeder) category(ctx context.Context, c SeedCategory) error {
	categoryID, err := s.upsertByName(ctx, "categories", "categoryId", c.Name,
		"INSERT INTO categories (name, icon, permission) VALUES (?, ?, ?)",
		c.Name, c.Icon, c.Permission)
	if err != nil {
		return err
	}
	for _, name := range c.Pages {
		pageID, err := s.idByName(ctx, "pages", "pageId", name)
		if err != nil {
			return err
		}
		if err := s.linkIfAbsent(ctx, "categoryPages", "categoryId", "pageId", categoryID, pageID); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) module(ctx context.Context, m SeedModule) error {
	moduleID, err := s.upsertByName(ctx, "modules", "moduleId", m.Name,
		"INSERT INTO modules (name, icon, permission) VALUES (?, ?, ?)",
		m.Name, m.Icon, m.Permission)
	if err != nil {
		return err
	}
	for _, name := range m.Categories {
		categoryID, err := s.idByName(ctx, "categories", "categoryId", name)
		if err != nil {
			return err
		}
		if err := s.linkIfAbsent(ctx, "moduleCategories", "moduleId", "categoryId", moduleID, categoryID); err != nil {
			return err
		}
	}
	return nil
}
