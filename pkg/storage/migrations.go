package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aspect-console/aspect/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users, roles, permissions",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					userId INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					email TEXT NOT NULL UNIQUE,
					permission TEXT NOT NULL DEFAULT ''
				);

				CREATE TABLE IF NOT EXISTS roles (
					roleId INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					permission TEXT NOT NULL DEFAULT ''
				);

				CREATE TABLE IF NOT EXISTS permissions (
					permissionId INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					permission TEXT NOT NULL DEFAULT ''
				);

				CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
			`,
		},
		{
			Version:     2,
			Description: "Create role assignment join tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS userRoles (
					userId INTEGER NOT NULL,
					roleId INTEGER NOT NULL,
					PRIMARY KEY (userId, roleId)
				);

				CREATE TABLE IF NOT EXISTS rolePermissions (
					roleId INTEGER NOT NULL,
					permissionId INTEGER NOT NULL,
					PRIMARY KEY (roleId, permissionId)
				);

				CREATE INDEX IF NOT EXISTS idx_userRoles_roleId ON userRoles(roleId);
				CREATE INDEX IF NOT EXISTS idx_rolePermissions_permissionId ON rolePermissions(permissionId);
			`,
		},
		{
			Version:     3,
			Description: "Create navigation catalog tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS modules (
					moduleId INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					icon TEXT NOT NULL DEFAULT '',
					permission TEXT NOT NULL DEFAULT ''
				);

				CREATE TABLE IF NOT EXISTS categories (
					categoryId INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					icon TEXT NOT NULL DEFAULT '',
					permission TEXT NOT NULL DEFAULT ''
				);

				CREATE TABLE IF NOT EXISTS pages (
					pageId INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					icon TEXT NOT NULL DEFAULT '',
					path TEXT NOT NULL,
					component TEXT NOT NULL,
					args TEXT NOT NULL DEFAULT '',
					permission TEXT NOT NULL DEFAULT ''
				);

				CREATE TABLE IF NOT EXISTS moduleCategories (
					moduleId INTEGER NOT NULL,
					categoryId INTEGER NOT NULL,
					PRIMARY KEY (moduleId, categoryId)
				);

				CREATE TABLE IF NOT EXISTS categoryPages (
					categoryId INTEGER NOT NULL,
					pageId INTEGER NOT NULL,
					PRIMARY KEY (categoryId, pageId)
				);
			`,
		},
	}
}

// Migrate applies every pending migration in version order
func Migrate(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schemaMigrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			appliedAt TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range GetMigrations() {
		var applied int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM schemaMigrations WHERE version = ?", m.Version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if applied > 0 {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schemaMigrations (version, description) VALUES (?, ?)",
			m.Version, m.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		logger.WithFields(map[string]interface{}{
			"version":     m.Version,
			"description": m.Description,
		}).Info("applied migration")
	}

	return nil
}
