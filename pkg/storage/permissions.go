package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aspect-console/aspect/pkg/observability"
)

// PermissionStore persists permission tokens
type PermissionStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewPermissionStore creates a permission store. metrics may be nil.
func NewPermissionStore(db *sql.DB, metrics *observability.Metrics) *PermissionStore {
	return &PermissionStore{db: db, metrics: metrics}
}

func (s *PermissionStore) observe(op string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStorage(op, err, time.Since(start))
	}
}

// List returns every permission
func (s *PermissionStore) List(ctx context.Context) ([]Permission, error) {
	start := time.Now()
	permissions, err := s.list(ctx)
	s.observe("permissions.list", err, start)
	return permissions, err
}

func (s *PermissionStore) list(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT permissionId, name, permission FROM permissions ORDER BY permissionId")
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	permissions := []Permission{}
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.PermissionID, &p.Name, &p.Permission); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}
	return permissions, nil
}

// Get returns one permission
func (s *PermissionStore) Get(ctx context.Context, id int64) (*Permission, error) {
	start := time.Now()
	permission, err := s.get(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("permissions.get", err, start)
	}
	return permission, err
}

func (s *PermissionStore) get(ctx context.Context, id int64) (*Permission, error) {
	var p Permission
	err := s.db.QueryRowContext(ctx,
		"SELECT permissionId, name, permission FROM permissions WHERE permissionId = ?", id).
		Scan(&p.PermissionID, &p.Name, &p.Permission)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &p, nil
}

// Create inserts the permission, returning it with the server-assigned id
func (s *PermissionStore) Create(ctx context.Context, permission *Permission) (*Permission, error) {
	start := time.Now()
	created, err := s.create(ctx, permission)
	s.observe("permissions.create", err, start)
	return created, err
}

func (s *PermissionStore) create(ctx context.Context, permission *Permission) (*Permission, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO permissions (name, permission) VALUES (?, ?)",
		permission.Name, permission.Permission)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read created permission id: %w", err)
	}
	return s.get(ctx, id)
}

// Update rewrites the permission's fields
func (s *PermissionStore) Update(ctx context.Context, id int64, permission *Permission) (*Permission, error) {
	start := time.Now()
	updated, err := s.update(ctx, id, permission)
	if !errors.Is(err, ErrNotFound) {
		s.observe("permissions.update", err, start)
	}
	return updated, err
}

func (s *PermissionStore) update(ctx context.Context, id int64, permission *Permission) (*Permission, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE permissions SET name = ?, permission = ? WHERE permissionId = ?",
		permission.Name, permission.Permission, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update permission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.get(ctx, id)
}

// Delete removes any role assignments referencing the permission, then
// the permission itself.
func (s *PermissionStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.delete(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("permissions.delete", err, start)
	}
	return err
}

func (s *PermissionStore) delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearJoins(ctx, tx, "rolePermissions", "permissionId", id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM permissions WHERE permissionId = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit permission delete: %w", err)
	}
	return nil
}
