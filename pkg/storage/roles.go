package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aspect-console/aspect/pkg/observability"
)

// RoleStore persists roles and their permission assignments
type RoleStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewRoleStore creates a role store. metrics may be nil.
func NewRoleStore(db *sql.DB, metrics *observability.Metrics) *RoleStore {
	return &RoleStore{db: db, metrics: metrics}
}

func (s *RoleStore) observe(op string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStorage(op, err, time.Since(start))
	}
}

// List returns every role's scalar fields
func (s *RoleStore) List(ctx context.Context) ([]Role, error) {
	start := time.Now()
	roles, err := s.list(ctx)
	s.observe("roles.list", err, start)
	return roles, err
}

func (s *RoleStore) list(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT roleId, name, permission FROM roles ORDER BY roleId")
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.RoleID, &r.Name, &r.Permission); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}
	return roles, nil
}

// Get returns one role with its permissions hydrated
func (s *RoleStore) Get(ctx context.Context, id int64) (*Role, error) {
	start := time.Now()
	role, err := s.get(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("roles.get", err, start)
	}
	return role, err
}

func (s *RoleStore) get(ctx context.Context, id int64) (*Role, error) {
	var r Role
	err := s.db.QueryRowContext(ctx,
		"SELECT roleId, name, permission FROM roles WHERE roleId = ?", id).
		Scan(&r.RoleID, &r.Name, &r.Permission)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	permissions, err := s.rolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Permissions = permissions
	return &r, nil
}

func (s *RoleStore) rolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.permissionId, p.name, p.permission
		FROM rolePermissions rp
		INNER JOIN permissions p ON rp.permissionId = p.permissionId
		WHERE rp.roleId = ?
		ORDER BY p.permissionId`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query role permissions: %w", err)
	}
	defer rows.Close()

	permissions := []Permission{}
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.PermissionID, &p.Name, &p.Permission); err != nil {
			return nil, fmt.Errorf("failed to scan role permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate role permissions: %w", err)
	}
	return permissions, nil
}

// Create inserts the role and links its permission assignments, returning
// the created role with the server-assigned id.
func (s *RoleStore) Create(ctx context.Context, role *Role) (*Role, error) {
	start := time.Now()
	created, err := s.create(ctx, role)
	s.observe("roles.create", err, start)
	return created, err
}

func (s *RoleStore) create(ctx context.Context, role *Role) (*Role, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO roles (name, permission) VALUES (?, ?)", role.Name, role.Permission)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read created role id: %w", err)
	}

	if err := insertJoins(ctx, tx, "rolePermissions", "roleId", "permissionId", id, permissionIDs(role.Permissions)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit role: %w", err)
	}

	return s.get(ctx, id)
}

// Update rewrites the role's scalar fields and diffs its permission
// assignments: newly listed permissions are linked, absent ones unlinked.
func (s *RoleStore) Update(ctx context.Context, id int64, role *Role) (*Role, error) {
	start := time.Now()
	updated, err := s.update(ctx, id, role)
	if !errors.Is(err, ErrNotFound) {
		s.observe("roles.update", err, start)
	}
	return updated, err
}

func (s *RoleStore) update(ctx context.Context, id int64, role *Role) (*Role, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE roles SET name = ?, permission = ? WHERE roleId = ?", role.Name, role.Permission, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	if err := diffJoin(ctx, tx, "rolePermissions", "roleId", "permissionId", id, permissionIDs(role.Permissions)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit role update: %w", err)
	}

	return s.get(ctx, id)
}

// Delete removes the role's join rows, both its permission assignments
// and any user assignments pointing at it, then the role itself.
func (s *RoleStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.delete(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("roles.delete", err, start)
	}
	return err
}

func (s *RoleStore) delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearJoins(ctx, tx, "rolePermissions", "roleId", id); err != nil {
		return err
	}
	if err := clearJoins(ctx, tx, "userRoles", "roleId", id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM roles WHERE roleId = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role delete: %w", err)
	}
	return nil
}

func permissionIDs(permissions []Permission) []int64 {
	ids := make([]int64, 0, len(permissions))
	for _, p := range permissions {
		ids = append(ids, p.PermissionID)
	}
	return ids
}
