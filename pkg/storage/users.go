package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aspect-console/aspect/pkg/observability"
)

// UserStore persists users and their role assignments
type UserStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewUserStore creates a user store. metrics may be nil.
func NewUserStore(db *sql.DB, metrics *observability.Metrics) *UserStore {
	return &UserStore{db: db, metrics: metrics}
}

func (s *UserStore) observe(op string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStorage(op, err, time.Since(start))
	}
}

// List returns every user's scalar fields
func (s *UserStore) List(ctx context.Context) ([]User, error) {
	start := time.Now()
	users, err := s.list(ctx)
	s.observe("users.list", err, start)
	return users, err
}

func (s *UserStore) list(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT userId, name, email, permission FROM users ORDER BY userId")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Name, &u.Email, &u.Permission); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// Get returns one user with their roles hydrated
func (s *UserStore) Get(ctx context.Context, id int64) (*User, error) {
	start := time.Now()
	user, err := s.get(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("users.get", err, start)
	}
	return user, err
}

func (s *UserStore) get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT userId, name, email, permission FROM users WHERE userId = ?", id).
		Scan(&u.UserID, &u.Name, &u.Email, &u.Permission)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	roles, err := s.userRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (s *UserStore) userRoles(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.roleId, r.name, r.permission
		FROM userRoles ur
		INNER JOIN roles r ON ur.roleId = r.roleId
		WHERE ur.userId = ?
		ORDER BY r.roleId`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.RoleID, &r.Name, &r.Permission); err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user roles: %w", err)
	}
	return roles, nil
}

// Create inserts the user and links their role assignments. The email is
// lowercased so permission lookups by token claim always match.
func (s *UserStore) Create(ctx context.Context, user *User) (*User, error) {
	start := time.Now()
	created, err := s.create(ctx, user)
	s.observe("users.create", err, start)
	return created, err
}

func (s *UserStore) create(ctx context.Context, user *User) (*User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (name, email, permission) VALUES (?, ?, ?)",
		user.Name, strings.ToLower(user.Email), user.Permission)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read created user id: %w", err)
	}

	if err := insertJoins(ctx, tx, "userRoles", "userId", "roleId", id, roleIDs(user.Roles)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user: %w", err)
	}

	return s.get(ctx, id)
}

// Update rewrites the user's scalar fields and diffs their role
// assignments.
func (s *UserStore) Update(ctx context.Context, id int64, user *User) (*User, error) {
	start := time.Now()
	updated, err := s.update(ctx, id, user)
	if !errors.Is(err, ErrNotFound) {
		s.observe("users.update", err, start)
	}
	return updated, err
}

func (s *UserStore) update(ctx context.Context, id int64, user *User) (*User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET name = ?, email = ?, permission = ? WHERE userId = ?",
		user.Name, strings.ToLower(user.Email), user.Permission, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	if err := diffJoin(ctx, tx, "userRoles", "userId", "roleId", id, roleIDs(user.Roles)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user update: %w", err)
	}

	return s.get(ctx, id)
}

// Delete removes the user's role assignments, then the user
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.delete(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("users.delete", err, start)
	}
	return err
}

func (s *UserStore) delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearJoins(ctx, tx, "userRoles", "userId", id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE userId = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user delete: %w", err)
	}
	return nil
}

func roleIDs(roles []Role) []int64 {
	ids := make([]int64, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.RoleID)
	}
	return ids
}
