package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aspect-console/aspect/pkg/observability"
)

// ErrUserNotRegistered indicates the authenticated email resolves to no
// permissions at all: either no user row exists or the user holds no
// grants. Authentication succeeded but the console has nothing for them.
var ErrUserNotRegistered = errors.New("user not registered")

// Source resolves the effective permission set for an email address
type Source interface {
	PermissionsForEmail(ctx context.Context, email string) (PermissionSet, error)
}

const permissionsByEmailQuery = `
	SELECT DISTINCT p.name
	FROM users u
	INNER JOIN userRoles ur ON u.userId = ur.userId
	INNER JOIN rolePermissions rp ON ur.roleId = rp.roleId
	INNER JOIN permissions p ON rp.permissionId = p.permissionId
	WHERE u.email = ?
	ORDER BY p.name`

// Store resolves permissions from the role graph in the database
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewStore creates a permission store. metrics may be nil.
func NewStore(db *sql.DB, metrics *observability.Metrics) *Store {
	return &Store{db: db, metrics: metrics}
}

// PermissionsForEmail resolves the permission snapshot for an email
// address. The email is lowercased before lookup. A lookup resolving to
// zero permissions returns ErrUserNotRegistered.
func (s *Store) PermissionsForEmail(ctx context.Context, email string) (PermissionSet, error) {
	start := time.Now()
	set, err := s.permissionsForEmail(ctx, strings.ToLower(email))
	if s.metrics != nil && !errors.Is(err, ErrUserNotRegistered) {
		s.metrics.ObserveStorage("rbac.permissions_for_email", err, time.Since(start))
	}
	return set, err
}

func (s *Store) permissionsForEmail(ctx context.Context, email string) (PermissionSet, error) {
	rows, err := s.db.QueryContext(ctx, permissionsByEmailQuery, email)
	if err != nil {
		return PermissionSet{}, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return PermissionSet{}, fmt.Errorf("failed to scan permission: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return PermissionSet{}, fmt.Errorf("failed to iterate permissions: %w", err)
	}

	if len(names) == 0 {
		return PermissionSet{}, ErrUserNotRegistered
	}
	return NewPermissionSet(names), nil
}
