package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	roles := NewRoleStore(db, nil)
	admin, err := roles.Create(ctx, &Role{Name: "admin"})
	require.NoError(t, err)
	viewer, err := roles.Create(ctx, &Role{Name: "viewer"})
	require.NoError(t, err)

	store := NewUserStore(db, nil)

	t.Run("create lowercases the email and links roles", func(t *testing.T) {
		user, err := store.Create(ctx, &User{
			Name:  "Alice",
			Email: "Alice@Example.COM",
			Roles: []Role{*admin},
		})
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		require.Len(t, user.Roles, 1)
		assert.Equal(t, "admin", user.Roles[0].Name)
	})

	t.Run("update diffs role assignments", func(t *testing.T) {
		user, err := store.Create(ctx, &User{
			Name:  "Bob",
			Email: "bob@example.com",
			Roles: []Role{*admin},
		})
		require.NoError(t, err)

		updated, err := store.Update(ctx, user.UserID, &User{
			Name:  "Bob",
			Email: "bob@example.com",
			Roles: []Role{*viewer},
		})
		require.NoError(t, err)
		require.Len(t, updated.Roles, 1)
		assert.Equal(t, "viewer", updated.Roles[0].Name)
	})

	t.Run("delete removes role assignments", func(t *testing.T) {
		user, err := store.Create(ctx, &User{
			Name:  "Carol",
			Email: "carol@example.com",
			Roles: []Role{*admin, *viewer},
		})
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, user.UserID))

		_, err = store.Get(ctx, user.UserID)
		assert.ErrorIs(t, err, ErrNotFound)

		var orphaned int
		require.NoError(t, db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM userRoles WHERE userId = ?", user.UserID).Scan(&orphaned))
		assert.Zero(t, orphaned)
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		_, err := store.Get(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.Update(ctx, 9999, &User{Name: "ghost", Email: "ghost@example.com"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, 9999), ErrNotFound)
	})

	t.Run("list returns scalar fields without roles", func(t *testing.T) {
		users, err := store.List(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, users)
		assert.Empty(t, users[0].Roles)
	})
}

func TestPermissionStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	store := NewPermissionStore(db, nil)

	t.Run("round trip", func(t *testing.T) {
		created, err := store.Create(ctx, &Permission{Name: "users:read", Permission: "admin:read"})
		require.NoError(t, err)
		assert.NotZero(t, created.PermissionID)

		updated, err := store.Update(ctx, created.PermissionID, &Permission{
			Name: "users:read", Permission: "admin:write",
		})
		require.NoError(t, err)
		assert.Equal(t, "admin:write", updated.Permission)

		got, err := store.Get(ctx, created.PermissionID)
		require.NoError(t, err)
		assert.Equal(t, updated, got)
	})

	t.Run("delete removes role assignments referencing it", func(t *testing.T) {
		permission, err := store.Create(ctx, &Permission{Name: "doomed:read"})
		require.NoError(t, err)

		roles := NewRoleStore(db, nil)
		role, err := roles.Create(ctx, &Role{Name: "holder", Permissions: []Permission{*permission}})
		require.NoError(t, err)
		require.Len(t, role.Permissions, 1)

		require.NoError(t, store.Delete(ctx, permission.PermissionID))

		refetched, err := roles.Get(ctx, role.RoleID)
		require.NoError(t, err)
		assert.Empty(t, refetched.Permissions)
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		_, err := store.Get(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, 9999), ErrNotFound)
	})
}
