package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspect-console/aspect/pkg/record"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Model{Name: "Widget", Table: "widgets", IdentityField: "widgetId"}))

	m, ok := r.Lookup("Widget")
	assert.True(t, ok)
	assert.Equal(t, "widgets", m.Table)

	_, ok = r.Lookup("Gadget")
	assert.False(t, ok)
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Model{Name: "Widget"}))
	assert.Error(t, r.Register(Model{Name: "Widget"}))
}

func TestRegistry_FreezeRejectsRegistration(t *testing.T) {
	r := NewRegistry()
	r.Freeze()
	assert.Error(t, r.Register(Model{Name: "Widget"}))
}

func TestDefault_BuiltinModels(t *testing.T) {
	r := Default()

	assert.Equal(t, []string{"Category", "Module", "Page", "Permission", "Role", "User"}, r.Names())

	user, ok := r.Lookup("User")
	require.True(t, ok)
	assert.Equal(t, "users", user.Table)
	assert.Equal(t, "userId", user.IdentityField)

	email, ok := user.Field("email")
	require.True(t, ok)
	assert.Equal(t, "Email", email.Label)
	assert.Equal(t, EditorText, email.Editor)

	page, _ := r.Lookup("Page")
	component, ok := page.Field("component")
	require.True(t, ok)
	assert.Equal(t, EditorSelect, component.Editor)
	assert.Contains(t, component.Options, "GenericModelTable")

	// Frozen after first use
	assert.Error(t, r.Register(Model{Name: "Widget"}))
}

func TestRegistry_ValidateRecord(t *testing.T) {
	r := Default()
	user, _ := r.Lookup("User")

	t.Run("valid record", func(t *testing.T) {
		rec := &record.Record{}
		rec.Set("name", record.String("Alice"))
		rec.Set("email", record.String("alice@x.com"))
		rec.Set("permission", record.String("admin:read"))

		assert.Nil(t, r.ValidateRecord(user, rec))
	})

	t.Run("missing required fields", func(t *testing.T) {
		rec := &record.Record{}
		rec.Set("email", record.String("alice@x.com"))

		errs := r.ValidateRecord(user, rec)
		require.NotNil(t, errs)
		assert.Equal(t, []string{"Name is required"}, errs["name"])
		assert.Equal(t, []string{"Permission is required"}, errs["permission"])
	})

	t.Run("malformed email", func(t *testing.T) {
		rec := &record.Record{}
		rec.Set("name", record.String("Alice"))
		rec.Set("email", record.String("not-an-email"))
		rec.Set("permission", record.String("admin:read"))

		errs := r.ValidateRecord(user, rec)
		require.NotNil(t, errs)
		assert.Equal(t, []string{"Invalid email address"}, errs["email"])
	})

	t.Run("identity field is never validated", func(t *testing.T) {
		role, _ := r.Lookup("Role")
		rec := &record.Record{}
		rec.Set("name", record.String("admin"))
		rec.Set("permission", record.String("admin:write"))

		assert.Nil(t, r.ValidateRecord(role, rec))
	})
}
