package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPermissionSet(t *testing.T) {
	set := NewPermissionSet([]string{"b:write", "a:read", "b:write", " ", ""})

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"a:read", "b:write"}, set.Names())
	assert.True(t, set.Has("a:read"))
	assert.False(t, set.Has("c:admin"))
}

func TestPermissionSet_NamesIsACopy(t *testing.T) {
	set := NewPermissionSet([]string{"a:read"})

	names := set.Names()
	names[0] = "mutated"

	assert.Equal(t, []string{"a:read"}, set.Names())
}

func TestPermissionSet_SatisfiesAny(t *testing.T) {
	set := NewPermissionSet([]string{"admin:read", "users:write"})
	empty := PermissionSet{}

	tests := []struct {
		name        string
		set         PermissionSet
		requirement string
		want        bool
	}{
		{"single match", set, "admin:read", true},
		{"single miss", set, "admin:write", false},
		{"disjunction first matches", set, "admin:read|admin:write", true},
		{"disjunction second matches", set, "admin:write|users:write", true},
		{"disjunction no match", set, "admin:write|users:read", false},
		{"whitespace around tokens", set, " admin:write | users:write ", true},
		{"blank requirement is public", set, "", true},
		{"whitespace requirement is public", set, "   ", true},
		{"blank requirement passes empty set", empty, "", true},
		{"empty set fails any named requirement", empty, "admin:read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.set.SatisfiesAny(tt.requirement))
		})
	}
}
