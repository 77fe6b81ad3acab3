package rbac

import (
	"sort"
	"strings"
)

// PermissionSet is an immutable snapshot of a principal's effective
// permissions. Construct with NewPermissionSet; the zero value is a valid
// empty set.
type PermissionSet struct {
	names []string
	index map[string]struct{}
}

// NewPermissionSet builds a set from permission names, de-duplicating and
// sorting them.
func NewPermissionSet(names []string) PermissionSet {
	index := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		index[name] = struct{}{}
	}

	sorted := make([]string, 0, len(index))
	for name := range index {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	return PermissionSet{names: sorted, index: index}
}

// Has reports whether the set contains the named permission
func (s PermissionSet) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// SatisfiesAny evaluates a pipe-delimited requirement against the set.
// "admin:read|admin:write" passes if the set holds either token. A blank
// requirement is public and always passes.
func (s PermissionSet) SatisfiesAny(requirement string) bool {
	if strings.TrimSpace(requirement) == "" {
		return true
	}
	for _, alt := range strings.Split(requirement, "|") {
		if s.Has(strings.TrimSpace(alt)) {
			return true
		}
	}
	return false
}

// Names returns the sorted permission names as a fresh slice
func (s PermissionSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of permissions in the set
func (s PermissionSet) Len() int {
	return len(s.names)
}
