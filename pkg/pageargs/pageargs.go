// Package pageargs parses the metadata string a catalog page carries in
// its Args field, e.g.
//
//	ModelName=User|IdentityField=userId|HiddenFields=password|Permissions=users:write
//
// Pairs are pipe-delimited, keys and values split on the first "=" and
// trimmed. The parsed Args value is the only representation that travels
// past this boundary; nothing downstream re-splits the raw string.
package pageargs

import "strings"

// Recognized keys. Unrecognized keys are preserved but have no accessor.
const (
	KeyModelName      = "ModelName"
	KeyIdentityField  = "IdentityField"
	KeyHiddenFields   = "HiddenFields"
	KeyReadOnlyFields = "ReadOnlyFields"
	KeyPermissions    = "Permissions"
)

// Pair is one parsed key=value entry, in source order
type Pair struct {
	Key   string
	Value string
}

// Args is an immutable parsed args string
type Args struct {
	pairs []Pair
	index map[string]string
}

// Parse splits raw into ordered key=value pairs. A pair without "=" parses
// to an empty value; on duplicate keys the last value wins for lookups
// while the pair list keeps every entry in order.
func Parse(raw string) Args {
	a := Args{index: map[string]string{}}
	if strings.TrimSpace(raw) == "" {
		return a
	}

	for _, part := range strings.Split(raw, "|") {
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		a.pairs = append(a.pairs, Pair{Key: key, Value: value})
		a.index[key] = value
	}
	return a
}

// Get returns the value for key and whether it was present
func (a Args) Get(key string) (string, bool) {
	v, ok := a.index[key]
	return v, ok
}

// Pairs returns the parsed pairs in source order
func (a Args) Pairs() []Pair {
	out := make([]Pair, len(a.pairs))
	copy(out, a.pairs)
	return out
}

// ModelName returns the bound model's registry name
func (a Args) ModelName() string {
	return a.index[KeyModelName]
}

// IdentityField returns the server-assigned identity field name
func (a Args) IdentityField() string {
	return a.index[KeyIdentityField]
}

// HiddenFields returns the comma-delimited hidden field names
func (a Args) HiddenFields() []string {
	return splitList(a.index[KeyHiddenFields])
}

// ReadOnlyFields returns the comma-delimited read-only field names
func (a Args) ReadOnlyFields() []string {
	return splitList(a.index[KeyReadOnlyFields])
}

// Permissions returns the raw pipe-delimited permission requirement,
// evaluated elsewhere with OR semantics.
func (a Args) Permissions() string {
	return a.index[KeyPermissions]
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
