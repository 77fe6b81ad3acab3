// Package routetree composes the console's routing tree from catalog
// pages and runtime route registrations.
//
// The tree holds ordered route descriptors with nested children. Three
// invariants hold after every mutation: routes at one level are unique by
// path key keeping the last inserted, index routes never receive children,
// and a single catch-all fallback sits last at the top level.
package routetree
