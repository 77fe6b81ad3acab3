// Package storage persists the console's resources in sqlite: users,
// roles, permissions, and the navigation catalog tables, plus the join
// tables tying them together.
//
// Each resource has its own store. Mutations that touch join tables diff
// the desired associations against the current rows, inserting additions
// and deleting removals, never replacing wholesale. Deletes cascade join
// rows before the owning row.
package storage
