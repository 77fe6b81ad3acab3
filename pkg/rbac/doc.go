// Package rbac resolves a principal's effective permissions and gates
// routes on them.
//
// Permissions flow from the role graph: a user holds roles, a role holds
// permissions. The effective set is resolved once per request into an
// immutable PermissionSet snapshot; every gate decision for that request
// reads the snapshot, so a concurrent role edit never changes the outcome
// mid-request.
package rbac
