// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that
// producers and consumers of request-scoped values share one vocabulary.
package contextkeys

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *auth.Principal
	// Set by: auth.Middleware after bearer-token verification
	// Required by: rbac.AttachPermissions and every protected endpoint
	PrincipalKey Key = "principal"

	// PermissionsKey contains rbac.PermissionSet
	// Set by: rbac.AttachPermissions, exactly once per request
	// Required by: rbac.RequireAny and the /userpermissions handler
	PermissionsKey Key = "permissions"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: httputil.LoggingMiddleware
	// Used by: structured request logging
	RequestIDKey Key = "request_id"
)
