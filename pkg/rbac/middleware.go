package rbac

import (
	"context"
	"net/http"

	"github.com/aspect-console/aspect/pkg/auth"
	"github.com/aspect-console/aspect/pkg/contextkeys"
	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/observability"
)

// AttachPermissions resolves the caller's permission snapshot and attaches
// it to the request context, exactly once per request.
//
// 401 when no verified principal with an email is present, 403 when the
// email is not a registered user. Downstream handlers and RequireAny read
// the snapshot; nothing re-resolves mid-request.
func AttachPermissions(source Source, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFrom(r)
			if principal == nil || principal.Email == "" {
				httputil.WriteUnauthorized(w, "User not authenticated")
				return
			}

			set, err := source.PermissionsForEmail(r.Context(), principal.Email)
			if err != nil {
				if err == ErrUserNotRegistered {
					httputil.WriteForbidden(w, "User not registered")
					return
				}
				logger.WithError(err).WithField("email", principal.Email).
					Error("failed to resolve permissions")
				httputil.WriteInternalError(w, err)
				return
			}
			// A registered user granted nothing can see nothing; reject here
			// rather than letting every downstream gate 403 piecemeal.
			if set.Len() == 0 {
				httputil.WriteForbidden(w, "User not registered")
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.PermissionsKey, set)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PermissionsFrom extracts the permission snapshot from a request. ok is
// false when AttachPermissions has not run.
func PermissionsFrom(r *http.Request) (PermissionSet, bool) {
	set, ok := r.Context().Value(contextkeys.PermissionsKey).(PermissionSet)
	return set, ok
}

// Gate builds per-route permission middleware and records gate decisions
type Gate struct {
	metrics *observability.Metrics
}

// NewGate creates a Gate. metrics may be nil.
func NewGate(metrics *observability.Metrics) *Gate {
	return &Gate{metrics: metrics}
}

// RequireAny allows the request through when the caller's snapshot holds
// any of the listed permissions. Each entry may itself be a pipe-delimited
// disjunction. No entries means the route is public. 401 when no snapshot
// is attached, 403 on a miss.
func (g *Gate) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			set, ok := PermissionsFrom(r)
			if !ok {
				httputil.WriteUnauthorized(w, "User not authenticated")
				return
			}

			if !satisfiesAny(set, perms) {
				g.observe("denied")
				httputil.WriteForbidden(w, "Forbidden: missing required permission")
				return
			}

			g.observe("allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func satisfiesAny(set PermissionSet, perms []string) bool {
	if len(perms) == 0 {
		return true
	}
	for _, requirement := range perms {
		if set.SatisfiesAny(requirement) {
			return true
		}
	}
	return false
}

func (g *Gate) observe(outcome string) {
	if g.metrics != nil {
		g.metrics.PermissionChecksTotal.WithLabelValues(outcome).Inc()
	}
}
