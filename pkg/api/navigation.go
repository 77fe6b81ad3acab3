package api

import (
	"net/http"

	"github.com/aspect-console/aspect/pkg/catalog"
	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/rbac"
)

// getNavigation serves the navigation tree pre-filtered to the caller's
// permission snapshot. The client filters again for rendering; the server
// copy is the authoritative one.
func (s *Server) getNavigation(w http.ResponseWriter, r *http.Request) {
	set, ok := rbac.PermissionsFrom(r)
	if !ok {
		httputil.WriteUnauthorized(w, "User not authenticated")
		return
	}

	modules, err := s.navigation.Navigation(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, catalog.Filter(modules, set))
}

// getUserPermissions returns the caller's permission names
func (s *Server) getUserPermissions(w http.ResponseWriter, r *http.Request) {
	set, ok := rbac.PermissionsFrom(r)
	if !ok {
		httputil.WriteUnauthorized(w, "User not authenticated")
		return
	}
	httputil.WriteSuccess(w, set.Names())
}
