package api

import (
	"errors"
	"net/http"

	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/storage"
)

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.roles.List(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, roles)
}

func (s *Server) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	role, err := s.roles.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Role not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

func (s *Server) createRole(w http.ResponseWriter, r *http.Request) {
	var role storage.Role
	if !httputil.ParseJSONOrError(w, r, &role) {
		return
	}
	if !s.validateRole(w, &role) {
		return
	}

	created, err := s.roles.Create(r.Context(), &role)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteCreated(w, created)
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var role storage.Role
	if !httputil.ParseJSONOrError(w, r, &role) {
		return
	}
	if !s.validateRole(w, &role) {
		return
	}

	updated, err := s.roles.Update(r.Context(), id, &role)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Role not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	err := s.roles.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Role not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteNoContent(w)
}

func (s *Server) validateRole(w http.ResponseWriter, role *storage.Role) bool {
	return s.validateFields(w, "Role", map[string]string{
		"name":       role.Name,
		"permission": role.Permission,
	})
}
