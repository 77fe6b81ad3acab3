package api

import (
	"errors"
	"net/http"

	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/storage"
)

func (s *Server) listPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := s.permissions.List(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, permissions)
}

func (s *Server) getPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	permission, err := s.permissions.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Permission not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, permission)
}

func (s *Server) createPermission(w http.ResponseWriter, r *http.Request) {
	var permission storage.Permission
	if !httputil.ParseJSONOrError(w, r, &permission) {
		return
	}
	if !s.validatePermission(w, &permission) {
		return
	}

	created, err := s.permissions.Create(r.Context(), &permission)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteCreated(w, created)
}

func (s *Server) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var permission storage.Permission
	if !httputil.ParseJSONOrError(w, r, &permission) {
		return
	}
	if !s.validatePermission(w, &permission) {
		return
	}

	updated, err := s.permissions.Update(r.Context(), id, &permission)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Permission not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	err := s.permissions.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Permission not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteNoContent(w)
}

func (s *Server) validatePermission(w http.ResponseWriter, permission *storage.Permission) bool {
	return s.validateFields(w, "Permission", map[string]string{
		"name":       permission.Name,
		"permission": permission.Permission,
	})
}
