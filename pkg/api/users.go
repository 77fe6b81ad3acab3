package api

import (
	"errors"
	"net/http"

	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/storage"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := s.users.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "User not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var user storage.User
	if !httputil.ParseJSONOrError(w, r, &user) {
		return
	}
	if !s.validateUser(w, &user) {
		return
	}

	created, err := s.users.Create(r.Context(), &user)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteCreated(w, created)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var user storage.User
	if !httputil.ParseJSONOrError(w, r, &user) {
		return
	}
	if !s.validateUser(w, &user) {
		return
	}

	updated, err := s.users.Update(r.Context(), id, &user)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "User not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	err := s.users.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "User not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteNoContent(w)
}

func (s *Server) validateUser(w http.ResponseWriter, user *storage.User) bool {
	return s.validateFields(w, "User", map[string]string{
		"name":       user.Name,
		"email":      user.Email,
		"permission": user.Permission,
	})
}
