package api

import (
	"errors"
	"net/http"

	"github.com/aspect-console/aspect/pkg/catalog"
	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/storage"
)

func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.modules.List(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, modules)
}

func (s *Server) getModule(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	module, err := s.modules.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Module not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, module)
}

func (s *Server) createModule(w http.ResponseWriter, r *http.Request) {
	var module catalog.Module
	if !httputil.ParseJSONOrError(w, r, &module) {
		return
	}
	if !s.validateModule(w, &module) {
		return
	}

	created, err := s.modules.Create(r.Context(), &module)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteCreated(w, created)
}

func (s *Server) updateModule(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var module catalog.Module
	if !httputil.ParseJSONOrError(w, r, &module) {
		return
	}
	if !s.validateModule(w, &module) {
		return
	}

	updated, err := s.modules.Update(r.Context(), id, &module)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Module not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deleteModule(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	err := s.modules.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Module not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) validateModule(w http.ResponseWriter, module *catalog.Module) bool {
	return s.validateFields(w, "Module", map[string]string{
		"name":       module.Name,
		"icon":       module.Icon,
		"permission": module.Permission,
	})
}
