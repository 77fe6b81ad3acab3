package api

import (
	"errors"
	"net/http"

	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/rbac"
	"github.com/aspect-console/aspect/pkg/record"
	"github.com/aspect-console/aspect/pkg/registry"
	"github.com/aspect-console/aspect/pkg/storage"
)

// requireModel resolves the {model} path parameter against the registry
// and enforces the model-derived permission gate. The gate tokens follow
// the resource convention: "{table}:read" / "{table}:write" with the
// admin blanket as an alternative.
func (s *Server) requireModel(w http.ResponseWriter, r *http.Request, action string) (registry.Model, bool) {
	name, err := httputil.ParsePathString(r, "model")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return registry.Model{}, false
	}

	model, ok := s.registry.Lookup(name)
	if !ok {
		httputil.WriteNotFoundError(w, "Model not found: "+name)
		return registry.Model{}, false
	}

	set, ok := rbac.PermissionsFrom(r)
	if !ok {
		httputil.WriteUnauthorized(w, "User not authenticated")
		return registry.Model{}, false
	}
	if !set.SatisfiesAny(model.Table + ":" + action + "|admin:" + action) {
		httputil.WriteForbidden(w, "Forbidden: missing required permission")
		return registry.Model{}, false
	}

	return model, true
}

func (s *Server) listModelRecords(w http.ResponseWriter, r *http.Request) {
	model, ok := s.requireModel(w, r, "read")
	if !ok {
		return
	}

	records, err := s.models.List(r.Context(), model)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, records)
}

func (s *Server) getModelRecord(w http.ResponseWriter, r *http.Request) {
	model, ok := s.requireModel(w, r, "read")
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	rec, err := s.models.Get(r.Context(), model, id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, model.Name+" not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, rec)
}

func (s *Server) createModelRecord(w http.ResponseWriter, r *http.Request) {
	model, ok := s.requireModel(w, r, "write")
	if !ok {
		return
	}

	var rec record.Record
	if !httputil.ParseJSONOrError(w, r, &rec) {
		return
	}
	if errs := s.registry.ValidateRecord(model, &rec); errs != nil {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	created, err := s.models.Create(r.Context(), model, &rec)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteCreated(w, created)
}

func (s *Server) updateModelRecord(w http.ResponseWriter, r *http.Request) {
	model, ok := s.requireModel(w, r, "write")
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var rec record.Record
	if !httputil.ParseJSONOrError(w, r, &rec) {
		return
	}
	if errs := s.registry.ValidateRecord(model, &rec); errs != nil {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	updated, err := s.models.Update(r.Context(), model, id, &rec)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, model.Name+" not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deleteModelRecord(w http.ResponseWriter, r *http.Request) {
	model, ok := s.requireModel(w, r, "write")
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	err := s.models.Delete(r.Context(), model, id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, model.Name+" not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.invalidatePermissions()
	httputil.WriteNoContent(w)
}
