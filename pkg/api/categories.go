package api

import (
	"errors"
	"net/http"

	"github.com/aspect-console/aspect/pkg/catalog"
	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/storage"
)

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.List(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, categories)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	category, err := s.categories.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Category not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, category)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var category catalog.Category
	if !httputil.ParseJSONOrError(w, r, &category) {
		return
	}
	if !s.validateCategory(w, &category) {
		return
	}

	created, err := s.categories.Create(r.Context(), &category)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteCreated(w, created)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var category catalog.Category
	if !httputil.ParseJSONOrError(w, r, &category) {
		return
	}
	if !s.validateCategory(w, &category) {
		return
	}

	updated, err := s.categories.Update(r.Context(), id, &category)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Category not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	err := s.categories.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Category not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) validateCategory(w http.ResponseWriter, category *catalog.Category) bool {
	return s.validateFields(w, "Category", map[string]string{
		"name":       category.Name,
		"icon":       category.Icon,
		"permission": category.Permission,
	})
}
