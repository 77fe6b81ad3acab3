package api

import (
	"errors"
	"net/http"

	"github.com/aspect-console/aspect/pkg/catalog"
	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/storage"
)

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.pages.List(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, pages)
}

func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	page, err := s.pages.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Page not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, page)
}

func (s *Server) createPage(w http.ResponseWriter, r *http.Request) {
	var page catalog.Page
	if !httputil.ParseJSONOrError(w, r, &page) {
		return
	}
	if !s.validatePage(w, &page) {
		return
	}

	created, err := s.pages.Create(r.Context(), &page)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteCreated(w, created)
}

func (s *Server) updatePage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var page catalog.Page
	if !httputil.ParseJSONOrError(w, r, &page) {
		return
	}
	if !s.validatePage(w, &page) {
		return
	}

	updated, err := s.pages.Update(r.Context(), id, &page)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Page not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

func (s *Server) deletePage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	err := s.pages.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httputil.WriteNotFoundError(w, "Page not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) validatePage(w http.ResponseWriter, page *catalog.Page) bool {
	return s.validateFields(w, "Page", map[string]string{
		"name":       page.Name,
		"icon":       page.Icon,
		"path":       page.Path,
		"component":  page.Component,
		"args":       page.Args,
		"permission": page.Permission,
	})
}
