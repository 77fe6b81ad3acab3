package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aspect-console/aspect/pkg/catalog"
	"github.com/aspect-console/aspect/pkg/observability"
)

// PageStore persists navigation pages
type PageStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewPageStore creates a page store. metrics may be nil.
func NewPageStore(db *sql.DB, metrics *observability.Metrics) *PageStore {
	return &PageStore{db: db, metrics: metrics}
}

func (s *PageStore) observe(op string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStorage(op, err, time.Since(start))
	}
}

// List returns every page
func (s *PageStore) List(ctx context.Context) ([]catalog.Page, error) {
	start := time.Now()
	pages, err := s.list(ctx)
	s.observe("pages.list", err, start)
	return pages, err
}

func (s *PageStore) list(ctx context.Context) ([]catalog.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT pageId, name, icon, path, component, args, permission FROM pages ORDER BY pageId")
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	pages := []catalog.Page{}
	for rows.Next() {
		var p catalog.Page
		if err := rows.Scan(&p.ID, &p.Name, &p.Icon, &p.Path, &p.Component, &p.Args, &p.Permission); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}
	return pages, nil
}

// Get returns one page
func (s *PageStore) Get(ctx context.Context, id int64) (*catalog.Page, error) {
	start := time.Now()
	page, err := s.get(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("pages.get", err, start)
	}
	return page, err
}

func (s *PageStore) get(ctx context.Context, id int64) (*catalog.Page, error) {
	var p catalog.Page
	err := s.db.QueryRowContext(ctx,
		"SELECT pageId, name, icon, path, component, args, permission FROM pages WHERE pageId = ?", id).
		Scan(&p.ID, &p.Name, &p.Icon, &p.Path, &p.Component, &p.Args, &p.Permission)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &p, nil
}

// Create inserts the page, returning it with the server-assigned id
func (s *PageStore) Create(ctx context.Context, page *catalog.Page) (*catalog.Page, error) {
	start := time.Now()
	created, err := s.create(ctx, page)
	s.observe("pages.create", err, start)
	return created, err
}

func (s *PageStore) create(ctx context.Context, page *catalog.Page) (*catalog.Page, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO pages (name, icon, path, component, args, permission) VALUES (?, ?, ?, ?, ?, ?)",
		page.Name, page.Icon, page.Path, page.Component, page.Args, page.Permission)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read created page id: %w", err)
	}
	return s.get(ctx, id)
}

// Update rewrites the page's fields
func (s *PageStore) Update(ctx context.Context, id int64, page *catalog.Page) (*catalog.Page, error) {
	start := time.Now()
	updated, err := s.update(ctx, id, page)
	if !errors.Is(err, ErrNotFound) {
		s.observe("pages.update", err, start)
	}
	return updated, err
}

func (s *PageStore) update(ctx context.Context, id int64, page *catalog.Page) (*catalog.Page, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE pages SET name = ?, icon = ?, path = ?, component = ?, args = ?, permission = ? WHERE pageId = ?",
		page.Name, page.Icon, page.Path, page.Component, page.Args, page.Permission, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.get(ctx, id)
}

// Delete removes any category links pointing at the page, then the page
// itself.
func (s *PageStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.delete(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("pages.delete", err, start)
	}
	return err
}

func (s *PageStore) delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearJoins(ctx, tx, "categoryPages", "pageId", id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM pages WHERE pageId = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page delete: %w", err)
	}
	return nil
}
