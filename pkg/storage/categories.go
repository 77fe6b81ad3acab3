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

// CategoryStore persists navigation categories and their page links
type CategoryStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewCategoryStore creates a category store. metrics may be nil.
func NewCategoryStore(db *sql.DB, metrics *observability.Metrics) *CategoryStore {
	return &CategoryStore{db: db, metrics: metrics}
}

func (s *CategoryStore) observe(op string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStorage(op, err, time.Since(start))
	}
}

// List returns every category's scalar fields
func (s *CategoryStore) List(ctx context.Context) ([]catalog.Category, error) {
	start := time.Now()
	categories, err := s.list(ctx)
	s.observe("categories.list", err, start)
	return categories, err
}

func (s *CategoryStore) list(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT categoryId, name, icon, permission FROM categories ORDER BY categoryId")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []catalog.Category{}
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Permission); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// Get returns one category with its pages hydrated
func (s *CategoryStore) Get(ctx context.Context, id int64) (*catalog.Category, error) {
	start := time.Now()
	category, err := s.get(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("categories.get", err, start)
	}
	return category, err
}

func (s *CategoryStore) get(ctx context.Context, id int64) (*catalog.Category, error) {
	var c catalog.Category
	err := s.db.QueryRowContext(ctx,
		"SELECT categoryId, name, icon, permission FROM categories WHERE categoryId = ?", id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.Permission)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	pages, err := s.categoryPages(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Pages = pages
	return &c, nil
}

func (s *CategoryStore) categoryPages(ctx context.Context, categoryID int64) ([]catalog.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.pageId, p.name, p.icon, p.path, p.component, p.args, p.permission
		FROM categoryPages cp
		INNER JOIN pages p ON cp.pageId = p.pageId
		WHERE cp.categoryId = ?
		ORDER BY p.pageId`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category pages: %w", err)
	}
	defer rows.Close()

	pages := []catalog.Page{}
	for rows.Next() {
		var p catalog.Page
		if err := rows.Scan(&p.ID, &p.Name, &p.Icon, &p.Path, &p.Component, &p.Args, &p.Permission); err != nil {
			return nil, fmt.Errorf("failed to scan category page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category pages: %w", err)
	}
	return pages, nil
}

// Create inserts the category and links its pages
func (s *CategoryStore) Create(ctx context.Context, category *catalog.Category) (*catalog.Category, error) {
	start := time.Now()
	created, err := s.create(ctx, category)
	s.observe("categories.create", err, start)
	return created, err
}

func (s *CategoryStore) create(ctx context.Context, category *catalog.Category) (*catalog.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO categories (name, icon, permission) VALUES (?, ?, ?)",
		category.Name, category.Icon, category.Permission)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read created category id: %w", err)
	}

	if err := insertJoins(ctx, tx, "categoryPages", "categoryId", "pageId", id, pageIDs(category.Pages)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit category: %w", err)
	}

	return s.get(ctx, id)
}

// Update rewrites the category's scalar fields and diffs its page links
func (s *CategoryStore) Update(ctx context.Context, id int64, category *catalog.Category) (*catalog.Category, error) {
	start := time.Now()
	updated, err := s.update(ctx, id, category)
	if !errors.Is(err, ErrNotFound) {
		s.observe("categories.update", err, start)
	}
	return updated, err
}

func (s *CategoryStore) update(ctx context.Context, id int64, category *catalog.Category) (*catalog.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE categories SET name = ?, icon = ?, permission = ? WHERE categoryId = ?",
		category.Name, category.Icon, category.Permission, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	if err := diffJoin(ctx, tx, "categoryPages", "categoryId", "pageId", id, pageIDs(category.Pages)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit category update: %w", err)
	}

	return s.get(ctx, id)
}

// Delete removes the category's page links and any module links pointing
// at it, then the category itself.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.delete(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("categories.delete", err, start)
	}
	return err
}

func (s *CategoryStore) delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearJoins(ctx, tx, "categoryPages", "categoryId", id); err != nil {
		return err
	}
	if err := clearJoins(ctx, tx, "moduleCategories", "categoryId", id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE categoryId = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category delete: %w", err)
	}
	return nil
}

func pageIDs(pages []catalog.Page) []int64 {
	ids := make([]int64, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, p.ID)
	}
	return ids
}
