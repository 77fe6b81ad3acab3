package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aspect-console/aspect/pkg/observability"
)

const navigationQuery = `
	SELECT
		m.moduleId, m.name, m.icon, m.permission,
		c.categoryId, c.name, c.icon, c.permission,
		p.pageId, p.name, p.icon, p.path, p.component, p.args, p.permission
	FROM modules m
	INNER JOIN moduleCategories mc ON m.moduleId = mc.moduleId
	INNER JOIN categories c ON mc.categoryId = c.categoryId
	INNER JOIN categoryPages cp ON c.categoryId = cp.categoryId
	INNER JOIN pages p ON cp.pageId = p.pageId
	ORDER BY m.moduleId, c.categoryId, p.pageId`

// Store assembles the navigation tree from the relational catalog
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewStore creates a catalog store. metrics may be nil.
func NewStore(db *sql.DB, metrics *observability.Metrics) *Store {
	return &Store{db: db, metrics: metrics}
}

// Navigation loads the full Module/Category/Page tree in one joined query,
// de-duplicating nodes by primary key as rows are folded in. The joins are
// inner, so a module or category with no reachable pages never appears.
func (s *Store) Navigation(ctx context.Context) ([]Module, error) {
	start := time.Now()
	modules, err := s.navigation(ctx)
	if s.metrics != nil {
		s.metrics.ObserveStorage("catalog.navigation", err, time.Since(start))
	}
	return modules, err
}

func (s *Store) navigation(ctx context.Context) ([]Module, error) {
	rows, err := s.db.QueryContext(ctx, navigationQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query navigation: %w", err)
	}
	defer rows.Close()

	modules := []Module{}
	index := map[int64]int{}

	for rows.Next() {
		var (
			module   Module
			category Category
			page     Page
		)
		if err := rows.Scan(
			&module.ID, &module.Name, &module.Icon, &module.Permission,
			&category.ID, &category.Name, &category.Icon, &category.Permission,
			&page.ID, &page.Name, &page.Icon, &page.Path, &page.Component, &page.Args, &page.Permission,
		); err != nil {
			return nil, fmt.Errorf("failed to scan navigation row: %w", err)
		}

		pos, seen := index[module.ID]
		if !seen {
			module.Categories = []Category{}
			modules = append(modules, module)
			pos = len(modules) - 1
			index[module.ID] = pos
		}

		category.Pages = []Page{}
		slot := modules[pos].AddCategory(category)
		slot.AddPage(page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate navigation rows: %w", err)
	}

	return modules, nil
}
