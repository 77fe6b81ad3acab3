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

// ModuleStore persists navigation modules and their category links
type ModuleStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewModuleStore creates a module store. metrics may be nil.
func NewModuleStore(db *sql.DB, metrics *observability.Metrics) *ModuleStore {
	return &ModuleStore{db: db, metrics: metrics}
}

func (s *ModuleStore) observe(op string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStorage(op, err, time.Since(start))
	}
}

// List returns every module's scalar fields
func (s *ModuleStore) List(ctx context.Context) ([]catalog.Module, error) {
	start := time.Now()
	modules, err := s.list(ctx)
	s.observe("modules.list", err, start)
	return modules, err
}

func (s *ModuleStore) list(ctx context.Context) ([]catalog.Module, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT moduleId, name, icon, permission FROM modules ORDER BY moduleId")
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}
	defer rows.Close()

	modules := []catalog.Module{}
	for rows.Next() {
		var m catalog.Module
		if err := rows.Scan(&m.ID, &m.Name, &m.Icon, &m.Permission); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate modules: %w", err)
	}
	return modules, nil
}

// Get returns one module with its categories hydrated
func (s *ModuleStore) Get(ctx context.Context, id int64) (*catalog.Module, error) {
	start := time.Now()
	module, err := s.get(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("modules.get", err, start)
	}
	return module, err
}

func (s *ModuleStore) get(ctx context.Context, id int64) (*catalog.Module, error) {
	var m catalog.Module
	err := s.db.QueryRowContext(ctx,
		"SELECT moduleId, name, icon, permission FROM modules WHERE moduleId = ?", id).
		Scan(&m.ID, &m.Name, &m.Icon, &m.Permission)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	categories, err := s.moduleCategories(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Categories = categories
	return &m, nil
}

func (s *ModuleStore) moduleCategories(ctx context.Context, moduleID int64) ([]catalog.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.categoryId, c.name, c.icon, c.permission
		FROM moduleCategories mc
		INNER JOIN categories c ON mc.categoryId = c.categoryId
		WHERE mc.moduleId = ?
		ORDER BY c.categoryId`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query module categories: %w", err)
	}
	defer rows.Close()

	categories := []catalog.Category{}
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Permission); err != nil {
			return nil, fmt.Errorf("failed to scan module category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate module categories: %w", err)
	}
	return categories, nil
}

// Create inserts the module and links its categories
func (s *ModuleStore) Create(ctx context.Context, module *catalog.Module) (*catalog.Module, error) {
	start := time.Now()
	created, err := s.create(ctx, module)
	s.observe("modules.create", err, start)
	return created, err
}

func (s *ModuleStore) create(ctx context.Context, module *catalog.Module) (*catalog.Module, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO modules (name, icon, permission) VALUES (?, ?, ?)",
		module.Name, module.Icon, module.Permission)
	if err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read created module id: %w", err)
	}

	if err := insertJoins(ctx, tx, "moduleCategories", "moduleId", "categoryId", id, categoryIDs(module.Categories)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit module: %w", err)
	}

	return s.get(ctx, id)
}

// Update rewrites the module's scalar fields and diffs its category links
func (s *ModuleStore) Update(ctx context.Context, id int64, module *catalog.Module) (*catalog.Module, error) {
	start := time.Now()
	updated, err := s.update(ctx, id, module)
	if !errors.Is(err, ErrNotFound) {
		s.observe("modules.update", err, start)
	}
	return updated, err
}

func (s *ModuleStore) update(ctx context.Context, id int64, module *catalog.Module) (*catalog.Module, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE modules SET name = ?, icon = ?, permission = ? WHERE moduleId = ?",
		module.Name, module.Icon, module.Permission, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update module: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	if err := diffJoin(ctx, tx, "moduleCategories", "moduleId", "categoryId", id, categoryIDs(module.Categories)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit module update: %w", err)
	}

	return s.get(ctx, id)
}

// Delete removes the module's category links, then the module
func (s *ModuleStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.delete(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe("modules.delete", err, start)
	}
	return err
}

func (s *ModuleStore) delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearJoins(ctx, tx, "moduleCategories", "moduleId", id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM modules WHERE moduleId = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit module delete: %w", err)
	}
	return nil
}

func categoryIDs(categories []catalog.Category) []int64 {
	ids := make([]int64, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	return ids
}
