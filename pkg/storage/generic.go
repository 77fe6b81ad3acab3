package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aspect-console/aspect/pkg/observability"
	"github.com/aspect-console/aspect/pkg/record"
	"github.com/aspect-console/aspect/pkg/registry"
)

// ModelStore is the generic CRUD layer behind the model-driven API. All
// table and column names come from the frozen model registry, never from
// requests, so building SQL text from them is safe.
type ModelStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewModelStore creates a generic model store. metrics may be nil.
func NewModelStore(db *sql.DB, metrics *observability.Metrics) *ModelStore {
	return &ModelStore{db: db, metrics: metrics}
}

func (s *ModelStore) observe(op string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStorage(op, err, time.Since(start))
	}
}

// List returns every row of the model's table as ordered records
func (s *ModelStore) List(ctx context.Context, m registry.Model) ([]*record.Record, error) {
	start := time.Now()
	records, err := s.list(ctx, m)
	s.observe(m.Table+".list", err, start)
	return records, err
}

func (s *ModelStore) list(ctx context.Context, m registry.Model) ([]*record.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(m.FieldNames(), ", "), m.Table, m.IdentityField)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.Table, err)
	}
	defer rows.Close()

	records := []*record.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, m)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", m.Table, err)
	}
	return records, nil
}

// Get returns the row identified by id as an ordered record
func (s *ModelStore) Get(ctx context.Context, m registry.Model, id int64) (*record.Record, error) {
	start := time.Now()
	rec, err := s.get(ctx, m, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe(m.Table+".get", err, start)
	}
	return rec, err
}

func (s *ModelStore) get(ctx context.Context, m registry.Model, id int64) (*record.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		strings.Join(m.FieldNames(), ", "), m.Table, m.IdentityField)
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s row: %w", m.Table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get %s row: %w", m.Table, err)
		}
		return nil, ErrNotFound
	}
	return scanRecord(rows, m)
}

// Create inserts a row from the record's non-identity fields and returns
// the stored row, identity included.
func (s *ModelStore) Create(ctx context.Context, m registry.Model, rec *record.Record) (*record.Record, error) {
	start := time.Now()
	created, err := s.create(ctx, m, rec)
	s.observe(m.Table+".create", err, start)
	return created, err
}

func (s *ModelStore) create(ctx context.Context, m registry.Model, rec *record.Record) (*record.Record, error) {
	columns, args := bindFields(m, rec)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.Table, strings.Join(columns, ", "), placeholders)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s row: %w", m.Table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read created %s id: %w", m.Table, err)
	}
	return s.get(ctx, m, id)
}

// Update rewrites the row's non-identity fields and returns the stored
// row.
func (s *ModelStore) Update(ctx context.Context, m registry.Model, id int64, rec *record.Record) (*record.Record, error) {
	start := time.Now()
	updated, err := s.update(ctx, m, id, rec)
	if !errors.Is(err, ErrNotFound) {
		s.observe(m.Table+".update", err, start)
	}
	return updated, err
}

func (s *ModelStore) update(ctx context.Context, m registry.Model, id int64, rec *record.Record) (*record.Record, error) {
	columns, args := bindFields(m, rec)
	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = col + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		m.Table, strings.Join(assignments, ", "), m.IdentityField)

	res, err := s.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s row: %w", m.Table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.get(ctx, m, id)
}

// Delete removes the row identified by id
func (s *ModelStore) Delete(ctx context.Context, m registry.Model, id int64) error {
	start := time.Now()
	err := s.delete(ctx, m, id)
	if !errors.Is(err, ErrNotFound) {
		s.observe(m.Table+".delete", err, start)
	}
	return err
}

func (s *ModelStore) delete(ctx context.Context, m registry.Model, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", m.Table, m.IdentityField)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s row: %w", m.Table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// bindFields maps the record onto the model's non-identity columns, in
// declared field order. Fields absent from the record bind as NULL.
func bindFields(m registry.Model, rec *record.Record) ([]string, []interface{}) {
	columns := []string{}
	args := []interface{}{}
	for _, field := range m.Fields {
		if field.Name == m.IdentityField {
			continue
		}
		value, _ := rec.Get(field.Name)
		columns = append(columns, field.Name)
		args = append(args, driverValue(field, value))
	}
	return columns, args
}

func driverValue(field registry.FieldDescriptor, v record.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch field.Editor {
	case registry.EditorNumber:
		return v.AsNumber()
	case registry.EditorCheckbox:
		return v.AsBool()
	case registry.EditorDatetime:
		return v.AsTime()
	default:
		return v.Text()
	}
}

// scanRecord reads the current row into an ordered record, picking scan
// targets from each field's editor type.
func scanRecord(rows *sql.Rows, m registry.Model) (*record.Record, error) {
	targets := make([]interface{}, len(m.Fields))
	for i, field := range m.Fields {
		switch field.Editor {
		case registry.EditorNumber:
			targets[i] = &sql.NullFloat64{}
		case registry.EditorCheckbox:
			targets[i] = &sql.NullBool{}
		case registry.EditorDatetime:
			targets[i] = &sql.NullTime{}
		default:
			targets[i] = &sql.NullString{}
		}
	}
	if err := rows.Scan(targets...); err != nil {
		return nil, fmt.Errorf("failed to scan %s row: %w", m.Table, err)
	}

	rec := &record.Record{}
	for i, field := range m.Fields {
		rec.Set(field.Name, recordValue(targets[i]))
	}
	return rec, nil
}

func recordValue(target interface{}) record.Value {
	switch t := target.(type) {
	case *sql.NullFloat64:
		if !t.Valid {
			return record.Null()
		}
		if t.Float64 == math.Trunc(t.Float64) && math.Abs(t.Float64) < 1<<53 {
			return record.Int(int64(t.Float64))
		}
		return record.Number(t.Float64)
	case *sql.NullBool:
		if !t.Valid {
			return record.Null()
		}
		return record.Bool(t.Bool)
	case *sql.NullTime:
		if !t.Valid {
			return record.Null()
		}
		return record.Timestamp(t.Time)
	case *sql.NullString:
		if !t.Valid {
			return record.Null()
		}
		return record.String(t.String)
	default:
		return record.Null()
	}
}
