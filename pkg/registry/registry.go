// Package registry is the model registry: every model the console can
// bind to is declared here as a static field-descriptor table plus
// validation rules, keyed by model name.
//
// The registry is populated once during startup wiring and then frozen;
// for the rest of the process lifetime it is read-only. Lookups are total
// functions returning an explicit ok bool, and an unknown model name is a
// visible, non-fatal condition for callers to render.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/record"
)

// EditorType selects the form editor for a field
type EditorType string

const (
	EditorText     EditorType = "text"
	EditorNumber   EditorType = "number"
	EditorCheckbox EditorType = "checkbox"
	EditorDatetime EditorType = "datetime"
	EditorSelect   EditorType = "select"
)

// FieldDescriptor declares one model field: how to render it and how to
// validate it. Rules is a go-playground/validator tag expression; empty
// means the field is never validated.
type FieldDescriptor struct {
	Name    string
	Label   string
	Editor  EditorType
	Options []string // select choices
	Rules   string
}

// Model binds a registry name to its backing table, identity field, and
// ordered field descriptors.
type Model struct {
	Name          string
	Table         string
	IdentityField string
	Fields        []FieldDescriptor
}

// Field returns the descriptor for name and whether it exists
func (m Model) Field(name string) (FieldDescriptor, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// FieldNames returns the declared field names in order
func (m Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// Registry maps model names to models. Mutable until Freeze, read-only
// after.
type Registry struct {
	mu       sync.RWMutex
	frozen   bool
	models   map[string]Model
	validate *validator.Validate
}

// NewRegistry creates an empty, unfrozen registry
func NewRegistry() *Registry {
	return &Registry{
		models:   map[string]Model{},
		validate: validator.New(),
	}
}

// Register adds a model. It fails on a duplicate name or after Freeze.
func (r *Registry) Register(m Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("registry is frozen, cannot register model %q", m.Name)
	}
	if _, exists := r.models[m.Name]; exists {
		return fmt.Errorf("model %q is already registered", m.Name)
	}
	r.models[m.Name] = m
	return nil
}

// MustRegister is Register for startup wiring, panicking on error
func (r *Registry) MustRegister(m Model) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Freeze makes the registry permanently read-only
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Lookup returns the model registered under name
func (r *Registry) Lookup(name string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Names returns the registered model names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateRecord checks rec against the model's field rules and returns
// per-field error messages, or nil when the record is valid. Fields
// without rules and the identity field are not checked.
func (r *Registry) ValidateRecord(m Model, rec *record.Record) httputil.FieldErrors {
	errs := httputil.FieldErrors{}
	for _, field := range m.Fields {
		if field.Rules == "" || field.Name == m.IdentityField {
			continue
		}

		value, _ := rec.Get(field.Name)
		if err := r.validate.Var(nativeValue(value), field.Rules); err != nil {
			errs[field.Name] = append(errs[field.Name], messagesFor(field, err)...)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func nativeValue(v record.Value) interface{} {
	switch v.Kind() {
	case record.KindString:
		return v.AsString()
	case record.KindNumber:
		return v.AsNumber()
	case record.KindBool:
		return v.AsBool()
	case record.KindTimestamp:
		return v.AsTime()
	default:
		return ""
	}
}

// messagesFor renders validation failures the way page forms expect:
// short, label-based sentences.
func messagesFor(field FieldDescriptor, err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{fmt.Sprintf("%s is invalid", field.Label)}
	}

	messages := make([]string, 0, len(verrs))
	for _, verr := range verrs {
		switch verr.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field.Label))
		case "email":
			messages = append(messages, "Invalid email address")
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", field.Label))
		}
	}
	return messages
}
