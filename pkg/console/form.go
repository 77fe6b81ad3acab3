package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aspect-console/aspect/pkg/catalog"
	"github.com/aspect-console/aspect/pkg/client"
	"github.com/aspect-console/aspect/pkg/httputil"
	"github.com/aspect-console/aspect/pkg/pageargs"
	"github.com/aspect-console/aspect/pkg/record"
	"github.com/aspect-console/aspect/pkg/registry"
)

// NewModelID is the path sentinel selecting create mode: the form mounted
// at {collection}/0 edits a record that does not exist yet.
const NewModelID = "0"

// FormField is a model field descriptor plus this form's render flags
type FormField struct {
	registry.FieldDescriptor
	Hidden   bool
	ReadOnly bool
}

// FormController drives a GenericModelForm page mounted at
// {collection}/{id}. The id segment selects the record; the NewModelID
// sentinel selects create mode.
type FormController struct {
	api       *client.Client
	apiPrefix string
	registry  *registry.Registry
	nav       Navigator
	confirm   Confirmer
	args      pageargs.Args
	model     registry.Model

	parentPath string
	id         string
	isNew      bool

	mu         sync.Mutex
	generation int
	record     *record.Record
}

// NewFormController binds a form controller to the page mounted at the
// absolute location path. apiPrefix is the server's generic model route
// prefix (the ASPECT_ENDPOINT_API value). An unknown model name is an
// error the caller renders; it never panics the engine.
func NewFormController(api *client.Client, apiPrefix string, reg *registry.Registry, page catalog.Page,
	location string, nav Navigator, confirm Confirmer) (*FormController, error) {

	args := pageargs.Parse(page.Args)
	if args.ModelName() == "" {
		return nil, fmt.Errorf("page %q args missing %s", page.Name, pageargs.KeyModelName)
	}
	model, ok := reg.Lookup(args.ModelName())
	if !ok {
		return nil, fmt.Errorf("unknown model %q", args.ModelName())
	}

	location = "/" + strings.Trim(location, "/")
	slash := strings.LastIndex(location, "/")
	if slash <= 0 {
		return nil, fmt.Errorf("form location %q has no collection segment", location)
	}
	id := location[slash+1:]

	f := &FormController{
		api:        api,
		apiPrefix:  normalizePrefix(apiPrefix),
		registry:   reg,
		nav:        nav,
		confirm:    confirm,
		args:       args,
		model:      model,
		parentPath: location[:slash],
		id:         id,
		isNew:      id == NewModelID,
	}
	f.record = f.emptyRecord()
	return f, nil
}

// IsNewModel reports whether the form is in create mode
func (f *FormController) IsNewModel() bool { return f.isNew }

// identityField is the args override or the model's own declaration
func (f *FormController) identityField() string {
	if field := f.args.IdentityField(); field != "" {
		return field
	}
	return f.model.IdentityField
}

// Fields returns the model's fields with this form's render flags. The
// identity field is always read-only, and hidden outright in create mode
// because the server has not assigned it yet.
func (f *FormController) Fields() []FormField {
	hidden := map[string]bool{}
	for _, name := range f.args.HiddenFields() {
		hidden[name] = true
	}
	readOnly := map[string]bool{}
	for _, name := range f.args.ReadOnlyFields() {
		readOnly[name] = true
	}
	identity := f.identityField()

	fields := make([]FormField, 0, len(f.model.Fields))
	for _, d := range f.model.Fields {
		fields = append(fields, FormField{
			FieldDescriptor: d,
			Hidden:          hidden[d.Name] || (f.isNew && d.Name == identity),
			ReadOnly:        readOnly[d.Name] || d.Name == identity,
		})
	}
	return fields
}

func (f *FormController) emptyRecord() *record.Record {
	rec := &record.Record{}
	for _, d := range f.model.Fields {
		rec.Set(d.Name, record.Null())
	}
	return rec
}

// Load fetches the record in edit mode, or resets to an empty record in
// create mode. A fetch result is committed only if no newer Load started
// meanwhile; stale responses are dropped.
func (f *FormController) Load(ctx context.Context) error {
	f.mu.Lock()
	f.generation++
	generation := f.generation
	f.mu.Unlock()

	if f.isNew {
		f.commit(generation, f.emptyRecord())
		return nil
	}

	rec := &record.Record{}
	if err := f.api.GetJSON(ctx, f.apiPrefix+"/"+f.model.Name+"/"+f.id, rec); err != nil {
		return fmt.Errorf("failed to load %s %s: %w", f.model.Name, f.id, err)
	}
	f.commit(generation, rec)
	return nil
}

func (f *FormController) commit(generation int, rec *record.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if generation != f.generation {
		return
	}
	f.record = rec
}

// Record returns the record the form is editing
func (f *FormController) Record() *record.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record
}

// SetValue updates one field of the editing record
func (f *FormController) SetValue(name string, value record.Value) error {
	if _, ok := f.model.Field(name); !ok {
		return fmt.Errorf("model %s has no field %q", f.model.Name, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record.Set(name, value)
	return nil
}

// Validate checks the editing record against the model's rules. The
// server revalidates on save; this is the fail-fast pass.
func (f *FormController) Validate() httputil.FieldErrors {
	return f.registry.ValidateRecord(f.model, f.Record())
}

// Save persists the record. Field errors, local or returned by the
// server, come back in the first value with a nil error; nothing is sent
// when local validation fails. A successful create navigates (replacing
// the history entry) to the created record's form.
func (f *FormController) Save(ctx context.Context) (httputil.FieldErrors, error) {
	rec := f.Record()
	if errs := f.registry.ValidateRecord(f.model, rec); errs != nil {
		return errs, nil
	}

	saved := &record.Record{}
	var err error
	wasNew := f.isNew
	if wasNew {
		err = f.api.PostJSON(ctx, f.apiPrefix+"/"+f.model.Name, rec, saved)
	} else {
		err = f.api.PutJSON(ctx, f.apiPrefix+"/"+f.model.Name+"/"+f.id, rec, saved)
	}
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			return httputil.FieldErrors(apiErr.Fields), nil
		}
		return nil, fmt.Errorf("failed to save %s: %w", f.model.Name, err)
	}

	f.mu.Lock()
	f.generation++
	f.record = saved
	f.mu.Unlock()

	if wasNew {
		// The controller now edits the created record: a second Save
		// must update it, not create another.
		id, _ := saved.Get(f.identityField())
		f.id = id.Text()
		f.isNew = false
		f.nav.Replace(f.parentPath + "/" + f.id)
	}
	return nil, nil
}

// Delete removes the record after the Confirmer approves, then navigates
// back to the collection. Declining the prompt is a no-op.
func (f *FormController) Delete(ctx context.Context) error {
	if f.isNew {
		return fmt.Errorf("cannot delete an unsaved %s", f.model.Name)
	}
	if !f.confirm.Confirm("Delete this " + f.model.Name + "?") {
		return nil
	}

	if err := f.api.Delete(ctx, f.apiPrefix+"/"+f.model.Name+"/"+f.id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", f.model.Name, f.id, err)
	}
	f.nav.Navigate(f.parentPath)
	return nil
}
