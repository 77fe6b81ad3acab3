package console

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aspect-console/aspect/pkg/catalog"
	"github.com/aspect-console/aspect/pkg/client"
	"github.com/aspect-console/aspect/pkg/pageargs"
	"github.com/aspect-console/aspect/pkg/record"
	"github.com/aspect-console/aspect/pkg/routetree"
)

// Component names recognized by the resolver
const (
	ComponentTable = "GenericModelTable"
	ComponentForm  = "GenericModelForm"
)

// EditColumnKey is the synthetic trailing column linking each row to its
// form.
const EditColumnKey = "Edit"

// Navigator performs client-side navigation. Replace swaps the current
// history entry instead of pushing a new one.
type Navigator interface {
	Navigate(path string)
	Replace(path string)
}

// Confirmer gates destructive actions behind a user prompt
type Confirmer interface {
	Confirm(message string) bool
}

// Column is one table column
type Column struct {
	Key    string
	Header string
}

// Row is one table row with its edit link
type Row struct {
	Record   *record.Record
	EditPath string
}

// TableController drives a GenericModelTable page: it fetches the bound
// model's collection, derives the column layout from the first record,
// and self-registers the model's form route.
type TableController struct {
	api       *client.Client
	apiPrefix string
	tree      *routetree.Tree
	page      catalog.Page
	args      pageargs.Args
	location  string

	mu      sync.Mutex
	columns []Column
	rows    []Row
}

// NewTableController binds a table controller to the page mounted at the
// absolute location path. apiPrefix is the server's generic model route
// prefix (the ASPECT_ENDPOINT_API value). The page args must name the
// model and its identity field.
func NewTableController(api *client.Client, apiPrefix string, tree *routetree.Tree, page catalog.Page, location string) (*TableController, error) {
	args := pageargs.Parse(page.Args)
	if args.ModelName() == "" {
		return nil, fmt.Errorf("page %q args missing %s", page.Name, pageargs.KeyModelName)
	}
	if args.IdentityField() == "" {
		return nil, fmt.Errorf("page %q args missing %s", page.Name, pageargs.KeyIdentityField)
	}
	return &TableController{
		api:       api,
		apiPrefix: normalizePrefix(apiPrefix),
		tree:      tree,
		page:      page,
		args:      args,
		location:  "/" + strings.Trim(location, "/"),
	}, nil
}

// normalizePrefix roots the prefix and strips the trailing slash; an
// empty or bare-slash prefix mounts the model routes at the root.
func normalizePrefix(prefix string) string {
	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

// Load fetches the collection, rebuilds columns and rows, and registers
// the form route. Loading again replaces the previous state; the form
// route registration collapses through the tree's dedupe, so repeated
// loads leave a single route.
func (t *TableController) Load(ctx context.Context) error {
	var records []*record.Record
	if err := t.api.GetJSON(ctx, t.apiPrefix+"/"+t.args.ModelName(), &records); err != nil {
		return fmt.Errorf("failed to load %s collection: %w", t.args.ModelName(), err)
	}

	columns := []Column{}
	for _, key := range record.DeriveColumns(records) {
		columns = append(columns, Column{Key: key, Header: strings.ToUpper(key)})
	}
	if len(columns) > 0 {
		columns = append(columns, Column{Key: EditColumnKey, Header: strings.ToUpper(EditColumnKey)})
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row{Record: rec}
		// A record without an identity value has no form to link to;
		// its row renders without an edit action.
		if id, ok := rec.Get(t.args.IdentityField()); ok && !id.IsNull() && id.Text() != "" {
			row.EditPath = t.location + "/" + id.Text()
		}
		rows = append(rows, row)
	}

	t.registerFormRoute()

	t.mu.Lock()
	t.columns = columns
	t.rows = rows
	t.mu.Unlock()
	return nil
}

// registerFormRoute publishes the {location}/:id form route at the top
// level, carrying the table's own args so the form binds the same model.
func (t *TableController) registerFormRoute() {
	formPage := catalog.Page{
		Name:       t.page.Name,
		Icon:       t.page.Icon,
		Path:       t.location + "/:id",
		Component:  ComponentForm,
		Args:       t.page.Args,
		Permission: t.page.Permission,
	}
	t.tree.AddRoutes([]routetree.Route{{Path: formPage.Path, Page: &formPage}}, "")
}

// Columns returns the current column layout, the synthetic Edit column
// last. Empty until Load sees a non-empty collection.
func (t *TableController) Columns() []Column {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Rows returns the current rows
func (t *TableController) Rows() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}
