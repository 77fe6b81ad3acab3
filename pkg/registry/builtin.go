package registry

import "sync"

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry holding the built-in models,
// frozen on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerBuiltins(defaultRegistry)
		defaultRegistry.Freeze()
	})
	return defaultRegistry
}

// registerBuiltins declares the console's own administration models. The
// descriptors are static on purpose: no reflection, no annotations, just
// the table every form and validator reads from.
func registerBuiltins(r *Registry) {
	r.MustRegister(Model{
		Name:          "User",
		Table:         "users",
		IdentityField: "userId",
		Fields: []FieldDescriptor{
			{Name: "userId", Label: "User ID", Editor: EditorNumber},
			{Name: "name", Label: "Name", Editor: EditorText, Rules: "required"},
			{Name: "email", Label: "Email", Editor: EditorText, Rules: "required,email"},
			{Name: "permission", Label: "Permission", Editor: EditorText, Rules: "required"},
		},
	})

	r.MustRegister(Model{
		Name:          "Role",
		Table:         "roles",
		IdentityField: "roleId",
		Fields: []FieldDescriptor{
			{Name: "roleId", Label: "Role ID", Editor: EditorNumber},
			{Name: "name", Label: "Name", Editor: EditorText, Rules: "required"},
			{Name: "permission", Label: "Permission", Editor: EditorText, Rules: "required"},
		},
	})

	r.MustRegister(Model{
		Name:          "Permission",
		Table:         "permissions",
		IdentityField: "permissionId",
		Fields: []FieldDescriptor{
			{Name: "permissionId", Label: "Permission ID", Editor: EditorNumber},
			{Name: "name", Label: "Name", Editor: EditorText, Rules: "required"},
			{Name: "permission", Label: "Permission", Editor: EditorText, Rules: "required"},
		},
	})

	r.MustRegister(Model{
		Name:          "Module",
		Table:         "modules",
		IdentityField: "moduleId",
		Fields: []FieldDescriptor{
			{Name: "moduleId", Label: "Module ID", Editor: EditorNumber},
			{Name: "name", Label: "Name", Editor: EditorText, Rules: "required"},
			{Name: "icon", Label: "Icon", Editor: EditorText, Rules: "required"},
			{Name: "permission", Label: "Permission", Editor: EditorText, Rules: "required"},
		},
	})

	r.MustRegister(Model{
		Name:          "Category",
		Table:         "categories",
		IdentityField: "categoryId",
		Fields: []FieldDescriptor{
			{Name: "categoryId", Label: "Category ID", Editor: EditorNumber},
			{Name: "name", Label: "Name", Editor: EditorText, Rules: "required"},
			{Name: "icon", Label: "Icon", Editor: EditorText, Rules: "required"},
			{Name: "permission", Label: "Permission", Editor: EditorText, Rules: "required"},
		},
	})

	r.MustRegister(Model{
		Name:          "Page",
		Table:         "pages",
		IdentityField: "pageId",
		Fields: []FieldDescriptor{
			{Name: "pageId", Label: "Page ID", Editor: EditorNumber},
			{Name: "name", Label: "Name", Editor: EditorText, Rules: "required"},
			{Name: "icon", Label: "Icon", Editor: EditorText, Rules: "required"},
			{Name: "path", Label: "Path", Editor: EditorText, Rules: "required"},
			{Name: "component", Label: "Component", Editor: EditorSelect,
				Options: []string{"GenericModelTable", "GenericModelForm"}, Rules: "required"},
			{Name: "args", Label: "Args", Editor: EditorText},
			{Name: "permission", Label: "Permission", Editor: EditorText, Rules: "required"},
		},
	})
}
