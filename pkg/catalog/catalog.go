package catalog

import (
	"github.com/aspect-console/aspect/pkg/rbac"
)

// Page is a navigation leaf. Component names the generic UI behavior
// (table or form) and Args carries the model-binding metadata string.
type Page struct {
	ID         int64  `json:"pageId"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Path       string `json:"path"`
	Component  string `json:"component"`
	Args       string `json:"args"`
	Permission string `json:"permission"`
}

// Category groups pages under a module
type Category struct {
	ID         int64  `json:"categoryId"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Permission string `json:"permission"`
	Pages      []Page `json:"pages,omitempty"`
}

// Module is a top-level navigation grouping
type Module struct {
	ID         int64      `json:"moduleId"`
	Name       string     `json:"name"`
	Icon       string     `json:"icon"`
	Permission string     `json:"permission"`
	Categories []Category `json:"categories,omitempty"`
}

// AddCategory appends c unless a category with the same id already exists,
// and returns the category slot in the module for further page insertion.
func (m *Module) AddCategory(c Category) *Category {
	for i := range m.Categories {
		if m.Categories[i].ID == c.ID {
			return &m.Categories[i]
		}
	}
	m.Categories = append(m.Categories, c)
	return &m.Categories[len(m.Categories)-1]
}

// AddPage appends p unless a page with the same id already exists
func (c *Category) AddPage(p Page) {
	for i := range c.Pages {
		if c.Pages[i].ID == p.ID {
			return
		}
	}
	c.Pages = append(c.Pages, p)
}

// Filter prunes the catalog to the nodes visible to the permission set.
// A node is kept only when its own predicate passes; a node with no
// declared permission is public. Containers left without children are
// dropped, and the input is never mutated.
func Filter(modules []Module, set rbac.PermissionSet) []Module {
	out := make([]Module, 0, len(modules))
	for _, module := range modules {
		if !set.SatisfiesAny(module.Permission) {
			continue
		}

		kept := Module{
			ID:         module.ID,
			Name:       module.Name,
			Icon:       module.Icon,
			Permission: module.Permission,
		}
		for _, category := range module.Categories {
			if !set.SatisfiesAny(category.Permission) {
				continue
			}

			keptCategory := Category{
				ID:         category.ID,
				Name:       category.Name,
				Icon:       category.Icon,
				Permission: category.Permission,
			}
			for _, page := range category.Pages {
				if set.SatisfiesAny(page.Permission) {
					keptCategory.Pages = append(keptCategory.Pages, page)
				}
			}
			if len(keptCategory.Pages) > 0 {
				kept.Categories = append(kept.Categories, keptCategory)
			}
		}
		if len(kept.Categories) > 0 {
			out = append(out, kept)
		}
	}
	return out
}

// Pages flattens the catalog into its leaf pages in tree order
func Pages(modules []Module) []Page {
	var out []Page
	for _, module := range modules {
		for _, category := range module.Categories {
			out = append(out, category.Pages...)
		}
	}
	return out
}
