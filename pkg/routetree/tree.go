package routetree

import (
	"strings"
	"sync"

	"github.com/aspect-console/aspect/pkg/catalog"
)

// CatchAllPath is the fallback route path, always last at the top level
const CatchAllPath = "*"

// indexKey is the dedupe key for index routes, which have no path
const indexKey = "\x00index"

// Route is one node of the routing tree. An index route is the default
// child of its parent and carries no path. Page is nil for structural
// routes (index, catch-all).
type Route struct {
	Path     string
	Index    bool
	Page     *catalog.Page
	Children []Route
}

func (r Route) key() string {
	if r.Index {
		return indexKey
	}
	return r.Path
}

// Tree is a mutable routing tree safe for concurrent use
type Tree struct {
	mu     sync.Mutex
	routes []Route
}

// New creates an empty tree holding only the catch-all fallback
func New() *Tree {
	t := &Tree{}
	t.routes = appendCatchAll(t.routes)
	return t
}

// FromCatalog builds a tree whose top-level routes are the catalog's
// pages in tree order, followed by the catch-all.
func FromCatalog(modules []catalog.Module) *Tree {
	t := New()
	pages := catalog.Pages(modules)
	routes := make([]Route, 0, len(pages))
	for i := range pages {
		page := pages[i]
		routes = append(routes, Route{Path: page.Path, Page: &page})
	}
	t.AddRoutes(routes, "")
	return t
}

// Routes returns a snapshot of the top-level routes
func (t *Tree) Routes() []Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// AddRoutes inserts routes under the route at parentPath, or at the top
// level when parentPath is empty. The parent is located by walking the
// path's slash-delimited segments through the tree. Returns false without
// mutating when the parent does not exist or is an index route; callers
// treat that as a metadata bug upstream, not a fatal condition.
//
// After insertion the affected level is de-duplicated by path key keeping
// the last inserted, and the catch-all is re-appended last at the top
// level.
func (t *Tree) AddRoutes(routes []Route, parentPath string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(routes) == 0 {
		return true
	}

	segments := splitPath(parentPath)
	if len(segments) == 0 {
		t.routes = dedupe(append(t.routes, routes...))
		t.routes = appendCatchAll(t.routes)
		return true
	}

	parent := findRoute(t.routes, segments)
	if parent == nil || parent.Index {
		return false
	}
	parent.Children = dedupe(append(parent.Children, routes...))
	t.routes = appendCatchAll(t.routes)
	return true
}

// Find returns a snapshot of the route at path, walking nested levels
func (t *Tree) Find(path string) (Route, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	segments := splitPath(path)
	if len(segments) == 0 {
		return Route{}, false
	}
	r := findRoute(t.routes, segments)
	if r == nil {
		return Route{}, false
	}
	return *r, true
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// findRoute walks segments through the tree. A route's own path may span
// several segments; it must match them all before its children are
// considered.
func findRoute(routes []Route, segments []string) *Route {
	for i := range routes {
		own := splitPath(routes[i].Path)
		if len(own) == 0 || len(own) > len(segments) {
			continue
		}
		if !segmentsEqual(own, segments[:len(own)]) {
			continue
		}
		if len(own) == len(segments) {
			return &routes[i]
		}
		if found := findRoute(routes[i].Children, segments[len(own):]); found != nil {
			return found
		}
	}
	return nil
}

func segmentsEqual(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// dedupe collapses routes sharing a path key, keeping the last inserted.
// A surviving route with no children of its own adopts the children of
// the route it displaced, so re-registering a page over the wire does not
// orphan routes already nested under it.
func dedupe(routes []Route) []Route {
	type winner struct {
		route    Route
		orphaned []Route
	}

	order := []string{}
	byKey := map[string]*winner{}
	for _, r := range routes {
		key := r.key()
		if existing, ok := byKey[key]; ok {
			orphaned := existing.route.Children
			existing.route = r
			if len(r.Children) == 0 {
				existing.orphaned = orphaned
			} else {
				existing.orphaned = nil
			}
			continue
		}
		byKey[key] = &winner{route: r}
		order = append(order, key)
	}

	out := make([]Route, 0, len(order))
	for _, key := range order {
		w := byKey[key]
		if len(w.orphaned) > 0 && !w.route.Index {
			w.route.Children = w.orphaned
		}
		out = append(out, w.route)
	}
	return out
}

// appendCatchAll removes any existing top-level catch-all and appends a
// single one at the end.
func appendCatchAll(routes []Route) []Route {
	out := routes[:0]
	for _, r := range routes {
		if !r.Index && r.Path == CatchAllPath {
			continue
		}
		out = append(out, r)
	}
	return append(out, Route{Path: CatchAllPath})
}
