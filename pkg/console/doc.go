// Package console is the generic CRUD resolver engine. A catalog page
// whose component is GenericModelTable or GenericModelForm binds to a
// registry model through its parsed args; the controllers here drive the
// whole flow against the API: list with columns derived from data,
// per-row edit links, self-registered form routes, and create/update/
// delete with navigation side effects.
package console
