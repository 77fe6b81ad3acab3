// Package catalog models the navigation hierarchy: Module, Category, Page.
//
// The catalog is stored relationally and assembled into a tree by one
// joined query. Every node carries a permission requirement; Filter prunes
// the tree down to what a given permission set may see.
package catalog
