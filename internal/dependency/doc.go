// Package dependency keeps a small directed graph of which bindings depend on
// which, so that dependency cycles can be reported instead of deadlocking.
//
// Edges are added as providers resolve their dependencies. Before an edge
// from -> to is added, CheckEdge looks for an existing path to -> from; if one
// exists, the new edge would close a cycle and a *CycleError naming the whole
// path is returned:
//
//	g := dependency.New()
//	_ = g.CheckEdge("api", "store")
//	err := g.CheckEdge("store", "api") // dependency cycle: store -> api -> store
package dependency
