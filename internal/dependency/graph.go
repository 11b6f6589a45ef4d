package dependency

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// NodeID is the unique identifier for a node inside a dependency graph.
// Callers choose the encoding, e.g. "store.Repo" or "http.Handler(admin)".
type NodeID string

// Graph records which nodes depend on which. It is safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	edges map[NodeID][]NodeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{edges: make(map[NodeID][]NodeID)}
}

// AddNode adds a node without dependencies. Adding an existing node is a
// no-op.
func (g *Graph) AddNode(id NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.edges[id]; !ok {
		g.edges[id] = nil
	}
}

// AddEdge records that from depends on to. Both nodes are added if needed.
func (g *Graph) AddEdge(from, to NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.edges[to]; !ok {
		g.edges[to] = nil
	}
	if !slices.Contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
}

// Has reports whether id is part of the graph.
func (g *Graph) Has(id NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.edges[id]
	return ok
}

// Nodes returns every node, sorted.
func (g *Graph) Nodes() []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]NodeID, 0, len(g.edges))
	for id := range g.edges {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Dependencies returns the immediate dependencies of id in insertion order.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.edges[id])
}

// Dependents returns all nodes that directly depend on id, sorted. This is
// an O(n) walk.
func (g *Graph) Dependents(id NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var res []NodeID
	for n, deps := range g.edges {
		if slices.Contains(deps, id) {
			res = append(res, n)
		}
	}
	slices.Sort(res)
	return res
}

// Path returns a dependency path from one node to another, both included,
// or nil when to is not reachable. Path(x, x) is [x].
func (g *Graph) Path(from, to NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[NodeID]bool)
	var walk func(n NodeID) []NodeID
	walk = func(n NodeID) []NodeID {
		if n == to {
			return []NodeID{n}
		}
		if visited[n] {
			return nil
		}
		visited[n] = true
		for _, dep := range g.edges[n] {
			if p := walk(dep); p != nil {
				return append([]NodeID{n}, p...)
			}
		}
		return nil
	}
	return walk(from)
}

// CycleError reports a dependency cycle. Path starts and ends with the same
// node.
type CycleError struct {
	Path []NodeID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return fmt.Sprintf("dependency cycle: %s", strings.Join(parts, " -> "))
}

// CheckEdge returns a *CycleError if adding from -> to would close a cycle,
// and records the edge otherwise.
func (g *Graph) CheckEdge(from, to NodeID) error {
	if back := g.Path(to, from); back != nil {
		return &CycleError{Path: append([]NodeID{from}, back...)}
	}
	g.AddEdge(from, to)
	return nil
}
