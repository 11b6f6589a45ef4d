// Package memory is a small map-backed dependency container used as the
// reference container adapter of the lifecycle.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sync"

	"testrig/internal/dependency"
	"testrig/internal/descriptor"
	"testrig/internal/service"
)

// Provider constructs a bound value. Dependencies are resolved through r so
// facade overrides are honoured.
type Provider func(r service.Resolver) (any, error)

// Module is a configuration unit that declares bindings.
type Module func(b *Binder) error

type binding struct {
	contract   reflect.Type
	name       string
	qualifiers []string
	provider   Provider
	transient  bool

	once  sync.Once
	value any
	err   error
}

func (b *binding) label() string {
	if b.name == "" {
		return b.contract.String()
	}
	return fmt.Sprintf("%s(%s)", b.contract, b.name)
}

func (b *binding) node() dependency.NodeID {
	return dependency.NodeID(b.label())
}

func (b *binding) matches(q service.Query) bool {
	if b.contract != q.Contract {
		return false
	}
	if q.Name != "" && b.name != q.Name {
		return false
	}
	for _, c := range q.Custom {
		if !slices.Contains(b.qualifiers, c.Value) {
			return false
		}
	}
	return true
}

// Container is a small map-backed dependency container. Singletons are built
// lazily on first lookup and closed in reverse creation order. Provider
// dependency cycles fail with a *dependency.CycleError.
type Container struct {
	mu       sync.Mutex
	bindings []*binding
	created  []any
	active   bool
	closed   bool

	graph *dependency.Graph
}

// New returns an empty container.
func New() *Container {
	return &Container{graph: dependency.New()}
}

func (c *Container) add(b *binding) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return service.ErrDestroyed
	}
	c.bindings = append(c.bindings, b)
	return nil
}

// LoadModules runs each Module against a Binder for this container.
func (c *Container) LoadModules(modules ...any) error {
	binder := &Binder{c: c}
	for i, m := range modules {
		var err error
		switch mod := m.(type) {
		case Module:
			err = mod(binder)
		case func(*Binder) error:
			err = mod(binder)
		default:
			return fmt.Errorf("module %d: unsupported module type %T", i, m)
		}
		if err != nil {
			return fmt.Errorf("module %d: %w", i, err)
		}
	}
	return nil
}

// RegisterConstant binds value natively so other providers can depend on it.
func (c *Container) RegisterConstant(value any, contract reflect.Type, name string) error {
	return c.add(&binding{
		contract: contract,
		name:     name,
		provider: func(service.Resolver) (any, error) { return value, nil },
	})
}

// Activate marks the container ready.
func (c *Container) Activate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return service.ErrDestroyed
	}
	c.active = true
	return nil
}

// Lookup resolves q. Unnamed lookups with several candidates prefer the
// single unnamed binding; anything else ambiguous is rejected.
func (c *Container) Lookup(r service.Resolver, q service.Query) (any, error) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil, service.ErrNotInitialized
	}
	var candidates []*binding
	for _, b := range c.bindings {
		if b.matches(q) {
			candidates = append(candidates, b)
		}
	}
	c.mu.Unlock()

	if len(candidates) > 1 && q.Name == "" {
		var unnamed []*binding
		for _, b := range candidates {
			if b.name == "" {
				unnamed = append(unnamed, b)
			}
		}
		if len(unnamed) == 1 {
			candidates = unnamed
		}
	}

	switch len(candidates) {
	case 0:
		return nil, &service.NotFoundError{Contract: q.Contract, Name: q.Name}
	case 1:
		return c.instantiate(r, candidates[0])
	default:
		labels := make([]string, 0, len(candidates))
		for _, b := range candidates {
			labels = append(labels, b.label())
		}
		return nil, &service.AmbiguousError{Contract: q.Contract, Candidates: labels}
	}
}

func (c *Container) instantiate(r service.Resolver, b *binding) (any, error) {
	r = tracking{Resolver: r, graph: c.graph, from: b.node()}
	if b.transient {
		return b.provider(r)
	}
	b.once.Do(func() {
		b.value, b.err = b.provider(r)
		if b.err == nil {
			c.mu.Lock()
			c.created = append(c.created, b.value)
			c.mu.Unlock()
		}
	})
	if b.err != nil {
		return nil, fmt.Errorf("failed to construct %s: %w", b.label(), b.err)
	}
	return b.value, nil
}

// Close closes every created singleton implementing io.Closer, newest first.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.active = false
	created := c.created
	c.created = nil
	c.mu.Unlock()

	var errs []error
	for i := len(created) - 1; i >= 0; i-- {
		if closer, ok := created[i].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// tracking records the dependencies of one binding while its provider runs,
// rejecting a lookup that would close a cycle before it can recurse.
type tracking struct {
	service.Resolver
	graph *dependency.Graph
	from  dependency.NodeID
}

func (t tracking) GetService(contract reflect.Type, qualifiers ...service.Qualifier) (any, error) {
	if contract != nil {
		if err := t.graph.CheckEdge(t.from, queryNode(contract, qualifiers)); err != nil {
			return nil, err
		}
	}
	return t.Resolver.GetService(contract, qualifiers...)
}

// queryNode names a lookup the way binding.label names a binding. Only the
// default name marker is understood.
func queryNode(contract reflect.Type, qualifiers []service.Qualifier) dependency.NodeID {
	for _, q := range qualifiers {
		if q.Type == descriptor.MarkerNamed {
			return dependency.NodeID(fmt.Sprintf("%s(%s)", contract, q.Value))
		}
	}
	return dependency.NodeID(contract.String())
}
