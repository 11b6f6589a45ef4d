package service

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"testrig/pkg/logging"
)

type identity struct {
	contract reflect.Type
	name     string
}

type override struct {
	value       any
	replacement bool
	seq         int
}

// facade layers overrides on top of a Native container.
type facade struct {
	native Native
	vocab  Vocabulary

	mu          sync.Mutex
	overrides   map[identity]override
	seq         int
	initialized bool
	destroyed   bool
}

// New wraps native in a Facade that understands vocab.
func New(native Native, vocab Vocabulary) Facade {
	return &facade{
		native:    native,
		vocab:     vocab,
		overrides: make(map[identity]override),
	}
}

func (f *facade) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized && !f.destroyed
}

func (f *facade) Init(ctx context.Context) error {
	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return ErrDestroyed
	}
	if f.initialized {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	if err := f.native.Activate(ctx); err != nil {
		return fmt.Errorf("failed to activate container: %w", err)
	}

	f.mu.Lock()
	f.initialized = true
	f.mu.Unlock()
	return nil
}

func (f *facade) AddModules(modules ...any) error {
	f.mu.Lock()
	switch {
	case f.destroyed:
		f.mu.Unlock()
		return ErrDestroyed
	case f.initialized:
		f.mu.Unlock()
		return ErrAlreadyInitialized
	}
	f.mu.Unlock()

	return f.native.LoadModules(modules...)
}

func (f *facade) AddConstant(inst Instance) error {
	id, err := identityOf(inst)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return ErrDestroyed
	}
	if existing, ok := f.overrides[id]; ok && existing.replacement {
		f.mu.Unlock()
		logging.Debug("Facade", "Constant %s is shadowed by an earlier replacement", inst)
		return nil
	}
	f.seq++
	f.overrides[id] = override{value: inst.Value, seq: f.seq}
	f.mu.Unlock()

	if registrar, ok := f.native.(ConstantRegistrar); ok {
		if err := registrar.RegisterConstant(inst.Value, id.contract, id.name); err != nil {
			return fmt.Errorf("failed to register constant %s: %w", inst, err)
		}
	}
	return nil
}

func (f *facade) Replace(inst Instance) error {
	id, err := identityOf(inst)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return ErrDestroyed
	}
	f.seq++
	f.overrides[id] = override{value: inst.Value, replacement: true, seq: f.seq}
	logging.Debug("Facade", "Replaced %s", inst)
	return nil
}

// GetService resolves contract in three steps: an override with the exact
// (contract, name) identity, then the unnamed override for the contract (or,
// for unnamed lookups, the most recent override of any name), then the native
// container.
func (f *facade) GetService(contract reflect.Type, qualifiers ...Qualifier) (any, error) {
	if contract == nil {
		return nil, fmt.Errorf("lookup requires a contract type")
	}
	q := f.translate(contract, qualifiers)

	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return nil, ErrDestroyed
	}
	if v, ok := f.matchOverride(q); ok {
		f.mu.Unlock()
		return v, nil
	}
	initialized := f.initialized
	f.mu.Unlock()

	if !initialized {
		return nil, ErrNotInitialized
	}
	// The lock is released so native providers can resolve through f.
	return f.native.Lookup(f, q)
}

func (f *facade) matchOverride(q Query) (any, bool) {
	if q.Name != "" {
		if o, ok := f.overrides[identity{contract: q.Contract, name: q.Name}]; ok {
			return o.value, true
		}
	}
	if o, ok := f.overrides[identity{contract: q.Contract}]; ok {
		return o.value, true
	}
	if q.Name != "" {
		// A differently named override never satisfies a named lookup.
		return nil, false
	}

	var (
		best  override
		found bool
	)
	for id, o := range f.overrides {
		if id.contract == q.Contract && (!found || o.seq > best.seq) {
			best, found = o, true
		}
	}
	return best.value, found
}

// translate maps qualifiers onto the backing container's vocabulary.
// Qualifiers of unknown marker types are dropped.
func (f *facade) translate(contract reflect.Type, qualifiers []Qualifier) Query {
	q := Query{Contract: contract}
	for _, qual := range qualifiers {
		switch {
		case f.vocab.Name.Has(qual.Type):
			q.Name = qual.Value
		case f.vocab.Custom.Has(qual.Type):
			q.Custom = append(q.Custom, qual)
		default:
			logging.Debug("Facade", "Ignoring qualifier %s=%s unknown to this container", qual.Type, qual.Value)
		}
	}
	return q
}

func (f *facade) NameQualifiers() MarkerSet {
	return append(MarkerSet(nil), f.vocab.Name...)
}

func (f *facade) CustomQualifiers() MarkerSet {
	return append(MarkerSet(nil), f.vocab.Custom...)
}

func (f *facade) Destroy(ctx context.Context) error {
	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return nil
	}
	f.destroyed = true
	f.overrides = make(map[identity]override)
	f.mu.Unlock()

	if err := f.native.Close(ctx); err != nil {
		return fmt.Errorf("failed to close container: %w", err)
	}
	return nil
}

func identityOf(inst Instance) (identity, error) {
	contract := inst.ContractType()
	if contract == nil {
		return identity{}, fmt.Errorf("instance %q has neither a value nor a contract", inst.Name)
	}
	if inst.Value != nil && !reflect.TypeOf(inst.Value).AssignableTo(contract) {
		return identity{}, fmt.Errorf("value of type %T does not satisfy contract %v", inst.Value, contract)
	}
	return identity{contract: contract, name: inst.Name}, nil
}
