// Package service presents one lookup and override API over any backing
// dependency container.
package service

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"testrig/internal/descriptor"
)

// Instance is a value passed into or out of a Facade. Its identity is the
// (contract, name) pair; the contract defaults to the value's dynamic type.
type Instance struct {
	Value    any
	Name     string
	Contract reflect.Type
}

// Of builds an Instance whose contract is T.
func Of[T any](value T, name string) Instance {
	return Instance{Value: value, Name: name, Contract: reflect.TypeFor[T]()}
}

// ContractType returns the explicit contract or the value's dynamic type.
func (i Instance) ContractType() reflect.Type {
	if i.Contract != nil {
		return i.Contract
	}
	return reflect.TypeOf(i.Value)
}

func (i Instance) String() string {
	if i.Name == "" {
		return fmt.Sprintf("%v", i.ContractType())
	}
	return fmt.Sprintf("%v(%s)", i.ContractType(), i.Name)
}

// ProxyInstance announces a value that will only exist later in the
// pipeline. Supplier is consulted on every use and must not be cached.
type ProxyInstance struct {
	Contract reflect.Type
	Name     string
	Supplier func() (any, bool)
}

// Qualifier disambiguates a lookup. Whether a qualifier counts as a name or a
// custom qualifier depends on the facade's Vocabulary.
type Qualifier struct {
	Type  descriptor.MarkerType
	Value string
}

// Named returns a qualifier of the default name marker type.
func Named(name string) Qualifier {
	return Qualifier{Type: descriptor.MarkerNamed, Value: name}
}

// Custom returns a qualifier of the default custom marker type.
func Custom(value string) Qualifier {
	return Qualifier{Type: descriptor.MarkerQualifier, Value: value}
}

// QualifiersFor converts the markers of slot recognised by vocab into
// qualifiers.
func QualifiersFor(slot descriptor.Slot, vocab Vocabulary) []Qualifier {
	var out []Qualifier
	for _, m := range slot.Markers() {
		if vocab.Name.Has(m.Type) || vocab.Custom.Has(m.Type) {
			out = append(out, Qualifier{Type: m.Type, Value: m.Value})
		}
	}
	return out
}

// MarkerSet is a set of marker types.
type MarkerSet []descriptor.MarkerType

// Has reports membership.
func (s MarkerSet) Has(t descriptor.MarkerType) bool {
	return slices.Contains(s, t)
}

// Vocabulary lists which marker types a backing container treats as name
// qualifiers and which as custom qualifiers.
type Vocabulary struct {
	Name   MarkerSet
	Custom MarkerSet
}

// DefaultVocabulary recognises the built-in named and qualifier markers.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Name:   MarkerSet{descriptor.MarkerNamed},
		Custom: MarkerSet{descriptor.MarkerQualifier},
	}
}

// Query is a lookup translated into the backing container's vocabulary.
type Query struct {
	Contract reflect.Type
	Name     string
	Custom   []Qualifier
}

// Resolver resolves dependencies through the facade so that overrides are
// visible to the backing container's own dependency graph.
type Resolver interface {
	GetService(contract reflect.Type, qualifiers ...Qualifier) (any, error)
}

// Native is the adapter-specific backing container a Facade wraps.
type Native interface {
	// Lookup resolves q natively. Dependencies must be resolved through r.
	Lookup(r Resolver, q Query) (any, error)
	// LoadModules adds configuration units before activation.
	LoadModules(modules ...any) error
	// Activate makes the container ready to serve lookups.
	Activate(ctx context.Context) error
	// Close releases the container.
	Close(ctx context.Context) error
}

// ConstantRegistrar is implemented by containers that accept constant values
// as native bindings.
type ConstantRegistrar interface {
	RegisterConstant(value any, contract reflect.Type, name string) error
}

// Facade is the uniform surface over any backing container.
type Facade interface {
	Resolver

	IsRunning() bool
	// Init activates the container; it is idempotent.
	Init(ctx context.Context) error
	// AddConstant registers a value without removing native bindings.
	AddConstant(inst Instance) error
	// Replace registers a value that permanently shadows any binding with the
	// same identity.
	Replace(inst Instance) error
	// AddModules loads configuration units; only valid before Init.
	AddModules(modules ...any) error
	NameQualifiers() MarkerSet
	CustomQualifiers() MarkerSet
	// Destroy releases the container; it is idempotent.
	Destroy(ctx context.Context) error
}

// Get resolves T through f.
func Get[T any](f Resolver, qualifiers ...Qualifier) (T, error) {
	var zero T
	v, err := f.GetService(reflect.TypeFor[T](), qualifiers...)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("service %T does not implement %v", v, reflect.TypeFor[T]())
	}
	return typed, nil
}
