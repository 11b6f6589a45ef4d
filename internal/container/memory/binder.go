package memory

import (
	"fmt"
	"reflect"

	"testrig/internal/service"
)

// Binder is handed to modules to declare bindings.
type Binder struct {
	c *Container
}

// Option adjusts a binding.
type Option func(*binding)

// WithName binds under an explicit name.
func WithName(name string) Option {
	return func(b *binding) { b.name = name }
}

// WithQualifier adds a custom qualifier value.
func WithQualifier(value string) Option {
	return func(b *binding) { b.qualifiers = append(b.qualifiers, value) }
}

// Transient builds a fresh value on every lookup.
func Transient() Option {
	return func(b *binding) { b.transient = true }
}

// Bind declares a provider for contract.
func (b *Binder) Bind(contract reflect.Type, p Provider, opts ...Option) error {
	if contract == nil || p == nil {
		return fmt.Errorf("binding requires a contract and a provider")
	}
	bd := &binding{contract: contract, provider: p}
	for _, opt := range opts {
		opt(bd)
	}
	return b.c.add(bd)
}

// Provide binds T to a typed constructor.
func Provide[T any](b *Binder, fn func(r service.Resolver) (T, error), opts ...Option) error {
	return b.Bind(reflect.TypeFor[T](), func(r service.Resolver) (any, error) {
		return fn(r)
	}, opts...)
}

// Value binds T to a fixed value.
func Value[T any](b *Binder, v T, opts ...Option) error {
	return b.Bind(reflect.TypeFor[T](), func(service.Resolver) (any, error) {
		return v, nil
	}, opts...)
}
