package proxy

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"testrig/pkg/logging"
)

// ErrNotSupported is returned for contracts that cannot be proxied: concrete
// types, and interfaces without a registered forwarder.
var ErrNotSupported = errors.New("contract cannot be proxied")

// DispatchError is the failure of a single forwarded call whose supplier had
// no delegate to offer.
type DispatchError struct {
	Contract reflect.Type
	Reason   string
}

func (e *DispatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("deferred %v: %s", e.Contract, e.Reason)
	}
	return fmt.Sprintf("deferred %v: no delegate available", e.Contract)
}

// IsDispatchError checks if an error is or wraps a DispatchError.
func IsDispatchError(err error) bool {
	var dispatchErr *DispatchError
	return errors.As(err, &dispatchErr)
}

// Supplier yields the current delegate, or false when none exists yet.
type Supplier func() (any, bool)

// Deferred is handed to forwarders. Every call re-invokes the supplier.
type Deferred[T any] struct {
	contract reflect.Type
	supplier Supplier
}

// Resolve returns the current delegate.
func (d *Deferred[T]) Resolve() (T, error) {
	var zero T
	v, ok := d.supplier()
	if !ok || v == nil {
		return zero, &DispatchError{Contract: d.contract}
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &DispatchError{Contract: d.contract, Reason: fmt.Sprintf("delegate of type %T does not implement it", v)}
	}
	return typed, nil
}

// Delegate returns the current delegate and panics with a *DispatchError when
// there is none. Forwarding methods without an error result use it.
func (d *Deferred[T]) Delegate() T {
	v, err := d.Resolve()
	if err != nil {
		logging.Debug("Proxy", "Dispatch failed: %v", err)
		panic(err)
	}
	return v
}

type factory func(s Supplier) any

// Binder creates deferred-binding instances for interface contracts that have
// a registered forwarder, and for func contracts.
type Binder struct {
	mu         sync.RWMutex
	forwarders map[reflect.Type]factory
}

// NewBinder returns a Binder with the built-in forwarders registered.
func NewBinder() *Binder {
	b := &Binder{forwarders: make(map[reflect.Type]factory)}
	registerBuiltins(b)
	return b
}

// Register installs fwd as the forwarding wrapper for interface T, replacing
// any earlier forwarder.
func Register[T any](b *Binder, fwd func(d *Deferred[T]) T) error {
	contract := reflect.TypeFor[T]()
	if contract.Kind() != reflect.Interface {
		return fmt.Errorf("%w: %v is not an interface", ErrNotSupported, contract)
	}
	if fwd == nil {
		return fmt.Errorf("nil forwarder for %v", contract)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarders[contract] = func(s Supplier) any {
		return fwd(&Deferred[T]{contract: contract, supplier: s})
	}
	return nil
}

// Supports reports whether CreateDeferred can handle contract.
func (b *Binder) Supports(contract reflect.Type) bool {
	if contract == nil {
		return false
	}
	switch contract.Kind() {
	case reflect.Func:
		return true
	case reflect.Interface:
		b.mu.RLock()
		defer b.mu.RUnlock()
		_, ok := b.forwarders[contract]
		return ok
	default:
		return false
	}
}

// CreateDeferred returns an instance of contract forwarding every call to
// whatever supplier yields at call time.
func (b *Binder) CreateDeferred(contract reflect.Type, supplier Supplier) (any, error) {
	if supplier == nil {
		return nil, fmt.Errorf("deferred %v requires a supplier", contract)
	}
	if contract == nil {
		return nil, fmt.Errorf("%w: nil contract", ErrNotSupported)
	}

	switch contract.Kind() {
	case reflect.Func:
		return makeFunc(contract, supplier).Interface(), nil
	case reflect.Interface:
		b.mu.RLock()
		fwd, ok := b.forwarders[contract]
		b.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: no forwarder registered for %v", ErrNotSupported, contract)
		}
		return fwd(supplier), nil
	default:
		return nil, fmt.Errorf("%w: %v is a concrete %s type", ErrNotSupported, contract, contract.Kind())
	}
}

// Create is the typed form of CreateDeferred.
func Create[T any](b *Binder, supplier func() (T, bool)) (T, error) {
	var zero T
	v, err := b.CreateDeferred(reflect.TypeFor[T](), func() (any, bool) {
		return supplier()
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// makeFunc builds a func of type contract that looks up its delegate on
// every call.
func makeFunc(contract reflect.Type, supplier Supplier) reflect.Value {
	return reflect.MakeFunc(contract, func(args []reflect.Value) []reflect.Value {
		v, ok := supplier()
		if !ok || v == nil {
			panic(&DispatchError{Contract: contract})
		}
		fn := reflect.ValueOf(v)
		if !fn.Type().AssignableTo(contract) {
			panic(&DispatchError{Contract: contract, Reason: fmt.Sprintf("delegate of type %T is not assignable", v)})
		}
		if contract.IsVariadic() {
			return fn.CallSlice(args)
		}
		return fn.Call(args)
	})
}
