package lifecycle

import (
	"fmt"
	"reflect"
	"sync"

	"testrig/internal/extension"
)

// fake generates a stand-in for contract with the hinted fake factory or,
// without a hint, the first factory of the level that can fake it.
func (rc *Context) fake(contract reflect.Type) (any, error) {
	hint, _ := rc.Descriptor().Hint()

	var factories []FakeFactory
	if hint.Fakes != "" {
		f, err := extension.GetOne[FakeFactory](rc.Registry(), hint.Fakes)
		if err != nil {
			return nil, err
		}
		factories = []FakeFactory{f}
	} else {
		factories = extension.FindAllFiltered[FakeFactory](rc.Registry(), rc.Level().Tag())
	}

	for _, f := range factories {
		v, ok, err := f.Fake(contract)
		if err != nil {
			return nil, fmt.Errorf("failed to fake %v: %w", contract, err)
		}
		if ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no fake factory can fake %v", contract)
}

// ZeroFakeFactory fakes contracts that have a usable zero value: pointers to
// structs get a fresh zero struct, funcs return zero values, maps, slices
// and channels are empty.
type ZeroFakeFactory struct{}

func (ZeroFakeFactory) Fake(contract reflect.Type) (any, bool, error) {
	if contract == nil {
		return nil, false, nil
	}
	switch contract.Kind() {
	case reflect.Pointer:
		if contract.Elem().Kind() != reflect.Struct {
			return nil, false, nil
		}
		return reflect.New(contract.Elem()).Interface(), true, nil
	case reflect.Func:
		fn := reflect.MakeFunc(contract, func([]reflect.Value) []reflect.Value {
			out := make([]reflect.Value, contract.NumOut())
			for i := range out {
				out[i] = reflect.Zero(contract.Out(i))
			}
			return out
		})
		return fn.Interface(), true, nil
	case reflect.Map:
		return reflect.MakeMap(contract).Interface(), true, nil
	case reflect.Slice:
		return reflect.MakeSlice(contract, 0, 0).Interface(), true, nil
	case reflect.Chan:
		ch := reflect.MakeChan(reflect.ChanOf(reflect.BothDir, contract.Elem()), 0)
		return ch.Convert(contract).Interface(), true, nil
	case reflect.Interface:
		return nil, false, nil
	default:
		return reflect.New(contract).Elem().Interface(), true, nil
	}
}

// FuncFakeFactory fakes contracts with constructors registered per contract.
type FuncFakeFactory struct {
	mu           sync.RWMutex
	constructors map[reflect.Type]func() any
}

// NewFuncFakeFactory returns an empty factory.
func NewFuncFakeFactory() *FuncFakeFactory {
	return &FuncFakeFactory{constructors: make(map[reflect.Type]func() any)}
}

// AddFake registers fn as the constructor of fakes of T.
func AddFake[T any](f *FuncFakeFactory, fn func() T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[reflect.TypeFor[T]()] = func() any { return fn() }
}

func (f *FuncFakeFactory) Fake(contract reflect.Type) (any, bool, error) {
	f.mu.RLock()
	fn, ok := f.constructors[contract]
	f.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	v := fn()
	if v == nil || isNil(reflect.ValueOf(v)) {
		return nil, false, fmt.Errorf("constructor returned nil")
	}
	return v, true, nil
}
