package descriptor

import (
	"context"
	"fmt"
	"reflect"
)

var (
	errorType   = reflect.TypeFor[error]()
	contextType = reflect.TypeFor[context.Context]()
	anySlice    = reflect.TypeFor[[]any]()
)

// MethodDescriptor references a method on the test instance by name.
type MethodDescriptor struct {
	name string
}

// NewMethodDescriptor returns a descriptor for the method called name.
func NewMethodDescriptor(name string) MethodDescriptor {
	return MethodDescriptor{name: name}
}

// Name returns the method name.
func (m MethodDescriptor) Name() string { return m.name }

// Invoke calls the method on target through reflection and returns its
// non-error results. A single []any result is flattened. The method may take
// no arguments or a single context.Context.
func (m MethodDescriptor) Invoke(ctx context.Context, target any) ([]any, error) {
	method, err := m.lookup(target)
	if err != nil {
		return nil, err
	}

	mt := method.Type()
	var in []reflect.Value
	switch {
	case mt.NumIn() == 0:
	case mt.NumIn() == 1 && mt.In(0) == contextType:
		in = []reflect.Value{reflect.ValueOf(ctx)}
	default:
		return nil, fmt.Errorf("method %s must take no arguments or a context.Context, has %s", m.name, mt)
	}

	out := method.Call(in)
	if n := len(out); n > 0 && mt.Out(n-1) == errorType {
		if errVal := out[n-1]; !errVal.IsNil() {
			return nil, fmt.Errorf("method %s: %w", m.name, errVal.Interface().(error))
		}
		out = out[:n-1]
	}

	if len(out) == 1 && out[0].Type() == anySlice {
		values, _ := out[0].Interface().([]any)
		return append([]any(nil), values...), nil
	}

	values := make([]any, 0, len(out))
	for _, v := range out {
		values = append(values, v.Interface())
	}
	return values, nil
}

// Exists reports whether target has an exported method with this name.
func (m MethodDescriptor) Exists(target any) bool {
	_, err := m.lookup(target)
	return err == nil
}

func (m MethodDescriptor) lookup(target any) (reflect.Value, error) {
	if target == nil {
		return reflect.Value{}, fmt.Errorf("method %s: nil target", m.name)
	}
	method := reflect.ValueOf(target).MethodByName(m.name)
	if !method.IsValid() {
		return reflect.Value{}, fmt.Errorf("method %s not found on %T", m.name, target)
	}
	return method, nil
}
