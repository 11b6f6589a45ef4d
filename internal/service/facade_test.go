package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testrig/internal/descriptor"
)

type greeter interface {
	Greet() string
}

type staticGreeter string

func (g staticGreeter) Greet() string { return string(g) }

// mockNative records calls and serves bindings keyed by contract and name.
type mockNative struct {
	bindings   map[identity]any
	constants  []Instance
	modules    []any
	activated  int
	closed     int
	lastQuery  Query
	closeErr   error
	activeErr  error
	resolveDep bool
}

func newMockNative() *mockNative {
	return &mockNative{bindings: make(map[identity]any)}
}

func (m *mockNative) Lookup(r Resolver, q Query) (any, error) {
	m.lastQuery = q
	if m.resolveDep {
		// Simulates a provider that depends on another greeter.
		dep, err := r.GetService(reflect.TypeFor[greeter](), Named("dep"))
		if err != nil {
			return nil, err
		}
		return staticGreeter("wrapped " + dep.(greeter).Greet()), nil
	}
	if v, ok := m.bindings[identity{contract: q.Contract, name: q.Name}]; ok {
		return v, nil
	}
	return nil, &NotFoundError{Contract: q.Contract, Name: q.Name}
}

func (m *mockNative) LoadModules(modules ...any) error {
	m.modules = append(m.modules, modules...)
	return nil
}

func (m *mockNative) Activate(context.Context) error {
	m.activated++
	return m.activeErr
}

func (m *mockNative) Close(context.Context) error {
	m.closed++
	return m.closeErr
}

func (m *mockNative) RegisterConstant(value any, contract reflect.Type, name string) error {
	m.constants = append(m.constants, Instance{Value: value, Contract: contract, Name: name})
	return nil
}

var greeterType = reflect.TypeFor[greeter]()

func newInitializedFacade(t *testing.T, native *mockNative) Facade {
	t.Helper()
	f := New(native, DefaultVocabulary())
	require.NoError(t, f.Init(context.Background()))
	return f
}

func TestReplaceShadowsNativeBinding(t *testing.T) {
	native := newMockNative()
	native.bindings[identity{contract: greeterType, name: "x"}] = staticGreeter("native")
	f := newInitializedFacade(t, native)

	require.NoError(t, f.Replace(Instance{Value: staticGreeter("override"), Name: "x", Contract: greeterType}))

	got, err := f.GetService(greeterType, Named("x"))
	require.NoError(t, err)
	assert.Equal(t, staticGreeter("override"), got)
}

func TestNamedOverrideWinsOverUnnamed(t *testing.T) {
	native := newMockNative()
	native.bindings[identity{contract: greeterType, name: "name"}] = staticGreeter("native")
	f := newInitializedFacade(t, native)

	require.NoError(t, f.Replace(Of[greeter](staticGreeter("unnamed"), "")))
	require.NoError(t, f.Replace(Of[greeter](staticGreeter("named"), "name")))

	got, err := Get[greeter](f, Named("name"))
	require.NoError(t, err)
	assert.Equal(t, "named", got.Greet())

	got, err = Get[greeter](f)
	require.NoError(t, err)
	assert.Equal(t, "unnamed", got.Greet())
}

func TestOverrideResolutionOrder(t *testing.T) {
	tests := []struct {
		name      string
		overrides []Instance
		lookup    []Qualifier
		want      string
	}{
		{
			name:      "unnamed override serves named lookup",
			overrides: []Instance{Of[greeter](staticGreeter("unnamed"), "")},
			lookup:    []Qualifier{Named("other")},
			want:      "unnamed",
		},
		{
			name:      "differently named override falls through to native",
			overrides: []Instance{Of[greeter](staticGreeter("a"), "a")},
			lookup:    []Qualifier{Named("b")},
			want:      "native b",
		},
		{
			name: "unnamed lookup takes most recent named override",
			overrides: []Instance{
				Of[greeter](staticGreeter("first"), "a"),
				Of[greeter](staticGreeter("second"), "b"),
			},
			want: "second",
		},
		{
			name: "later registration in batch shadows earlier",
			overrides: []Instance{
				Of[greeter](staticGreeter("first"), "a"),
				Of[greeter](staticGreeter("second"), "a"),
			},
			lookup: []Qualifier{Named("a")},
			want:   "second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			native := newMockNative()
			native.bindings[identity{contract: greeterType, name: "b"}] = staticGreeter("native b")
			f := newInitializedFacade(t, native)
			for _, o := range tt.overrides {
				require.NoError(t, f.Replace(o))
			}

			got, err := Get[greeter](f, tt.lookup...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Greet())
		})
	}
}

func TestAddConstantDoesNotBeatReplacement(t *testing.T) {
	native := newMockNative()
	f := newInitializedFacade(t, native)

	require.NoError(t, f.Replace(Of[greeter](staticGreeter("replacement"), "x")))
	require.NoError(t, f.AddConstant(Of[greeter](staticGreeter("constant"), "x")))

	got, err := Get[greeter](f, Named("x"))
	require.NoError(t, err)
	assert.Equal(t, "replacement", got.Greet())
	assert.Empty(t, native.constants, "shadowed constants are not pushed natively")
}

func TestAddConstantRegistersNatively(t *testing.T) {
	native := newMockNative()
	f := newInitializedFacade(t, native)

	require.NoError(t, f.AddConstant(Instance{Value: staticGreeter("c")}))
	require.Len(t, native.constants, 1)
	assert.Equal(t, reflect.TypeFor[staticGreeter](), native.constants[0].Contract)

	got, err := f.GetService(reflect.TypeFor[staticGreeter]())
	require.NoError(t, err)
	assert.Equal(t, staticGreeter("c"), got)
}

func TestInstanceValidation(t *testing.T) {
	f := newInitializedFacade(t, newMockNative())

	assert.Error(t, f.Replace(Instance{}))
	assert.Error(t, f.AddConstant(Instance{Value: 42, Contract: greeterType}))
}

func TestQualifierTranslation(t *testing.T) {
	native := newMockNative()
	vocab := Vocabulary{
		Name:   MarkerSet{"id"},
		Custom: MarkerSet{"flavour"},
	}
	f := New(native, vocab)
	require.NoError(t, f.Init(context.Background()))

	_, _ = f.GetService(greeterType,
		Qualifier{Type: "id", Value: "primary"},
		Qualifier{Type: "flavour", Value: "fast"},
		Named("ignored"),
	)

	assert.Equal(t, "primary", native.lastQuery.Name)
	assert.Equal(t, []Qualifier{{Type: "flavour", Value: "fast"}}, native.lastQuery.Custom)
	assert.Equal(t, MarkerSet{"id"}, f.NameQualifiers())
	assert.Equal(t, MarkerSet{"flavour"}, f.CustomQualifiers())
}

func TestQualifiersFor(t *testing.T) {
	slot := descriptor.NewFieldDescriptor(descriptor.SlotSpec{
		Name:  "G",
		Type:  greeterType,
		Named: "primary",
		Markers: []descriptor.Marker{
			{Type: descriptor.MarkerQualifier, Value: "fast"},
			{Type: descriptor.MarkerClient},
		},
	})

	got := QualifiersFor(slot, DefaultVocabulary())
	assert.ElementsMatch(t, []Qualifier{Custom("fast"), Named("primary")}, got)
}

func TestNativeResolvesDependenciesThroughFacade(t *testing.T) {
	native := newMockNative()
	native.resolveDep = true
	f := newInitializedFacade(t, native)
	require.NoError(t, f.Replace(Of[greeter](staticGreeter("fake"), "dep")))

	got, err := f.GetService(reflect.TypeFor[staticGreeter]())
	require.NoError(t, err)
	assert.Equal(t, staticGreeter("wrapped fake"), got)
}

func TestLifecycle(t *testing.T) {
	native := newMockNative()
	f := New(native, DefaultVocabulary())
	ctx := context.Background()

	assert.False(t, f.IsRunning())
	_, err := f.GetService(greeterType)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, f.AddModules("m1"))
	require.NoError(t, f.Init(ctx))
	require.NoError(t, f.Init(ctx))
	assert.Equal(t, 1, native.activated)
	assert.True(t, f.IsRunning())
	assert.Equal(t, []any{"m1"}, native.modules)
	assert.ErrorIs(t, f.AddModules("m2"), ErrAlreadyInitialized)

	require.NoError(t, f.Destroy(ctx))
	require.NoError(t, f.Destroy(ctx))
	assert.Equal(t, 1, native.closed)
	assert.False(t, f.IsRunning())

	_, err = f.GetService(greeterType)
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.ErrorIs(t, f.Replace(Of[greeter](staticGreeter("late"), "")), ErrDestroyed)
}

func TestDestroyWithoutInit(t *testing.T) {
	native := newMockNative()
	native.closeErr = errors.New("close failed")
	f := New(native, DefaultVocabulary())

	err := f.Destroy(context.Background())
	assert.ErrorContains(t, err, "close failed")
	assert.Equal(t, 1, native.closed)
	assert.NoError(t, f.Destroy(context.Background()))
}

func TestInitFailure(t *testing.T) {
	native := newMockNative()
	native.activeErr = errors.New("no")
	f := New(native, DefaultVocabulary())

	assert.Error(t, f.Init(context.Background()))
	assert.False(t, f.IsRunning())
}

func TestGetTypeMismatch(t *testing.T) {
	f := newInitializedFacade(t, newMockNative())
	require.NoError(t, f.Replace(Instance{Value: staticGreeter("x"), Contract: reflect.TypeFor[staticGreeter]()}))

	_, err := Get[staticGreeter](f)
	require.NoError(t, err)

	_, err = Get[greeter](f)
	assert.True(t, IsNotFound(err))
}
