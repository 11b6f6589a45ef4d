package descriptor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface {
	Greet(name string) string
}

type store interface {
	Get(key string) string
}

type greetingTest struct {
	Greeter greeter           `rig:"sut,deferred"`
	Store   store             `rig:"fake"`
	Cache   map[string]string `rig:"real,name=primary,init=Open,destroy=Close"`
	Mailer  greeter           `rig:"virtual,qualifier=smtp"`
	Client  *struct{}         `rig:"real,client"`
	ignored int
}

func (greetingTest) ConfigureDescriptor(b *Builder) {
	b.Scan("greetings").
		RequireContainer("postgres", "postgres").
		CollaboratorProvider("Collaborators").
		Hint(Hint{Container: "memory"}).
		Guideline("wiring")
}

type plainTest struct{}

func TestBuilderBuildsPartialDescriptor(t *testing.T) {
	d, err := NewBuilder(reflect.TypeFor[plainTest]()).Build()
	require.NoError(t, err)

	_, hasSut := d.Sut()
	assert.False(t, hasSut)
	_, hasHint := d.Hint()
	assert.False(t, hasHint)
	_, hasProvider := d.CollaboratorProvider()
	assert.False(t, hasProvider)
	assert.Empty(t, d.Fields())
	assert.Empty(t, d.Modules())
	assert.Empty(t, d.Slots())
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := NewBuilder(reflect.TypeFor[plainTest]())
	_, err := b.Build()
	require.NoError(t, err)

	_, err = b.Build()
	assert.ErrorIs(t, err, ErrBuilderUsed)
}

func TestBuilderRejectsSecondSut(t *testing.T) {
	spec := SlotSpec{Name: "A", Type: reflect.TypeFor[greeter]()}
	_, err := NewBuilder(reflect.TypeFor[plainTest]()).Sut(spec).Sut(spec).Build()
	assert.ErrorIs(t, err, ErrMultipleSut)
}

func TestBuilderCopiesInputs(t *testing.T) {
	markers := []Marker{{Type: MarkerQualifier, Value: "fast"}}
	d, err := NewBuilder(reflect.TypeFor[plainTest]()).
		Field(SlotSpec{Name: "S", Type: reflect.TypeFor[store](), Markers: markers}).
		Module("a", "b").
		Build()
	require.NoError(t, err)

	markers[0].Value = "mutated"
	f, ok := d.Field("S")
	require.True(t, ok)
	assert.Equal(t, "fast", f.MarkersOf(MarkerQualifier)[0].Value)

	mods := d.Modules()
	mods[0] = "changed"
	assert.Equal(t, []any{"a", "b"}, d.Modules())
}

func TestPropertiesCannotMutateDescriptor(t *testing.T) {
	d, err := NewBuilder(reflect.TypeFor[plainTest]()).
		Module("a").
		Scan("kv").
		RequireContainer("db").
		Build()
	require.NoError(t, err)

	v, ok := d.Property(PropScans)
	require.True(t, ok)
	v.([]string)[0] = "changed"

	props := d.Properties()
	props[PropModules].([]any)[0] = "changed"
	props[PropRequiresContainers].([]string)[0] = "changed"
	props["extra"] = true

	assert.Equal(t, []string{"kv"}, d.Scans())
	assert.Equal(t, []any{"a"}, d.Modules())
	assert.Equal(t, []string{"db"}, d.RequiredContainers())
	_, ok = d.Property("extra")
	assert.False(t, ok)
}

func TestNamedBecomesMarker(t *testing.T) {
	f := NewFieldDescriptor(SlotSpec{Name: "S", Type: reflect.TypeFor[store](), Named: "primary"})

	name, ok := f.Named()
	assert.True(t, ok)
	assert.Equal(t, "primary", name)
	assert.Equal(t, []Marker{{Type: MarkerNamed, Value: "primary"}}, f.MarkersOf(MarkerNamed))
}

func TestSutCompatibility(t *testing.T) {
	type impl struct{ greeter }
	sut := NewSutDescriptor(SlotSpec{Name: "G", Type: reflect.TypeFor[greeter]()})

	assert.True(t, sut.Accepts(reflect.TypeFor[*impl]()))
	assert.True(t, sut.Compatible(reflect.TypeFor[*impl]()))
	assert.False(t, sut.Accepts(reflect.TypeFor[string]()))
	assert.False(t, sut.Accepts(nil))

	concrete := NewSutDescriptor(SlotSpec{Name: "G", Type: reflect.TypeFor[*impl](), Contract: reflect.TypeFor[greeter]()})
	assert.Equal(t, reflect.TypeFor[greeter](), concrete.Contract())
	assert.False(t, concrete.Deferred())
}

func TestTagExtractor(t *testing.T) {
	d, err := TagExtractor{}.Extract(reflect.TypeFor[*greetingTest]())
	require.NoError(t, err)

	assert.Equal(t, reflect.TypeFor[greetingTest](), d.Type())

	sut, ok := d.Sut()
	require.True(t, ok)
	assert.Equal(t, "Greeter", sut.Name())
	assert.True(t, sut.Deferred())

	fields := d.Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, []string{"Store", "Cache", "Mailer", "Client"},
		[]string{fields[0].Name(), fields[1].Name(), fields[2].Name(), fields[3].Name()})

	assert.Equal(t, StrategyFake, fields[0].Strategy())

	cache := fields[1]
	assert.Equal(t, StrategyReal, cache.Strategy())
	name, _ := cache.Named()
	assert.Equal(t, "primary", name)
	initHook, _ := cache.InitHook()
	destroyHook, _ := cache.DestroyHook()
	assert.Equal(t, "Open", initHook)
	assert.Equal(t, "Close", destroyHook)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[string](), reflect.TypeFor[string]()}, cache.TypeArgs())

	assert.Equal(t, StrategyVirtual, fields[2].Strategy())
	assert.Equal(t, "smtp", fields[2].MarkersOf(MarkerQualifier)[0].Value)
	assert.True(t, fields[3].HasMarker(MarkerClient))

	assert.Equal(t, []string{"greetings"}, d.Scans())
	assert.Equal(t, []string{"postgres"}, d.RequiredContainers())
	provider, ok := d.CollaboratorProvider()
	require.True(t, ok)
	assert.Equal(t, "Collaborators", provider.Name())
	hint, ok := d.Hint()
	require.True(t, ok)
	assert.Equal(t, "memory", hint.Container)
	assert.Equal(t, []Guideline{"wiring"}, d.Guidelines())
}

func TestExtractIsDeterministic(t *testing.T) {
	first, err := TagExtractor{}.Extract(reflect.TypeFor[greetingTest]())
	require.NoError(t, err)
	second, err := TagExtractor{}.Extract(reflect.TypeFor[greetingTest]())
	require.NoError(t, err)

	assert.Equal(t, first.Fields(), second.Fields())
	assert.Equal(t, first.Scans(), second.Scans())
	assert.Equal(t, first.Modules(), second.Modules())
	firstSut, _ := first.Sut()
	secondSut, _ := second.Sut()
	assert.Equal(t, firstSut, secondSut)
}

func TestExtractCachesPerType(t *testing.T) {
	a, err := Extract(reflect.TypeFor[greetingTest]())
	require.NoError(t, err)
	b, err := ExtractFor(&greetingTest{})
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestExtractRejectsNonStruct(t *testing.T) {
	_, err := Extract(reflect.TypeFor[int]())
	assert.Error(t, err)
}

func TestExtractRejectsUnknownStrategy(t *testing.T) {
	type badTest struct {
		S store `rig:"mock"`
	}
	_, err := TagExtractor{}.Extract(reflect.TypeFor[badTest]())
	assert.ErrorContains(t, err, `unknown strategy "mock"`)
}

type providerHost struct {
	fail bool
}

func (p *providerHost) Slice() []any { return []any{"a", 1} }

func (p *providerHost) Multi(ctx context.Context) (string, int, error) {
	if p.fail {
		return "", 0, errors.New("nope")
	}
	return "x", 2, nil
}

func (p *providerHost) WithArgs(s string) []any { return nil }

func TestMethodDescriptorInvoke(t *testing.T) {
	host := &providerHost{}
	ctx := context.Background()

	values, err := NewMethodDescriptor("Slice").Invoke(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", 1}, values)

	values, err = NewMethodDescriptor("Multi").Invoke(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, []any{"x", 2}, values)

	host.fail = true
	_, err = NewMethodDescriptor("Multi").Invoke(ctx, host)
	assert.ErrorContains(t, err, "nope")

	_, err = NewMethodDescriptor("WithArgs").Invoke(ctx, host)
	assert.Error(t, err)

	_, err = NewMethodDescriptor("Missing").Invoke(ctx, host)
	assert.Error(t, err)
	assert.False(t, NewMethodDescriptor("Missing").Exists(host))
	assert.True(t, NewMethodDescriptor("Slice").Exists(host))
}
