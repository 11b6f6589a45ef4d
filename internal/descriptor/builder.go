package descriptor

import (
	"errors"
	"reflect"
	"slices"
)

var (
	// ErrBuilderUsed is returned when Build is called more than once.
	ErrBuilderUsed = errors.New("descriptor builder already used")
	// ErrMultipleSut is returned when more than one SUT slot is declared.
	ErrMultipleSut = errors.New("test type declares more than one SUT")
)

// Builder assembles a TestDescriptor. It is single use.
type Builder struct {
	d    *TestDescriptor
	errs []error
	used bool
}

// NewBuilder starts a descriptor for the test type t.
func NewBuilder(t reflect.Type) *Builder {
	return &Builder{
		d: &TestDescriptor{
			typ:        t,
			properties: make(map[string]any),
		},
	}
}

// Property sets an arbitrary property.
func (b *Builder) Property(name string, value any) *Builder {
	b.d.properties[name] = value
	return b
}

// Module appends configuration units for the container adapter.
func (b *Builder) Module(modules ...any) *Builder {
	existing, _ := b.d.properties[PropModules].([]any)
	b.d.properties[PropModules] = append(existing, modules...)
	return b
}

// Scan appends names of module sets to load.
func (b *Builder) Scan(names ...string) *Builder {
	existing, _ := b.d.properties[PropScans].([]string)
	b.d.properties[PropScans] = append(existing, names...)
	return b
}

// RequireContainer appends resource names that must be started.
func (b *Builder) RequireContainer(names ...string) *Builder {
	existing, _ := b.d.properties[PropRequiresContainers].([]string)
	for _, n := range names {
		if !slices.Contains(existing, n) {
			existing = append(existing, n)
		}
	}
	b.d.properties[PropRequiresContainers] = existing
	return b
}

// CollaboratorProvider names the method supplying initial collaborators.
func (b *Builder) CollaboratorProvider(method string) *Builder {
	b.d.properties[PropCollaboratorProvider] = method
	return b
}

// Field declares an injectable field.
func (b *Builder) Field(spec SlotSpec) *Builder {
	b.d.fields = append(b.d.fields, NewFieldDescriptor(spec))
	return b
}

// Sut declares the SUT slot. Declaring it twice makes Build fail.
func (b *Builder) Sut(spec SlotSpec) *Builder {
	if b.d.sut != nil {
		b.errs = append(b.errs, ErrMultipleSut)
		return b
	}
	sut := NewSutDescriptor(spec)
	b.d.sut = &sut
	return b
}

// Hint sets explicit provider overrides.
func (b *Builder) Hint(h Hint) *Builder {
	if h.IsZero() {
		b.d.hint = nil
		return b
	}
	b.d.hint = &h
	return b
}

// Guideline appends verifier guideline markers.
func (b *Builder) Guideline(g ...Guideline) *Builder {
	for _, v := range g {
		if !slices.Contains(b.d.guidelines, v) {
			b.d.guidelines = append(b.d.guidelines, v)
		}
	}
	return b
}

// Build returns the finished descriptor.
func (b *Builder) Build() (*TestDescriptor, error) {
	if b.used {
		return nil, ErrBuilderUsed
	}
	b.used = true
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	d := b.d
	b.d = nil
	return d, nil
}
