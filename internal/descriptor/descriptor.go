package descriptor

import (
	"reflect"
	"slices"
)

// Well-known property names.
const (
	PropModules              = "modules"
	PropScans                = "scans"
	PropRequiresContainers   = "requiresContainers"
	PropCollaboratorProvider = "collaboratorProvider"
)

// Hint selects provider implementations by name instead of relying on
// tag-based discovery. Empty fields mean "no override".
type Hint struct {
	Container string
	Server    string
	Client    string
	Fakes     string
}

// IsZero reports whether the hint overrides nothing.
func (h Hint) IsZero() bool {
	return h == Hint{}
}

// TestDescriptor is the immutable structural view of a test type. It is safe
// to share between goroutines and to cache per type.
type TestDescriptor struct {
	typ        reflect.Type
	properties map[string]any
	fields     []FieldDescriptor
	sut        *SutDescriptor
	hint       *Hint
	guidelines []Guideline
}

// Type returns the test struct type.
func (d *TestDescriptor) Type() reflect.Type { return d.typ }

// Property returns the named property. Slice values are copied.
func (d *TestDescriptor) Property(name string) (any, bool) {
	v, ok := d.properties[name]
	return cloneValue(v), ok
}

// Properties returns a copy of all properties.
func (d *TestDescriptor) Properties() map[string]any {
	out := make(map[string]any, len(d.properties))
	for k, v := range d.properties {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case []any:
		return slices.Clone(v)
	case []string:
		return slices.Clone(v)
	}
	return v
}

// Modules returns the configuration units handed to the container adapter.
func (d *TestDescriptor) Modules() []any {
	v, _ := d.properties[PropModules].([]any)
	return append([]any(nil), v...)
}

// Scans returns the names of module sets the adapter should load.
func (d *TestDescriptor) Scans() []string {
	v, _ := d.properties[PropScans].([]string)
	return append([]string(nil), v...)
}

// RequiredContainers returns the resource names that must be started.
func (d *TestDescriptor) RequiredContainers() []string {
	v, _ := d.properties[PropRequiresContainers].([]string)
	return append([]string(nil), v...)
}

// CollaboratorProvider returns the method supplying initial collaborators.
func (d *TestDescriptor) CollaboratorProvider() (MethodDescriptor, bool) {
	name, _ := d.properties[PropCollaboratorProvider].(string)
	if name == "" {
		return MethodDescriptor{}, false
	}
	return NewMethodDescriptor(name), true
}

// Fields returns the field descriptors in declaration order.
func (d *TestDescriptor) Fields() []FieldDescriptor {
	return append([]FieldDescriptor(nil), d.fields...)
}

// Field returns the field descriptor with the given name.
func (d *TestDescriptor) Field(name string) (FieldDescriptor, bool) {
	for _, f := range d.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Sut returns the SUT descriptor when one was declared.
func (d *TestDescriptor) Sut() (SutDescriptor, bool) {
	if d.sut == nil {
		return SutDescriptor{}, false
	}
	return *d.sut, true
}

// Hint returns the explicit provider overrides when declared.
func (d *TestDescriptor) Hint() (Hint, bool) {
	if d.hint == nil {
		return Hint{}, false
	}
	return *d.hint, true
}

// Guidelines returns the verifier guideline markers.
func (d *TestDescriptor) Guidelines() []Guideline {
	return append([]Guideline(nil), d.guidelines...)
}

// Slots returns the fields followed by the SUT slot, if any.
func (d *TestDescriptor) Slots() []Slot {
	out := make([]Slot, 0, len(d.fields)+1)
	for _, f := range d.fields {
		out = append(out, f)
	}
	if d.sut != nil {
		out = append(out, *d.sut)
	}
	return out
}

// Extractor builds descriptors from test types.
type Extractor interface {
	Extract(t reflect.Type) (*TestDescriptor, error)
}
