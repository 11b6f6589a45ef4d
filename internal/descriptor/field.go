package descriptor

import (
	"reflect"
)

// Slot is the read-only view shared by FieldDescriptor and SutDescriptor.
type Slot interface {
	Name() string
	Index() []int
	Type() reflect.Type
	Contract() reflect.Type
	Named() (string, bool)
	Markers() []Marker
	MarkersOf(t MarkerType) []Marker
	InitHook() (string, bool)
	DestroyHook() (string, bool)
}

// SlotSpec is the mutable input used by the Builder to declare a field or the
// SUT slot. It is copied into an immutable descriptor on registration.
type SlotSpec struct {
	// Name is the Go struct field name the value is stored in.
	Name string
	// Index is the reflect field index path; when empty Name is used.
	Index []int
	// Type is the declared field type.
	Type reflect.Type
	// Contract overrides the type used for lookups. Defaults to Type.
	Contract reflect.Type
	// TypeArgs are the element types of container kinds (slice, map, chan).
	TypeArgs []reflect.Type
	// Named is an explicit binding name.
	Named string
	Markers  []Marker
	Strategy Strategy
	// Init and Destroy name methods on the field value run as lifecycle hooks.
	Init    string
	Destroy string
	// Deferred only applies to the SUT slot.
	Deferred bool
}

type slot struct {
	name     string
	index    []int
	typ      reflect.Type
	contract reflect.Type
	typeArgs []reflect.Type
	named    string
	markers  []Marker
	init     string
	destroy  string
}

func newSlot(spec SlotSpec) slot {
	s := slot{
		name:     spec.Name,
		typ:      spec.Type,
		contract: spec.Contract,
		named:    spec.Named,
		markers:  cloneMarkers(spec.Markers),
		init:     spec.Init,
		destroy:  spec.Destroy,
	}
	if len(spec.Index) > 0 {
		s.index = append([]int(nil), spec.Index...)
	}
	if len(spec.TypeArgs) > 0 {
		s.typeArgs = append([]reflect.Type(nil), spec.TypeArgs...)
	}
	// An explicit name is also visible as a marker so adapters can map it.
	if s.named != "" && len(s.markersOf(MarkerNamed)) == 0 {
		s.markers = append(s.markers, Marker{Type: MarkerNamed, Value: s.named})
	}
	return s
}

func (s slot) Name() string { return s.name }

func (s slot) Index() []int {
	if s.index == nil {
		return nil
	}
	return append([]int(nil), s.index...)
}

func (s slot) Type() reflect.Type { return s.typ }

// Contract returns the type used for service lookups.
func (s slot) Contract() reflect.Type {
	if s.contract != nil {
		return s.contract
	}
	return s.typ
}

// TypeArgs returns the element types of container kinds.
func (s slot) TypeArgs() []reflect.Type {
	if s.typeArgs == nil {
		return nil
	}
	return append([]reflect.Type(nil), s.typeArgs...)
}

func (s slot) Named() (string, bool) {
	return s.named, s.named != ""
}

func (s slot) Markers() []Marker { return cloneMarkers(s.markers) }

// MarkersOf returns the markers of type t in declaration order.
func (s slot) MarkersOf(t MarkerType) []Marker {
	return s.markersOf(t)
}

func (s slot) markersOf(t MarkerType) []Marker {
	var out []Marker
	for _, m := range s.markers {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// HasMarker reports whether a marker of type t is present.
func (s slot) HasMarker(t MarkerType) bool {
	return len(s.markersOf(t)) > 0
}

func (s slot) InitHook() (string, bool) {
	return s.init, s.init != ""
}

func (s slot) DestroyHook() (string, bool) {
	return s.destroy, s.destroy != ""
}

// FieldDescriptor represents one injectable field of the test instance.
type FieldDescriptor struct {
	slot
	strategy Strategy
}

// NewFieldDescriptor freezes spec into a FieldDescriptor.
func NewFieldDescriptor(spec SlotSpec) FieldDescriptor {
	return FieldDescriptor{slot: newSlot(spec), strategy: spec.Strategy}
}

// Strategy returns how the field is resolved.
func (f FieldDescriptor) Strategy() Strategy { return f.strategy }

// SutDescriptor represents the single system-under-test slot.
type SutDescriptor struct {
	slot
	deferred bool
}

// NewSutDescriptor freezes spec into a SutDescriptor.
func NewSutDescriptor(spec SlotSpec) SutDescriptor {
	return SutDescriptor{slot: newSlot(spec), deferred: spec.Deferred}
}

// Deferred reports whether the SUT slot is wrapped in a deferred-binding proxy.
func (s SutDescriptor) Deferred() bool { return s.deferred }

// Accepts reports whether a value of type t can be stored in the SUT slot.
func (s SutDescriptor) Accepts(t reflect.Type) bool {
	if t == nil || s.typ == nil {
		return false
	}
	return t.AssignableTo(s.typ)
}

// Compatible reports whether the slot's contract can be satisfied by t, i.e.
// t implements an interface contract or equals a concrete one.
func (s SutDescriptor) Compatible(t reflect.Type) bool {
	c := s.Contract()
	if t == nil || c == nil {
		return false
	}
	if c.Kind() == reflect.Interface {
		return t.Implements(c)
	}
	return t == c
}
