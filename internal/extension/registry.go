package extension

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"

	"testrig/internal/descriptor"
	"testrig/pkg/logging"
)

// Tag categorises an implementation, for example by level or guideline.
type Tag string

// Level tags. Every phase participant carries the tags of the levels it
// applies to.
const (
	TagIsolated  Tag = "level:isolated"
	TagContainer Tag = "level:container"
	TagEndToEnd  Tag = "level:e2e"
)

// AllLevels is a convenience for participants active at every level.
var AllLevels = []Tag{TagIsolated, TagContainer, TagEndToEnd}

const guidelinePrefix = "guideline:"

// GuidelineTag converts a descriptor guideline into a registry tag.
func GuidelineTag(g descriptor.Guideline) Tag {
	return Tag(guidelinePrefix + string(g))
}

// IsGuideline reports whether t was produced by GuidelineTag.
func (t Tag) IsGuideline() bool {
	return strings.HasPrefix(string(t), guidelinePrefix)
}

// Inspector validates one or more marker types found on descriptor slots.
type Inspector interface {
	Handles() []descriptor.MarkerType
	Inspect(d *descriptor.TestDescriptor, slot descriptor.Slot, m descriptor.Marker) error
}

// Entry describes one registered implementation.
type Entry struct {
	Capability reflect.Type
	Name       string
	Tags       []Tag
	Impl       any
}

// HasTags reports whether the entry carries every tag.
func (e Entry) HasTags(tags ...Tag) bool {
	for _, t := range tags {
		if !slices.Contains(e.Tags, t) {
			return false
		}
	}
	return true
}

// Registry is the process-wide catalog of capability implementations. It is
// built once, sealed, and read concurrently afterwards.
type Registry struct {
	mu         sync.RWMutex
	entries    []Entry
	sealed     bool
	inspectors map[descriptor.MarkerType]Inspector
}

// New creates an empty, unsealed registry.
func New() *Registry {
	return &Registry{}
}

// Register adds impl as an implementation of capability C under name.
// C must be an interface type and names must be unique per capability.
func Register[C any](r *Registry, name string, impl C, tags ...Tag) error {
	capability := reflect.TypeFor[C]()
	if capability.Kind() != reflect.Interface {
		return fmt.Errorf("capability %s is not an interface", capability)
	}
	if name == "" {
		return fmt.Errorf("%s implementation has empty name", capability)
	}
	if v := reflect.ValueOf(impl); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return fmt.Errorf("cannot register nil %s implementation %s", capability, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	for _, e := range r.entries {
		if e.Capability == capability && e.Name == name {
			return fmt.Errorf("%s implementation %s already registered", capability, name)
		}
	}

	r.entries = append(r.entries, Entry{
		Capability: capability,
		Name:       name,
		Tags:       slices.Clone(tags),
		Impl:       impl,
	})
	return nil
}

// MustRegister is Register for catalog assembly code; it panics on error.
func MustRegister[C any](r *Registry, name string, impl C, tags ...Tag) {
	if err := Register(r, name, impl, tags...); err != nil {
		panic(err)
	}
}

// Seal freezes the catalog and builds the marker-to-inspector map. Two
// inspectors claiming the same marker type is a configuration error and leaves
// the registry unsealed.
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil
	}

	inspectors := make(map[descriptor.MarkerType]Inspector)
	owners := make(map[descriptor.MarkerType]string)
	for _, e := range r.entries {
		if e.Capability != reflect.TypeFor[Inspector]() {
			continue
		}
		inspector := e.Impl.(Inspector)
		for _, mt := range inspector.Handles() {
			if owner, taken := owners[mt]; taken {
				return NewConfigurationError("marker type %q is claimed by inspectors %s and %s", mt, owner, e.Name)
			}
			owners[mt] = e.Name
			inspectors[mt] = inspector
		}
	}

	r.inspectors = inspectors
	r.sealed = true
	logging.Debug("Registry", "Sealed catalog with %d entries and %d inspected marker types", len(r.entries), len(inspectors))
	return nil
}

// Sealed reports whether Seal succeeded.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// InspectorFor returns the inspector handling marker type t. Only available
// after sealing.
func (r *Registry) InspectorFor(t descriptor.MarkerType) (Inspector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.inspectors[t]
	return i, ok
}

// Entries returns all entries sorted by capability then discovery order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := slices.Clone(r.entries)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Capability.String() < out[j].Capability.String()
	})
	return out
}

func (r *Registry) matching(capability reflect.Type, tags []Tag) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.entries {
		if e.Capability == capability && e.HasTags(tags...) {
			out = append(out, e)
		}
	}
	return out
}

// FindAll returns every implementation of C in discovery order.
func FindAll[C any](r *Registry) []C {
	return FindAllFiltered[C](r)
}

// FindAllFiltered returns the implementations of C tagged with every tag.
func FindAllFiltered[C any](r *Registry, tags ...Tag) []C {
	entries := r.matching(reflect.TypeFor[C](), tags)
	out := make([]C, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Impl.(C))
	}
	return out
}

// Lookup returns the implementation of C registered under name.
func Lookup[C any](r *Registry, name string) (C, bool) {
	for _, e := range r.matching(reflect.TypeFor[C](), nil) {
		if e.Name == name {
			return e.Impl.(C), true
		}
	}
	var zero C
	return zero, false
}

// GetOne returns exactly one implementation of C. A non-empty override name
// takes precedence over tag filtering and must exist. Otherwise the first
// implementation carrying every tag is returned.
func GetOne[C any](r *Registry, override string, tags ...Tag) (C, error) {
	var zero C
	capability := reflect.TypeFor[C]()

	if override != "" {
		impl, ok := Lookup[C](r, override)
		if !ok {
			return zero, NewConfigurationError("hint references unknown %s implementation %q", capability, override)
		}
		return impl, nil
	}

	entries := r.matching(capability, tags)
	if len(entries) == 0 {
		return zero, &NotFoundError{Capability: capability.String(), Tags: slices.Clone(tags)}
	}
	if len(entries) > 1 {
		logging.Debug("Registry", "%d %s implementations match %v, using %s", len(entries), capability, tags, entries[0].Name)
	}
	return entries[0].Impl.(C), nil
}

// FindAllForGuidelines returns the implementations of C tagged with every
// required tag that are either guideline-neutral (no guideline tag) or tagged
// with one of guidelines.
func FindAllForGuidelines[C any](r *Registry, required []Tag, guidelines []Tag) []C {
	entries := r.matching(reflect.TypeFor[C](), required)
	out := make([]C, 0, len(entries))
	for _, e := range entries {
		own := slices.DeleteFunc(slices.Clone(e.Tags), func(t Tag) bool { return !t.IsGuideline() })
		if len(own) > 0 && !slices.ContainsFunc(own, func(t Tag) bool { return slices.Contains(guidelines, t) }) {
			continue
		}
		out = append(out, e.Impl.(C))
	}
	return out
}
