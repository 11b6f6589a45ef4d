package descriptor

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// TagKey is the struct tag key read by TagExtractor.
const TagKey = "rig"

// Configurer is implemented by test types that declare properties, hints and
// guidelines beyond what struct tags can express.
type Configurer interface {
	ConfigureDescriptor(b *Builder)
}

// TagExtractor builds descriptors from `rig` struct tags:
//
//	Greeter  Greeter   `rig:"sut"`
//	Store    Store     `rig:"fake"`
//	Clock    Clock     `rig:"real,name=utc"`
//	Mailer   Mailer    `rig:"virtual,qualifier=smtp,init=Open,destroy=Close"`
//	Client   *Client   `rig:"real,client"`
//
// Fields without the tag are ignored.
type TagExtractor struct{}

var cache sync.Map // reflect.Type -> *TestDescriptor

// Extract returns the cached descriptor for t, extracting it on first use.
// t may be a struct type or a pointer to one.
func Extract(t reflect.Type) (*TestDescriptor, error) {
	t = structType(t)
	if t == nil {
		return nil, fmt.Errorf("test type must be a struct or pointer to struct")
	}
	if d, ok := cache.Load(t); ok {
		return d.(*TestDescriptor), nil
	}
	d, err := TagExtractor{}.Extract(t)
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(t, d)
	return actual.(*TestDescriptor), nil
}

// ExtractFor is Extract for the type of instance.
func ExtractFor(instance any) (*TestDescriptor, error) {
	return Extract(reflect.TypeOf(instance))
}

// Extract implements Extractor without caching.
func (TagExtractor) Extract(t reflect.Type) (*TestDescriptor, error) {
	t = structType(t)
	if t == nil {
		return nil, fmt.Errorf("test type must be a struct or pointer to struct")
	}

	b := NewBuilder(t)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup(TagKey)
		if !ok || tag == "-" {
			continue
		}
		spec, isSut, err := parseTag(sf, tag)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		if isSut {
			b.Sut(spec)
		} else {
			b.Field(spec)
		}
	}

	if c, ok := reflect.New(t).Interface().(Configurer); ok {
		c.ConfigureDescriptor(b)
	}
	return b.Build()
}

func parseTag(sf reflect.StructField, tag string) (SlotSpec, bool, error) {
	spec := SlotSpec{
		Name:     sf.Name,
		Index:    sf.Index,
		Type:     sf.Type,
		TypeArgs: typeArgs(sf.Type),
	}

	parts := strings.Split(tag, ",")
	kind := strings.TrimSpace(parts[0])
	isSut := kind == "sut"
	if !isSut {
		strategy, ok := ParseStrategy(kind)
		if !ok && kind != "" {
			return spec, false, fmt.Errorf("unknown strategy %q", kind)
		}
		spec.Strategy = strategy
	}

	for _, opt := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "":
		case "name":
			spec.Named = value
		case "qualifier":
			spec.Markers = append(spec.Markers, Marker{Type: MarkerQualifier, Value: value})
		case "init":
			spec.Init = value
		case "destroy":
			spec.Destroy = value
		case "deferred":
			if !isSut {
				return spec, false, fmt.Errorf("deferred only applies to the sut")
			}
			spec.Deferred = true
		case "client":
			spec.Markers = append(spec.Markers, Marker{Type: MarkerClient})
		case "server":
			spec.Markers = append(spec.Markers, Marker{Type: MarkerServer})
		default:
			// Unknown options become markers so inspectors can validate them.
			spec.Markers = append(spec.Markers, Marker{Type: MarkerType(key), Value: value})
		}
	}
	return spec, isSut, nil
}

func typeArgs(t reflect.Type) []reflect.Type {
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Chan:
		return []reflect.Type{t.Elem()}
	case reflect.Map:
		return []reflect.Type{t.Key(), t.Elem()}
	default:
		return nil
	}
}

func structType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}
