package descriptor

// MarkerType identifies a declarative marker kind that may be attached to a
// field or the SUT slot. Container adapters decide which marker types they
// treat as name qualifiers and which as custom qualifiers.
type MarkerType string

const (
	// MarkerNamed carries an explicit binding name.
	MarkerNamed MarkerType = "named"
	// MarkerQualifier carries a custom qualifier value.
	MarkerQualifier MarkerType = "qualifier"
	// MarkerClient marks a field that receives the end-to-end client handle.
	MarkerClient MarkerType = "client"
	// MarkerServer marks a field that receives the end-to-end server handle.
	MarkerServer MarkerType = "server"
)

// Marker is a single declarative marker with an optional value.
type Marker struct {
	Type  MarkerType
	Value string
}

// Guideline selects which verifiers apply to a test type.
type Guideline string

// Strategy is the resolution strategy of a field.
type Strategy int

const (
	// StrategyReal resolves the actual instance from the service facade.
	StrategyReal Strategy = iota
	// StrategyFake uses a freshly generated stand-in.
	StrategyFake
	// StrategyVirtual wraps the eventual real instance in a deferred-binding proxy.
	StrategyVirtual
)

func (s Strategy) String() string {
	switch s {
	case StrategyReal:
		return "real"
	case StrategyFake:
		return "fake"
	case StrategyVirtual:
		return "virtual"
	default:
		return "unknown"
	}
}

// ParseStrategy converts the textual form used in struct tags.
func ParseStrategy(s string) (Strategy, bool) {
	switch s {
	case "real":
		return StrategyReal, true
	case "fake":
		return StrategyFake, true
	case "virtual":
		return StrategyVirtual, true
	default:
		return StrategyReal, false
	}
}

func cloneMarkers(in []Marker) []Marker {
	if len(in) == 0 {
		return nil
	}
	out := make([]Marker, len(in))
	copy(out, in)
	return out
}
