package lifecycle

import (
	"fmt"
	"slices"
	"strings"

	"testrig/internal/extension"
)

// Phase is one step of the lifecycle of a test invocation.
type Phase int

const (
	PreVerify Phase = iota
	ContainerCreate
	InitialReify
	CollaboratorReify
	ServerStart
	ClientStart
	FinalReify
	WiringVerify
	InitHooks
	PostVerify
	DestroyHooks
	Teardown
)

var phaseNames = [...]string{
	PreVerify:         "pre-verify",
	ContainerCreate:   "container-create",
	InitialReify:      "initial-reify",
	CollaboratorReify: "collaborator-reify",
	ServerStart:       "server-start",
	ClientStart:       "client-start",
	FinalReify:        "final-reify",
	WiringVerify:      "wiring-verify",
	InitHooks:         "init-hooks",
	PostVerify:        "post-verify",
	DestroyHooks:      "destroy-hooks",
	Teardown:          "teardown",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Tag is the registry tag a verifier or reifier carries to take part in p.
func (p Phase) Tag() extension.Tag {
	return extension.Tag("phase:" + p.String())
}

// Level selects the phase plan and the adapters of an invocation.
type Level int

const (
	Isolated Level = iota
	Container
	EndToEnd
)

// Levels lists every level in increasing scope.
var Levels = []Level{Isolated, Container, EndToEnd}

func (l Level) String() string {
	switch l {
	case Isolated:
		return "isolated"
	case Container:
		return "container"
	case EndToEnd:
		return "e2e"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Tag is the registry tag of participants active at l.
func (l Level) Tag() extension.Tag {
	switch l {
	case Isolated:
		return extension.TagIsolated
	case Container:
		return extension.TagContainer
	default:
		return extension.TagEndToEnd
	}
}

// ParseLevel accepts the level names plus the aliases unit, integration and
// system.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "isolated", "unit":
		return Isolated, nil
	case "container", "integration":
		return Container, nil
	case "e2e", "end-to-end", "endtoend", "system":
		return EndToEnd, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}

func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Plan is the ordered list of phases a level runs. Setup runs in Start,
// Shutdown in Stop.
type Plan struct {
	Setup    []Phase
	Shutdown []Phase
}

// Phases returns Setup followed by Shutdown.
func (p Plan) Phases() []Phase {
	return slices.Concat(p.Setup, p.Shutdown)
}

func (p Plan) index(phase Phase) int {
	return slices.Index(p.Phases(), phase)
}

var shutdown = []Phase{PostVerify, DestroyHooks, Teardown}

// PlanFor returns the phase plan of l.
func PlanFor(l Level) Plan {
	setup := []Phase{PreVerify, ContainerCreate, InitialReify, CollaboratorReify}
	if l == EndToEnd {
		setup = append(setup, ServerStart, ClientStart)
	}
	setup = append(setup, FinalReify, WiringVerify, InitHooks)
	return Plan{Setup: setup, Shutdown: slices.Clone(shutdown)}
}

// ResourceStrategy decides when required resources are started.
type ResourceStrategy int

const (
	// Eager starts every required resource during FinalReify.
	Eager ResourceStrategy = iota
	// Lazy starts a resource on its first Context.Resource call.
	Lazy
)

func (s ResourceStrategy) String() string {
	if s == Lazy {
		return "lazy"
	}
	return "eager"
}

// ParseResourceStrategy parses "eager" or "lazy".
func ParseResourceStrategy(s string) (ResourceStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "eager":
		return Eager, nil
	case "lazy":
		return Lazy, nil
	default:
		return 0, fmt.Errorf("unknown resource strategy %q", s)
	}
}

func (s ResourceStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ResourceStrategy) UnmarshalText(text []byte) error {
	parsed, err := ParseResourceStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ProxyPolicy decides what happens when a deferred binding is requested for a
// contract the proxy binder cannot handle.
type ProxyPolicy int

const (
	// ProxyFail turns the request into a setup or verification error.
	ProxyFail ProxyPolicy = iota
	// ProxyEager resolves the real instance immediately instead.
	ProxyEager
)

func (p ProxyPolicy) String() string {
	if p == ProxyEager {
		return "eager"
	}
	return "fail"
}

// ParseProxyPolicy parses "fail" or "eager".
func ParseProxyPolicy(s string) (ProxyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return ProxyFail, nil
	case "eager":
		return ProxyEager, nil
	default:
		return 0, fmt.Errorf("unknown proxy policy %q", s)
	}
}

func (p ProxyPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *ProxyPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseProxyPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
