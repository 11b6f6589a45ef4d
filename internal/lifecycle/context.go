package lifecycle

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"unsafe"

	"github.com/google/uuid"

	"testrig/internal/descriptor"
	"testrig/internal/extension"
	"testrig/internal/proxy"
	"testrig/internal/service"
)

type state int

const (
	stateNew state = iota
	stateRunning
	stateStarted
	stateFailed
	stateStopped
)

type cleanup struct {
	step string
	fn   func(ctx context.Context) error
}

// Context carries the state of one test invocation through every phase. It
// is owned by a single invocation and is not shared between them.
type Context struct {
	id         string
	test       any
	descriptor *descriptor.TestDescriptor

	// Bound by Orchestrator.Start.
	level    Level
	registry *extension.Registry
	binder   *proxy.Binder
	strategy ResourceStrategy
	policy   ProxyPolicy
	plan     Plan

	mu        sync.Mutex
	state     state
	current   int
	history   []Phase
	errors    []error
	facade    service.Facade
	cleanups  []cleanup
	resources map[string]*resource
	server    any
	client    any
	hooked    bool
	inited    map[string]bool
	destroyed map[string]bool
}

// NewContext extracts the descriptor of test, which must be a non-nil pointer
// to a struct, and returns a fresh invocation context for it.
func NewContext(test any) (*Context, error) {
	if err := checkTest(test); err != nil {
		return nil, err
	}
	d, err := descriptor.ExtractFor(test)
	if err != nil {
		return nil, fmt.Errorf("failed to extract descriptor: %w", err)
	}
	return newContext(test, d), nil
}

// NewContextFor is NewContext with an explicitly built descriptor.
func NewContextFor(test any, d *descriptor.TestDescriptor) (*Context, error) {
	if err := checkTest(test); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("descriptor is required")
	}
	if t := reflect.TypeOf(test).Elem(); d.Type() != nil && d.Type() != t {
		return nil, fmt.Errorf("descriptor of %v does not describe %v", d.Type(), t)
	}
	return newContext(test, d), nil
}

func newContext(test any, d *descriptor.TestDescriptor) *Context {
	return &Context{
		id:         uuid.New().String(),
		test:       test,
		descriptor: d,
		current:    -1,
		resources:  make(map[string]*resource),
		inited:     make(map[string]bool),
		destroyed:  make(map[string]bool),
	}
}

func checkTest(test any) error {
	v := reflect.ValueOf(test)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("test instance must be a non-nil pointer to a struct, got %T", test)
	}
	return nil
}

// ID uniquely identifies the invocation.
func (rc *Context) ID() string { return rc.id }

// Test returns the test instance.
func (rc *Context) Test() any { return rc.test }

// Descriptor returns the descriptor of the test type.
func (rc *Context) Descriptor() *descriptor.TestDescriptor { return rc.descriptor }

func (rc *Context) Level() Level                       { return rc.level }
func (rc *Context) Registry() *extension.Registry      { return rc.registry }
func (rc *Context) Binder() *proxy.Binder              { return rc.binder }
func (rc *Context) ResourceStrategy() ResourceStrategy { return rc.strategy }
func (rc *Context) ProxyPolicy() ProxyPolicy           { return rc.policy }

// Facade returns the service facade once ContainerCreate has produced it.
func (rc *Context) Facade() (service.Facade, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.facade, rc.facade != nil
}

// Vocabulary returns the qualifier vocabulary of the facade, or the default
// one before the facade exists.
func (rc *Context) Vocabulary() service.Vocabulary {
	f, ok := rc.Facade()
	if !ok {
		return service.DefaultVocabulary()
	}
	return service.Vocabulary{Name: f.NameQualifiers(), Custom: f.CustomQualifiers()}
}

// AddError records a verification problem.
func (rc *Context) AddError(err error) {
	if err == nil {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.errors = append(rc.errors, err)
}

// Errorf records a formatted verification problem.
func (rc *Context) Errorf(format string, args ...any) {
	rc.AddError(fmt.Errorf(format, args...))
}

// Errors returns every problem recorded so far.
func (rc *Context) Errors() []error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return slices.Clone(rc.errors)
}

func (rc *Context) errorCount() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.errors)
}

func (rc *Context) errorsSince(n int) []error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return slices.Clone(rc.errors[n:])
}

// Phase returns the phase currently running or last run.
func (rc *Context) Phase() (Phase, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.history) == 0 {
		return 0, false
	}
	return rc.history[len(rc.history)-1], true
}

// History lists the phases entered so far in order.
func (rc *Context) History() []Phase {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return slices.Clone(rc.history)
}

// enter moves the state machine to phase. Phases may be skipped but never
// revisited or reordered.
func (rc *Context) enter(phase Phase) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	idx := rc.plan.index(phase)
	if idx < 0 {
		return fmt.Errorf("%w: %s is not part of the %s plan", ErrPhaseOrder, phase, rc.level)
	}
	if idx <= rc.current {
		return fmt.Errorf("%w: %s after %s", ErrPhaseOrder, phase, rc.plan.Phases()[rc.current])
	}
	rc.current = idx
	rc.history = append(rc.history, phase)
	return nil
}

// OnTeardown registers fn to run during Teardown. Steps run in reverse order
// of registration.
func (rc *Context) OnTeardown(step string, fn func(ctx context.Context) error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.cleanups = append(rc.cleanups, cleanup{step: step, fn: fn})
}

func (rc *Context) takeCleanups() []cleanup {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	c := rc.cleanups
	rc.cleanups = nil
	return c
}

func (rc *Context) setFacade(f service.Facade) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.facade = f
}

// Server returns the handle of the started EndToEnd server.
func (rc *Context) Server() (any, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.server, rc.server != nil
}

// SetServer is called by server reifiers once the server is running.
func (rc *Context) SetServer(handle any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.server = handle
}

// Client returns the EndToEnd client.
func (rc *Context) Client() (any, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.client, rc.client != nil
}

// SetClient is called by client reifiers once the client exists.
func (rc *Context) SetClient(client any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.client = client
}

// slotField returns the settable struct field backing s.
func (rc *Context) slotField(s descriptor.Slot) (reflect.Value, error) {
	v := reflect.ValueOf(rc.test).Elem()

	var f reflect.Value
	if idx := s.Index(); len(idx) > 0 {
		var err error
		if f, err = v.FieldByIndexErr(idx); err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", s.Name(), err)
		}
	} else {
		f = v.FieldByName(s.Name())
	}
	if !f.IsValid() {
		return reflect.Value{}, fmt.Errorf("%v has no field %s", v.Type(), s.Name())
	}
	if !f.CanSet() {
		f = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
	}
	return f, nil
}

// SetSlot stores value in the field of the test instance described by s.
// A nil value resets the field.
func (rc *Context) SetSlot(s descriptor.Slot, value any) error {
	f, err := rc.slotField(s)
	if err != nil {
		return err
	}
	if value == nil {
		f.SetZero()
		return nil
	}
	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(f.Type()) {
		return fmt.Errorf("cannot assign %v to field %s of type %v", rv.Type(), s.Name(), f.Type())
	}
	f.Set(rv)
	return nil
}

// SlotValue returns the current value of the field described by s, or false
// when the field is nil or unset.
func (rc *Context) SlotValue(s descriptor.Slot) (any, bool) {
	f, err := rc.slotField(s)
	if err != nil || isNil(f) {
		return nil, false
	}
	return f.Interface(), true
}

// hookTarget returns the value whose method set includes the hooks of s.
func (rc *Context) hookTarget(s descriptor.Slot) (any, bool) {
	f, err := rc.slotField(s)
	if err != nil || isNil(f) {
		return nil, false
	}
	switch f.Kind() {
	case reflect.Interface, reflect.Pointer:
		return f.Interface(), true
	default:
		return f.Addr().Interface(), true
	}
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
