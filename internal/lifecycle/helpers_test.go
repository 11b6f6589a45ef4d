package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"testrig/internal/extension"
	"testrig/internal/service"
)

type Greeter interface {
	Greet(name string) string
}

type englishGreeter struct{}

func (englishGreeter) Greet(name string) string { return "hello " + name }

type memStore struct {
	data map[string]string
}

func (s *memStore) Get(key string) string { return s.data[key] }

type greetingService struct {
	greeter Greeter
	store   *memStore
}

func (s *greetingService) Greet(name string) string { return s.greeter.Greet(name) }

// eventLog is shared by the participants of one test to record ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) index(e string) int {
	for i, got := range l.all() {
		if got == e {
			return i
		}
	}
	return -1
}

type bindingKey struct {
	contract reflect.Type
	name     string
}

// mapNative is a Native container backed by a map of providers.
type mapNative struct {
	mu        sync.Mutex
	providers map[bindingKey]func(r service.Resolver) (any, error)
	closed    int
	closeErr  error
	log       *eventLog
}

func newMapNative(log *eventLog) *mapNative {
	return &mapNative{providers: make(map[bindingKey]func(r service.Resolver) (any, error)), log: log}
}

func (n *mapNative) bind(contract reflect.Type, name string, fn func(r service.Resolver) (any, error)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.providers[bindingKey{contract, name}] = fn
}

func (n *mapNative) value(contract reflect.Type, name string, v any) {
	n.bind(contract, name, func(service.Resolver) (any, error) { return v, nil })
}

func (n *mapNative) Lookup(r service.Resolver, q service.Query) (any, error) {
	n.mu.Lock()
	fn, ok := n.providers[bindingKey{q.Contract, q.Name}]
	n.mu.Unlock()
	if !ok {
		return nil, &service.NotFoundError{Contract: q.Contract, Name: q.Name}
	}
	return fn(r)
}

func (n *mapNative) LoadModules(modules ...any) error {
	for _, m := range modules {
		fn, ok := m.(func(*mapNative))
		if !ok {
			return errors.New("unsupported module")
		}
		fn(n)
	}
	return nil
}

func (n *mapNative) Activate(context.Context) error { return nil }

func (n *mapNative) Close(context.Context) error {
	n.mu.Lock()
	n.closed++
	n.mu.Unlock()
	if n.log != nil {
		n.log.add("container closed")
	}
	return n.closeErr
}

func (n *mapNative) closedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

type mockAdapter struct {
	native       *mapNative
	createCalls  int
	configureErr error
}

func (a *mockAdapter) Create(ctx context.Context, rc *Context) (any, error) {
	a.createCalls++
	return a.native, nil
}

func (a *mockAdapter) Configure(ctx context.Context, rc *Context, raw any) (service.Facade, error) {
	if a.configureErr != nil {
		return nil, a.configureErr
	}
	return service.New(raw.(*mapNative), service.DefaultVocabulary()), nil
}

type verifierFunc func(ctx context.Context, rc *Context) error

func (f verifierFunc) Verify(ctx context.Context, rc *Context) error { return f(ctx, rc) }

type reifierFunc func(ctx context.Context, rc *Context) error

func (f reifierFunc) Reify(ctx context.Context, rc *Context) error { return f(ctx, rc) }

// recordingObserver logs every finished phase.
type recordingObserver struct {
	log *eventLog
}

func (o recordingObserver) PhaseStarted(ctx context.Context, rc *Context, phase Phase) context.Context {
	o.log.add("start " + phase.String())
	return ctx
}

func (o recordingObserver) PhaseFinished(ctx context.Context, rc *Context, phase Phase, elapsed time.Duration, err error) {
	o.log.add("finish " + phase.String())
}

// testRegistry returns an unsealed registry with the builtins and adapter
// registered for every level.
func testRegistry(t *testing.T, adapter ContainerAdapter) *extension.Registry {
	t.Helper()
	r := extension.New()
	require.NoError(t, RegisterBuiltins(r))
	if adapter != nil {
		require.NoError(t, extension.Register[ContainerAdapter](r, "mock", adapter, extension.AllLevels...))
	}
	return r
}

func sealed(t *testing.T, r *extension.Registry) *extension.Registry {
	t.Helper()
	require.NoError(t, r.Seal())
	return r
}
