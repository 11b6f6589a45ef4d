package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"testrig/internal/service"
	"testrig/pkg/logging"
)

// resource is a required container started at most once and stopped only if
// it was started. Once started, its handle is replaced into the facade under
// the resource name.
type resource struct {
	name     string
	provider ResourceProvider

	mu      sync.Mutex
	started bool
	stopped bool
	handle  any
	err     error
}

func (r *resource) start(ctx context.Context, rc *Context) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.stopped:
		return nil, fmt.Errorf("resource %s already stopped", r.name)
	case r.started:
		return r.handle, nil
	case r.err != nil:
		return nil, r.err
	}

	logging.Debug("Orchestrator", "Starting resource %s for %s", r.name, rc.ID())
	handle, err := r.provider.Start(ctx, rc)
	if err != nil {
		r.err = fmt.Errorf("failed to start resource %s: %w", r.name, err)
		return nil, r.err
	}
	r.handle, r.started = handle, true

	// Eager and lazy handles alike become resolvable under the resource name.
	if facade, ok := rc.Facade(); ok && handle != nil {
		if err := facade.Replace(service.Instance{Value: handle, Name: r.name}); err != nil {
			return nil, fmt.Errorf("failed to publish resource %s: %w", r.name, err)
		}
	}
	return handle, nil
}

func (r *resource) stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	if !r.started {
		return nil
	}
	r.started = false
	logging.Debug("Orchestrator", "Stopping resource %s", r.name)
	return r.provider.Stop(ctx, r.handle)
}

// addResource declares a required resource and schedules its stop.
func (rc *Context) addResource(name string, p ResourceProvider) *resource {
	r := &resource{name: name, provider: p}
	rc.mu.Lock()
	rc.resources[name] = r
	rc.mu.Unlock()
	rc.OnTeardown("resource "+name, r.stop)
	return r
}

// Resource returns the handle of the required resource name, starting it
// first when the resource strategy is lazy.
func (rc *Context) Resource(ctx context.Context, name string) (any, error) {
	rc.mu.Lock()
	r, ok := rc.resources[name]
	rc.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("resource %s is not declared by %v", name, rc.descriptor.Type())
	}
	return r.start(ctx, rc)
}

// ResourceStarted reports whether the resource name is currently running.
func (rc *Context) ResourceStarted(name string) bool {
	rc.mu.Lock()
	r, ok := rc.resources[name]
	rc.mu.Unlock()
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}
