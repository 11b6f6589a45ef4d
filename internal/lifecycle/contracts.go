package lifecycle

import (
	"context"
	"reflect"
	"time"

	"testrig/internal/service"
)

// Verifier inspects an invocation and records problems on rc. A returned
// error is recorded as well. Verifiers are registered with the level tags,
// the tag of the phase they run in and, optionally, guideline tags.
type Verifier interface {
	Verify(ctx context.Context, rc *Context) error
}

// Reifier populates state during one of the reification phases. A returned
// error aborts setup.
type Reifier interface {
	Reify(ctx context.Context, rc *Context) error
}

// ContainerAdapter creates and configures the backing container of a level.
type ContainerAdapter interface {
	Create(ctx context.Context, rc *Context) (any, error)
	Configure(ctx context.Context, rc *Context, raw any) (service.Facade, error)
}

// InstanceProvider supplies constants registered into every facade of the
// levels it is tagged with, right after the facade is configured.
type InstanceProvider interface {
	Instances(ctx context.Context, rc *Context) ([]service.Instance, error)
}

// ResourceProvider starts and stops one resource named in the descriptor's
// required containers. It is registered under that name.
type ResourceProvider interface {
	Start(ctx context.Context, rc *Context) (any, error)
	Stop(ctx context.Context, handle any) error
}

// ServerProvider brings up the server of the EndToEnd level.
type ServerProvider interface {
	Configure(ctx context.Context, rc *Context) (any, error)
	Start(ctx context.Context, rc *Context, raw any) (any, error)
	Stop(ctx context.Context, handle any) error
}

// ClientProvider creates the client a test uses to reach the server.
type ClientProvider interface {
	Configure(ctx context.Context, rc *Context) (any, error)
	Create(ctx context.Context, rc *Context, raw any) (any, error)
	Close(ctx context.Context, client any) error
}

// FakeFactory generates stand-ins for fake fields. It reports false for
// contracts it cannot fake.
type FakeFactory interface {
	Fake(contract reflect.Type) (any, bool, error)
}

// Observer is notified around every phase that runs. The context returned by
// PhaseStarted is passed to the phase and to PhaseFinished.
type Observer interface {
	PhaseStarted(ctx context.Context, rc *Context, phase Phase) context.Context
	PhaseFinished(ctx context.Context, rc *Context, phase Phase, elapsed time.Duration, err error)
}
