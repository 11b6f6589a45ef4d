package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"testrig/internal/extension"
	"testrig/internal/proxy"
	"testrig/pkg/logging"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBinder sets the proxy binder used for deferred bindings.
func WithBinder(b *proxy.Binder) Option {
	return func(o *Orchestrator) { o.binder = b }
}

// WithResourceStrategy sets when required resources are started.
func WithResourceStrategy(s ResourceStrategy) Option {
	return func(o *Orchestrator) { o.strategy = s }
}

// WithProxyPolicy sets the handling of contracts the binder cannot proxy.
func WithProxyPolicy(p ProxyPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithObserver adds phase observers.
func WithObserver(obs ...Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs...) }
}

// Orchestrator drives the phases of one level. It holds no per-invocation
// state and may be shared by concurrent invocations.
type Orchestrator struct {
	level     Level
	registry  *extension.Registry
	binder    *proxy.Binder
	strategy  ResourceStrategy
	policy    ProxyPolicy
	observers []Observer
	plan      Plan
}

// New creates an orchestrator for level backed by a sealed registry.
func New(level Level, registry *extension.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		level:    level,
		registry: registry,
		plan:     PlanFor(level),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.binder == nil {
		o.binder = proxy.NewBinder()
	}
	return o
}

// Level returns the level the orchestrator runs.
func (o *Orchestrator) Level() Level { return o.level }

// Plan returns the phase plan of the orchestrator's level.
func (o *Orchestrator) Plan() Plan { return PlanFor(o.level) }

// Start runs every setup phase. When a phase fails the invocation is torn
// down before Start returns, and a later Stop does nothing.
func (o *Orchestrator) Start(ctx context.Context, rc *Context) error {
	if o.registry == nil || !o.registry.Sealed() {
		return fmt.Errorf("orchestrator requires a sealed registry")
	}

	rc.mu.Lock()
	if rc.state != stateNew {
		rc.mu.Unlock()
		return ErrAlreadyStarted
	}
	rc.state = stateRunning
	rc.level = o.level
	rc.registry = o.registry
	rc.binder = o.binder
	rc.strategy = o.strategy
	rc.policy = o.policy
	rc.plan = o.plan
	rc.mu.Unlock()

	logging.Info("Orchestrator", "Starting %s invocation %s of %v", o.level, rc.ID(), rc.descriptor.Type())

	for _, phase := range o.plan.Setup {
		if err := o.run(ctx, rc, phase, o.setupStep(phase)); err != nil {
			logging.Error("Orchestrator", err, "Invocation %s failed during %s", rc.ID(), phase)
			teardownErr := o.shutdown(ctx, rc)
			rc.setState(stateFailed)
			return errors.Join(err, teardownErr)
		}
	}

	rc.setState(stateStarted)
	logging.Debug("Orchestrator", "Invocation %s is ready", rc.ID())
	return nil
}

// Stop runs PostVerify and tears the invocation down. Post verification
// problems are returned alongside teardown failures but never prevent
// teardown.
func (o *Orchestrator) Stop(ctx context.Context, rc *Context) error {
	rc.mu.Lock()
	st := rc.state
	if st == stateStarted {
		rc.state = stateRunning
	}
	rc.mu.Unlock()

	switch st {
	case stateNew:
		return ErrNotStarted
	case stateFailed, stateStopped:
		logging.Debug("Orchestrator", "Invocation %s already torn down", rc.ID())
		return nil
	case stateRunning:
		return fmt.Errorf("invocation %s is still starting or stopping", rc.ID())
	}

	postErr := o.run(ctx, rc, PostVerify, o.verify)
	if postErr != nil {
		logging.Warn("Orchestrator", "Invocation %s: %v", rc.ID(), postErr)
	}
	teardownErr := o.shutdown(ctx, rc)
	rc.setState(stateStopped)

	logging.Info("Orchestrator", "Stopped %s invocation %s", o.level, rc.ID())
	return errors.Join(postErr, teardownErr)
}

// Run starts the invocation, calls body and stops it. The errors of all three
// steps are joined.
func (o *Orchestrator) Run(ctx context.Context, rc *Context, body func(ctx context.Context, rc *Context) error) error {
	if err := o.Start(ctx, rc); err != nil {
		return err
	}
	var bodyErr error
	if body != nil {
		bodyErr = body(ctx, rc)
	}
	return errors.Join(bodyErr, o.Stop(ctx, rc))
}

func (rc *Context) setState(s state) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.state = s
}

type step func(ctx context.Context, rc *Context) error

func (o *Orchestrator) setupStep(phase Phase) step {
	switch phase {
	case PreVerify, WiringVerify:
		return o.verify
	case ContainerCreate:
		return o.asSetup(phase, o.createContainer)
	case InitHooks:
		return o.asSetup(phase, o.initHooks)
	default:
		return o.asSetup(phase, o.reify)
	}
}

func (o *Orchestrator) asSetup(phase Phase, fn step) step {
	return func(ctx context.Context, rc *Context) error {
		if err := guard(phase.String(), func() error { return fn(ctx, rc) }); err != nil {
			return &SetupError{Phase: phase, Err: err}
		}
		return nil
	}
}

// guard calls fn and turns a panic, such as a failed deferred dispatch, into
// an error so the remaining phases and cleanups still run.
func guard(what string, fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(error); ok {
			err = fmt.Errorf("%s panicked: %w", what, e)
		} else {
			err = fmt.Errorf("%s panicked: %v", what, r)
		}
		logging.Warn("Orchestrator", "Recovered: %v", err)
	}()
	return fn()
}

func (o *Orchestrator) skip(rc *Context, phase Phase) bool {
	if phase == InitialReify {
		_, ok := rc.descriptor.CollaboratorProvider()
		return !ok
	}
	return false
}

// run enters phase and executes fn with every observer notified.
func (o *Orchestrator) run(ctx context.Context, rc *Context, phase Phase, fn step) error {
	if o.skip(rc, phase) {
		logging.Debug("Orchestrator", "Skipping %s for %s", phase, rc.ID())
		return nil
	}
	if err := rc.enter(phase); err != nil {
		return err
	}

	for _, obs := range o.observers {
		ctx = obs.PhaseStarted(ctx, rc, phase)
	}
	started := time.Now()
	err := guard(phase.String(), func() error { return fn(ctx, rc) })
	elapsed := time.Since(started)
	for _, obs := range o.observers {
		obs.PhaseFinished(ctx, rc, phase, elapsed, err)
	}

	logging.Debug("Orchestrator", "%s of %s finished in %s", phase, rc.ID(), elapsed)
	return err
}

// verify runs the verifiers of the current phase, accumulating every problem
// before deciding.
func (o *Orchestrator) verify(ctx context.Context, rc *Context) error {
	phase, _ := rc.Phase()
	before := rc.errorCount()

	for _, v := range o.verifiers(rc, phase) {
		if err := guard("verifier", func() error { return v.Verify(ctx, rc) }); err != nil {
			rc.AddError(err)
		}
	}

	if errs := rc.errorsSince(before); len(errs) > 0 {
		return &VerificationError{Phase: phase, Errors: errs}
	}
	return nil
}

func (o *Orchestrator) verifiers(rc *Context, phase Phase) []Verifier {
	var guidelines []extension.Tag
	for _, g := range rc.descriptor.Guidelines() {
		guidelines = append(guidelines, extension.GuidelineTag(g))
	}
	return extension.FindAllForGuidelines[Verifier](o.registry, []extension.Tag{o.level.Tag(), phase.Tag()}, guidelines)
}

func (o *Orchestrator) reify(ctx context.Context, rc *Context) error {
	phase, _ := rc.Phase()
	for _, r := range extension.FindAllFiltered[Reifier](o.registry, o.level.Tag(), phase.Tag()) {
		if err := r.Reify(ctx, rc); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) createContainer(ctx context.Context, rc *Context) error {
	hint, _ := rc.descriptor.Hint()
	adapter, err := extension.GetOne[ContainerAdapter](o.registry, hint.Container, o.level.Tag())
	if err != nil {
		return err
	}

	raw, err := adapter.Create(ctx, rc)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	facade, err := adapter.Configure(ctx, rc, raw)
	if err != nil {
		return fmt.Errorf("failed to configure container: %w", err)
	}
	rc.setFacade(facade)
	rc.OnTeardown("container", facade.Destroy)

	if modules := rc.descriptor.Modules(); len(modules) > 0 {
		if err := facade.AddModules(modules...); err != nil {
			return fmt.Errorf("failed to load modules: %w", err)
		}
	}

	for _, p := range extension.FindAllFiltered[InstanceProvider](o.registry, o.level.Tag()) {
		instances, err := p.Instances(ctx, rc)
		if err != nil {
			return fmt.Errorf("instance provider failed: %w", err)
		}
		for _, inst := range instances {
			if err := facade.AddConstant(inst); err != nil {
				return err
			}
		}
	}

	return facade.Init(ctx)
}

// initHooks runs the init hooks of the fields in declaration order, then the
// one of the SUT.
func (o *Orchestrator) initHooks(ctx context.Context, rc *Context) error {
	rc.mu.Lock()
	rc.hooked = true
	rc.mu.Unlock()

	for _, s := range hookOrder(rc.descriptor) {
		rc.mu.Lock()
		done := rc.inited[s.Name()]
		rc.mu.Unlock()
		if done {
			continue
		}
		if name, ok := s.InitHook(); ok {
			if err := rc.callHook(ctx, s, name); err != nil {
				return err
			}
		}
		// Only slots recorded here get their destroy hook.
		rc.mu.Lock()
		rc.inited[s.Name()] = true
		rc.mu.Unlock()
	}
	return nil
}

// destroyHooks runs the destroy hooks in reverse declaration order: the SUT
// first, then the fields from last to first. Slots the init phase never
// reached are skipped.
func (o *Orchestrator) destroyHooks(ctx context.Context, rc *Context) []TeardownFailure {
	var failures []TeardownFailure
	slots := hookOrder(rc.descriptor)
	for i := len(slots) - 1; i >= 0; i-- {
		s := slots[i]
		name, ok := s.DestroyHook()
		if !ok {
			continue
		}
		rc.mu.Lock()
		inited, done := rc.inited[s.Name()], rc.destroyed[s.Name()]
		if inited {
			rc.destroyed[s.Name()] = true
		}
		rc.mu.Unlock()
		if !inited || done {
			continue
		}
		if err := guard("destroy hook", func() error { return rc.callHook(ctx, s, name) }); err != nil {
			failures = append(failures, TeardownFailure{Step: "destroy hook " + s.Name() + "." + name, Err: err})
		}
	}
	return failures
}

// shutdown runs DestroyHooks, when init hooks were reached, and Teardown.
func (o *Orchestrator) shutdown(ctx context.Context, rc *Context) error {
	var failures []TeardownFailure

	rc.mu.Lock()
	hooked := rc.hooked
	rc.mu.Unlock()

	if hooked {
		_ = o.run(ctx, rc, DestroyHooks, func(ctx context.Context, rc *Context) error {
			f := o.destroyHooks(ctx, rc)
			failures = append(failures, f...)
			return teardownError(f)
		})
	}

	_ = o.run(ctx, rc, Teardown, func(ctx context.Context, rc *Context) error {
		var f []TeardownFailure
		cleanups := rc.takeCleanups()
		for i := len(cleanups) - 1; i >= 0; i-- {
			c := cleanups[i]
			if err := guard("teardown step "+c.step, func() error { return c.fn(ctx) }); err != nil {
				logging.Warn("Orchestrator", "Teardown step %s of %s failed: %v", c.step, rc.ID(), err)
				f = append(f, TeardownFailure{Step: c.step, Err: err})
			}
		}
		failures = append(failures, f...)
		return teardownError(f)
	})

	return teardownError(failures)
}

func teardownError(failures []TeardownFailure) error {
	if len(failures) == 0 {
		return nil
	}
	return &TeardownError{Failures: failures}
}
