package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testrig/internal/descriptor"
	"testrig/internal/extension"
	"testrig/internal/proxy"
	"testrig/internal/service"
)

type emptyTest struct{}

func TestRunWithoutProviderOrSut(t *testing.T) {
	native := newMapNative(nil)
	adapter := &mockAdapter{native: native}
	reg := sealed(t, testRegistry(t, adapter))

	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)

	o := New(Container, reg)
	err = o.Run(context.Background(), rc, func(ctx context.Context, rc *Context) error { return nil })
	require.NoError(t, err)

	want := []Phase{PreVerify, ContainerCreate, CollaboratorReify, FinalReify, WiringVerify, InitHooks, PostVerify, DestroyHooks, Teardown}
	assert.Equal(t, want, rc.History())
	assert.NotContains(t, rc.History(), InitialReify)
	assert.Equal(t, 1, adapter.createCalls)
	assert.Equal(t, 1, native.closedCount())

	require.NoError(t, o.Stop(context.Background(), rc))
	assert.Equal(t, 1, native.closedCount())
}

func TestPreVerifyReportsEveryProblem(t *testing.T) {
	adapter := &mockAdapter{native: newMapNative(nil)}
	reg := testRegistry(t, adapter)
	require.NoError(t, extension.Register[Verifier](reg, "first", verifierFunc(func(ctx context.Context, rc *Context) error {
		rc.Errorf("first problem")
		return nil
	}), extension.TagIsolated, PreVerify.Tag()))
	require.NoError(t, extension.Register[Verifier](reg, "second", verifierFunc(func(ctx context.Context, rc *Context) error {
		return errors.New("second problem")
	}), extension.TagIsolated, PreVerify.Tag()))
	sealed(t, reg)

	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)

	o := New(Isolated, reg)
	err = o.Start(context.Background(), rc)
	require.Error(t, err)

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, PreVerify, verr.Phase)
	assert.Len(t, verr.Errors, 2)
	assert.Contains(t, err.Error(), "first problem")
	assert.Contains(t, err.Error(), "second problem")
	assert.Len(t, rc.Errors(), 2)

	assert.Equal(t, 0, adapter.createCalls)
	assert.NotContains(t, rc.History(), ContainerCreate)
	assert.NoError(t, o.Stop(context.Background(), rc))
}

func TestGuidelineVerifiers(t *testing.T) {
	reg := testRegistry(t, &mockAdapter{native: newMapNative(nil)})
	strictRan := false
	require.NoError(t, extension.Register[Verifier](reg, "strict", verifierFunc(func(ctx context.Context, rc *Context) error {
		strictRan = true
		return nil
	}), extension.TagIsolated, PreVerify.Tag(), extension.GuidelineTag("strict")))
	sealed(t, reg)

	plain, err := NewContext(&emptyTest{})
	require.NoError(t, err)
	require.NoError(t, New(Isolated, reg).Run(context.Background(), plain, nil))
	assert.False(t, strictRan)

	d, err := descriptor.NewBuilder(reflect.TypeFor[emptyTest]()).Guideline("strict").Build()
	require.NoError(t, err)
	strict, err := NewContextFor(&emptyTest{}, d)
	require.NoError(t, err)
	require.NoError(t, New(Isolated, reg).Run(context.Background(), strict, nil))
	assert.True(t, strictRan)
}

func TestSetupFailureTearsDownImmediately(t *testing.T) {
	log := &eventLog{}
	native := newMapNative(log)
	reg := testRegistry(t, &mockAdapter{native: native})
	require.NoError(t, extension.Register[Reifier](reg, "starts-something", reifierFunc(func(ctx context.Context, rc *Context) error {
		rc.OnTeardown("something", func(context.Context) error {
			log.add("something stopped")
			return nil
		})
		return nil
	}), extension.TagIsolated, CollaboratorReify.Tag()))
	require.NoError(t, extension.Register[Reifier](reg, "broken", reifierFunc(func(ctx context.Context, rc *Context) error {
		return errors.New("boom")
	}), extension.TagIsolated, FinalReify.Tag()))
	sealed(t, reg)

	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)
	o := New(Isolated, reg)

	err = o.Start(context.Background(), rc)
	require.Error(t, err)
	var serr *SetupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, FinalReify, serr.Phase)
	assert.Contains(t, err.Error(), "boom")

	assert.Equal(t, []string{"something stopped", "container closed"}, log.all())
	assert.NotContains(t, rc.History(), WiringVerify)
	assert.NotContains(t, rc.History(), DestroyHooks)
	assert.Contains(t, rc.History(), Teardown)

	assert.NoError(t, o.Stop(context.Background(), rc))
	assert.Equal(t, 1, native.closedCount())
}

func TestMissingContainerAdapterIsFatal(t *testing.T) {
	reg := sealed(t, testRegistry(t, nil))
	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)

	err = New(Isolated, reg).Start(context.Background(), rc)
	require.Error(t, err)
	assert.True(t, IsVerificationError(err))
	assert.True(t, extension.IsNotFound(err))
	assert.NotContains(t, rc.History(), ContainerCreate)
	_, ok := rc.Facade()
	assert.False(t, ok)
}

func TestBadHintsFailBeforeContainerCreate(t *testing.T) {
	tests := []struct {
		name string
		hint descriptor.Hint
	}{
		{"unknown server", descriptor.Hint{Server: "nope"}},
		{"unknown client", descriptor.Hint{Client: "nope"}},
		{"unknown fakes", descriptor.Hint{Fakes: "nope"}},
		{"unknown container", descriptor.Hint{Container: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &eventLog{}
			adapter := &mockAdapter{native: newMapNative(log)}
			reg := testRegistry(t, adapter)
			require.NoError(t, extension.Register[ServerProvider](reg, "stub", ServerProvider(stubServer{log: log}), extension.TagEndToEnd))
			require.NoError(t, extension.Register[ClientProvider](reg, "stub", ClientProvider(stubClient{log: log}), extension.TagEndToEnd))
			sealed(t, reg)

			d, err := descriptor.NewBuilder(reflect.TypeFor[endToEndTest]()).Hint(tt.hint).Build()
			require.NoError(t, err)
			rc, err := NewContextFor(&endToEndTest{}, d)
			require.NoError(t, err)

			err = New(EndToEnd, reg).Start(context.Background(), rc)
			require.Error(t, err)
			assert.True(t, IsVerificationError(err))
			assert.True(t, extension.IsConfigurationError(err))
			assert.Contains(t, err.Error(), "nope")
			assert.Len(t, rc.Errors(), 1)
			assert.Equal(t, 0, adapter.createCalls)
			assert.NotContains(t, rc.History(), ContainerCreate)
			assert.Empty(t, log.all())
		})
	}
}

func TestEndToEndWithoutProvidersFailsBeforeContainerCreate(t *testing.T) {
	adapter := &mockAdapter{native: newMapNative(nil)}
	reg := sealed(t, testRegistry(t, adapter))
	rc, err := NewContext(&endToEndTest{})
	require.NoError(t, err)

	err = New(EndToEnd, reg).Start(context.Background(), rc)
	require.True(t, IsVerificationError(err))
	assert.True(t, extension.IsNotFound(err))
	assert.Len(t, rc.Errors(), 2)
	assert.Equal(t, 0, adapter.createCalls)
}

func TestHintSelectsContainerAdapter(t *testing.T) {
	reg := testRegistry(t, nil)
	first := &mockAdapter{native: newMapNative(nil)}
	second := &mockAdapter{native: newMapNative(nil)}
	require.NoError(t, extension.Register[ContainerAdapter](reg, "first", ContainerAdapter(first), extension.TagIsolated))
	require.NoError(t, extension.Register[ContainerAdapter](reg, "second", ContainerAdapter(second), extension.TagIsolated))
	sealed(t, reg)

	d, err := descriptor.NewBuilder(reflect.TypeFor[emptyTest]()).Hint(descriptor.Hint{Container: "second"}).Build()
	require.NoError(t, err)
	rc, err := NewContextFor(&emptyTest{}, d)
	require.NoError(t, err)

	require.NoError(t, New(Isolated, reg).Run(context.Background(), rc, nil))
	assert.Equal(t, 0, first.createCalls)
	assert.Equal(t, 1, second.createCalls)

	bad, err := descriptor.NewBuilder(reflect.TypeFor[emptyTest]()).Hint(descriptor.Hint{Container: "missing"}).Build()
	require.NoError(t, err)
	rc, err = NewContextFor(&emptyTest{}, bad)
	require.NoError(t, err)
	err = New(Isolated, reg).Start(context.Background(), rc)
	assert.True(t, extension.IsConfigurationError(err))
}

func TestTeardownCollectsEveryFailure(t *testing.T) {
	log := &eventLog{}
	native := newMapNative(log)
	native.closeErr = errors.New("close failed")
	reg := testRegistry(t, &mockAdapter{native: native})
	require.NoError(t, extension.Register[Reifier](reg, "cleanups", reifierFunc(func(ctx context.Context, rc *Context) error {
		rc.OnTeardown("first", func(context.Context) error {
			log.add("first")
			return errors.New("first failed")
		})
		rc.OnTeardown("second", func(context.Context) error {
			log.add("second")
			return errors.New("second failed")
		})
		return nil
	}), extension.TagIsolated, FinalReify.Tag()))
	sealed(t, reg)

	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)
	o := New(Isolated, reg)
	require.NoError(t, o.Start(context.Background(), rc))

	err = o.Stop(context.Background(), rc)
	require.Error(t, err)
	var terr *TeardownError
	require.ErrorAs(t, err, &terr)
	require.Len(t, terr.Failures, 3)
	assert.Equal(t, "second", terr.Failures[0].Step)
	assert.Equal(t, "first", terr.Failures[1].Step)
	assert.Equal(t, "container", terr.Failures[2].Step)
	assert.Equal(t, []string{"second", "first", "container closed"}, log.all())
}

func TestSetupErrorIsKeptWhenTeardownFails(t *testing.T) {
	native := newMapNative(nil)
	native.closeErr = errors.New("close failed")
	reg := testRegistry(t, &mockAdapter{native: native})
	require.NoError(t, extension.Register[Reifier](reg, "broken", reifierFunc(func(ctx context.Context, rc *Context) error {
		return errors.New("boom")
	}), extension.TagIsolated, CollaboratorReify.Tag()))
	sealed(t, reg)

	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)
	err = New(Isolated, reg).Start(context.Background(), rc)

	assert.True(t, IsSetupError(err))
	assert.True(t, IsTeardownError(err))
	assert.Contains(t, err.Error(), "boom")
}

type hooked struct {
	name string
	log  *eventLog
}

func (h *hooked) Init() { h.log.add("init " + h.name) }

func (h *hooked) Destroy(ctx context.Context) error {
	h.log.add("destroy " + h.name)
	return nil
}

type hookTest struct {
	First  *hooked `rig:"real,name=first,init=Init,destroy=Destroy"`
	Second *hooked `rig:"real,name=second,init=Init,destroy=Destroy"`
	Sut    *hooked `rig:"sut,name=sut,init=Init,destroy=Destroy"`
}

func TestHooksFollowDeclarationOrder(t *testing.T) {
	log := &eventLog{}
	native := newMapNative(nil)
	for _, name := range []string{"first", "second", "sut"} {
		native.value(reflect.TypeFor[*hooked](), name, &hooked{name: name, log: log})
	}
	reg := testRegistry(t, &mockAdapter{native: native})
	require.NoError(t, extension.Register[Verifier](reg, "post", verifierFunc(func(ctx context.Context, rc *Context) error {
		log.add("post verify")
		return nil
	}), extension.TagIsolated, PostVerify.Tag()))
	sealed(t, reg)

	test := &hookTest{}
	rc, err := NewContext(test)
	require.NoError(t, err)
	o := New(Isolated, reg, WithObserver(recordingObserver{log: log}))

	require.NoError(t, o.Start(context.Background(), rc))
	assert.Equal(t, "first", test.First.name)
	assert.Equal(t, "sut", test.Sut.name)
	require.NoError(t, o.Stop(context.Background(), rc))

	var hooks []string
	for _, e := range log.all() {
		if e == "init first" || e == "init second" || e == "init sut" ||
			e == "destroy first" || e == "destroy second" || e == "destroy sut" {
			hooks = append(hooks, e)
		}
	}
	assert.Equal(t, []string{
		"init first", "init second", "init sut",
		"destroy sut", "destroy second", "destroy first",
	}, hooks)

	assert.Less(t, log.index("finish collaborator-reify"), log.index("init first"))
	assert.Less(t, log.index("finish post-verify"), log.index("destroy sut"))
	assert.Less(t, log.index("post verify"), log.index("destroy sut"))
}

type fallibleHook struct {
	name    string
	log     *eventLog
	initErr error
}

func (h *fallibleHook) Init() error {
	h.log.add("init " + h.name)
	return h.initErr
}

func (h *fallibleHook) Destroy(ctx context.Context) error {
	h.log.add("destroy " + h.name)
	if h.name == "third" {
		panic("destroy exploded")
	}
	return nil
}

type fallibleHookTest struct {
	First  *fallibleHook `rig:"real,name=first,init=Init,destroy=Destroy"`
	Second *fallibleHook `rig:"real,name=second,init=Init,destroy=Destroy"`
	Third  *fallibleHook `rig:"real,name=third,init=Init,destroy=Destroy"`
}

func fallibleHookRegistry(t *testing.T, log *eventLog, failing string) (*extension.Registry, *mapNative) {
	t.Helper()
	native := newMapNative(log)
	for _, name := range []string{"first", "second", "third"} {
		h := &fallibleHook{name: name, log: log}
		if name == failing {
			h.initErr = errors.New("init refused")
		}
		native.value(reflect.TypeFor[*fallibleHook](), name, h)
	}
	return sealed(t, testRegistry(t, &mockAdapter{native: native})), native
}

func TestFailedInitHookOnlyDestroysInitializedSlots(t *testing.T) {
	log := &eventLog{}
	reg, native := fallibleHookRegistry(t, log, "second")
	rc, err := NewContext(&fallibleHookTest{})
	require.NoError(t, err)

	err = New(Isolated, reg).Start(context.Background(), rc)
	var serr *SetupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, InitHooks, serr.Phase)
	assert.Contains(t, err.Error(), "init refused")

	assert.Equal(t, []string{"init first", "init second", "destroy first", "container closed"}, log.all())
	assert.Equal(t, 1, native.closedCount())
}

func TestPanickingDestroyHookDoesNotStopTeardown(t *testing.T) {
	log := &eventLog{}
	reg, native := fallibleHookRegistry(t, log, "")
	rc, err := NewContext(&fallibleHookTest{})
	require.NoError(t, err)
	o := New(Isolated, reg)
	require.NoError(t, o.Start(context.Background(), rc))

	err = o.Stop(context.Background(), rc)
	var terr *TeardownError
	require.ErrorAs(t, err, &terr)
	require.Len(t, terr.Failures, 1)
	assert.Equal(t, "destroy hook third.Destroy", terr.Failures[0].Step)
	assert.Contains(t, err.Error(), "destroy exploded")

	assert.Equal(t, []string{
		"init first", "init second", "init third",
		"destroy third", "destroy second", "destroy first", "container closed",
	}, log.all())
	assert.Equal(t, 1, native.closedCount())
}

type unboundStringerTest struct {
	Name fmt.Stringer `rig:"virtual,init=String"`
}

func TestDeferredDispatchPanicInHookTearsDown(t *testing.T) {
	native := newMapNative(nil)
	reg := sealed(t, testRegistry(t, &mockAdapter{native: native}))
	rc, err := NewContext(&unboundStringerTest{})
	require.NoError(t, err)

	o := New(Isolated, reg)
	err = o.Start(context.Background(), rc)
	require.Error(t, err)

	var serr *SetupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, InitHooks, serr.Phase)
	var derr *proxy.DispatchError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, reflect.TypeFor[fmt.Stringer](), derr.Contract)

	assert.Equal(t, 1, native.closedCount())
	assert.Contains(t, rc.History(), Teardown)
	assert.NoError(t, o.Stop(context.Background(), rc))
}

func TestPanickingTeardownStepDoesNotStopOthers(t *testing.T) {
	log := &eventLog{}
	native := newMapNative(log)
	reg := testRegistry(t, &mockAdapter{native: native})
	require.NoError(t, extension.Register[Reifier](reg, "cleanups", reifierFunc(func(ctx context.Context, rc *Context) error {
		rc.OnTeardown("first", func(context.Context) error {
			log.add("first")
			return nil
		})
		rc.OnTeardown("second", func(context.Context) error {
			log.add("second")
			panic("participant crashed")
		})
		return nil
	}), extension.TagIsolated, FinalReify.Tag()))
	sealed(t, reg)

	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)
	o := New(Isolated, reg)
	require.NoError(t, o.Start(context.Background(), rc))

	err = o.Stop(context.Background(), rc)
	var terr *TeardownError
	require.ErrorAs(t, err, &terr)
	require.Len(t, terr.Failures, 1)
	assert.Equal(t, "second", terr.Failures[0].Step)
	assert.Contains(t, err.Error(), "participant crashed")

	assert.Equal(t, []string{"second", "first", "container closed"}, log.all())
	assert.Equal(t, 1, native.closedCount())
}

func TestPanickingReifierFailsSetup(t *testing.T) {
	native := newMapNative(nil)
	reg := testRegistry(t, &mockAdapter{native: native})
	require.NoError(t, extension.Register[Reifier](reg, "crash", reifierFunc(func(ctx context.Context, rc *Context) error {
		panic(errors.New("reifier crashed"))
	}), extension.TagIsolated, CollaboratorReify.Tag()))
	sealed(t, reg)

	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)
	err = New(Isolated, reg).Start(context.Background(), rc)

	var serr *SetupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, CollaboratorReify, serr.Phase)
	assert.Contains(t, err.Error(), "reifier crashed")
	assert.Equal(t, 1, native.closedCount())
}

type reifyTest struct {
	Sut     *greetingService `rig:"sut"`
	Store   *memStore        `rig:"fake"`
	Greeter Greeter          `rig:"virtual"`
	Clock   func() string    `rig:"real,name=utc"`
}

func greeterBinder(t *testing.T) *proxy.Binder {
	t.Helper()
	b := proxy.NewBinder()
	require.NoError(t, proxy.Register(b, func(d *proxy.Deferred[Greeter]) Greeter { return deferredGreeter{d} }))
	return b
}

type deferredGreeter struct{ d *proxy.Deferred[Greeter] }

func (g deferredGreeter) Greet(name string) string { return g.d.Delegate().Greet(name) }

func TestCollaboratorReification(t *testing.T) {
	native := newMapNative(nil)
	native.value(reflect.TypeFor[Greeter](), "", Greeter(englishGreeter{}))
	native.value(reflect.TypeFor[func() string](), "utc", func() string { return "noon" })
	native.bind(reflect.TypeFor[*greetingService](), "", func(r service.Resolver) (any, error) {
		store, err := service.Get[*memStore](r)
		if err != nil {
			return nil, err
		}
		g, err := service.Get[Greeter](r)
		if err != nil {
			return nil, err
		}
		return &greetingService{greeter: g, store: store}, nil
	})
	reg := sealed(t, testRegistry(t, &mockAdapter{native: native}))

	test := &reifyTest{}
	rc, err := NewContext(test)
	require.NoError(t, err)
	o := New(Isolated, reg, WithBinder(greeterBinder(t)))

	require.NoError(t, o.Start(context.Background(), rc))
	require.NotNil(t, test.Store)
	assert.Same(t, test.Store, test.Sut.store)
	assert.Equal(t, "noon", test.Clock())
	assert.Equal(t, "hello ann", test.Greeter.Greet("ann"))
	assert.Equal(t, "hello bob", test.Sut.Greet("bob"))
	_, isProxy := test.Greeter.(deferredGreeter)
	assert.True(t, isProxy)

	facade, ok := rc.Facade()
	require.True(t, ok)
	self, err := service.Get[*Context](facade)
	require.NoError(t, err)
	assert.Same(t, rc, self)

	require.NoError(t, o.Stop(context.Background(), rc))
	assert.Panics(t, func() { test.Greeter.Greet("late") })
}

type providerTest struct {
	Sut Greeter `rig:"sut"`
}

type frenchGreeter struct{}

func (frenchGreeter) Greet(name string) string { return "bonjour " + name }

func (p *providerTest) Collaborators() []any {
	return []any{service.Of[Greeter](frenchGreeter{}, "")}
}

func TestCollaboratorProviderOverridesNativeBindings(t *testing.T) {
	native := newMapNative(nil)
	native.value(reflect.TypeFor[Greeter](), "", Greeter(englishGreeter{}))
	reg := sealed(t, testRegistry(t, &mockAdapter{native: native}))

	d, err := descriptor.NewBuilder(reflect.TypeFor[providerTest]()).
		Sut(descriptor.SlotSpec{Name: "Sut", Type: reflect.TypeFor[Greeter]()}).
		CollaboratorProvider("Collaborators").
		Build()
	require.NoError(t, err)

	test := &providerTest{}
	rc, err := NewContextFor(test, d)
	require.NoError(t, err)
	require.NoError(t, New(Isolated, reg).Run(context.Background(), rc, func(ctx context.Context, rc *Context) error {
		assert.Equal(t, "bonjour ann", test.Sut.Greet("ann"))
		return nil
	}))
	assert.Contains(t, rc.History(), InitialReify)
}

type unproxyableTest struct {
	Store *memStore `rig:"virtual"`
}

func TestProxyPolicy(t *testing.T) {
	store := &memStore{data: map[string]string{"k": "v"}}

	t.Run("fail", func(t *testing.T) {
		native := newMapNative(nil)
		native.value(reflect.TypeFor[*memStore](), "", store)
		reg := sealed(t, testRegistry(t, &mockAdapter{native: native}))
		rc, err := NewContext(&unproxyableTest{})
		require.NoError(t, err)

		err = New(Isolated, reg).Start(context.Background(), rc)
		assert.True(t, IsVerificationError(err))
		assert.Contains(t, err.Error(), "cannot be proxied")
	})

	t.Run("eager", func(t *testing.T) {
		native := newMapNative(nil)
		native.value(reflect.TypeFor[*memStore](), "", store)
		reg := sealed(t, testRegistry(t, &mockAdapter{native: native}))
		test := &unproxyableTest{}
		rc, err := NewContext(test)
		require.NoError(t, err)

		o := New(Isolated, reg, WithProxyPolicy(ProxyEager))
		require.NoError(t, o.Run(context.Background(), rc, nil))
		assert.Same(t, store, test.Store)
	})
}

func TestPostVerifyIsReportOnly(t *testing.T) {
	log := &eventLog{}
	native := newMapNative(log)
	reg := testRegistry(t, &mockAdapter{native: native})
	require.NoError(t, extension.Register[Verifier](reg, "post", verifierFunc(func(ctx context.Context, rc *Context) error {
		return errors.New("end state is wrong")
	}), extension.TagIsolated, PostVerify.Tag()))
	sealed(t, reg)

	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)
	o := New(Isolated, reg)
	require.NoError(t, o.Start(context.Background(), rc))

	err = o.Stop(context.Background(), rc)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, PostVerify, verr.Phase)
	assert.False(t, IsTeardownError(err))
	assert.Equal(t, 1, native.closedCount())
	assert.Equal(t, Teardown, rc.History()[len(rc.History())-1])
}

func TestStartAndStopMisuse(t *testing.T) {
	reg := sealed(t, testRegistry(t, &mockAdapter{native: newMapNative(nil)}))
	o := New(Isolated, reg)

	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)
	assert.ErrorIs(t, o.Stop(context.Background(), rc), ErrNotStarted)

	require.NoError(t, o.Start(context.Background(), rc))
	assert.ErrorIs(t, o.Start(context.Background(), rc), ErrAlreadyStarted)
	require.NoError(t, o.Stop(context.Background(), rc))

	unsealed := testRegistry(t, &mockAdapter{native: newMapNative(nil)})
	rc, err = NewContext(&emptyTest{})
	require.NoError(t, err)
	assert.Error(t, New(Isolated, unsealed).Start(context.Background(), rc))
}

func TestPhaseStateMachine(t *testing.T) {
	rc, err := NewContext(&emptyTest{})
	require.NoError(t, err)
	rc.level = Isolated
	rc.plan = PlanFor(Isolated)

	require.NoError(t, rc.enter(PreVerify))
	require.NoError(t, rc.enter(CollaboratorReify))
	assert.ErrorIs(t, rc.enter(ContainerCreate), ErrPhaseOrder)
	assert.ErrorIs(t, rc.enter(CollaboratorReify), ErrPhaseOrder)
	assert.ErrorIs(t, rc.enter(ServerStart), ErrPhaseOrder)
	require.NoError(t, rc.enter(Teardown))
	assert.Equal(t, []Phase{PreVerify, CollaboratorReify, Teardown}, rc.History())
}
