package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"testrig/internal/descriptor"
	"testrig/internal/extension"
	"testrig/internal/proxy"
	"testrig/internal/service"
	"testrig/pkg/logging"
)

// CollaboratorProviderReifier invokes the descriptor's collaborator provider
// method on the test instance and registers its results as replacements.
// Results may be service.Instance, service.ProxyInstance or plain values.
type CollaboratorProviderReifier struct{}

func (CollaboratorProviderReifier) Reify(ctx context.Context, rc *Context) error {
	method, ok := rc.Descriptor().CollaboratorProvider()
	if !ok {
		return nil
	}
	facade, ok := rc.Facade()
	if !ok {
		return fmt.Errorf("collaborator provider needs a container")
	}

	results, err := method.Invoke(ctx, rc.Test())
	if err != nil {
		return fmt.Errorf("collaborator provider: %w", err)
	}

	for _, r := range results {
		var inst service.Instance
		switch v := r.(type) {
		case nil:
			continue
		case service.Instance:
			inst = v
		case *service.Instance:
			inst = *v
		case service.ProxyInstance:
			if inst, err = rc.deferredInstance(v); err != nil {
				return err
			}
		default:
			inst = service.Instance{Value: v}
		}
		if err := facade.Replace(inst); err != nil {
			return fmt.Errorf("failed to register collaborator %s: %w", inst, err)
		}
	}
	logging.Debug("Orchestrator", "Registered %d collaborators for %s", len(results), rc.ID())
	return nil
}

// deferredInstance turns a ProxyInstance into an Instance holding a proxy,
// or the eagerly resolved value when the policy allows it.
func (rc *Context) deferredInstance(p service.ProxyInstance) (service.Instance, error) {
	if p.Supplier == nil || p.Contract == nil {
		return service.Instance{}, fmt.Errorf("proxy instance %q needs a contract and a supplier", p.Name)
	}
	v, err := rc.Binder().CreateDeferred(p.Contract, p.Supplier)
	if errors.Is(err, proxy.ErrNotSupported) && rc.ProxyPolicy() == ProxyEager {
		value, ok := p.Supplier()
		if !ok {
			return service.Instance{}, fmt.Errorf("%v(%s) cannot be proxied and is not available yet", p.Contract, p.Name)
		}
		logging.Debug("Orchestrator", "Resolved %v eagerly, it cannot be proxied", p.Contract)
		v, err = value, nil
	}
	if err != nil {
		return service.Instance{}, err
	}
	return service.Instance{Value: v, Name: p.Name, Contract: p.Contract}, nil
}

// CollaboratorReifier populates the test instance: fakes first, which are
// also replaced into the facade, then real fields, then virtual fields, then
// the SUT.
type CollaboratorReifier struct{}

func (CollaboratorReifier) Reify(ctx context.Context, rc *Context) error {
	facade, ok := rc.Facade()
	if !ok {
		return fmt.Errorf("collaborator reification needs a container")
	}
	vocab := rc.Vocabulary()
	fields := rc.Descriptor().Fields()

	for _, f := range fields {
		if f.Strategy() != descriptor.StrategyFake {
			continue
		}
		fake, err := rc.fake(f.Contract())
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name(), err)
		}
		if err := rc.SetSlot(f, fake); err != nil {
			return err
		}
		name, _ := f.Named()
		if err := facade.Replace(service.Instance{Value: fake, Name: name, Contract: f.Contract()}); err != nil {
			return fmt.Errorf("field %s: %w", f.Name(), err)
		}
	}

	for _, f := range fields {
		if f.Strategy() != descriptor.StrategyReal || isEndpoint(f) {
			continue
		}
		v, err := facade.GetService(f.Contract(), service.QualifiersFor(f, vocab)...)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name(), err)
		}
		if err := rc.SetSlot(f, v); err != nil {
			return err
		}
	}

	for _, f := range fields {
		if f.Strategy() != descriptor.StrategyVirtual {
			continue
		}
		v, err := rc.deferredLookup(facade, f, vocab)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name(), err)
		}
		if err := rc.SetSlot(f, v); err != nil {
			return err
		}
	}

	sut, ok := rc.Descriptor().Sut()
	if !ok {
		return nil
	}
	var (
		v   any
		err error
	)
	if sut.Deferred() {
		v, err = rc.deferredLookup(facade, sut, vocab)
	} else {
		v, err = facade.GetService(sut.Contract(), service.QualifiersFor(sut, vocab)...)
	}
	if err != nil {
		return fmt.Errorf("sut %s: %w", sut.Name(), err)
	}
	if v != nil && !sut.Accepts(reflect.TypeOf(v)) {
		return fmt.Errorf("sut %s of type %v cannot hold %T", sut.Name(), sut.Type(), v)
	}
	return rc.SetSlot(sut, v)
}

// deferredLookup returns a proxy resolving s through the facade on every
// call, or the real instance when s cannot be proxied and the policy allows
// eager resolution.
func (rc *Context) deferredLookup(facade service.Facade, s descriptor.Slot, vocab service.Vocabulary) (any, error) {
	contract := s.Contract()
	qualifiers := service.QualifiersFor(s, vocab)

	v, err := rc.Binder().CreateDeferred(contract, func() (any, bool) {
		v, err := facade.GetService(contract, qualifiers...)
		if err != nil {
			logging.Debug("Proxy", "Delegate of %s not available: %v", s.Name(), err)
			return nil, false
		}
		return v, true
	})
	if errors.Is(err, proxy.ErrNotSupported) && rc.ProxyPolicy() == ProxyEager {
		logging.Debug("Orchestrator", "Resolving %s eagerly, %v cannot be proxied", s.Name(), contract)
		return facade.GetService(contract, qualifiers...)
	}
	return v, err
}

func isEndpoint(s descriptor.Slot) bool {
	return len(s.MarkersOf(descriptor.MarkerClient)) > 0 || len(s.MarkersOf(descriptor.MarkerServer)) > 0
}

// ResourceReifier declares the required containers of the descriptor and
// starts them when the resource strategy is eager.
type ResourceReifier struct{}

func (ResourceReifier) Reify(ctx context.Context, rc *Context) error {
	for _, name := range rc.Descriptor().RequiredContainers() {
		p, ok := extension.Lookup[ResourceProvider](rc.Registry(), name)
		if !ok {
			return extension.NewConfigurationError("no resource provider for required container %s", name)
		}
		r := rc.addResource(name, p)
		if rc.ResourceStrategy() == Lazy {
			continue
		}
		if _, err := r.start(ctx, rc); err != nil {
			return err
		}
	}
	return nil
}

// ServerReifier starts the EndToEnd server, registers its handle in the
// facade and stores it in fields marked as server.
type ServerReifier struct{}

func (ServerReifier) Reify(ctx context.Context, rc *Context) error {
	hint, _ := rc.Descriptor().Hint()
	p, err := extension.GetOne[ServerProvider](rc.Registry(), hint.Server, rc.Level().Tag())
	if err != nil {
		return err
	}
	raw, err := p.Configure(ctx, rc)
	if err != nil {
		return fmt.Errorf("failed to configure server: %w", err)
	}
	handle, err := p.Start(ctx, rc, raw)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	rc.SetServer(handle)
	rc.OnTeardown("server", func(ctx context.Context) error {
		return p.Stop(ctx, handle)
	})
	return rc.publishEndpoint(handle, descriptor.MarkerServer)
}

// ClientReifier creates the EndToEnd client and stores it in fields marked
// as client.
type ClientReifier struct{}

func (ClientReifier) Reify(ctx context.Context, rc *Context) error {
	hint, _ := rc.Descriptor().Hint()
	p, err := extension.GetOne[ClientProvider](rc.Registry(), hint.Client, rc.Level().Tag())
	if err != nil {
		return err
	}
	raw, err := p.Configure(ctx, rc)
	if err != nil {
		return fmt.Errorf("failed to configure client: %w", err)
	}
	client, err := p.Create(ctx, rc, raw)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	rc.SetClient(client)
	rc.OnTeardown("client", func(ctx context.Context) error {
		return p.Close(ctx, client)
	})
	return rc.publishEndpoint(client, descriptor.MarkerClient)
}

func (rc *Context) publishEndpoint(v any, marker descriptor.MarkerType) error {
	if v == nil {
		return nil
	}
	if facade, ok := rc.Facade(); ok {
		if err := facade.Replace(service.Instance{Value: v}); err != nil {
			return err
		}
	}
	for _, f := range rc.Descriptor().Fields() {
		if len(f.MarkersOf(marker)) == 0 {
			continue
		}
		if err := rc.SetSlot(f, v); err != nil {
			return fmt.Errorf("%s field %s: %w", marker, f.Name(), err)
		}
	}
	return nil
}
