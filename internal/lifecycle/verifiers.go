package lifecycle

import (
	"context"
	"fmt"

	"testrig/internal/descriptor"
	"testrig/internal/extension"
	"testrig/internal/service"
)

// SutVerifier checks that the SUT slot can hold a value of its contract and,
// for deferred slots, that the contract can be proxied.
type SutVerifier struct{}

func (SutVerifier) Verify(ctx context.Context, rc *Context) error {
	sut, ok := rc.Descriptor().Sut()
	if !ok {
		return nil
	}
	slotType, contract := sut.Type(), sut.Contract()
	if slotType == nil || contract == nil {
		return fmt.Errorf("sut %s has no type", sut.Name())
	}
	if !contract.AssignableTo(slotType) && !sut.Compatible(slotType) {
		rc.Errorf("sut %s of type %v cannot hold contract %v", sut.Name(), slotType, contract)
	}
	if sut.Deferred() {
		if !contract.AssignableTo(slotType) {
			rc.Errorf("deferred sut %s must be declared as its contract %v, not %v", sut.Name(), contract, slotType)
		}
		if !rc.Binder().Supports(contract) && rc.ProxyPolicy() == ProxyFail {
			rc.Errorf("deferred sut %s: contract %v cannot be proxied", sut.Name(), contract)
		}
	}
	return nil
}

// ProviderVerifier resolves the container adapter and every provider named by
// the descriptor's hint, plus the server and client providers at EndToEnd, so
// configuration mistakes are reported before a container exists.
type ProviderVerifier struct{}

func (ProviderVerifier) Verify(ctx context.Context, rc *Context) error {
	hint, _ := rc.Descriptor().Hint()
	level := rc.Level().Tag()

	requireOne[ContainerAdapter](rc, hint.Container, level)
	if hint.Fakes != "" {
		requireOne[FakeFactory](rc, hint.Fakes)
	}
	if rc.Level() == EndToEnd || hint.Server != "" {
		requireOne[ServerProvider](rc, hint.Server, level)
	}
	if rc.Level() == EndToEnd || hint.Client != "" {
		requireOne[ClientProvider](rc, hint.Client, level)
	}
	return nil
}

func requireOne[C any](rc *Context, override string, tags ...extension.Tag) {
	if _, err := extension.GetOne[C](rc.Registry(), override, tags...); err != nil {
		rc.AddError(err)
	}
}

// FieldVerifier checks field names are unique, that every field exists on the
// test type and that virtual fields can be proxied.
type FieldVerifier struct{}

func (FieldVerifier) Verify(ctx context.Context, rc *Context) error {
	seen := make(map[string]bool)
	d := rc.Descriptor()
	for _, f := range d.Fields() {
		if seen[f.Name()] {
			rc.Errorf("field %s is declared more than once", f.Name())
			continue
		}
		seen[f.Name()] = true

		if _, err := rc.slotField(f); err != nil {
			rc.AddError(err)
			continue
		}
		if f.Strategy() != descriptor.StrategyVirtual {
			continue
		}
		contract := f.Contract()
		if !rc.Binder().Supports(contract) && rc.ProxyPolicy() == ProxyFail {
			rc.Errorf("virtual field %s: contract %v cannot be proxied", f.Name(), contract)
		}
	}
	if sut, ok := d.Sut(); ok && seen[sut.Name()] {
		rc.Errorf("sut %s is also declared as a field", sut.Name())
	}
	return nil
}

// MarkerVerifier dispatches every marker to the inspector registered for its
// type. Client and server markers are only meaningful at the EndToEnd level.
type MarkerVerifier struct{}

func (MarkerVerifier) Verify(ctx context.Context, rc *Context) error {
	d := rc.Descriptor()
	for _, s := range d.Slots() {
		for _, m := range s.Markers() {
			if (m.Type == descriptor.MarkerClient || m.Type == descriptor.MarkerServer) && rc.Level() != EndToEnd {
				rc.Errorf("%s marker on %s requires the %s level, not %s", m.Type, s.Name(), EndToEnd, rc.Level())
				continue
			}
			inspector, ok := rc.Registry().InspectorFor(m.Type)
			if !ok {
				continue
			}
			rc.AddError(inspector.Inspect(d, s, m))
		}
	}
	return nil
}

// ContainerRequirementVerifier checks every required container has a resource
// provider registered under its name.
type ContainerRequirementVerifier struct{}

func (ContainerRequirementVerifier) Verify(ctx context.Context, rc *Context) error {
	for _, name := range rc.Descriptor().RequiredContainers() {
		if _, ok := extension.Lookup[ResourceProvider](rc.Registry(), name); !ok {
			rc.Errorf("no resource provider for required container %s", name)
		}
	}
	return nil
}

// PopulatedVerifier checks every declared slot holds a value after
// reification.
type PopulatedVerifier struct{}

func (PopulatedVerifier) Verify(ctx context.Context, rc *Context) error {
	for _, s := range rc.Descriptor().Slots() {
		f, err := rc.slotField(s)
		if err != nil {
			rc.AddError(err)
			continue
		}
		if f.IsZero() {
			rc.Errorf("%s was not populated", s.Name())
		}
	}
	return nil
}

// DeferredResolutionVerifier checks that the delegate of every virtual field
// and deferred SUT can still be resolved at the end of the test.
type DeferredResolutionVerifier struct{}

func (DeferredResolutionVerifier) Verify(ctx context.Context, rc *Context) error {
	facade, ok := rc.Facade()
	if !ok {
		return nil
	}
	vocab := rc.Vocabulary()
	d := rc.Descriptor()

	var deferred []descriptor.Slot
	for _, f := range d.Fields() {
		if f.Strategy() == descriptor.StrategyVirtual {
			deferred = append(deferred, f)
		}
	}
	if sut, ok := d.Sut(); ok && sut.Deferred() {
		deferred = append(deferred, sut)
	}

	for _, s := range deferred {
		if _, err := facade.GetService(s.Contract(), service.QualifiersFor(s, vocab)...); err != nil {
			rc.Errorf("deferred %s did not resolve: %v", s.Name(), err)
		}
	}
	return nil
}

// QualifierInspector rejects empty name and qualifier markers.
type QualifierInspector struct{}

func (QualifierInspector) Handles() []descriptor.MarkerType {
	return []descriptor.MarkerType{descriptor.MarkerNamed, descriptor.MarkerQualifier}
}

func (QualifierInspector) Inspect(d *descriptor.TestDescriptor, s descriptor.Slot, m descriptor.Marker) error {
	if m.Value == "" {
		return fmt.Errorf("%s marker on %s has no value", m.Type, s.Name())
	}
	return nil
}

// EndpointInspector checks client and server markers sit on real fields only,
// and never both on one field.
type EndpointInspector struct{}

func (EndpointInspector) Handles() []descriptor.MarkerType {
	return []descriptor.MarkerType{descriptor.MarkerClient, descriptor.MarkerServer}
}

func (EndpointInspector) Inspect(d *descriptor.TestDescriptor, s descriptor.Slot, m descriptor.Marker) error {
	f, ok := s.(descriptor.FieldDescriptor)
	if !ok {
		return fmt.Errorf("%s marker is not allowed on the sut %s", m.Type, s.Name())
	}
	if f.Strategy() != descriptor.StrategyReal {
		return fmt.Errorf("%s marker on %s requires a real field, not %s", m.Type, s.Name(), f.Strategy())
	}
	if m.Type == descriptor.MarkerClient && f.HasMarker(descriptor.MarkerServer) {
		return fmt.Errorf("%s cannot be both client and server", s.Name())
	}
	return nil
}
