package lifecycle

import (
	"context"

	"testrig/internal/extension"
	"testrig/internal/service"
)

// ContextInstanceProvider makes the invocation Context itself resolvable from
// every facade.
type ContextInstanceProvider struct{}

func (ContextInstanceProvider) Instances(ctx context.Context, rc *Context) ([]service.Instance, error) {
	return []service.Instance{service.Of(rc, "")}, nil
}

func tags(levels []extension.Tag, phase Phase) []extension.Tag {
	return append(append([]extension.Tag(nil), levels...), phase.Tag())
}

// RegisterBuiltins registers the verifiers, reifiers, inspectors, fake
// factory and instance provider every level relies on. Container adapters,
// resource providers and server and client providers are registered
// separately.
func RegisterBuiltins(r *extension.Registry) error {
	all := extension.AllLevels
	backed := []extension.Tag{extension.TagContainer, extension.TagEndToEnd}
	e2e := []extension.Tag{extension.TagEndToEnd}

	steps := []func() error{
		func() error { return extension.Register[Verifier](r, "sut", SutVerifier{}, tags(all, PreVerify)...) },
		func() error { return extension.Register[Verifier](r, "fields", FieldVerifier{}, tags(all, PreVerify)...) },
		func() error { return extension.Register[Verifier](r, "markers", MarkerVerifier{}, tags(all, PreVerify)...) },
		func() error { return extension.Register[Verifier](r, "providers", ProviderVerifier{}, tags(all, PreVerify)...) },
		func() error {
			return extension.Register[Verifier](r, "container-requirements", ContainerRequirementVerifier{}, tags(backed, PreVerify)...)
		},
		func() error { return extension.Register[Verifier](r, "populated", PopulatedVerifier{}, tags(all, WiringVerify)...) },
		func() error {
			return extension.Register[Verifier](r, "deferred-resolution", DeferredResolutionVerifier{}, tags(all, PostVerify)...)
		},
		func() error {
			return extension.Register[Reifier](r, "collaborator-provider", CollaboratorProviderReifier{}, tags(all, InitialReify)...)
		},
		func() error {
			return extension.Register[Reifier](r, "collaborators", CollaboratorReifier{}, tags(all, CollaboratorReify)...)
		},
		func() error { return extension.Register[Reifier](r, "server", ServerReifier{}, tags(e2e, ServerStart)...) },
		func() error { return extension.Register[Reifier](r, "client", ClientReifier{}, tags(e2e, ClientStart)...) },
		func() error { return extension.Register[Reifier](r, "resources", ResourceReifier{}, tags(backed, FinalReify)...) },
		func() error { return extension.Register[extension.Inspector](r, "qualifiers", QualifierInspector{}) },
		func() error { return extension.Register[extension.Inspector](r, "endpoints", EndpointInspector{}) },
		func() error { return extension.Register[FakeFactory](r, "zero", ZeroFakeFactory{}, all...) },
		func() error { return extension.Register[InstanceProvider](r, "context", ContextInstanceProvider{}, all...) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
