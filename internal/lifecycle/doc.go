// Package lifecycle drives a single test invocation through its phases.
//
// An Orchestrator is created per level (Isolated, Container or EndToEnd) from
// a sealed extension registry. For every invocation the host creates a
// Context around the test instance and calls Start, runs the test body, and
// calls Stop. Run bundles the three steps.
//
// # Phases
//
// Every level runs the same shape:
//
//   - **PreVerify**: verifiers check the descriptor and resolve the providers
//     it needs; every problem is recorded before the invocation is aborted
//     with a VerificationError
//   - **ContainerCreate**: the ContainerAdapter creates and configures the
//     backing container and wraps it in a service.Facade
//   - **InitialReify**: only when the descriptor names a collaborator
//     provider; its results become facade replacements
//   - **CollaboratorReify**: fakes, real fields, virtual fields and the SUT
//     are populated from the facade
//   - **ServerStart** and **ClientStart**: EndToEnd only
//   - **FinalReify**: required resources are declared and, with the eager
//     strategy, started
//   - **WiringVerify**: verifiers check the populated test instance
//   - **InitHooks**: init hooks of the fields, then of the SUT
//
// Stop runs **PostVerify** (report only), **DestroyHooks** in reverse order
// and **Teardown**, which runs every registered cleanup in reverse order of
// registration and collects failures into a TeardownError.
//
// A failing setup phase is reported as a SetupError. The invocation is torn
// down before Start returns and the following Stop is a no-op.
// Panics raised by participants, such as a deferred proxy called while its
// delegate is unavailable, are recovered and reported like returned errors.
//
// # Participants
//
// Verifiers and Reifiers are found in the registry by the level tag and the
// phase tag (Phase.Tag). Verifiers tagged with guideline tags only run for
// descriptors declaring one of those guidelines. RegisterBuiltins installs
// the participants every level relies on.
//
// # Observers
//
// Observers are notified before and after each phase; the metrics and
// telemetry packages provide implementations.
package lifecycle
