// Package descriptor models the structural shape of a test type: its
// injectable fields, the optional system-under-test slot, declared properties
// such as modules and required containers, explicit provider hints and the
// guideline markers used to select verifiers.
//
// Descriptors are immutable once built. Absence is always reported through a
// comma-ok result (Sut, Hint, CollaboratorProvider) and partial descriptors,
// for example one without a SUT, are valid.
//
// The TagExtractor reads `rig` struct tags and the optional Configurer hook;
// Extract caches the result per type for the life of the process.
package descriptor
