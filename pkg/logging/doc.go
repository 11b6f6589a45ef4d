// Package logging provides the subsystem-tagged structured logger used across
// testrig.
//
// It is a thin layer over Go's slog package. Every record carries a
// "subsystem" attribute so output from the orchestrator, the extension
// registry and the service facades can be filtered independently.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Orchestrator", "Starting %s invocation %s", level, id)
//	logging.Debug("Registry", "Sealed catalog with %d entries", n)
//	logging.Error("Facade", err, "Failed to destroy container")
//
// Until InitForCLI is called all records are dropped, which keeps library
// use inside `go test` silent by default.
//
// # Subsystems
//
//   - Orchestrator: phase execution and teardown
//   - Registry: extension registration and sealing
//   - Facade: container lookups and overrides
//   - Proxy: deferred-binding dispatch
//   - Suite: concurrent invocation runner
//   - Config: configuration loading
//
// # Thread Safety
//
// Logging and reconfiguration are safe for concurrent use.
package logging
