// Package bootstrap populates a process's environment from the store before
// application code runs.
//
// An Orchestrator runs one bootstrap as a fixed sequence of stages:
//
//	guards → reachability → (cache fallback | auth → fetch → merge → validate → commit)
//
// Guards may skip the run without error: when Settings.Skip is set, when
// the active environment is not allowed, or when the loaded flag is already
// present. Keys that exist in the environment before the run always win over
// fetched values. Nothing is written until validation passes.
//
// In the development environment a successful run also persists the fetched
// configuration to a local cache, and an unreachable store falls back to
// that cache instead of failing.
//
//	settings := bootstrap.SettingsFromEnv(bootstrap.OSEnvironment{})
//	result, err := bootstrap.Run(ctx, settings)
package bootstrap
