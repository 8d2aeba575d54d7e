package bootstrap

import (
	"maps"
	"os"
	"strings"
	"sync"
)

// Environment is the process-wide key/value state bootstrap reads from and
// writes to.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Snapshot returns a copy; later writes must not show through it.
type Environment interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
	Snapshot() map[string]string
}

// OSEnvironment is the real process environment.
type OSEnvironment struct{}

// Lookup calls os.LookupEnv.
func (OSEnvironment) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Set calls os.Setenv.
func (OSEnvironment) Set(key, value string) error {
	return os.Setenv(key, value)
}

// Snapshot parses os.Environ.
func (OSEnvironment) Snapshot() map[string]string {
	environ := os.Environ()
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// MapEnvironment is an in-memory Environment for tests and embedders that
// do not want to touch the process environment.
type MapEnvironment struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewMapEnvironment creates a MapEnvironment seeded with a copy of initial.
func NewMapEnvironment(initial map[string]string) *MapEnvironment {
	vars := make(map[string]string, len(initial))
	maps.Copy(vars, initial)
	return &MapEnvironment{vars: vars}
}

// Lookup returns the value of key.
func (e *MapEnvironment) Lookup(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.vars[key]
	return v, ok
}

// Set stores value under key.
func (e *MapEnvironment) Set(key, value string) error {
	if err := validEnvKey(key); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.vars[key] = value
	return nil
}

// Snapshot returns a copy of all variables.
func (e *MapEnvironment) Snapshot() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return maps.Clone(e.vars)
}

// Ensure implementations satisfy Environment
var (
	_ Environment = OSEnvironment{}
	_ Environment = (*MapEnvironment)(nil)
)
