package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/vaultboot/errdefs"
)

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]string),
	}
}

// Load returns a copy of the snapshot for appName.
func (s *MemoryStore) Load(_ context.Context, appName string) (map[string]string, error) {
	if err := ValidateAppName(appName); err != nil {
		return nil, err
	}

	s.mu.RLock()
	encoded, ok := s.entries[appName]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no snapshot for %q", errdefs.ErrCache, appName)
	}

	return Decode(encoded)
}

// Create stores the snapshot for appName. Snapshots are kept encoded so the
// stored value cannot be mutated through the caller's map.
func (s *MemoryStore) Create(_ context.Context, appName string, configuration map[string]string) error {
	if err := ValidateAppName(appName); err != nil {
		return err
	}

	encoded, err := Encode(configuration)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[appName] = encoded
	s.mu.Unlock()

	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
