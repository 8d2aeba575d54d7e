package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/transport"
)

// StrategyFactory creates a strategy bound to caller from configuration.
type StrategyFactory func(caller transport.Caller, cfg map[string]any) (Strategy, error)

// Registry manages strategy factories by name.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]StrategyFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]StrategyFactory),
	}
}

// Register adds a strategy factory.
func (r *Registry) Register(name string, factory StrategyFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return errors.New("invalid strategy registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[name]; exists {
		return fmt.Errorf("strategy %q already registered", name)
	}

	r.strategies[name] = factory
	return nil
}

// Has returns true if a strategy is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.strategies[strings.TrimSpace(name)]
	return ok
}

// Create instantiates a strategy by name. Unknown names fail with errdefs.ErrConfig.
func (r *Registry) Create(name string, caller transport.Caller, cfg map[string]any) (Strategy, error) {
	name = strings.TrimSpace(name)

	r.mu.RLock()
	factory, ok := r.strategies[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %w %q (registered: %s)", errdefs.ErrConfig, ErrUnknownStrategy, name, strings.Join(r.List(), ", "))
	}

	return factory(caller, cfg)
}

// List returns registered strategy names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global registry with the built-in strategies.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.Register(UserpassName, func(caller transport.Caller, cfg map[string]any) (Strategy, error) {
		return NewUserpass(caller, UserpassConfig{
			Username: stringOption(cfg, "username"),
			Password: stringOption(cfg, "password"),
			Mount:    mountOption(cfg, ""),
		})
	})

	_ = DefaultRegistry.Register(AppRoleName, func(caller transport.Caller, cfg map[string]any) (Strategy, error) {
		return NewAppRole(caller, AppRoleConfig{
			Role:  stringOption(cfg, "role"),
			Mount: mountOption(cfg, ""),
		}), nil
	})

	_ = DefaultRegistry.Register(KubernetesName, func(caller transport.Caller, cfg map[string]any) (Strategy, error) {
		return NewKubernetes(caller, KubernetesConfig{
			Role:      stringOption(cfg, "role"),
			Mount:     mountOption(cfg, ""),
			TokenPath: stringOption(cfg, "token_path"),
		}), nil
	})

	_ = DefaultRegistry.Register(StaticTokenName, func(_ transport.Caller, cfg map[string]any) (Strategy, error) {
		return NewStaticToken(stringOption(cfg, "token"))
	})
}
