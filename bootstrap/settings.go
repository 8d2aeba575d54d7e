package bootstrap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/vaultboot/auth"
	"github.com/jonwraymond/vaultboot/cache"
	"github.com/jonwraymond/vaultboot/errdefs"
)

// LoadedFlag is the environment variable marking a completed bootstrap.
const LoadedFlag = "VAULT_LOADED"

// DefaultDevelopmentEnvironment names the environment that caches and falls back.
const DefaultDevelopmentEnvironment = "development"

// Environment variables read by SettingsFromEnv.
const (
	EnvAppName         = "APP_NAME"
	EnvEnvironment     = "APP_ENV"
	EnvStoreURL        = "VAULT_URL"
	EnvUsername        = "VAULT_USERNAME"
	EnvPassword        = "VAULT_PWD"
	EnvVersion         = "VAULT_SECRETS_VERSION"
	EnvSkip            = "VAULT_SKIP"
	EnvCacheFile       = cache.FilenameEnvVar
	EnvOnUnreachable   = "VAULT_UNREACHABLE"
	EnvToken           = "VAULT_TOKEN"
	EnvHumanStrategy   = "VAULT_HUMAN_AUTH"
	EnvMachineStrategy = "VAULT_M2M_AUTH"
)

// UnreachablePolicy decides what happens when the store fails its
// reachability check outside the development environment.
type UnreachablePolicy string

const (
	// UnreachableContinue proceeds to the auth chain as if the check passed.
	UnreachableContinue UnreachablePolicy = "continue"

	// UnreachableFail aborts the bootstrap with a store error.
	UnreachableFail UnreachablePolicy = "fail"
)

// Settings configures one bootstrap. Zero values select the defaults
// documented on each field.
type Settings struct {
	// AppName identifies the application in the store and the cache. Required.
	AppName string `yaml:"app_name"`

	// Environment is the active deployment environment. Required.
	Environment string `yaml:"environment"`

	// DevelopmentEnvironment enables caching and the cache fallback.
	// Default: "development"
	DevelopmentEnvironment string `yaml:"development_environment"`

	// AllowedEnvironments restricts where bootstrap runs. Empty allows all.
	AllowedEnvironments []string `yaml:"allowed_environments"`

	// ConfigurationVersion pins the KV version. Empty or "latest" reads the current one.
	ConfigurationVersion string `yaml:"configuration_version"`

	// HumanAuthStrategy and M2MAuthStrategy name registered strategies.
	// Either may be empty.
	HumanAuthStrategy string `yaml:"human_auth_strategy"`
	M2MAuthStrategy   string `yaml:"m2m_auth_strategy"`

	// AuthConfig holds per-strategy options keyed by strategy name.
	AuthConfig map[string]map[string]any `yaml:"auth"`

	// ExplicitConfigurationPaths replaces the default global + app lookup.
	ExplicitConfigurationPaths []string `yaml:"configurations"`

	// RequiredKeys must all be present in the final configuration.
	RequiredKeys []string `yaml:"required_keys"`

	// Skip disables the bootstrap entirely.
	Skip bool `yaml:"skip"`

	// StoreURL is the store base URL.
	StoreURL string `yaml:"store_url"`

	// CacheFile is the snapshot file.
	// Default: VAULT_CACHE_FILENAME, then ".sec.json"
	CacheFile string `yaml:"cache_file"`

	// OnUnreachable applies outside the development environment.
	// Default: UnreachableContinue
	OnUnreachable UnreachablePolicy `yaml:"on_unreachable"`

	// RequestTimeout bounds each store request. Zero means no timeout.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// SettingsFromEnv builds settings from the environment variables listed
// above. Credentials land in AuthConfig under the strategy that uses them.
func SettingsFromEnv(env Environment) Settings {
	get := func(key string) string {
		v, _ := env.Lookup(key)
		return strings.TrimSpace(v)
	}

	s := Settings{
		AppName:              get(EnvAppName),
		Environment:          get(EnvEnvironment),
		StoreURL:             get(EnvStoreURL),
		ConfigurationVersion: get(EnvVersion),
		CacheFile:            get(EnvCacheFile),
		OnUnreachable:        UnreachablePolicy(strings.ToLower(get(EnvOnUnreachable))),
		HumanAuthStrategy:    get(EnvHumanStrategy),
		M2MAuthStrategy:      get(EnvMachineStrategy),
	}

	if skip, err := strconv.ParseBool(get(EnvSkip)); err == nil {
		s.Skip = skip
	}

	username, password := get(EnvUsername), get(EnvPassword)
	if username != "" || password != "" {
		s.setAuthOption(auth.UserpassName, "username", username)
		s.setAuthOption(auth.UserpassName, "password", password)
		if s.HumanAuthStrategy == "" {
			s.HumanAuthStrategy = auth.UserpassName
		}
	}

	if token := get(EnvToken); token != "" {
		s.setAuthOption(auth.StaticTokenName, "token", token)
		if s.HumanAuthStrategy == "" {
			s.HumanAuthStrategy = auth.StaticTokenName
		}
	}

	return s
}

func (s *Settings) setAuthOption(strategy, key string, value any) {
	if s.AuthConfig == nil {
		s.AuthConfig = make(map[string]map[string]any)
	}
	if s.AuthConfig[strategy] == nil {
		s.AuthConfig[strategy] = make(map[string]any)
	}
	s.AuthConfig[strategy][key] = value
}

// withDefaults returns a copy with defaults applied.
func (s Settings) withDefaults() Settings {
	if s.DevelopmentEnvironment == "" {
		s.DevelopmentEnvironment = DefaultDevelopmentEnvironment
	}
	if s.OnUnreachable == "" {
		s.OnUnreachable = UnreachableContinue
	}
	return s
}

// IsDevelopment reports whether the active environment is the development one.
func (s Settings) IsDevelopment() bool {
	return s.withDefaults().DevelopmentEnvironment == s.Environment
}

// Validate checks values that would otherwise fail late: the unreachable
// policy and the strategy names. Strategies are looked up in registry, or
// auth.DefaultRegistry when nil.
func (s Settings) Validate(registry *auth.Registry) error {
	if registry == nil {
		registry = auth.DefaultRegistry
	}

	switch s.withDefaults().OnUnreachable {
	case UnreachableContinue, UnreachableFail:
	default:
		return fmt.Errorf("%w: on_unreachable must be %q or %q, got %q",
			errdefs.ErrConfig, UnreachableContinue, UnreachableFail, s.OnUnreachable)
	}

	for _, name := range []string{s.HumanAuthStrategy, s.M2MAuthStrategy} {
		if name != "" && !registry.Has(name) {
			return fmt.Errorf("%w: %w %q (registered: %s)",
				errdefs.ErrConfig, auth.ErrUnknownStrategy, name, strings.Join(registry.List(), ", "))
		}
	}

	if s.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must not be negative", errdefs.ErrConfig)
	}

	return nil
}
