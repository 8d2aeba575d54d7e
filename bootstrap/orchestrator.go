package bootstrap

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/vaultboot/auth"
	"github.com/jonwraymond/vaultboot/cache"
	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/observe"
	"github.com/jonwraymond/vaultboot/secret"
	"github.com/jonwraymond/vaultboot/transport"
)

// State is the terminal state of a bootstrap run.
type State string

const (
	StateDone                         State = "done"
	StateFailed                       State = "failed"
	StateSkippedBySettings            State = "skipped_by_settings"
	StateSkippedEnvironmentNotAllowed State = "skipped_environment_not_allowed"
	StateSkippedAlreadyLoaded         State = "skipped_already_loaded"
)

// Skipped reports whether the run ended at a guard.
func (s State) Skipped() bool {
	switch s {
	case StateSkippedBySettings, StateSkippedEnvironmentNotAllowed, StateSkippedAlreadyLoaded:
		return true
	}
	return false
}

// Source says where injected configuration came from.
type Source string

const (
	SourceNone  Source = ""
	SourceStore Source = "store"
	SourceCache Source = "cache"
)

// Result reports what a bootstrap run did.
type Result struct {
	State  State
	Source Source

	// Keys lists, sorted, the variables written to the environment.
	// Pre-existing keys are never written and never listed.
	Keys []string
}

// Pinger tests store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options supplies the collaborators of an Orchestrator. Every field is
// optional; nil fields are built from Settings.
type Options struct {
	// Caller performs store requests. Default: a transport.Client for Settings.StoreURL.
	Caller transport.Caller

	// Pinger checks reachability. Default: Caller, when it implements Pinger.
	Pinger Pinger

	// Fetcher reads configuration. Default: secret.Service over Caller.
	Fetcher secret.Fetcher

	// Cache stores development snapshots. Default: cache.FileStore at Settings.CacheFile.
	Cache cache.Store

	// Registry resolves strategy names. Default: auth.DefaultRegistry.
	Registry *auth.Registry

	// Environment is read at entry and written on commit. Default: OSEnvironment.
	Environment Environment

	// Runner instruments each stage. Default: observe.NopRunner().
	Runner *observe.Runner
}

// Orchestrator runs the bootstrap sequence.
//
// Contract:
// - Concurrency: concurrent Load calls share one in-flight run.
// - Side effects: the environment is written only after validation passes,
//   and at most once per process (guarded by LoadedFlag).
type Orchestrator struct {
	settings Settings
	caller   transport.Caller
	pinger   Pinger
	fetcher  secret.Fetcher
	cache    cache.Store
	registry *auth.Registry
	env      Environment
	runner   *observe.Runner
	logger   observe.Logger

	group singleflight.Group
}

// New creates an Orchestrator. It fails with errdefs.ErrConfig when settings
// are malformed; a missing application name or store URL is reported by Load
// after the guards, so skipped runs never fail on them.
func New(settings Settings, opts Options) (*Orchestrator, error) {
	if opts.Registry == nil {
		opts.Registry = auth.DefaultRegistry
	}
	if err := settings.Validate(opts.Registry); err != nil {
		return nil, err
	}
	settings = settings.withDefaults()

	if opts.Caller == nil && settings.StoreURL != "" {
		client, err := transport.NewClient(transport.Config{
			Address: settings.StoreURL,
			Timeout: settings.RequestTimeout,
		})
		if err != nil {
			return nil, err
		}
		opts.Caller = client
	}
	if opts.Pinger == nil {
		if p, ok := opts.Caller.(Pinger); ok {
			opts.Pinger = p
		}
	}
	if opts.Fetcher == nil && opts.Caller != nil {
		opts.Fetcher = secret.NewService(opts.Caller, secret.Config{Environment: settings.Environment})
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewFileStore(cache.FileConfig{Path: settings.CacheFile})
	}
	if opts.Environment == nil {
		opts.Environment = OSEnvironment{}
	}
	if opts.Runner == nil {
		opts.Runner = observe.NopRunner()
	}

	return &Orchestrator{
		settings: settings,
		caller:   opts.Caller,
		pinger:   opts.Pinger,
		fetcher:  opts.Fetcher,
		cache:    opts.Cache,
		registry: opts.Registry,
		env:      opts.Environment,
		runner:   opts.Runner,
		logger:   opts.Runner.Logger(),
	}, nil
}

// Run bootstraps the process environment with default collaborators.
func Run(ctx context.Context, settings Settings) (Result, error) {
	o, err := New(settings, Options{})
	if err != nil {
		return Result{State: StateFailed}, err
	}
	return o.Load(ctx)
}

// Load runs the bootstrap. Guard skips return a skipped State and a nil error.
func (o *Orchestrator) Load(ctx context.Context) (Result, error) {
	v, err, _ := o.group.Do("load", func() (any, error) {
		return o.load(ctx)
	})
	result, _ := v.(Result)
	if result.State == "" {
		result.State = StateFailed
	}
	return result, err
}

func (o *Orchestrator) meta(stage string) observe.StageMeta {
	return observe.StageMeta{
		Stage:       stage,
		AppName:     o.settings.AppName,
		Environment: o.settings.Environment,
	}
}

func (o *Orchestrator) load(ctx context.Context) (Result, error) {
	// Never consult live state mid-run: every precedence decision uses this copy.
	snapshot := o.env.Snapshot()
	failed := Result{State: StateFailed}

	var skip State
	err := o.runner.Run(ctx, o.meta(observe.StageGuards), func(ctx context.Context) error {
		var err error
		skip, err = o.guard(snapshot)
		return err
	})
	if err != nil {
		return failed, err
	}
	if skip != "" {
		o.logger.Info(ctx, "bootstrap skipped",
			observe.Field{Key: "reason", Value: string(skip)},
			observe.Field{Key: "app", Value: o.settings.AppName},
		)
		return Result{State: skip}, nil
	}

	var pingErr error
	err = o.runner.Run(ctx, o.meta(observe.StageReachability), func(ctx context.Context) error {
		pingErr = o.pinger.Ping(ctx)
		if pingErr != nil && !o.settings.IsDevelopment() && o.settings.OnUnreachable == UnreachableFail {
			return fmt.Errorf("%w: %w: %w", errdefs.ErrStore, ErrUnreachable, pingErr)
		}
		return nil
	})
	if err != nil {
		return failed, err
	}

	if pingErr != nil {
		if o.settings.IsDevelopment() {
			return o.fallback(ctx, snapshot, pingErr)
		}
		o.logger.Warn(ctx, "store unreachable, continuing",
			observe.Field{Key: "error", Value: pingErr.Error()},
			observe.Field{Key: "policy", Value: string(o.settings.OnUnreachable)},
		)
	}

	var token auth.Token
	err = o.runner.Run(ctx, o.meta(observe.StageAuth), func(ctx context.Context) error {
		chain, err := o.chain()
		if err != nil {
			return err
		}
		token, err = chain.Login(ctx, o.settings.AppName)
		return err
	})
	if err != nil {
		return failed, err
	}

	fetched := make(map[string]string)
	err = o.runner.Run(ctx, o.meta(observe.StageFetch), func(ctx context.Context) error {
		return o.fetch(ctx, string(token), fetched)
	})
	if err != nil {
		return failed, err
	}

	var final map[string]string
	err = o.runner.Run(ctx, o.meta(observe.StageMerge), func(ctx context.Context) error {
		for key := range fetched {
			if err := validEnvKey(key); err != nil {
				return fmt.Errorf("%w: %w", errdefs.ErrStore, err)
			}
		}
		final = merge(fetched, snapshot)
		return nil
	})
	if err != nil {
		return failed, err
	}

	err = o.runner.Run(ctx, o.meta(observe.StageValidate), func(ctx context.Context) error {
		return secret.Validate(o.settings.RequiredKeys, final)
	})
	if err != nil {
		return failed, err
	}

	var written []string
	err = o.runner.Run(ctx, o.meta(observe.StageCommit), func(ctx context.Context) error {
		var err error
		written, err = o.inject(fetched, snapshot)
		if err != nil {
			return err
		}

		if o.settings.IsDevelopment() {
			if err := o.cache.Create(ctx, o.settings.AppName, fetched); err != nil {
				o.logger.Warn(ctx, "failed to cache configuration",
					observe.Field{Key: "error", Value: err.Error()},
				)
			}
		}

		return o.markLoaded()
	})
	if err != nil {
		return failed, err
	}

	o.logger.Info(ctx, "bootstrap completed",
		observe.Field{Key: "app", Value: o.settings.AppName},
		observe.Field{Key: "source", Value: string(SourceStore)},
		observe.Field{Key: "keys", Value: len(written)},
	)
	return Result{State: StateDone, Source: SourceStore, Keys: written}, nil
}

// guard returns a skip state, or an error for settings that cannot run.
func (o *Orchestrator) guard(snapshot map[string]string) (State, error) {
	s := o.settings

	if s.Skip {
		return StateSkippedBySettings, nil
	}
	if len(s.AllowedEnvironments) > 0 && !slices.Contains(s.AllowedEnvironments, s.Environment) {
		return StateSkippedEnvironmentNotAllowed, nil
	}
	if snapshot[LoadedFlag] == "true" {
		return StateSkippedAlreadyLoaded, nil
	}
	if s.AppName == "" {
		return "", fmt.Errorf("%w: application name is required", errdefs.ErrConfig)
	}
	if s.Environment == "" {
		return "", fmt.Errorf("%w: environment is required", errdefs.ErrConfig)
	}
	if o.caller == nil || o.pinger == nil || o.fetcher == nil {
		return "", fmt.Errorf("%w: store URL is required", errdefs.ErrConfig)
	}
	return "", nil
}

// fallback injects the cached snapshot after a failed reachability check.
func (o *Orchestrator) fallback(ctx context.Context, snapshot map[string]string, pingErr error) (Result, error) {
	o.logger.Warn(ctx, "store unreachable, falling back to local cache, which may be out of sync",
		observe.Field{Key: "error", Value: pingErr.Error()},
	)

	var written []string
	err := o.runner.Run(ctx, o.meta(observe.StageCacheFallback), func(ctx context.Context) error {
		cached, err := o.cache.Load(ctx, o.settings.AppName)
		if err != nil {
			return fmt.Errorf("store unreachable (%v) and %w", pingErr, err)
		}
		for key := range cached {
			if err := validEnvKey(key); err != nil {
				return fmt.Errorf("%w: %w", errdefs.ErrCache, err)
			}
		}

		written, err = o.inject(cached, snapshot)
		if err != nil {
			return err
		}
		return o.markLoaded()
	})
	if err != nil {
		return Result{State: StateFailed}, err
	}

	o.logger.Info(ctx, "bootstrap completed",
		observe.Field{Key: "app", Value: o.settings.AppName},
		observe.Field{Key: "source", Value: string(SourceCache)},
		observe.Field{Key: "keys", Value: len(written)},
	)
	return Result{State: StateDone, Source: SourceCache, Keys: written}, nil
}

// chain builds the configured human and machine strategies.
func (o *Orchestrator) chain() (*auth.Chain, error) {
	var stages [2]auth.Strategy

	for i, name := range []string{o.settings.HumanAuthStrategy, o.settings.M2MAuthStrategy} {
		if name == "" {
			continue
		}
		strategy, err := o.registry.Create(name, o.caller, o.settings.AuthConfig[name])
		if err != nil {
			return nil, err
		}
		stages[i] = strategy
	}

	return auth.NewChain(stages[0], stages[1]), nil
}

// fetch accumulates configuration into out. Later sources override earlier ones.
func (o *Orchestrator) fetch(ctx context.Context, token string, out map[string]string) error {
	version := o.settings.ConfigurationVersion

	if paths := o.settings.ExplicitConfigurationPaths; len(paths) > 0 {
		for _, path := range paths {
			cfg, err := o.fetcher.Fetch(ctx, token, version, path)
			if err != nil {
				return err
			}
			maps.Copy(out, cfg)
		}
		return nil
	}

	global, err := o.fetcher.FetchGlobal(ctx, token, version)
	if err != nil {
		return err
	}
	maps.Copy(out, global)

	app, err := o.fetcher.FetchByAppName(ctx, token, o.settings.AppName, version)
	if err != nil {
		o.logger.Warn(ctx, "application configuration unavailable, using global only",
			observe.Field{Key: "path", Value: secret.AppPath(o.settings.AppName, o.settings.Environment)},
			observe.Field{Key: "not_found", Value: transport.IsNotFound(err)},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil
	}
	maps.Copy(out, app)
	return nil
}

// merge layers fetched configuration under the pre-existing environment.
func merge(fetched, snapshot map[string]string) map[string]string {
	final := make(map[string]string, len(fetched)+len(snapshot))
	maps.Copy(final, fetched)
	maps.Copy(final, snapshot)
	return final
}

// inject writes every key of cfg that was not set at entry and returns the
// written keys, sorted.
func (o *Orchestrator) inject(cfg, snapshot map[string]string) ([]string, error) {
	keys := slices.Sorted(maps.Keys(cfg))
	written := make([]string, 0, len(keys))

	for _, key := range keys {
		if _, preset := snapshot[key]; preset {
			continue
		}
		if err := o.env.Set(key, cfg[key]); err != nil {
			return written, fmt.Errorf("%w: set %s: %w", errdefs.ErrConfig, key, err)
		}
		written = append(written, key)
	}
	return written, nil
}

func (o *Orchestrator) markLoaded() error {
	if err := o.env.Set(LoadedFlag, "true"); err != nil {
		return fmt.Errorf("%w: set %s: %w", errdefs.ErrConfig, LoadedFlag, err)
	}
	return nil
}

// IsSkipped reports whether err is nil and result ended at a guard.
func IsSkipped(result Result, err error) bool {
	return err == nil && result.State.Skipped()
}
