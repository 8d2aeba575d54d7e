package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/jonwraymond/vaultboot/auth"
	"github.com/jonwraymond/vaultboot/cache"
	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/observe"
	"github.com/jonwraymond/vaultboot/transport"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestOrchestrator(t *testing.T, settings Settings, opts Options) *Orchestrator {
	t.Helper()

	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryStore()
	}
	if opts.Environment == nil {
		opts.Environment = NewMapEnvironment(nil)
	}
	o, err := New(settings, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestLoad_GlobalAndAppConfiguration(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu", "LOG_LEVEL": "info", "TIMEOUT": 30})
	store.put("billing/production", map[string]any{"LOG_LEVEL": "debug", "DB_HOST": "db.internal"})

	env := NewMapEnvironment(map[string]string{"PATH": "/bin"})
	o := newTestOrchestrator(t, testSettings(store, "production"), Options{Environment: env})

	result, err := o.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.State != StateDone || result.Source != SourceStore {
		t.Errorf("result = %+v, want done from store", result)
	}
	if want := []string{"DB_HOST", "LOG_LEVEL", "REGION", "TIMEOUT"}; !reflect.DeepEqual(result.Keys, want) {
		t.Errorf("Keys = %v, want %v", result.Keys, want)
	}

	want := map[string]string{
		"PATH":      "/bin",
		"REGION":    "eu",
		"LOG_LEVEL": "debug",
		"DB_HOST":   "db.internal",
		"TIMEOUT":   "30",
		LoadedFlag:  "true",
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("environment = %v, want %v", got, want)
	}

	if got := store.readPaths(); !reflect.DeepEqual(got, []string{"global", "billing/production"}) {
		t.Errorf("reads = %v", got)
	}
	for _, token := range store.readTokens() {
		if token != testToken {
			t.Errorf("read token = %q, want %q", token, testToken)
		}
	}
}

func TestLoad_PreexistingKeysWin(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"DB_HOST": "from-store", "REGION": "eu"})

	env := NewMapEnvironment(map[string]string{"DB_HOST": "from-operator"})
	settings := testSettings(store, "production")
	settings.RequiredKeys = []string{"DB_HOST", "REGION"}
	o := newTestOrchestrator(t, settings, Options{Environment: env})

	result, err := o.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v, _ := env.Lookup("DB_HOST"); v != "from-operator" {
		t.Errorf("DB_HOST = %q, want from-operator", v)
	}
	if !reflect.DeepEqual(result.Keys, []string{"REGION"}) {
		t.Errorf("Keys = %v, want [REGION]", result.Keys)
	}
}

func TestLoad_RequiredKeySatisfiedByEnvironment(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})

	env := NewMapEnvironment(map[string]string{"API_KEY": "preset"})
	settings := testSettings(store, "production")
	settings.RequiredKeys = []string{"API_KEY", "REGION"}
	o := newTestOrchestrator(t, settings, Options{Environment: env})

	if _, err := o.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoad_ValidationFailureWritesNothing(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})

	env := NewMapEnvironment(map[string]string{"HOME": "/root"})
	settings := testSettings(store, "production")
	settings.RequiredKeys = []string{"REGION", "DB_PASSWORD", "API_KEY", "DB_PASSWORD"}
	o := newTestOrchestrator(t, settings, Options{Environment: env})

	result, err := o.Load(context.Background())
	if result.State != StateFailed {
		t.Errorf("State = %q, want failed", result.State)
	}
	if !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	var verr *errdefs.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if want := []string{"API_KEY", "DB_PASSWORD"}; !reflect.DeepEqual(verr.Missing, want) {
		t.Errorf("Missing = %v, want %v", verr.Missing, want)
	}

	if got := env.Snapshot(); !reflect.DeepEqual(got, map[string]string{"HOME": "/root"}) {
		t.Errorf("environment changed: %v", got)
	}
}

func TestLoad_Idempotent(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})

	env := NewMapEnvironment(nil)
	o := newTestOrchestrator(t, testSettings(store, "production"), Options{Environment: env})

	if _, err := o.Load(context.Background()); err != nil {
		t.Fatalf("first Load() error = %v", err)
	}
	before := env.Snapshot()

	result, err := o.Load(context.Background())
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if result.State != StateSkippedAlreadyLoaded {
		t.Errorf("State = %q, want %q", result.State, StateSkippedAlreadyLoaded)
	}
	if store.loginCount() != 1 {
		t.Errorf("logins = %d, want 1", store.loginCount())
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Errorf("environment changed on second run: %v", got)
	}
}

func TestLoad_ConcurrentCallsShareOneRun(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})

	o := newTestOrchestrator(t, testSettings(store, "production"), Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := o.Load(context.Background())
			if err == nil && result.State != StateDone && result.State != StateSkippedAlreadyLoaded {
				err = errors.New("unexpected state " + string(result.State))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Load() error = %v", err)
		}
	}
	if store.loginCount() != 1 {
		t.Errorf("logins = %d, want 1", store.loginCount())
	}
}

func TestLoad_Guards(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		env      map[string]string
		want     State
	}{
		{
			name:     "skip",
			settings: Settings{Skip: true},
			want:     StateSkippedBySettings,
		},
		{
			name:     "environment not allowed",
			settings: Settings{AppName: "billing", Environment: "staging", AllowedEnvironments: []string{"production"}},
			want:     StateSkippedEnvironmentNotAllowed,
		},
		{
			name:     "already loaded",
			settings: Settings{AppName: "billing", Environment: "production"},
			env:      map[string]string{LoadedFlag: "true"},
			want:     StateSkippedAlreadyLoaded,
		},
		{
			name:     "skip wins over loaded flag",
			settings: Settings{Skip: true},
			env:      map[string]string{LoadedFlag: "true"},
			want:     StateSkippedBySettings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewMapEnvironment(tt.env)
			o := newTestOrchestrator(t, tt.settings, Options{Environment: env})

			result, err := o.Load(context.Background())
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if result.State != tt.want {
				t.Errorf("State = %q, want %q", result.State, tt.want)
			}
			if !IsSkipped(result, err) {
				t.Error("IsSkipped() = false")
			}
			if got := env.Snapshot(); !reflect.DeepEqual(got, NewMapEnvironment(tt.env).Snapshot()) {
				t.Errorf("environment changed: %v", got)
			}
		})
	}
}

func TestLoad_MissingSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{"no app name", Settings{Environment: "production", StoreURL: "http://127.0.0.1:1"}},
		{"no environment", Settings{AppName: "billing", StoreURL: "http://127.0.0.1:1"}},
		{"no store url", Settings{AppName: "billing", Environment: "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(t, tt.settings, Options{})

			result, err := o.Load(context.Background())
			if !errors.Is(err, errdefs.ErrConfig) {
				t.Errorf("error = %v, want ErrConfig", err)
			}
			if result.State != StateFailed {
				t.Errorf("State = %q, want failed", result.State)
			}
		})
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{"bad policy", Settings{OnUnreachable: "retry"}},
		{"unknown strategy", Settings{HumanAuthStrategy: "ldap"}},
		{"negative timeout", Settings{RequestTimeout: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.settings, Options{}); !errors.Is(err, errdefs.ErrConfig) {
				t.Errorf("New() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestLoad_MissingAppConfigurationTolerated(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})

	var logs bytes.Buffer
	runner := observe.NewRunner(nil, nil, observe.NewLoggerWithWriter("info", &logs))
	env := NewMapEnvironment(nil)
	o := newTestOrchestrator(t, testSettings(store, "production"), Options{Environment: env, Runner: runner})

	result, err := o.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(result.Keys, []string{"REGION"}) {
		t.Errorf("Keys = %v", result.Keys)
	}
	if !strings.Contains(logs.String(), "billing/production") {
		t.Errorf("logs do not mention the missing path:\n%s", logs.String())
	}
}

func TestLoad_MissingGlobalConfigurationFails(t *testing.T) {
	store := newFakeStore(t)
	store.put("billing/production", map[string]any{"DB_HOST": "db"})

	env := NewMapEnvironment(nil)
	o := newTestOrchestrator(t, testSettings(store, "production"), Options{Environment: env})

	_, err := o.Load(context.Background())
	if !errors.Is(err, errdefs.ErrStore) {
		t.Fatalf("error = %v, want ErrStore", err)
	}
	if len(env.Snapshot()) != 0 {
		t.Errorf("environment changed: %v", env.Snapshot())
	}
}

func TestLoad_ExplicitPaths(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"IGNORED": "yes"})
	store.put("shared/db", map[string]any{"DB_HOST": "shared", "DB_PORT": "5432"})
	store.put("billing/overrides", map[string]any{"DB_HOST": "override"})

	env := NewMapEnvironment(nil)
	settings := testSettings(store, "production")
	settings.ExplicitConfigurationPaths = []string{"shared/db", "billing/overrides"}
	o := newTestOrchestrator(t, settings, Options{Environment: env})

	if _, err := o.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := store.readPaths(); !reflect.DeepEqual(got, settings.ExplicitConfigurationPaths) {
		t.Errorf("reads = %v, want %v", got, settings.ExplicitConfigurationPaths)
	}
	if v, _ := env.Lookup("DB_HOST"); v != "override" {
		t.Errorf("DB_HOST = %q, want override", v)
	}
	if _, ok := env.Lookup("IGNORED"); ok {
		t.Error("global configuration was read")
	}
}

func TestLoad_ExplicitPathMissingFails(t *testing.T) {
	store := newFakeStore(t)
	store.put("shared/db", map[string]any{"DB_HOST": "shared"})

	env := NewMapEnvironment(nil)
	settings := testSettings(store, "production")
	settings.ExplicitConfigurationPaths = []string{"shared/db", "billing/absent"}
	o := newTestOrchestrator(t, settings, Options{Environment: env})

	if _, err := o.Load(context.Background()); !errors.Is(err, errdefs.ErrStore) {
		t.Fatalf("error = %v, want ErrStore", err)
	}
	if len(env.Snapshot()) != 0 {
		t.Errorf("environment changed: %v", env.Snapshot())
	}
}

func TestLoad_AuthFailure(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})

	settings := testSettings(store, "production")
	settings.AuthConfig["userpass"]["password"] = "wrong"
	o := newTestOrchestrator(t, settings, Options{})

	_, err := o.Load(context.Background())
	if !errors.Is(err, errdefs.ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth", err)
	}
	if len(store.readPaths()) != 0 {
		t.Errorf("configuration read after failed login: %v", store.readPaths())
	}
}

func TestLoad_InvalidKeyFromStore(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"BAD=KEY": "x"})

	env := NewMapEnvironment(nil)
	o := newTestOrchestrator(t, testSettings(store, "production"), Options{Environment: env})

	_, err := o.Load(context.Background())
	if !errors.Is(err, errdefs.ErrStore) || !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("error = %v, want ErrStore and ErrInvalidKey", err)
	}
	if len(env.Snapshot()) != 0 {
		t.Errorf("environment changed: %v", env.Snapshot())
	}
}

func TestLoad_AnonymousWithoutStrategies(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})

	settings := Settings{AppName: "billing", Environment: "production", StoreURL: store.URL()}
	o := newTestOrchestrator(t, settings, Options{})

	if _, err := o.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, token := range store.readTokens() {
		if token != "" {
			t.Errorf("token = %q, want none", token)
		}
	}
}

func TestLoad_MachineStrategyReceivesHumanToken(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})

	var gotPrior auth.Token
	registry := auth.NewRegistry()
	_ = registry.Register("userpass", func(caller transport.Caller, cfg map[string]any) (auth.Strategy, error) {
		return auth.DefaultRegistry.Create("userpass", caller, cfg)
	})
	_ = registry.Register("exchange", func(transport.Caller, map[string]any) (auth.Strategy, error) {
		return auth.NewStrategyFunc("exchange", func(_ context.Context, prior auth.Token, _ string) (auth.Token, error) {
			gotPrior = prior
			return "s.machine", nil
		}), nil
	})

	settings := testSettings(store, "production")
	settings.M2MAuthStrategy = "exchange"
	o := newTestOrchestrator(t, settings, Options{Registry: registry})

	if _, err := o.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if gotPrior != testToken {
		t.Errorf("prior token = %q, want %q", gotPrior, testToken)
	}
	for _, token := range store.readTokens() {
		if token != "s.machine" {
			t.Errorf("read token = %q, want s.machine", token)
		}
	}
}

func TestLoad_UnreachablePolicy(t *testing.T) {
	unreachable := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("fail", func(t *testing.T) {
		store := newFakeStore(t)
		settings := testSettings(store, "production")
		settings.OnUnreachable = UnreachableFail
		o := newTestOrchestrator(t, settings, Options{Pinger: unreachable})

		_, err := o.Load(context.Background())
		if !errors.Is(err, errdefs.ErrStore) || !errors.Is(err, ErrUnreachable) {
			t.Fatalf("error = %v, want ErrStore and ErrUnreachable", err)
		}
		if store.loginCount() != 0 {
			t.Error("login attempted after failed reachability check")
		}
	})

	t.Run("continue", func(t *testing.T) {
		store := newFakeStore(t)
		store.put("global", map[string]any{"REGION": "eu"})
		o := newTestOrchestrator(t, testSettings(store, "production"), Options{Pinger: unreachable})

		result, err := o.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if result.Source != SourceStore {
			t.Errorf("Source = %q, want store", result.Source)
		}
	})
}

func TestLoad_DevelopmentCacheRoundTrip(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})
	store.put("billing/development", map[string]any{"DB_HOST": "localhost"})

	snapshots := cache.NewMemoryStore()
	settings := testSettings(store, "development")

	first := newTestOrchestrator(t, settings, Options{Cache: snapshots})
	if _, err := first.Load(context.Background()); err != nil {
		t.Fatalf("online Load() error = %v", err)
	}

	cached, err := snapshots.Load(context.Background(), "billing")
	if err != nil {
		t.Fatalf("cache Load() error = %v", err)
	}
	if want := map[string]string{"REGION": "eu", "DB_HOST": "localhost"}; !reflect.DeepEqual(cached, want) {
		t.Errorf("cached = %v, want %v", cached, want)
	}

	store.setDown(true)
	logins := store.loginCount()

	env := NewMapEnvironment(map[string]string{"DB_HOST": "preset"})
	second := newTestOrchestrator(t, settings, Options{Cache: snapshots, Environment: env})

	result, err := second.Load(context.Background())
	if err != nil {
		t.Fatalf("offline Load() error = %v", err)
	}
	if result.State != StateDone || result.Source != SourceCache {
		t.Errorf("result = %+v, want done from cache", result)
	}
	if !reflect.DeepEqual(result.Keys, []string{"REGION"}) {
		t.Errorf("Keys = %v, want [REGION]", result.Keys)
	}
	if v, _ := env.Lookup("DB_HOST"); v != "preset" {
		t.Errorf("DB_HOST = %q, want preset", v)
	}
	if v, _ := env.Lookup(LoadedFlag); v != "true" {
		t.Errorf("%s = %q, want true", LoadedFlag, v)
	}
	if store.loginCount() != logins {
		t.Error("login attempted during cache fallback")
	}
}

// failingCache is a cache.Store whose writes always fail.
type failingCache struct {
	cache.Store
}

func (failingCache) Create(context.Context, string, map[string]string) error {
	return fmt.Errorf("%w: disk full", errdefs.ErrCache)
}

func TestLoad_CacheWriteFailureIsNotFatal(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})
	store.put("billing/development", map[string]any{"DB_HOST": "localhost"})

	var logs bytes.Buffer
	runner := observe.NewRunner(nil, nil, observe.NewLoggerWithWriter("info", &logs))
	env := NewMapEnvironment(nil)
	o := newTestOrchestrator(t, testSettings(store, "development"), Options{
		Cache:       failingCache{Store: cache.NewMemoryStore()},
		Environment: env,
		Runner:      runner,
	})

	result, err := o.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if result.State != StateDone || result.Source != SourceStore {
		t.Errorf("result = %+v, want done from store", result)
	}
	if want := []string{"DB_HOST", "REGION"}; !reflect.DeepEqual(result.Keys, want) {
		t.Errorf("Keys = %v, want %v", result.Keys, want)
	}

	want := map[string]string{"REGION": "eu", "DB_HOST": "localhost", LoadedFlag: "true"}
	if got := env.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("environment = %v, want %v", got, want)
	}
	if !strings.Contains(logs.String(), "failed to cache configuration") {
		t.Errorf("logs missing cache warning:\n%s", logs.String())
	}
}

func TestLoad_DevelopmentFallbackWithoutCache(t *testing.T) {
	store := newFakeStore(t)
	store.setDown(true)

	env := NewMapEnvironment(nil)
	o := newTestOrchestrator(t, testSettings(store, "development"), Options{Environment: env})

	_, err := o.Load(context.Background())
	if !errors.Is(err, errdefs.ErrCache) {
		t.Fatalf("error = %v, want ErrCache", err)
	}
	if len(env.Snapshot()) != 0 {
		t.Errorf("environment changed: %v", env.Snapshot())
	}
}

func TestLoad_ProductionDoesNotWriteCache(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"REGION": "eu"})

	snapshots := cache.NewMemoryStore()
	o := newTestOrchestrator(t, testSettings(store, "production"), Options{Cache: snapshots})

	if _, err := o.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := snapshots.Load(context.Background(), "billing"); !errors.Is(err, errdefs.ErrCache) {
		t.Errorf("cache Load() error = %v, want ErrCache", err)
	}
}

func TestLoad_LogsNeverContainValues(t *testing.T) {
	store := newFakeStore(t)
	store.put("global", map[string]any{"DB_PASSWORD": "hunter2-global"})
	store.put("billing/production", map[string]any{"API_KEY": "sk-live-value"})

	var logs bytes.Buffer
	runner := observe.NewRunner(nil, nil, observe.NewLoggerWithWriter("debug", &logs))
	o := newTestOrchestrator(t, testSettings(store, "production"), Options{Runner: runner})

	if _, err := o.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	out := logs.String()
	for _, secret := range []string{"hunter2-global", "sk-live-value", testToken} {
		if strings.Contains(out, secret) {
			t.Errorf("logs contain %q:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, "bootstrap completed") {
		t.Errorf("logs missing completion entry:\n%s", out)
	}
}

func TestState_Skipped(t *testing.T) {
	for _, s := range []State{StateSkippedBySettings, StateSkippedEnvironmentNotAllowed, StateSkippedAlreadyLoaded} {
		if !s.Skipped() {
			t.Errorf("%q.Skipped() = false", s)
		}
	}
	for _, s := range []State{StateDone, StateFailed} {
		if s.Skipped() {
			t.Errorf("%q.Skipped() = true", s)
		}
	}
}
