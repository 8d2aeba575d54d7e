package bootstrap

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jonwraymond/vaultboot/auth"
	"github.com/jonwraymond/vaultboot/errdefs"
)

func TestSettingsFromEnv(t *testing.T) {
	env := NewMapEnvironment(map[string]string{
		EnvAppName:       "billing",
		EnvEnvironment:   "production",
		EnvStoreURL:      "https://vault.internal/v1",
		EnvUsername:      "alice",
		EnvPassword:      " pw ",
		EnvVersion:       "3",
		EnvSkip:          "false",
		EnvCacheFile:     "/tmp/sec.json",
		EnvOnUnreachable: "FAIL",
	})

	got := SettingsFromEnv(env)
	want := Settings{
		AppName:              "billing",
		Environment:          "production",
		StoreURL:             "https://vault.internal/v1",
		ConfigurationVersion: "3",
		CacheFile:            "/tmp/sec.json",
		OnUnreachable:        UnreachableFail,
		HumanAuthStrategy:    auth.UserpassName,
		AuthConfig: map[string]map[string]any{
			auth.UserpassName: {"username": "alice", "password": "pw"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SettingsFromEnv() = %+v\nwant %+v", got, want)
	}
}

func TestSettingsFromEnv_Token(t *testing.T) {
	env := NewMapEnvironment(map[string]string{
		EnvToken:           "s.static",
		EnvMachineStrategy: auth.KubernetesName,
	})

	got := SettingsFromEnv(env)
	if got.HumanAuthStrategy != auth.StaticTokenName {
		t.Errorf("HumanAuthStrategy = %q, want %q", got.HumanAuthStrategy, auth.StaticTokenName)
	}
	if got.M2MAuthStrategy != auth.KubernetesName {
		t.Errorf("M2MAuthStrategy = %q", got.M2MAuthStrategy)
	}
	if got.AuthConfig[auth.StaticTokenName]["token"] != "s.static" {
		t.Errorf("AuthConfig = %v", got.AuthConfig)
	}
}

func TestSettingsFromEnv_ExplicitStrategyKept(t *testing.T) {
	env := NewMapEnvironment(map[string]string{
		EnvUsername:      "alice",
		EnvPassword:      "pw",
		EnvHumanStrategy: auth.StaticTokenName,
		EnvToken:         "s.static",
	})

	got := SettingsFromEnv(env)
	if got.HumanAuthStrategy != auth.StaticTokenName {
		t.Errorf("HumanAuthStrategy = %q", got.HumanAuthStrategy)
	}
	if len(got.AuthConfig) != 2 {
		t.Errorf("AuthConfig = %v, want userpass and token options", got.AuthConfig)
	}
}

func TestSettingsFromEnv_Skip(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		env := NewMapEnvironment(map[string]string{EnvSkip: tt.value})
		if got := SettingsFromEnv(env).Skip; got != tt.want {
			t.Errorf("Skip for %q = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSettings_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     bool
	}{
		{"default name", Settings{Environment: "development"}, true},
		{"production", Settings{Environment: "production"}, false},
		{"custom name", Settings{Environment: "local", DevelopmentEnvironment: "local"}, true},
		{"custom name mismatch", Settings{Environment: "development", DevelopmentEnvironment: "local"}, false},
		{"empty", Settings{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	if err := (Settings{}).Validate(nil); err != nil {
		t.Errorf("zero Settings Validate() error = %v", err)
	}

	valid := Settings{
		OnUnreachable:     UnreachableFail,
		HumanAuthStrategy: auth.UserpassName,
		M2MAuthStrategy:   auth.AppRoleName,
	}
	if err := valid.Validate(nil); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	err := Settings{M2MAuthStrategy: "ldap"}.Validate(nil)
	if !errors.Is(err, errdefs.ErrConfig) || !errors.Is(err, auth.ErrUnknownStrategy) {
		t.Errorf("unknown strategy error = %v", err)
	}

	if err := (Settings{HumanAuthStrategy: auth.UserpassName}).Validate(auth.NewRegistry()); !errors.Is(err, auth.ErrUnknownStrategy) {
		t.Errorf("empty registry error = %v", err)
	}
}
