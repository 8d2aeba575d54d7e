package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/jonwraymond/vaultboot/bootstrap"
)

// flags are the command line overrides. The settings group is shared by
// every command; telemetry flags only apply to the bootstrap command.
type flags struct {
	configPath      string
	appName         string
	environment     string
	storeURL        string
	cacheFile       string
	version         string
	required        []string
	paths           []string
	onUnreachable   string
	humanAuth       string
	machineAuth     string
	skip            bool
	timeout         time.Duration
	logLevel        string
	logFormat       string
	traceExporter   string
	metricsExporter string
}

// registerSettings adds the flags that override bootstrap.Settings.
func (f *flags) registerSettings(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "settings file (YAML, or JSON with comments for .json/.jsonc)")
	fs.StringVar(&f.appName, "app", "", "application name (overrides "+bootstrap.EnvAppName+")")
	fs.StringVar(&f.environment, "env", "", "deployment environment (overrides "+bootstrap.EnvEnvironment+")")
	fs.StringVar(&f.storeURL, "url", "", "store base URL (overrides "+bootstrap.EnvStoreURL+")")
	fs.StringVar(&f.cacheFile, "cache-file", "", "development cache file (overrides "+bootstrap.EnvCacheFile+")")
	fs.StringVar(&f.version, "config-version", "", "configuration version to read (overrides "+bootstrap.EnvVersion+")")
	fs.StringSliceVar(&f.required, "require", nil, "key that must be present after loading (repeatable)")
	fs.StringSliceVar(&f.paths, "path", nil, "explicit configuration path, replacing global + app lookup (repeatable)")
	fs.StringVar(&f.onUnreachable, "on-unreachable", "", "outside development: continue or fail when the store is unreachable")
	fs.StringVar(&f.humanAuth, "human-auth", "", "human login strategy")
	fs.StringVar(&f.machineAuth, "m2m-auth", "", "machine login strategy")
	fs.BoolVar(&f.skip, "skip", false, "skip loading entirely")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-request store timeout")
}

// registerTelemetry adds the logging and exporter flags used by the
// bootstrap command.
func (f *flags) registerTelemetry(fs *pflag.FlagSet) {
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "json", "log format: json or zap")
	fs.StringVar(&f.traceExporter, "trace-exporter", "none", "trace exporter: otlp, stdout or none")
	fs.StringVar(&f.metricsExporter, "metrics-exporter", "none", "metrics exporter: otlp, prometheus, stdout or none")
}

// settings layers the environment, the settings file and the flags that
// were set on the command line, in that order.
func (f *flags) settings(fs *pflag.FlagSet, env bootstrap.Environment) (bootstrap.Settings, error) {
	s := bootstrap.SettingsFromEnv(env)

	if f.configPath != "" {
		var err error
		s, err = bootstrap.LoadSettingsFile(f.configPath, s, env.Lookup)
		if err != nil {
			return s, err
		}
	}

	changed := fs.Changed
	if changed("app") {
		s.AppName = f.appName
	}
	if changed("env") {
		s.Environment = f.environment
	}
	if changed("url") {
		s.StoreURL = f.storeURL
	}
	if changed("cache-file") {
		s.CacheFile = f.cacheFile
	}
	if changed("config-version") {
		s.ConfigurationVersion = f.version
	}
	if changed("require") {
		s.RequiredKeys = f.required
	}
	if changed("path") {
		s.ExplicitConfigurationPaths = f.paths
	}
	if changed("on-unreachable") {
		s.OnUnreachable = bootstrap.UnreachablePolicy(f.onUnreachable)
	}
	if changed("human-auth") {
		s.HumanAuthStrategy = f.humanAuth
	}
	if changed("m2m-auth") {
		s.M2MAuthStrategy = f.machineAuth
	}
	if changed("skip") {
		s.Skip = f.skip
	}
	if changed("timeout") {
		s.RequestTimeout = f.timeout
	}

	return s, nil
}

func printUsage(fs *pflag.FlagSet, out io.Writer) {
	fmt.Fprint(out, `vaultboot loads configuration from the store into the environment, then
runs a command with it.

Usage:
  vaultboot [flags] -- command [args...]
  vaultboot [flags]                 load and print what would be injected
  vaultboot check [flags]           report store and cache health
  vaultboot version

Flags:
`)
	fs.PrintDefaults()
}
