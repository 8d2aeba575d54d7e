package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/jonwraymond/vaultboot/cache"
	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/health"
	"github.com/jonwraymond/vaultboot/transport"
)

func (c *cli) runCheck(ctx context.Context, args []string) error {
	var f flags
	var requireCache bool

	fs := pflag.NewFlagSet("vaultboot check", pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() { printUsage(fs, c.stderr) }
	f.registerSettings(fs)
	fs.BoolVar(&requireCache, "require-cache", false, "report a missing development cache as unhealthy")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("check: unexpected argument %q", fs.Arg(0))
	}

	settings, err := f.settings(fs, c.env)
	if err != nil {
		return err
	}
	if settings.StoreURL == "" {
		return fmt.Errorf("%w: store URL is required", errdefs.ErrConfig)
	}

	client, err := transport.NewClient(transport.Config{
		Address: settings.StoreURL,
		Timeout: settings.RequestTimeout,
	})
	if err != nil {
		return err
	}

	aggregator := health.NewAggregator()
	aggregator.Register("store", health.NewStoreChecker(client, client.Address()))
	if settings.AppName != "" && settings.IsDevelopment() {
		store := cache.NewFileStore(cache.FileConfig{Path: settings.CacheFile})
		aggregator.Register("cache", health.NewCacheChecker(store, settings.AppName, requireCache))
	}

	report := aggregator.Report(ctx)

	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if !report.Healthy() {
		return &exitError{code: 1}
	}
	return nil
}
