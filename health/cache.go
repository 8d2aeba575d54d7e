package health

import (
	"context"

	"github.com/jonwraymond/vaultboot/cache"
)

// CacheChecker reports whether a cached snapshot exists for an application.
//
// A missing snapshot is Degraded unless required is set, in which case it is
// Unhealthy. Development runs need the snapshot only when the store is down.
type CacheChecker struct {
	store    cache.Store
	appName  string
	required bool
}

// NewCacheChecker creates a cache checker for appName.
func NewCacheChecker(store cache.Store, appName string, required bool) *CacheChecker {
	return &CacheChecker{store: store, appName: appName, required: required}
}

// Name returns "cache".
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check loads the snapshot and reports how many keys it holds.
func (c *CacheChecker) Check(ctx context.Context) Result {
	details := map[string]any{"app": c.appName}

	cfg, err := c.store.Load(ctx, c.appName)
	if err != nil {
		if c.required {
			return Unhealthy("no cached snapshot", err).WithDetails(details)
		}
		return Degraded("no cached snapshot", err).WithDetails(details)
	}

	details["keys"] = len(cfg)
	return Healthy("cached snapshot available").WithDetails(details)
}

// Ensure CacheChecker implements Checker
var _ Checker = (*CacheChecker)(nil)
