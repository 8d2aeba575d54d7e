package health

import (
	"context"

	"github.com/jonwraymond/vaultboot/errdefs"
)

// Pinger tests reachability of the store. transport.Client implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports whether the store answers its seal-status endpoint.
type StoreChecker struct {
	pinger  Pinger
	address string
}

// NewStoreChecker creates a store checker. address is reported in details only.
func NewStoreChecker(pinger Pinger, address string) *StoreChecker {
	return &StoreChecker{pinger: pinger, address: address}
}

// Name returns "store".
func (c *StoreChecker) Name() string {
	return "store"
}

// Check pings the store.
func (c *StoreChecker) Check(ctx context.Context) Result {
	details := map[string]any{"address": c.address}

	if err := c.pinger.Ping(ctx); err != nil {
		details["error_kind"] = errdefs.Kind(err)
		return Unhealthy("store unreachable", err).WithDetails(details)
	}
	return Healthy("store reachable").WithDetails(details)
}

// Ensure StoreChecker implements Checker
var _ Checker = (*StoreChecker)(nil)
