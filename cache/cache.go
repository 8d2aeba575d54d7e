package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/vaultboot/errdefs"
)

// MaxAppNameLength is the maximum allowed length for an application name key.
const MaxAppNameLength = 512

// Store persists one configuration snapshot per application name.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation where applicable.
// - Errors: all failures wrap errdefs.ErrCache. Load fails when no snapshot
//   exists for appName.
type Store interface {
	// Load returns the snapshot stored for appName.
	Load(ctx context.Context, appName string) (map[string]string, error)

	// Create stores configuration as the snapshot for appName.
	Create(ctx context.Context, appName string, configuration map[string]string) error
}

// ValidateAppName checks if an application name can be used as a snapshot key.
func ValidateAppName(appName string) error {
	if strings.TrimSpace(appName) == "" {
		return fmt.Errorf("%w: application name is required", errdefs.ErrCache)
	}
	if len(appName) > MaxAppNameLength {
		return fmt.Errorf("%w: application name exceeds max length", errdefs.ErrCache)
	}
	// Reject names with newlines or carriage returns
	if strings.ContainsAny(appName, "\n\r") {
		return fmt.Errorf("%w: application name is invalid", errdefs.ErrCache)
	}
	return nil
}
