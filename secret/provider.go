package secret

import "context"

// Fetcher reads configuration maps from the store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: store failures and malformed envelopes wrap errdefs.ErrStore.
// - Values: implementations must not log fetched values.
type Fetcher interface {
	// Fetch reads path. An empty or "latest" version reads the current version.
	Fetch(ctx context.Context, token, version, path string) (map[string]string, error)

	// FetchGlobal reads the shared "global" path.
	FetchGlobal(ctx context.Context, token, version string) (map[string]string, error)

	// FetchByAppName reads "{appName}/{environment}".
	FetchByAppName(ctx context.Context, token, appName, version string) (map[string]string, error)
}
