package secret

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/transport"
)

// GlobalPath is the path shared by every application.
const GlobalPath = "global"

// LatestVersion reads the current version. Equivalent to an empty version.
const LatestVersion = "latest"

// Config configures the configuration service.
type Config struct {
	// Environment is the active deployment environment, used by FetchByAppName.
	Environment string

	// Mount is the KV engine mount.
	// Default: "kv"
	Mount string

	// Prefix is prepended to every path inside the mount.
	// Default: "services"
	Prefix string
}

// Service fetches configuration maps through a transport.Caller.
type Service struct {
	caller transport.Caller
	config Config
}

// NewService creates a configuration service.
func NewService(caller transport.Caller, config Config) *Service {
	if config.Mount == "" {
		config.Mount = "kv"
	}
	if config.Prefix == "" {
		config.Prefix = "services"
	}
	config.Mount = strings.Trim(config.Mount, "/")
	config.Prefix = strings.Trim(config.Prefix, "/")
	return &Service{caller: caller, config: config}
}

// Endpoint returns the KV read endpoint for path and version.
func (s *Service) Endpoint(version, path string) string {
	endpoint := fmt.Sprintf("/%s/data/%s/%s", s.config.Mount, s.config.Prefix, strings.Trim(path, "/"))
	if version = strings.TrimSpace(version); version != "" && version != LatestVersion {
		endpoint += "?version=" + url.QueryEscape(version)
	}
	return endpoint
}

// Fetch reads the configuration map stored at path.
func (s *Service) Fetch(ctx context.Context, token, version, path string) (map[string]string, error) {
	if strings.Trim(path, "/ ") == "" {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrConfig, ErrEmptyPath)
	}

	resp, err := s.caller.Call(ctx, http.MethodGet, s.Endpoint(version, path), transport.Options{Token: token})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}

	payload, ok := transport.LookupObject(resp.Data, "data", "data")
	if !ok {
		return nil, fmt.Errorf("%w: fetch %s: %w", errdefs.ErrStore, path, ErrMissingData)
	}

	return transport.FormatMap(payload), nil
}

// FetchGlobal reads the "global" path.
func (s *Service) FetchGlobal(ctx context.Context, token, version string) (map[string]string, error) {
	return s.Fetch(ctx, token, version, GlobalPath)
}

// FetchByAppName reads "{appName}/{environment}".
func (s *Service) FetchByAppName(ctx context.Context, token, appName, version string) (map[string]string, error) {
	return s.Fetch(ctx, token, version, AppPath(appName, s.config.Environment))
}

// AppPath returns the application-specific path for environment.
func AppPath(appName, environment string) string {
	return appName + "/" + environment
}

// Ensure Service implements Fetcher
var _ Fetcher = (*Service)(nil)
