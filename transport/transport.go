package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/jonwraymond/vaultboot/errdefs"
)

// DefaultTokenHeader is the header carrying the bearer token.
const DefaultTokenHeader = "X-Vault-Token"

// SealStatusPath is the endpoint used to test reachability.
const SealStatusPath = "/sys/seal-status"

// Caller performs a single request against the store.
//
// Contract:
// - Concurrency: callers issue one request at a time; implementations need not pipeline.
// - Context: implementations should honor cancellation.
// - Errors: any failure is wrapped with errdefs.ErrStore.
type Caller interface {
	Call(ctx context.Context, method, path string, opts Options) (*Response, error)
}

// Options carries the optional parts of a request.
type Options struct {
	// Token is attached as the token header when non-empty.
	Token string

	// Body is JSON encoded and sent when non-nil.
	Body any
}

// Response is a decoded store response.
type Response struct {
	StatusCode int
	Data       map[string]any
}

// Config configures the transport client.
type Config struct {
	// Address is the store base URL, e.g. "https://vault.internal:8200/v1".
	Address string

	// TokenHeader is the header carrying the token.
	// Default: "X-Vault-Token"
	TokenHeader string

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// HTTPClient is the HTTP client to use. If nil, a default client is used.
	HTTPClient *http.Client
}

// StatusError is returned when the store answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %s %s: status %d: %s", errdefs.ErrStore, e.Method, e.Path, e.StatusCode, strings.TrimSpace(e.Body))
}

// Is reports whether target is errdefs.ErrStore.
func (e *StatusError) Is(target error) bool {
	return target == errdefs.ErrStore
}

// IsNotFound returns true if err is a 404 answer from the store.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// Client is a synchronous store client built on the Vault API client.
//
// The API client is used only for request construction and transport. It
// does not retry, rate limit or follow redirects, ignores any token or
// namespace in the environment, and sends every path as given below Address.
type Client struct {
	config   Config
	api      *api.Client
	basePath string
	baseRaw  string
}

// NewClient creates a transport client.
func NewClient(config Config) (*Client, error) {
	config.Address = strings.TrimRight(strings.TrimSpace(config.Address), "/")
	if config.Address == "" {
		return nil, fmt.Errorf("%w: store address is required", errdefs.ErrConfig)
	}
	if config.TokenHeader == "" {
		config.TokenHeader = DefaultTokenHeader
	}

	base, err := url.Parse(config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: store address: %v", errdefs.ErrConfig, err)
	}

	apiConfig := api.DefaultConfig()
	if apiConfig.Error != nil {
		return nil, fmt.Errorf("%w: store client: %v", errdefs.ErrConfig, apiConfig.Error)
	}
	apiConfig.Address = config.Address
	apiConfig.AgentAddress = ""
	apiConfig.Timeout = config.Timeout
	apiConfig.MaxRetries = 0
	apiConfig.Limiter = nil
	apiConfig.SRVLookup = false
	apiConfig.DisableRedirects = true
	if config.HTTPClient != nil {
		apiConfig.HttpClient = config.HTTPClient
	} else {
		apiConfig.HttpClient.Timeout = config.Timeout
	}

	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: store client: %v", errdefs.ErrConfig, err)
	}
	client.ClearToken()
	client.ClearNamespace()

	return &Client{
		config:   config,
		api:      client,
		basePath: strings.TrimRight(base.Path, "/"),
		baseRaw:  strings.TrimRight(base.EscapedPath(), "/"),
	}, nil
}

// Address returns the configured store base URL.
func (c *Client) Address() string {
	return c.config.Address
}

// Call performs a request and decodes the JSON response body. path may carry
// a query string and escaped segments; both are sent unchanged.
func (c *Client) Call(ctx context.Context, method, path string, opts Options) (*Response, error) {
	target, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: invalid path: %v", errdefs.ErrStore, method, path, err)
	}

	req := c.api.NewRequest(method, "/")
	req.URL.Path = c.basePath + target.Path
	req.URL.RawPath = c.baseRaw + target.EscapedPath()
	req.Params = target.Query()
	req.ClientToken = ""
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}
	req.Headers.Set("Accept", "application/json")

	if opts.Token != "" {
		if c.config.TokenHeader == DefaultTokenHeader {
			req.ClientToken = opts.Token
		} else {
			req.Headers.Set(c.config.TokenHeader, opts.Token)
		}
	}
	if opts.Body != nil {
		if err := req.SetJSONBody(opts.Body); err != nil {
			return nil, fmt.Errorf("%w: encode request body: %v", errdefs.ErrStore, err)
		}
		req.Headers.Set("Content-Type", "application/json")
	}

	//nolint:staticcheck // RawRequestWithContext is the only API call that neither prefixes /v1 nor maps 404 to nil.
	resp, err := c.api.RawRequestWithContext(ctx, req)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		var respErr *api.ResponseError
		if errors.As(err, &respErr) {
			return nil, &StatusError{
				StatusCode: respErr.StatusCode,
				Method:     method,
				Path:       path,
				Body:       strings.Join(respErr.Errors, "; "),
			}
		}
		return nil, fmt.Errorf("%w: %s %s: %v", errdefs.ErrStore, method, path, err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", errdefs.ErrStore, err)
	}

	// The API client accepts 3xx; the store contract does not.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       string(raw),
		}
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: decode response body: %v", errdefs.ErrStore, method, path, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Data:       data,
	}, nil
}

// decodeObject parses a JSON object, keeping numbers as json.Number so large
// integers survive formatting.
func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("empty response body")
	}
	return data, nil
}

// Ping checks that the store is reachable. The response is discarded.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, http.MethodGet, SealStatusPath, Options{})
	return err
}

// Ensure Client implements Caller
var _ Caller = (*Client)(nil)
