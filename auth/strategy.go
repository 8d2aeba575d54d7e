package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/transport"
)

// Token is an opaque bearer credential issued by the store.
// The zero value means "no token".
type Token string

// String redacts the token so it never ends up in logs by accident.
func (t Token) String() string {
	if t == "" {
		return ""
	}
	return "[REDACTED]"
}

// Strategy performs a login against the store.
//
// Contract:
// - Concurrency: a strategy is used by one bootstrap run at a time.
// - Context: Login should honor cancellation.
// - Errors: login failures wrap errdefs.ErrAuth; bad configuration wraps errdefs.ErrConfig.
type Strategy interface {
	// Name returns the registry name of this strategy.
	Name() string

	// Login exchanges credentials for a token. prior is the token produced by
	// an earlier stage (may be empty); appName identifies the application.
	Login(ctx context.Context, prior Token, appName string) (Token, error)
}

// StrategyFunc is an adapter to allow use of ordinary functions as Strategies.
type StrategyFunc struct {
	name  string
	login func(ctx context.Context, prior Token, appName string) (Token, error)
}

// NewStrategyFunc creates a StrategyFunc.
func NewStrategyFunc(name string, login func(ctx context.Context, prior Token, appName string) (Token, error)) *StrategyFunc {
	return &StrategyFunc{name: name, login: login}
}

// Name returns the strategy name.
func (f *StrategyFunc) Name() string {
	return f.name
}

// Login calls the wrapped function.
func (f *StrategyFunc) Login(ctx context.Context, prior Token, appName string) (Token, error) {
	return f.login(ctx, prior, appName)
}

// clientToken extracts auth.client_token from a login response.
func clientToken(resp *transport.Response, step string) (Token, error) {
	if _, ok := transport.LookupObject(resp.Data, "auth"); !ok {
		return "", fmt.Errorf("%w: %s: %w: response has no auth block", errdefs.ErrAuth, step, ErrMissingClientToken)
	}
	token, ok := transport.LookupString(resp.Data, "auth", "client_token")
	if !ok {
		return "", fmt.Errorf("%w: %s: %w", errdefs.ErrAuth, step, ErrMissingClientToken)
	}
	return Token(token), nil
}

// loginFailed wraps a transport failure during a login step.
func loginFailed(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", errdefs.ErrAuth, step, err)
}

// stringOption returns the trimmed value of key in cfg. Non-string scalars
// from settings files (a numeric password, say) are formatted.
func stringOption(cfg map[string]any, key string) string {
	switch v := cfg[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprint(v)
	}
}

// mountOption returns the configured auth mount, or fallback.
func mountOption(cfg map[string]any, fallback string) string {
	if mount := strings.Trim(stringOption(cfg, "mount"), "/"); mount != "" {
		return mount
	}
	return fallback
}
