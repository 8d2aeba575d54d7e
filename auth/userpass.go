package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/transport"
)

// UserpassName is the registry name of the username/password strategy.
const UserpassName = "userpass"

// UserpassConfig configures the username/password strategy.
type UserpassConfig struct {
	Username string
	Password string

	// Mount is the auth mount path.
	// Default: "userpass"
	Mount string
}

// Userpass logs a human in with a username and password.
// Any prior token is ignored.
type Userpass struct {
	caller transport.Caller
	config UserpassConfig
}

// NewUserpass creates a username/password strategy. Both credentials are required.
func NewUserpass(caller transport.Caller, config UserpassConfig) (*Userpass, error) {
	if config.Username == "" {
		return nil, fmt.Errorf("%w: %w: userpass strategy requires a username", errdefs.ErrConfig, ErrMissingCredentials)
	}
	if config.Password == "" {
		return nil, fmt.Errorf("%w: %w: userpass strategy requires a password", errdefs.ErrConfig, ErrMissingCredentials)
	}
	if config.Mount == "" {
		config.Mount = "userpass"
	}
	return &Userpass{caller: caller, config: config}, nil
}

// Name returns "userpass".
func (u *Userpass) Name() string {
	return UserpassName
}

// Login posts the password to the userpass login endpoint.
func (u *Userpass) Login(ctx context.Context, _ Token, _ string) (Token, error) {
	path := fmt.Sprintf("/auth/%s/login/%s", u.config.Mount, url.PathEscape(u.config.Username))

	resp, err := u.caller.Call(ctx, http.MethodPost, path, transport.Options{
		Body: map[string]string{"password": u.config.Password},
	})
	if err != nil {
		return "", loginFailed("login user", err)
	}

	return clientToken(resp, "login user")
}

// Ensure Userpass implements Strategy
var _ Strategy = (*Userpass)(nil)
