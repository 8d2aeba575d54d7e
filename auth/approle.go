package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/transport"
)

// AppRoleName is the registry name of the AppRole strategy.
const AppRoleName = "approle"

// AppRoleConfig configures the AppRole strategy.
type AppRoleConfig struct {
	// Role is the AppRole name. Defaults to the application name at login.
	Role string

	// Mount is the auth mount path.
	// Default: "approle"
	Mount string
}

// AppRole performs the machine-to-machine role-id/secret-id exchange.
//
// The prior token (typically the human token) is used as the bearer
// credential for the role-id and secret-id lookups.
type AppRole struct {
	caller transport.Caller
	config AppRoleConfig
}

// NewAppRole creates an AppRole strategy.
func NewAppRole(caller transport.Caller, config AppRoleConfig) *AppRole {
	if config.Mount == "" {
		config.Mount = "approle"
	}
	return &AppRole{caller: caller, config: config}
}

// Name returns "approle".
func (a *AppRole) Name() string {
	return AppRoleName
}

// Login fetches the role id and a fresh secret id, then exchanges both for a token.
func (a *AppRole) Login(ctx context.Context, prior Token, appName string) (Token, error) {
	role := a.config.Role
	if role == "" {
		role = appName
	}
	if role == "" {
		return "", fmt.Errorf("%w: approle strategy requires an application name", errdefs.ErrConfig)
	}

	roleID, err := a.roleID(ctx, prior, role)
	if err != nil {
		return "", err
	}

	secretID, err := a.secretID(ctx, prior, role)
	if err != nil {
		return "", err
	}

	resp, err := a.caller.Call(ctx, http.MethodPost, fmt.Sprintf("/auth/%s/login", a.config.Mount), transport.Options{
		Token: string(prior),
		Body: map[string]string{
			"role_id":   roleID,
			"secret_id": secretID,
		},
	})
	if err != nil {
		return "", loginFailed("approle login", err)
	}

	return clientToken(resp, "approle login")
}

func (a *AppRole) roleID(ctx context.Context, prior Token, role string) (string, error) {
	path := fmt.Sprintf("/auth/%s/role/%s/role-id", a.config.Mount, url.PathEscape(role))

	resp, err := a.caller.Call(ctx, http.MethodGet, path, transport.Options{Token: string(prior)})
	if err != nil {
		return "", loginFailed("get role id", err)
	}

	roleID, ok := transport.LookupString(resp.Data, "data", "role_id")
	if !ok {
		return "", fmt.Errorf("%w: get role id: %w", errdefs.ErrAuth, ErrMissingRoleID)
	}
	return roleID, nil
}

func (a *AppRole) secretID(ctx context.Context, prior Token, role string) (string, error) {
	path := fmt.Sprintf("/auth/%s/role/%s/secret-id", a.config.Mount, url.PathEscape(role))

	resp, err := a.caller.Call(ctx, http.MethodPost, path, transport.Options{Token: string(prior)})
	if err != nil {
		return "", loginFailed("get secret id", err)
	}

	secretID, ok := transport.LookupString(resp.Data, "data", "secret_id")
	if !ok {
		return "", fmt.Errorf("%w: get secret id: %w", errdefs.ErrAuth, ErrMissingSecretID)
	}
	return secretID, nil
}

// Ensure AppRole implements Strategy
var _ Strategy = (*AppRole)(nil)
