package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/transport"
)

// KubernetesName is the registry name of the Kubernetes strategy.
const KubernetesName = "kubernetes"

// DefaultServiceAccountTokenPath is where Kubernetes mounts the pod's token.
const DefaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// KubernetesConfig configures the Kubernetes strategy.
type KubernetesConfig struct {
	// Role is the store role to log in as. Defaults to the application name.
	Role string

	// Mount is the auth mount path.
	// Default: "kubernetes"
	Mount string

	// TokenPath is the service account JWT file.
	// Default: DefaultServiceAccountTokenPath
	TokenPath string

	// Now returns the current time. Used to reject expired tokens.
	Now func() time.Time
}

// Kubernetes logs a workload in with its mounted service account JWT.
type Kubernetes struct {
	caller transport.Caller
	config KubernetesConfig
	parser *jwt.Parser
}

// NewKubernetes creates a Kubernetes strategy.
func NewKubernetes(caller transport.Caller, config KubernetesConfig) *Kubernetes {
	if config.Mount == "" {
		config.Mount = "kubernetes"
	}
	if config.TokenPath == "" {
		config.TokenPath = DefaultServiceAccountTokenPath
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Kubernetes{
		caller: caller,
		config: config,
		parser: jwt.NewParser(),
	}
}

// Name returns "kubernetes".
func (k *Kubernetes) Name() string {
	return KubernetesName
}

// Login posts the service account JWT to the kubernetes login endpoint.
// The prior token is not needed for this exchange.
func (k *Kubernetes) Login(ctx context.Context, _ Token, appName string) (Token, error) {
	role := k.config.Role
	if role == "" {
		role = appName
	}
	if role == "" {
		return "", fmt.Errorf("%w: kubernetes strategy requires a role or application name", errdefs.ErrConfig)
	}

	raw, err := os.ReadFile(k.config.TokenPath)
	if err != nil {
		return "", fmt.Errorf("%w: read service account token: %v", errdefs.ErrAuth, err)
	}
	serviceAccountJWT := strings.TrimSpace(string(raw))

	if err := k.checkExpiry(serviceAccountJWT); err != nil {
		return "", err
	}

	resp, err := k.caller.Call(ctx, http.MethodPost, fmt.Sprintf("/auth/%s/login", k.config.Mount), transport.Options{
		Body: map[string]string{
			"role": role,
			"jwt":  serviceAccountJWT,
		},
	})
	if err != nil {
		return "", loginFailed("kubernetes login", err)
	}

	return clientToken(resp, "kubernetes login")
}

// checkExpiry rejects a JWT whose exp claim is in the past. The signature is
// verified by the store, not here.
func (k *Kubernetes) checkExpiry(raw string) error {
	claims := jwt.RegisteredClaims{}
	if _, _, err := k.parser.ParseUnverified(raw, &claims); err != nil {
		return fmt.Errorf("%w: %w: %v", errdefs.ErrAuth, ErrTokenMalformed, err)
	}

	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(k.config.Now()) {
		return fmt.Errorf("%w: %w: service account token expired at %s",
			errdefs.ErrAuth, ErrTokenExpired, claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// Ensure Kubernetes implements Strategy
var _ Strategy = (*Kubernetes)(nil)
