package auth

import (
	"context"
	"fmt"

	"github.com/jonwraymond/vaultboot/errdefs"
)

// StaticTokenName is the registry name of the static token strategy.
const StaticTokenName = "token"

// StaticToken returns a pre-issued token without calling the store.
type StaticToken struct {
	token Token
}

// NewStaticToken creates a static token strategy. The token is required.
func NewStaticToken(token string) (*StaticToken, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: %w: token strategy requires a token", errdefs.ErrConfig, ErrMissingCredentials)
	}
	return &StaticToken{token: Token(token)}, nil
}

// Name returns "token".
func (s *StaticToken) Name() string {
	return StaticTokenName
}

// Login returns the configured token.
func (s *StaticToken) Login(_ context.Context, _ Token, _ string) (Token, error) {
	return s.token, nil
}

// Ensure StaticToken implements Strategy
var _ Strategy = (*StaticToken)(nil)
