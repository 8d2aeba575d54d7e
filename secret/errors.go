package secret

import "errors"

// Sentinel errors. They are always wrapped together with an errdefs kind.
var (
	ErrMissingData        = errors.New("secret: response has no data.data object")
	ErrEmptyPath          = errors.New("secret: path is required")
	ErrUndefinedVariables = errors.New("secret: undefined environment variables")
)
