package errdefs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel error kinds.
var (
	// ErrConfig indicates malformed settings. Always fatal.
	ErrConfig = errors.New("vaultboot: invalid configuration")

	// ErrAuth indicates a login or credential exchange failure.
	ErrAuth = errors.New("vaultboot: authentication failed")

	// ErrStore indicates an error or malformed response from the store.
	ErrStore = errors.New("vaultboot: store request failed")

	// ErrCache indicates the local cache could not be read or written.
	ErrCache = errors.New("vaultboot: cache unavailable")

	// ErrValidation indicates required keys are missing from the final configuration.
	ErrValidation = errors.New("vaultboot: configuration invalid")
)

// ValidationError reports the required keys absent from a configuration map.
type ValidationError struct {
	Missing []string
}

// NewValidationError creates a ValidationError with the missing keys sorted.
func NewValidationError(missing []string) *ValidationError {
	keys := make([]string, len(missing))
	copy(keys, missing)
	sort.Strings(keys)
	return &ValidationError{Missing: keys}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: missing keys: %s", ErrValidation, strings.Join(e.Missing, ", "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsConfig returns true if err is a configuration error.
func IsConfig(err error) bool { return errors.Is(err, ErrConfig) }

// IsAuth returns true if err is an authentication error.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// IsStore returns true if err is a store error.
func IsStore(err error) bool { return errors.Is(err, ErrStore) }

// IsCache returns true if err is a cache error.
func IsCache(err error) bool { return errors.Is(err, ErrCache) }

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// Kind returns the short name of the taxonomy kind err belongs to,
// or "unknown" when it matches none.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConfig(err):
		return "config"
	case IsAuth(err):
		return "auth"
	case IsStore(err):
		return "store"
	case IsCache(err):
		return "cache"
	case IsValidation(err):
		return "validation"
	default:
		return "unknown"
	}
}
