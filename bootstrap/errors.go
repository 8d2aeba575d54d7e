package bootstrap

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidKey indicates a configuration key that cannot be an environment variable name.
	ErrInvalidKey = errors.New("bootstrap: invalid environment variable name")

	// ErrUnreachable indicates the store failed its reachability check.
	ErrUnreachable = errors.New("bootstrap: store unreachable")
)

func validEnvKey(key string) error {
	if key == "" || strings.ContainsAny(key, "=\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
