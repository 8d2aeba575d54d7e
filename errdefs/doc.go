// Package errdefs defines the error taxonomy shared by every bootstrap stage.
//
// Packages wrap one of the sentinel kinds with context:
//
//	return fmt.Errorf("%w: login user: %v", errdefs.ErrAuth, err)
//
// Callers classify failures with errors.Is or the IsX helpers.
package errdefs
