package secret

import "github.com/jonwraymond/vaultboot/errdefs"

// Validate reports the required keys absent from cfg.
//
// It must be given the final merged map, since a required key may come from
// any layer. The result is nil or an *errdefs.ValidationError.
func Validate(required []string, cfg map[string]string) error {
	var missing []string
	seen := make(map[string]struct{}, len(required))

	for _, key := range required {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if _, ok := cfg[key]; !ok {
			missing = append(missing, key)
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return errdefs.NewValidationError(missing)
}
