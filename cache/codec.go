package cache

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/transport"
)

// entry is the per-application record in the cache document.
type entry struct {
	Sec string `json:"sec"`
}

// document is the on-disk cache layout keyed by application name.
type document map[string]entry

// Encode serializes configuration to JSON and base64 encodes it.
func Encode(configuration map[string]string) (string, error) {
	if configuration == nil {
		configuration = map[string]string{}
	}
	raw, err := json.Marshal(configuration)
	if err != nil {
		return "", fmt.Errorf("%w: encode snapshot: %v", errdefs.ErrCache, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode. Snapshots holding raw store values (numbers,
// booleans, nested JSON) are accepted and formatted with
// transport.FormatValue, the same way a fetch formats them.
func Decode(encoded string) (map[string]string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", errdefs.ErrCache, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("%w: parse snapshot: %v", errdefs.ErrCache, err)
	}
	return transport.FormatMap(values), nil
}
