package bootstrap

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/vaultboot/errdefs"
	"github.com/jonwraymond/vaultboot/secret"
)

// LoadSettingsFile overlays the settings file at path onto base.
//
// Files ending in .json or .jsonc are read as JSON with comments; anything
// else is YAML. Every scalar value goes through secret.ExpandStrict with
// lookup (os.LookupEnv when nil), so `password: ${VAULT_PWD}` works and an
// undefined variable is a configuration error. Only braced references are
// expanded; a literal such as `password: "hunter$2go"` is kept verbatim.
// Fields absent from the file keep their value from base.
func LoadSettingsFile(path string, base Settings, lookup secret.LookupFunc) (Settings, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	data, err := os.ReadFile(path) // #nosec G304 - settings path is operator supplied
	if err != nil {
		return base, fmt.Errorf("%w: read settings file: %v", errdefs.ErrConfig, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decoder handles both after comments are stripped.
		data = jsonc.ToJSON(data)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return base, fmt.Errorf("%w: parse settings file %s: %v", errdefs.ErrConfig, path, err)
	}
	if root.Kind == 0 {
		return base, nil
	}

	if err := expandNode(&root, lookup); err != nil {
		return base, fmt.Errorf("settings file %s: %w", path, err)
	}

	out := base
	out.AuthConfig = nil
	if err := root.Decode(&out); err != nil {
		return base, fmt.Errorf("%w: decode settings file %s: %v", errdefs.ErrConfig, path, err)
	}
	out.AuthConfig = mergeAuthConfig(base.AuthConfig, out.AuthConfig)
	return out, nil
}

// expandNode expands variables in every scalar value below n. Mapping keys
// are left alone.
func expandNode(n *yaml.Node, lookup secret.LookupFunc) error {
	switch n.Kind {
	case yaml.ScalarNode:
		expanded, err := secret.ExpandStrict(n.Value, lookup)
		if err != nil {
			return err
		}
		if expanded != n.Value && n.Style == 0 {
			// Re-resolve plain scalars so `skip: ${VAULT_SKIP}` decodes as a bool.
			n.Tag = ""
		}
		n.Value = expanded
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			if err := expandNode(n.Content[i], lookup); err != nil {
				return err
			}
		}
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range n.Content {
			if err := expandNode(child, lookup); err != nil {
				return err
			}
		}
	}
	return nil
}

// mergeAuthConfig overlays file options onto base per strategy, so a file
// may set a mount while the password still comes from the environment.
func mergeAuthConfig(base, file map[string]map[string]any) map[string]map[string]any {
	if base == nil && file == nil {
		return nil
	}
	out := make(map[string]map[string]any, len(base)+len(file))
	for name, opts := range base {
		out[name] = maps.Clone(opts)
	}
	for name, opts := range file {
		if out[name] == nil {
			out[name] = make(map[string]any, len(opts))
		}
		maps.Copy(out[name], opts)
	}
	return out
}
