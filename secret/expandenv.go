package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/jonwraymond/vaultboot/errdefs"
)

// envVarPattern matches ${NAME}, with an optional leading `$` escape.
var envVarPattern = regexp.MustCompile(`(\$?)\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LookupFunc resolves a variable name, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ExpandEnvStrict expands variables in s from the process environment.
//
// Semantics:
//   - Only `${VAR}` is expanded. A bare `$` is kept as is, so values such
//     as `hunter$2go` survive unchanged.
//   - If `${VAR}` is present but VAR is undefined, it errors with errdefs.ErrConfig.
//   - `$${VAR}` emits a literal `${VAR}`.
func ExpandEnvStrict(s string) (string, error) {
	return ExpandStrict(s, os.LookupEnv)
}

// ExpandStrict is ExpandEnvStrict with a custom lookup.
func ExpandStrict(s string, lookup LookupFunc) (string, error) {
	matches := envVarPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	missing := make(map[string]struct{})
	for _, m := range matches {
		if m[3] > m[2] {
			continue
		}
		name := s[m[4]:m[5]]
		if _, ok := lookup(name); !ok {
			missing[name] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: %w: %s", errdefs.ErrConfig, ErrUndefinedVariables, strings.Join(keys, ", "))
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		if m[3] > m[2] {
			// Escaped: drop the leading `$` and keep the reference verbatim.
			b.WriteString(s[m[3]:m[1]])
		} else {
			v, _ := lookup(s[m[4]:m[5]])
			b.WriteString(v)
		}
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}
