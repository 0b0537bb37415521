package config

import (
	"os"
	"regexp"
	"strings"
)

// placeholder matches ${NAME} with an optional :-default suffix. Bare
// $NAME is deliberately left alone so YAML values containing literal
// dollar signs survive loading.
var placeholder = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*(?::-[^}]*)?\}`)

// ExpandEnv substitutes ${NAME} and ${NAME:-default} placeholders in a
// config file's raw text. A set, non-empty variable wins; otherwise the
// default applies; otherwise the placeholder collapses to an empty
// string rather than erroring, leaving missing required values to fail
// at whatever validation consumes them.
func ExpandEnv(raw string) string {
	return placeholder.ReplaceAllStringFunc(raw, func(m string) string {
		body := m[2 : len(m)-1] // strip ${ and }
		name, def, _ := strings.Cut(body, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		return def
	})
}
