package meta

import (
	"os"
	"regexp"
)

var envExpr = regexp.MustCompile(`\$\{env\.(\w*)}`)

// expandEnvExpr substitutes ${env.KEY} expressions with the value of the
// environment variable KEY; unset variables expand to the empty string.
// Malformed expressions are left untouched.
func expandEnvExpr(value string) string {
	return envExpr.ReplaceAllStringFunc(value, func(match string) string {
		key := envExpr.FindStringSubmatch(match)[1]
		return os.Getenv(key)
	})
}
