package yml

import (
	"os"
	"regexp"
)

var envExpr = regexp.MustCompile(`\$\{env\.([A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${env.KEY} with the value of environment variable KEY,
// or "" when it is unset. Malformed expressions are kept verbatim.
func ExpandEnv(data []byte) []byte {
	return envExpr.ReplaceAllFunc(data, func(match []byte) []byte {
		key := envExpr.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(key)))
	})
}
