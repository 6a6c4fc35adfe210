package redis

import "strings"

const keyPrefix = "trivia"

// Key joins parts under the service prefix, e.g. trivia:scores:versus.
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}
