// Package env holds tiny lookup helpers for settings read outside the
// envconfig-managed configuration, such as logger bootstrap values.
package env

import "os"

// Get reads key from the process environment. Unset and empty values both
// fall back to def.
func Get(key, def string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return def
	}
	return val
}
