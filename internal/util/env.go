// Package util provides small utility functions shared by the dispatcher
// and worker binaries.
package util

import "os"

// Getenv retrieves an environment variable with a fallback value.
func Getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
