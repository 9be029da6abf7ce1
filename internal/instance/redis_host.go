package instance

import (
	"fmt"
	"os"
)

// GetRedisHost returns the appropriate Redis hostname for the current
// environment. Inside a container it returns "host.docker.internal" to
// reach the host's published ports; otherwise "localhost".
func GetRedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// DefaultRedisURL constructs the default Redis URL for this environment.
func DefaultRedisURL() string {
	return fmt.Sprintf("redis://%s:6379", GetRedisHost())
}
