// Package instance holds helpers tied to a Roost instance's identity: name
// validation and Redis endpoint defaults. The instance name namespaces every
// Redis key and channel, so it must be locked down before anything connects.
package instance

import (
	"fmt"
	"regexp"
)

// MaxNameLength is the maximum length for an instance name (DNS-compatible)
const MaxNameLength = 63

// NamePattern is the regex pattern for valid instance names.
// Must be DNS-compatible: lowercase alphanumeric, hyphens allowed (but not
// at start/end).
var NamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateName checks if an instance name is valid according to DNS naming
// rules. Invalid names would produce unusable Redis key namespaces.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxNameLength)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}
