// Package filter narrows the coordination event feed for observers.
package filter

import (
	"path/filepath"

	"github.com/roost-dev/roost/pkg/board"
)

// Criteria defines filtering criteria for coordination events.
// All filters are ANDed together: an event must match ALL criteria to pass.
// Empty/zero values are treated as "match all" for that criterion.
type Criteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	KindGlob         string // Glob pattern for the event kind, empty = no filter
	AgentID          string // Exact match on the originating agent, empty = no filter
	WorkspaceID      string // Exact match on the workspace, empty = no filter
}

// Matches returns true if the event matches all filter criteria.
func (c *Criteria) Matches(e *board.Event) bool {
	if c.SinceTimestampMs > 0 && e.CreatedAtMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && e.CreatedAtMs > c.UntilTimestampMs {
		return false
	}

	if c.KindGlob != "" {
		matched, err := filepath.Match(c.KindGlob, e.Kind)
		if err != nil || !matched {
			return false
		}
	}

	if c.AgentID != "" && e.AgentID != c.AgentID {
		return false
	}
	if c.WorkspaceID != "" && e.WorkspaceID != c.WorkspaceID {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.KindGlob != "" ||
		c.AgentID != "" ||
		c.WorkspaceID != ""
}
