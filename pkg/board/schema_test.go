package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyNamespacing(t *testing.T) {
	assert.Equal(t, "roost:dev:agent:a1", AgentKey("dev", "a1"))
	assert.Equal(t, "roost:dev:agents", AgentIndexKey("dev"))
	assert.Equal(t, "roost:dev:task:t1", TaskKey("dev", "t1"))
	assert.Equal(t, "roost:dev:tasks", TaskIndexKey("dev"))
	assert.Equal(t, "roost:dev:request:r1", RequestKey("dev", "r1"))
	assert.Equal(t, "roost:dev:workspace:ws1", WorkspaceKey("dev", "ws1"))
	assert.Equal(t, "roost:dev:events", EventFeedKey("dev"))
	assert.Equal(t, "roost:dev:coordination_events", EventsChannel("dev"))
}

func TestKeysIsolatedByInstance(t *testing.T) {
	assert.NotEqual(t, AgentKey("a", "x"), AgentKey("b", "x"))
	assert.NotEqual(t, EventsChannel("a"), EventsChannel("b"))
}
