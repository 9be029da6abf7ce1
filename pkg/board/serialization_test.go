package board

import (
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentHashRoundTrip(t *testing.T) {
	t.Run("preserves nested structures", func(t *testing.T) {
		agent := &Agent{
			ID:          uuid.New().String(),
			Name:        "root",
			Label:       "root",
			Ordinal:     0,
			Avatar:      "🦉",
			Color:       "#1f6feb",
			Skills:      []string{"review", "merge"},
			Resources:   Resources{CPUCores: 8, GPUs: 1, RAMMb: 16384},
			Stats:       AgentStats{Actions: 100, TasksCompleted: 3, LinesWritten: 900, ActiveMs: 120000},
			WorkspaceID: "ws-main",
			Status:      "reviewing",
			Stale:       true,
			JoinedAtMs:  1700000000000,
			LastSeenMs:  1700000120000,
		}

		hash, err := AgentToHash(agent)
		require.NoError(t, err)

		restored, err := HashToAgent(stringify(t, hash))
		require.NoError(t, err)
		assert.Equal(t, agent, restored)
	})

	t.Run("nil skills become empty slice", func(t *testing.T) {
		agent := &Agent{ID: uuid.New().String(), Name: "a", Label: "agent-1", Ordinal: 1}

		hash, err := AgentToHash(agent)
		require.NoError(t, err)

		restored, err := HashToAgent(stringify(t, hash))
		require.NoError(t, err)
		assert.NotNil(t, restored.Skills)
		assert.Empty(t, restored.Skills)
	})

	t.Run("rejects corrupt ordinal", func(t *testing.T) {
		_, err := HashToAgent(map[string]string{"id": "x", "ordinal": "many"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid ordinal")
	})
}

func TestTaskHashRoundTrip(t *testing.T) {
	task := &Task{
		ID:            uuid.New().String(),
		Title:         "Build the parser",
		Description:   "handle nested blocks",
		Priority:      "high",
		WorkspaceID:   "ws-main",
		Status:        TaskStatusCompleted,
		Bids:          []Bid{{AgentID: "a1", Score: 3, PlacedAtMs: 10}, {AgentID: "a2", Score: 7, PlacedAtMs: 11}},
		AssignedTo:    "a2",
		CompletedBy:   "a2",
		Result:        "done",
		Tags:          []string{"backend"},
		CreatedAtMs:   100,
		UpdatedAtMs:   200,
		CompletedAtMs: 200,
	}

	hash, err := TaskToHash(task)
	require.NoError(t, err)

	restored, err := HashToTask(stringify(t, hash))
	require.NoError(t, err)
	assert.Equal(t, task, restored)
}

func TestRequestHashRoundTrip(t *testing.T) {
	req := &SkillRequest{
		ID:          uuid.New().String(),
		RequesterID: "a1",
		Skill:       "summarize",
		Params:      []byte(`{"max_words":50}`),
		Status:      RequestStatusClaimed,
		Providers:   []string{"a2", "a3"},
		ClaimedBy:   "a3",
		CreatedAtMs: 100,
		UpdatedAtMs: 150,
	}

	hash, err := RequestToHash(req)
	require.NoError(t, err)

	restored, err := HashToRequest(stringify(t, hash))
	require.NoError(t, err)
	assert.Equal(t, req, restored)
}

func TestWorkspaceHashRoundTrip(t *testing.T) {
	ws := &WorkspaceMeta{
		ID:          "ws-main",
		Name:        "main",
		Files:       []string{"cmd/main.go"},
		LastVersion: 7,
		CreatedAtMs: 1,
		UpdatedAtMs: 2,
	}

	hash, err := WorkspaceToHash(ws)
	require.NoError(t, err)

	restored, err := HashToWorkspace(stringify(t, hash))
	require.NoError(t, err)
	assert.Equal(t, ws, restored)
}

// stringify converts the HSet argument map into the string map HGetAll
// returns, mimicking a Redis round trip without a server.
func stringify(t *testing.T, hash map[string]interface{}) map[string]string {
	t.Helper()
	out := make(map[string]string, len(hash))
	for k, v := range hash {
		switch val := v.(type) {
		case string:
			out[k] = val
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		default:
			t.Fatalf("unexpected hash value type %T for field %q", v, k)
		}
	}
	return out
}
