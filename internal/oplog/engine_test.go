package oplog

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roost-dev/roost/pkg/board"
)

func TestApplyOperation(t *testing.T) {
	t.Run("assigns strictly increasing versions", func(t *testing.T) {
		e := NewEngine(0, 0)

		op1 := e.ApplyOperation("ws1", board.Operation{AgentID: "a1", Kind: board.ActionEdit, Path: "main.go"})
		op2 := e.ApplyOperation("ws1", board.Operation{AgentID: "a2", Kind: board.ActionEdit, Path: "main.go"})

		assert.Equal(t, int64(1), op1.Version)
		assert.Equal(t, int64(2), op2.Version)
		assert.Equal(t, int64(2), e.Version("ws1"))
	})

	t.Run("stamps ID, workspace and time", func(t *testing.T) {
		e := NewEngine(0, 0)
		e.SetClock(func() int64 { return 777 })

		op := e.ApplyOperation("ws1", board.Operation{AgentID: "a1", Kind: board.ActionCreate, Path: "new.go"})

		_, err := uuid.Parse(op.ID)
		assert.NoError(t, err)
		assert.Equal(t, "ws1", op.WorkspaceID)
		assert.Equal(t, int64(777), op.CreatedAtMs)
	})

	t.Run("workspaces sequence independently", func(t *testing.T) {
		e := NewEngine(0, 0)

		e.ApplyOperation("ws1", board.Operation{AgentID: "a1", Kind: board.ActionEdit})
		e.ApplyOperation("ws1", board.Operation{AgentID: "a1", Kind: board.ActionEdit})
		op := e.ApplyOperation("ws2", board.Operation{AgentID: "a1", Kind: board.ActionEdit})

		assert.Equal(t, int64(1), op.Version)
		assert.Equal(t, int64(2), e.Version("ws1"))
		assert.Equal(t, int64(1), e.Version("ws2"))
	})

	t.Run("trimming keeps version numbers", func(t *testing.T) {
		e := NewEngine(5, 0)

		for i := 0; i < 8; i++ {
			e.ApplyOperation("ws1", board.Operation{AgentID: "a1", Kind: board.ActionEdit})
		}

		ops := e.OperationsSince("ws1", 0)
		require.Len(t, ops, 5)
		assert.Equal(t, int64(4), ops[0].Version)
		assert.Equal(t, int64(8), ops[4].Version)

		// The next accepted operation continues the sequence.
		next := e.ApplyOperation("ws1", board.Operation{AgentID: "a1", Kind: board.ActionEdit})
		assert.Equal(t, int64(9), next.Version)
	})
}

func TestOperationsSince(t *testing.T) {
	e := NewEngine(0, 0)

	for i := 0; i < 5; i++ {
		e.ApplyOperation("ws1", board.Operation{AgentID: "a1", Kind: board.ActionEdit})
	}

	t.Run("returns entries strictly after the given version", func(t *testing.T) {
		ops := e.OperationsSince("ws1", 3)
		require.Len(t, ops, 2)
		assert.Equal(t, int64(4), ops[0].Version)
		assert.Equal(t, int64(5), ops[1].Version)
	})

	t.Run("version at head returns empty", func(t *testing.T) {
		assert.Empty(t, e.OperationsSince("ws1", 5))
	})

	t.Run("unknown workspace returns empty", func(t *testing.T) {
		assert.Empty(t, e.OperationsSince("ws-unknown", 0))
	})
}

func TestCursors(t *testing.T) {
	t.Run("upsert and list", func(t *testing.T) {
		e := NewEngine(0, 0)

		c := e.UpdateCursor("ws1", "a1", board.Cursor{Path: "main.go", Line: 10, Column: 2})
		assert.Equal(t, "a1", c.AgentID)
		assert.NotZero(t, c.UpdatedAtMs)

		e.UpdateCursor("ws1", "a1", board.Cursor{Path: "main.go", Line: 11})

		cursors := e.Cursors("ws1")
		require.Len(t, cursors, 1)
		assert.Equal(t, 11, cursors[0].Line)
	})

	t.Run("cursors expire lazily after the liveness window", func(t *testing.T) {
		e := NewEngine(0, 60*time.Second)

		now := int64(1_000_000)
		e.SetClock(func() int64 { return now })

		e.UpdateCursor("ws1", "a1", board.Cursor{Path: "main.go", Line: 1})

		// Just inside the window the cursor is still visible.
		now += 59_999
		require.Len(t, e.Cursors("ws1"), 1)

		// Past the window it drops out of the view without removal.
		now += 2
		assert.Empty(t, e.Cursors("ws1"))

		// A fresh update revives it.
		e.UpdateCursor("ws1", "a1", board.Cursor{Path: "main.go", Line: 2})
		assert.Len(t, e.Cursors("ws1"), 1)
	})

	t.Run("remove deletes immediately", func(t *testing.T) {
		e := NewEngine(0, 0)

		e.UpdateCursor("ws1", "a1", board.Cursor{Path: "main.go"})
		e.UpdateCursor("ws1", "a2", board.Cursor{Path: "other.go"})
		e.RemoveCursor("ws1", "a1")

		cursors := e.Cursors("ws1")
		require.Len(t, cursors, 1)
		assert.Equal(t, "a2", cursors[0].AgentID)
	})

	t.Run("cursors are scoped per workspace", func(t *testing.T) {
		e := NewEngine(0, 0)

		e.UpdateCursor("ws1", "a1", board.Cursor{Path: "main.go"})
		assert.Empty(t, e.Cursors("ws2"))
	})
}

func TestSyncState(t *testing.T) {
	e := NewEngine(0, 0)
	e.SetClock(func() int64 { return 500 })

	e.ApplyOperation("ws1", board.Operation{AgentID: "a1", Kind: board.ActionEdit})
	e.UpdateCursor("ws1", "a1", board.Cursor{Path: "main.go", Line: 3})

	files := []string{"main.go", "util.go"}
	tasks := []*board.Task{{ID: uuid.New().String(), Title: "t", Status: board.TaskStatusOpen}}

	state := e.SyncState("ws1", files, tasks)

	assert.Equal(t, "ws1", state.WorkspaceID)
	assert.Equal(t, int64(1), state.Version)
	assert.Equal(t, files, state.Files)
	assert.Equal(t, tasks, state.Tasks)
	require.Len(t, state.Cursors, 1)
	assert.Equal(t, int64(500), state.GeneratedAtMs)
}

// Snapshots taken while operations are being accepted must reflect a
// single point in the version sequence, not straddle concurrent appends.
func TestSyncStateConcurrentWithOperations(t *testing.T) {
	e := NewEngine(0, 0)

	const writers = 4
	const opsPerWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < opsPerWriter; i++ {
				e.ApplyOperation("ws1", board.Operation{AgentID: "a1", Kind: board.ActionEdit})
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			state := e.SyncState("ws1", nil, nil)
			assert.GreaterOrEqual(t, state.Version, int64(0))
			assert.LessOrEqual(t, state.Version, int64(writers*opsPerWriter))
		}
	}()

	wg.Wait()
	<-done

	assert.Equal(t, int64(writers*opsPerWriter), e.Version("ws1"))
}
