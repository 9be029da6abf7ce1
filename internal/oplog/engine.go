// Package oplog implements the per-workspace operation log and cursor sync
// engine. It is a sequencing and fan-out primitive: operations get a
// strictly increasing version number in acceptance order and are appended
// to a bounded log; it performs no validation of operation content.
//
// Conflict policy: concurrent edits resolve by acceptance order into the
// log (last accepted wins on the displayed content). The engine does not
// remap cursor positions operational-transform style; clients re-fetch
// cursor state after each accepted operation. This is a deliberate
// simplification, documented as a known limitation.
package oplog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roost-dev/roost/pkg/board"
)

// Defaults, configurable via roost.yml.
const (
	// DefaultRetention is how many operations each workspace log keeps.
	// Trimming drops oldest entries but never renumbers retained ones.
	DefaultRetention = 1000

	// DefaultCursorTTL is the cursor liveness window. Cursors older than
	// this are excluded from every snapshot even when not yet removed.
	DefaultCursorTTL = 60 * time.Second
)

// workspaceState holds one workspace's log and cursor map. Each workspace
// carries its own lock so unrelated workspaces never serialize against
// each other.
type workspaceState struct {
	mu      sync.Mutex
	version int64
	log     []board.Operation
	cursors map[string]board.Cursor // agentID -> cursor
}

// Engine owns per-workspace operation history and cursor maps. Workspace
// state is lazily initialized on first operation or cursor update through
// a single get-or-create accessor; nothing is pre-created.
//
// All methods are safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	workspaces map[string]*workspaceState

	retention int
	cursorTTL time.Duration
	nowMs     func() int64
}

// NewEngine creates an oplog engine. Non-positive retention or TTL fall
// back to the defaults.
func NewEngine(retention int, cursorTTL time.Duration) *Engine {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if cursorTTL <= 0 {
		cursorTTL = DefaultCursorTTL
	}
	return &Engine{
		workspaces: make(map[string]*workspaceState),
		retention:  retention,
		cursorTTL:  cursorTTL,
		nowMs:      func() int64 { return time.Now().UnixMilli() },
	}
}

// SetClock overrides the engine's time source. Test hook.
func (e *Engine) SetClock(nowMs func() int64) {
	e.nowMs = nowMs
}

// workspace is the get-or-create accessor for per-workspace state.
func (e *Engine) workspace(workspaceID string) *workspaceState {
	e.mu.Lock()
	defer e.mu.Unlock()

	ws, ok := e.workspaces[workspaceID]
	if !ok {
		ws = &workspaceState{cursors: make(map[string]board.Cursor)}
		e.workspaces[workspaceID] = ws
	}
	return ws
}

// ApplyOperation accepts an operation into the workspace log: assigns the
// next version number, stamps time and a uniqueness token, appends, and
// trims the log to the retention window. Returns the stamped operation.
//
// The payload is not inspected; the engine sequences, it does not
// validate content.
func (e *Engine) ApplyOperation(workspaceID string, op board.Operation) board.Operation {
	ws := e.workspace(workspaceID)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.version++
	op.ID = uuid.New().String()
	op.WorkspaceID = workspaceID
	op.Version = ws.version
	op.CreatedAtMs = e.nowMs()

	ws.log = append(ws.log, op)
	if len(ws.log) > e.retention {
		// Drop oldest entries; retained versions are never renumbered.
		excess := len(ws.log) - e.retention
		ws.log = append(ws.log[:0:0], ws.log[excess:]...)
	}

	return op
}

// OperationsSince returns all log entries with version strictly greater
// than the given value, in log order. Entries already trimmed from the
// retention window are gone; callers needing older history must resync.
func (e *Engine) OperationsSince(workspaceID string, version int64) []board.Operation {
	ws := e.workspace(workspaceID)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	ops := make([]board.Operation, 0)
	for _, op := range ws.log {
		if op.Version > version {
			ops = append(ops, op)
		}
	}
	return ops
}

// Version returns the workspace's current version counter.
func (e *Engine) Version(workspaceID string) int64 {
	ws := e.workspace(workspaceID)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.version
}

// UpdateCursor upserts the agent's cursor with the current timestamp and
// returns the stored cursor.
func (e *Engine) UpdateCursor(workspaceID, agentID string, cursor board.Cursor) board.Cursor {
	ws := e.workspace(workspaceID)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	cursor.AgentID = agentID
	cursor.UpdatedAtMs = e.nowMs()
	ws.cursors[agentID] = cursor

	return cursor
}

// Cursors returns the live cursor view: only cursors updated within the
// liveness window relative to call time. Stale cursors are filtered from
// the view but not deleted (lazy expiry).
func (e *Engine) Cursors(workspaceID string) []board.Cursor {
	ws := e.workspace(workspaceID)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	cutoff := e.nowMs() - e.cursorTTL.Milliseconds()
	live := make([]board.Cursor, 0, len(ws.cursors))
	for _, c := range ws.cursors {
		if c.UpdatedAtMs > cutoff {
			live = append(live, c)
		}
	}
	return live
}

// RemoveCursor explicitly deletes the agent's cursor, on leave or
// disconnect.
func (e *Engine) RemoveCursor(workspaceID, agentID string) {
	ws := e.workspace(workspaceID)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	delete(ws.cursors, agentID)
}

// SyncState composes the full snapshot a newly joining party needs to
// resume without replaying the log: current version, the externally
// sourced file and task listings, the live cursor view, and a snapshot
// timestamp. Version and cursors are read under one workspace lock so
// the snapshot cannot straddle a concurrently accepted operation.
func (e *Engine) SyncState(workspaceID string, files []string, tasks []*board.Task) board.SyncState {
	ws := e.workspace(workspaceID)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	now := e.nowMs()
	cutoff := now - e.cursorTTL.Milliseconds()
	live := make([]board.Cursor, 0, len(ws.cursors))
	for _, c := range ws.cursors {
		if c.UpdatedAtMs > cutoff {
			live = append(live, c)
		}
	}

	return board.SyncState{
		WorkspaceID:   workspaceID,
		Version:       ws.version,
		Files:         files,
		Tasks:         tasks,
		Cursors:       live,
		GeneratedAtMs: now,
	}
}
