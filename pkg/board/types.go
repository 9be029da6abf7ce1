package board

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RootAgentName is the reserved identity name. An agent registering with
// exactly this name receives ordinal 0 and the fixed "root" label regardless
// of arrival order. Every other agent draws the next sequential ordinal.
const RootAgentName = "root"

// Agent represents a connected autonomous participant tracked by the
// presence registry. The registry exclusively owns Agent records; every
// other component refers to agents by ID only.
type Agent struct {
	ID          string     `json:"id"`           // UUID assigned at registration
	Name        string     `json:"name"`         // Declared display name
	Label       string     `json:"label"`        // Stable display label ("root" or "agent-{ordinal}")
	Ordinal     int        `json:"ordinal"`      // Sequential arrival number, 0 reserved for root
	Avatar      string     `json:"avatar"`       // Deterministic glyph derived from identity
	Color       string     `json:"color"`        // Deterministic palette color derived from identity
	Skills      []string   `json:"skills"`       // Declared capability tags
	Resources   Resources  `json:"resources"`    // Declared compute quantities
	Stats       AgentStats `json:"stats"`        // Cumulative contribution counters
	WorkspaceID string     `json:"workspace_id"` // Current workspace, empty when unattached
	Status      string     `json:"status"`       // Free-form liveness/activity status
	Stale       bool       `json:"stale"`        // Set by the liveness sweep, cleared on heartbeat
	JoinedAtMs  int64      `json:"joined_at_ms"`
	LastSeenMs  int64      `json:"last_seen_ms"`
}

// Resources holds the compute quantities an agent declares it contributes.
// All fields are optional; zero means undeclared.
type Resources struct {
	CPUCores  int `json:"cpu_cores,omitempty"`
	GPUs      int `json:"gpus,omitempty"`
	RAMMb     int `json:"ram_mb,omitempty"`
	StorageMb int `json:"storage_mb,omitempty"`
}

// AgentStats holds an agent's cumulative contribution counters. These feed
// the leaderboard and are flushed to the board before an agent is removed.
type AgentStats struct {
	Actions        int   `json:"actions"`
	TasksCompleted int   `json:"tasks_completed"`
	LinesWritten   int   `json:"lines_written"`
	ActiveMs       int64 `json:"active_ms"` // Coalesced active-coding time
	Errors         int   `json:"errors"`
}

// Operation is one versioned, logged change event within a workspace.
// Versions are strictly increasing per workspace, assigned at acceptance,
// and never renumbered — log trimming drops old entries but keeps versions.
type Operation struct {
	ID          string          `json:"id"`           // UUID stamped at acceptance
	WorkspaceID string          `json:"workspace_id"`
	AgentID     string          `json:"agent_id"`
	Kind        ActionKind      `json:"kind"` // edit, create, comment, ...
	Path        string          `json:"path"` // Target path within the workspace
	Payload     json.RawMessage `json:"payload,omitempty"`
	Version     int64           `json:"version"`
	CreatedAtMs int64           `json:"created_at_ms"`
}

// Cursor is an ephemeral position marker for one agent in one workspace.
// Cursors older than the liveness window are excluded from snapshots even
// when not yet explicitly removed.
type Cursor struct {
	AgentID     string `json:"agent_id"`
	Path        string `json:"path"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	UpdatedAtMs int64  `json:"updated_at_ms"`
}

// TaskStatus defines the lifecycle state of a delegated task.
// Transitions only move forward: open → assigned → in_progress → terminal.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Validate returns an error if the status is not one of the known states.
func (s TaskStatus) Validate() error {
	switch s {
	case TaskStatusOpen, TaskStatusAssigned, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid task status: %q", string(s))
	}
}

// Terminal reports whether the status is completed or failed.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Bid is one agent's scored offer on an open task. Bids are appended in
// arrival order; that order breaks score ties during assignment.
type Bid struct {
	AgentID    string  `json:"agent_id"`
	Score      float64 `json:"score"`
	PlacedAtMs int64   `json:"placed_at_ms"`
}

// Task is a unit of delegated work moving through the contract-net
// lifecycle. Bids are accepted only while the task is open.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Priority      string     `json:"priority,omitempty"`
	WorkspaceID   string     `json:"workspace_id,omitempty"`
	Status        TaskStatus `json:"status"`
	Bids          []Bid      `json:"bids"`
	AssignedTo    string     `json:"assigned_to,omitempty"`
	CompletedBy   string     `json:"completed_by,omitempty"`
	Result        string     `json:"result,omitempty"` // Result payload or failure reason
	Tags          []string   `json:"tags,omitempty"`
	CreatedAtMs   int64      `json:"created_at_ms"`
	UpdatedAtMs   int64      `json:"updated_at_ms"`
	CompletedAtMs int64      `json:"completed_at_ms,omitempty"`
}

// Validate performs structural validation on a task before it is persisted.
func (t *Task) Validate() error {
	if _, err := uuid.Parse(t.ID); err != nil {
		return fmt.Errorf("task ID must be a valid UUID: %w", err)
	}
	if t.Title == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	return t.Status.Validate()
}

// RequestStatus defines the lifecycle state of a skill request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusClaimed   RequestStatus = "claimed"
	RequestStatusCompleted RequestStatus = "completed"
)

// Validate returns an error if the status is not one of the known states.
func (s RequestStatus) Validate() error {
	switch s {
	case RequestStatusPending, RequestStatusClaimed, RequestStatusCompleted:
		return nil
	default:
		return fmt.Errorf("invalid request status: %q", string(s))
	}
}

// SkillRequest is a point-to-point brokered request for a named capability,
// distinct from the general task lifecycle. The provider list is snapshotted
// at creation time: only agents in that snapshot may claim, even if the
// registry changes afterwards.
type SkillRequest struct {
	ID          string          `json:"id"`
	RequesterID string          `json:"requester_id"`
	Skill       string          `json:"skill"`
	Params      json.RawMessage `json:"params,omitempty"`
	Status      RequestStatus   `json:"status"`
	Providers   []string        `json:"providers"` // Qualifying provider snapshot
	ClaimedBy   string          `json:"claimed_by,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAtMs int64           `json:"created_at_ms"`
	UpdatedAtMs int64           `json:"updated_at_ms"`
}

// Event is one entry in the instance-wide coordination feed. Every accepted
// dispatch result is appended here and published for observers.
type Event struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	AgentID     string          `json:"agent_id,omitempty"`
	WorkspaceID string          `json:"workspace_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAtMs int64           `json:"created_at_ms"`
}

// WorkspaceMeta is the durable, externally-owned description of a shared
// workspace. The coordination layer reads the listing at sync time and
// flushes the last accepted version; file content never passes through it.
type WorkspaceMeta struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Files       []string `json:"files"`
	LastVersion int64    `json:"last_version"`
	CreatedAtMs int64    `json:"created_at_ms"`
	UpdatedAtMs int64    `json:"updated_at_ms"`
}

// SyncState is the full snapshot a newly joining party needs to resume a
// workspace without replaying the operation log. File and task listings are
// sourced from the workspace collaborator; the oplog engine owns only the
// version counter and live cursor view.
type SyncState struct {
	WorkspaceID   string   `json:"workspace_id"`
	Version       int64    `json:"version"`
	Files         []string `json:"files"`
	Tasks         []*Task  `json:"tasks"`
	Cursors       []Cursor `json:"cursors"`
	GeneratedAtMs int64    `json:"generated_at_ms"`
}
