package board

import (
	"encoding/json"
	"fmt"
)

// ActionKind tags an inbound message with its action type. The set is
// closed: the dispatcher type-switches over the decoded structs, so an
// unhandled kind is a compile-time gap, and an unknown kind on the wire is
// a decode error rather than a silent default branch.
type ActionKind string

const (
	// Workspace operations (sequenced into the operation log).
	ActionEdit    ActionKind = "edit"
	ActionCreate  ActionKind = "create"
	ActionComment ActionKind = "comment"

	// Cursor movement.
	ActionCursor ActionKind = "cursor"

	// Presence mutations.
	ActionStatus    ActionKind = "status"
	ActionWorkspace ActionKind = "workspace"
	ActionResources ActionKind = "resources"
	ActionHeartbeat ActionKind = "heartbeat"

	// Task delegation.
	ActionTaskCreate   ActionKind = "task_create"
	ActionTaskBid      ActionKind = "task_bid"
	ActionTaskAssign   ActionKind = "task_assign"
	ActionTaskStart    ActionKind = "task_start"
	ActionTaskComplete ActionKind = "task_complete"
	ActionTaskFail     ActionKind = "task_fail"

	// Skill routing.
	ActionSkillRegister ActionKind = "skill_register"
	ActionSkillRequest  ActionKind = "skill_request"
	ActionSkillClaim    ActionKind = "skill_claim"
	ActionSkillComplete ActionKind = "skill_complete"
)

// Action is the decoded form of one inbound message. Implementations are
// the closed set of payload structs below.
type Action interface {
	Kind() ActionKind
}

// Envelope is the wire framing for inbound messages: a kind tag plus the
// kind-specific payload.
type Envelope struct {
	Kind    ActionKind      `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OpAction carries a workspace operation (edit, create or comment). The
// payload is opaque to the coordination layer; Lines feeds the originating
// agent's contribution stats.
type OpAction struct {
	Op          ActionKind      `json:"-"`
	WorkspaceID string          `json:"workspace_id"`
	Path        string          `json:"path"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Lines       int             `json:"lines,omitempty"`
}

func (a OpAction) Kind() ActionKind { return a.Op }

// CursorAction moves the sender's cursor within a workspace.
type CursorAction struct {
	WorkspaceID string `json:"workspace_id"`
	Path        string `json:"path"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
}

func (CursorAction) Kind() ActionKind { return ActionCursor }

// StatusAction updates the sender's liveness/activity status string.
type StatusAction struct {
	Status string `json:"status"`
}

func (StatusAction) Kind() ActionKind { return ActionStatus }

// WorkspaceAction moves the sender to a workspace (empty to detach).
type WorkspaceAction struct {
	WorkspaceID string `json:"workspace_id"`
}

func (WorkspaceAction) Kind() ActionKind { return ActionWorkspace }

// ResourcesAction declares the sender's compute resources.
type ResourcesAction struct {
	Resources Resources `json:"resources"`
}

func (ResourcesAction) Kind() ActionKind { return ActionResources }

// HeartbeatAction refreshes the sender's last-seen timestamp.
type HeartbeatAction struct{}

func (HeartbeatAction) Kind() ActionKind { return ActionHeartbeat }

// TaskCreateAction opens a new task for bidding.
type TaskCreateAction struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	WorkspaceID string   `json:"workspace_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func (TaskCreateAction) Kind() ActionKind { return ActionTaskCreate }

// TaskBidAction places a scored bid on an open task.
type TaskBidAction struct {
	TaskID string  `json:"task_id"`
	Score  float64 `json:"score"`
}

func (TaskBidAction) Kind() ActionKind { return ActionTaskBid }

// TaskAssignAction assigns a task: directly to AgentID when set, otherwise
// to the highest-scoring bidder.
type TaskAssignAction struct {
	TaskID  string `json:"task_id"`
	AgentID string `json:"agent_id,omitempty"`
}

func (TaskAssignAction) Kind() ActionKind { return ActionTaskAssign }

// TaskStartAction moves a task to in-progress, binding it to the sender if
// it has no assignee yet.
type TaskStartAction struct {
	TaskID string `json:"task_id"`
}

func (TaskStartAction) Kind() ActionKind { return ActionTaskStart }

// TaskCompleteAction records a task result and completes it.
type TaskCompleteAction struct {
	TaskID string `json:"task_id"`
	Result string `json:"result,omitempty"`
}

func (TaskCompleteAction) Kind() ActionKind { return ActionTaskComplete }

// TaskFailAction records a failure reason and fails the task.
type TaskFailAction struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason,omitempty"`
}

func (TaskFailAction) Kind() ActionKind { return ActionTaskFail }

// SkillRegisterAction declares skills the sender can provide.
type SkillRegisterAction struct {
	Skills []string `json:"skills"`
}

func (SkillRegisterAction) Kind() ActionKind { return ActionSkillRegister }

// SkillRequestAction asks some provider of the named skill to do work.
type SkillRequestAction struct {
	Skill  string          `json:"skill"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (SkillRequestAction) Kind() ActionKind { return ActionSkillRequest }

// SkillClaimAction claims a pending skill request.
type SkillClaimAction struct {
	RequestID string `json:"request_id"`
}

func (SkillClaimAction) Kind() ActionKind { return ActionSkillClaim }

// SkillCompleteAction delivers the result of a claimed skill request.
type SkillCompleteAction struct {
	RequestID string          `json:"request_id"`
	Result    json.RawMessage `json:"result,omitempty"`
}

func (SkillCompleteAction) Kind() ActionKind { return ActionSkillComplete }

// DecodeAction parses a wire envelope into its typed action. Unknown kinds
// return an error so malformed or future message types surface at the
// transport boundary instead of being swallowed.
func DecodeAction(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode action envelope: %w", err)
	}
	return decodePayload(env.Kind, env.Payload)
}

func decodePayload(kind ActionKind, payload json.RawMessage) (Action, error) {
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	// target selects the struct to unmarshal into for each kind.
	var target Action
	switch kind {
	case ActionEdit, ActionCreate, ActionComment:
		a := &OpAction{}
		if err := json.Unmarshal(payload, a); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		a.Op = kind
		return a, nil
	case ActionCursor:
		target = &CursorAction{}
	case ActionStatus:
		target = &StatusAction{}
	case ActionWorkspace:
		target = &WorkspaceAction{}
	case ActionResources:
		target = &ResourcesAction{}
	case ActionHeartbeat:
		return &HeartbeatAction{}, nil
	case ActionTaskCreate:
		target = &TaskCreateAction{}
	case ActionTaskBid:
		target = &TaskBidAction{}
	case ActionTaskAssign:
		target = &TaskAssignAction{}
	case ActionTaskStart:
		target = &TaskStartAction{}
	case ActionTaskComplete:
		target = &TaskCompleteAction{}
	case ActionTaskFail:
		target = &TaskFailAction{}
	case ActionSkillRegister:
		target = &SkillRegisterAction{}
	case ActionSkillRequest:
		target = &SkillRequestAction{}
	case ActionSkillClaim:
		target = &SkillClaimAction{}
	case ActionSkillComplete:
		target = &SkillCompleteAction{}
	default:
		return nil, fmt.Errorf("unknown action kind: %q", string(kind))
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return target, nil
}
