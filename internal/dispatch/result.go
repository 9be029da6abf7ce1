package dispatch

import "github.com/roost-dev/roost/pkg/board"

// ResultKind labels what a dispatch produced, for outbound fan-out and the
// event feed.
type ResultKind string

const (
	ResultAgentJoined    ResultKind = "agent_joined"
	ResultAgentLeft      ResultKind = "agent_left"
	ResultAgentUpdated   ResultKind = "agent_updated"
	ResultOpAccepted     ResultKind = "op_accepted"
	ResultCursorMoved    ResultKind = "cursor_moved"
	ResultSyncState      ResultKind = "sync_state"
	ResultTaskUpdated    ResultKind = "task_updated"
	ResultSkillsUpdated  ResultKind = "skills_updated"
	ResultRequestUpdated ResultKind = "request_updated"
	ResultRejected       ResultKind = "rejected"
)

// Result is the immutable record a dispatch returns. The dispatcher never
// reaches into the transport layer; the hub decides what to broadcast and
// to whom based on this record.
//
// Exactly one of Payload or Rejection is set. Every payload is
// serializable to a flat structure: no cycles, no live handles.
type Result struct {
	Kind        ResultKind       `json:"kind"`
	AgentID     string           `json:"agent_id,omitempty"`
	WorkspaceID string           `json:"workspace_id,omitempty"`
	Payload     any              `json:"payload,omitempty"`
	Rejection   *board.Rejection `json:"rejection,omitempty"`

	// ToSender restricts fan-out to the originating connection (sync
	// state, rejections). Everything else goes to the workspace or, when
	// no workspace is set, to all connections.
	ToSender bool `json:"-"`
}

// rejected wraps a Rejection into a sender-only Result.
func rejected(agentID string, rej *board.Rejection) *Result {
	return &Result{
		Kind:      ResultRejected,
		AgentID:   agentID,
		Rejection: rej,
		ToSender:  true,
	}
}
