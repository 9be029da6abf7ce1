// Package dispatch routes decoded inbound actions to the owning core
// component and produces immutable result records for the transport layer
// to fan out. It is the only place where core state transitions and the
// storage collaborator meet: every accepted mutation is persisted before
// the result is handed back for broadcast.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/roost-dev/roost/internal/delegation"
	"github.com/roost-dev/roost/internal/oplog"
	"github.com/roost-dev/roost/internal/presence"
	"github.com/roost-dev/roost/internal/skillreg"
	"github.com/roost-dev/roost/pkg/board"
)

// Dispatcher wires the four core components together with the board
// client. Components never see each other or the transport; cross-
// component reads happen here through explicit queries.
type Dispatcher struct {
	presence   *presence.Registry
	oplog      *oplog.Engine
	delegation *delegation.Engine
	skills     *skillreg.Registry
	store      *board.Client
}

// New creates a dispatcher over the given components and board client.
func New(reg *presence.Registry, ops *oplog.Engine, tasks *delegation.Engine, skills *skillreg.Registry, store *board.Client) *Dispatcher {
	return &Dispatcher{
		presence:   reg,
		oplog:      ops,
		delegation: tasks,
		skills:     skills,
		store:      store,
	}
}

// Presence exposes the presence registry for read-only queries (health,
// CLI handlers).
func (d *Dispatcher) Presence() *presence.Registry { return d.presence }

// Delegation exposes the task engine for read-only queries.
func (d *Dispatcher) Delegation() *delegation.Engine { return d.delegation }

// Skills exposes the skill router for read-only queries.
func (d *Dispatcher) Skills() *skillreg.Registry { return d.skills }

// Oplog exposes the operation log for read-only queries.
func (d *Dispatcher) Oplog() *oplog.Engine { return d.oplog }

// Connect registers a new agent for a connection and persists the record.
// Declared skills are registered with the skill router in the same step.
// Returns an error for identity allocation failures or storage faults;
// both are fatal for the connection.
func (d *Dispatcher) Connect(ctx context.Context, connRef string, identity presence.Identity) (*Result, error) {
	agent, err := d.presence.Register(connRef, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to register agent: %w", err)
	}

	if len(agent.Skills) > 0 {
		d.skills.RegisterSkills(agent.ID, agent.Skills)
	}

	if err := d.store.SaveAgent(ctx, agent); err != nil {
		d.presence.Remove(connRef)
		d.skills.UnregisterAgent(agent.ID)
		return nil, fmt.Errorf("failed to persist agent: %w", err)
	}

	result := &Result{
		Kind:    ResultAgentJoined,
		AgentID: agent.ID,
		Payload: agent,
	}
	d.appendEvent(ctx, result)

	return result, nil
}

// Disconnect detaches the agent bound to a connection: flushes its stats
// to the board, removes its cursor, and unregisters its skills. Returns
// nil when the connection is unknown (already gone).
func (d *Dispatcher) Disconnect(ctx context.Context, connRef string) *Result {
	agent := d.presence.Remove(connRef)
	if agent == nil {
		return nil
	}

	d.skills.UnregisterAgent(agent.ID)
	if agent.WorkspaceID != "" {
		d.oplog.RemoveCursor(agent.WorkspaceID, agent.ID)
	}

	// Stats are flushed before the record leaves the registry's view;
	// storage faults here are logged, not fatal, since the agent is
	// already gone.
	if err := d.store.SaveAgent(ctx, agent); err != nil {
		log.Printf("[WARN] Failed to flush stats for departing agent %s: %v", agent.ID, err)
	}

	result := &Result{
		Kind:        ResultAgentLeft,
		AgentID:     agent.ID,
		WorkspaceID: agent.WorkspaceID,
		Payload:     agent,
	}
	d.appendEvent(ctx, result)

	return result
}

// Dispatch routes one decoded action from a registered connection to its
// component. Business-rule violations come back inside the Result as a
// Rejection; only infrastructure faults (storage unavailable) return an
// error.
func (d *Dispatcher) Dispatch(ctx context.Context, connRef string, action board.Action) (*Result, error) {
	agent := d.presence.Lookup(connRef)
	if agent == nil {
		return rejected("", board.Reject(board.RuleNotFound, connRef, "connection has no registered agent")), nil
	}

	switch a := action.(type) {
	case *board.OpAction:
		return d.applyOp(ctx, agent, a)
	case *board.CursorAction:
		return d.moveCursor(agent, a), nil
	case *board.StatusAction:
		updated := d.presence.UpdateStatus(agent.ID, a.Status)
		return agentResult(updated), nil
	case *board.WorkspaceAction:
		return d.switchWorkspace(ctx, agent, a)
	case *board.ResourcesAction:
		updated := d.presence.UpdateResources(agent.ID, a.Resources)
		return agentResult(updated), nil
	case *board.HeartbeatAction:
		updated := d.presence.Heartbeat(agent.ID)
		return agentResult(updated), nil
	case *board.TaskCreateAction:
		task, rej := d.delegation.CreateTask(delegation.Spec{
			Title:       a.Title,
			Description: a.Description,
			Priority:    a.Priority,
			WorkspaceID: a.WorkspaceID,
			Tags:        a.Tags,
		})
		return d.taskMutation(ctx, agent, task, rej)
	case *board.TaskBidAction:
		task, rej := d.delegation.Bid(a.TaskID, agent.ID, a.Score)
		return d.taskMutation(ctx, agent, task, rej)
	case *board.TaskAssignAction:
		task, rej := d.delegation.Assign(a.TaskID, a.AgentID)
		return d.taskMutation(ctx, agent, task, rej)
	case *board.TaskStartAction:
		task, rej := d.delegation.Start(a.TaskID, agent.ID)
		return d.taskMutation(ctx, agent, task, rej)
	case *board.TaskCompleteAction:
		return d.completeTask(ctx, agent, a)
	case *board.TaskFailAction:
		task, rej := d.delegation.Fail(a.TaskID, agent.ID, a.Reason)
		return d.taskMutation(ctx, agent, task, rej)
	case *board.SkillRegisterAction:
		skills := d.skills.RegisterSkills(agent.ID, a.Skills)
		result := &Result{
			Kind:    ResultSkillsUpdated,
			AgentID: agent.ID,
			Payload: skills,
		}
		d.appendEvent(ctx, result)
		return result, nil
	case *board.SkillRequestAction:
		req, rej := d.skills.CreateRequest(agent.ID, a.Skill, a.Params)
		return d.requestMutation(ctx, agent, req, rej)
	case *board.SkillClaimAction:
		req, rej := d.skills.ClaimRequest(a.RequestID, agent.ID)
		return d.requestMutation(ctx, agent, req, rej)
	case *board.SkillCompleteAction:
		req, rej := d.skills.CompleteRequest(a.RequestID, agent.ID, a.Result)
		return d.requestMutation(ctx, agent, req, rej)
	default:
		// DecodeAction only produces the types above; reaching this arm
		// means a new action kind was added without a dispatch arm.
		return nil, fmt.Errorf("unhandled action kind: %s", action.Kind())
	}
}

// applyOp sequences a workspace operation, credits the originating agent's
// contribution stats, and persists the workspace's last accepted version.
func (d *Dispatcher) applyOp(ctx context.Context, agent *board.Agent, a *board.OpAction) (*Result, error) {
	op := d.oplog.ApplyOperation(a.WorkspaceID, board.Operation{
		AgentID: agent.ID,
		Kind:    a.Op,
		Path:    a.Path,
		Payload: a.Payload,
	})

	d.presence.IncrementStat(agent.ID, presence.StatActions, 1)
	if a.Lines > 0 {
		d.presence.IncrementStat(agent.ID, presence.StatLines, a.Lines)
	}
	d.presence.RecordActivityTime(agent.ID)

	if err := d.bumpWorkspaceVersion(ctx, a.WorkspaceID, op.Version); err != nil {
		return nil, err
	}

	result := &Result{
		Kind:        ResultOpAccepted,
		AgentID:     agent.ID,
		WorkspaceID: a.WorkspaceID,
		Payload:     op,
	}
	d.appendEvent(ctx, result)

	return result, nil
}

// moveCursor upserts the sender's cursor. Cursor traffic is high-volume
// and ephemeral: it is broadcast but never persisted or fed to the event
// log.
func (d *Dispatcher) moveCursor(agent *board.Agent, a *board.CursorAction) *Result {
	cursor := d.oplog.UpdateCursor(a.WorkspaceID, agent.ID, board.Cursor{
		Path:   a.Path,
		Line:   a.Line,
		Column: a.Column,
	})

	return &Result{
		Kind:        ResultCursorMoved,
		AgentID:     agent.ID,
		WorkspaceID: a.WorkspaceID,
		Payload:     cursor,
	}
}

// switchWorkspace moves the agent between workspaces and hands back the
// full resync snapshot for the new workspace: current version, the file
// listing from the workspace collaborator, open tasks, and live cursors.
func (d *Dispatcher) switchWorkspace(ctx context.Context, agent *board.Agent, a *board.WorkspaceAction) (*Result, error) {
	if agent.WorkspaceID != "" && agent.WorkspaceID != a.WorkspaceID {
		d.oplog.RemoveCursor(agent.WorkspaceID, agent.ID)
	}

	updated := d.presence.UpdateWorkspace(agent.ID, a.WorkspaceID)
	if updated == nil {
		return rejected(agent.ID, board.Reject(board.RuleNotFound, agent.ID, "agent left during dispatch")), nil
	}

	if a.WorkspaceID == "" {
		return agentResult(updated), nil
	}

	var files []string
	meta, err := d.store.GetWorkspace(ctx, a.WorkspaceID)
	switch {
	case err == nil:
		files = meta.Files
	case board.IsNotFound(err):
		files = []string{}
	default:
		return nil, fmt.Errorf("failed to load workspace %s: %w", a.WorkspaceID, err)
	}

	sync := d.oplog.SyncState(a.WorkspaceID, files, d.delegation.OpenTasks(a.WorkspaceID))

	return &Result{
		Kind:        ResultSyncState,
		AgentID:     updated.ID,
		WorkspaceID: a.WorkspaceID,
		Payload:     sync,
		ToSender:    true,
	}, nil
}

// completeTask finishes a task and credits the completing agent before the
// result is broadcast.
func (d *Dispatcher) completeTask(ctx context.Context, agent *board.Agent, a *board.TaskCompleteAction) (*Result, error) {
	task, rej := d.delegation.Complete(a.TaskID, agent.ID, a.Result)
	if rej == nil {
		d.presence.IncrementStat(agent.ID, presence.StatTasks, 1)
		if updated := d.presence.Get(agent.ID); updated != nil {
			if err := d.store.SaveAgent(ctx, updated); err != nil {
				return nil, fmt.Errorf("failed to persist agent stats: %w", err)
			}
		}
	}
	return d.taskMutation(ctx, agent, task, rej)
}

// taskMutation persists a successful task transition before returning the
// result for broadcast. Ordering matters for crash consistency: the board
// write happens before anyone hears about the transition.
func (d *Dispatcher) taskMutation(ctx context.Context, agent *board.Agent, task *board.Task, rej *board.Rejection) (*Result, error) {
	if rej != nil {
		return rejected(agent.ID, rej), nil
	}

	if err := d.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to persist task %s: %w", task.ID, err)
	}

	result := &Result{
		Kind:        ResultTaskUpdated,
		AgentID:     agent.ID,
		WorkspaceID: task.WorkspaceID,
		Payload:     task,
	}
	d.appendEvent(ctx, result)

	return result, nil
}

// requestMutation persists a successful skill request transition before
// returning the result for broadcast.
func (d *Dispatcher) requestMutation(ctx context.Context, agent *board.Agent, req *board.SkillRequest, rej *board.Rejection) (*Result, error) {
	if rej != nil {
		return rejected(agent.ID, rej), nil
	}

	if err := d.store.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to persist request %s: %w", req.ID, err)
	}

	result := &Result{
		Kind:    ResultRequestUpdated,
		AgentID: agent.ID,
		Payload: req,
	}
	d.appendEvent(ctx, result)

	return result, nil
}

// bumpWorkspaceVersion records the last accepted version on the workspace
// metadata, creating the record on first touch.
func (d *Dispatcher) bumpWorkspaceVersion(ctx context.Context, workspaceID string, version int64) error {
	now := time.Now().UnixMilli()

	meta, err := d.store.GetWorkspace(ctx, workspaceID)
	if board.IsNotFound(err) {
		meta = &board.WorkspaceMeta{
			ID:          workspaceID,
			Files:       []string{},
			CreatedAtMs: now,
		}
	} else if err != nil {
		return fmt.Errorf("failed to load workspace %s: %w", workspaceID, err)
	}

	meta.LastVersion = version
	meta.UpdatedAtMs = now
	if err := d.store.SaveWorkspace(ctx, meta); err != nil {
		return fmt.Errorf("failed to persist workspace %s: %w", workspaceID, err)
	}

	return nil
}

// appendEvent records an accepted result on the coordination feed. Feed
// trouble is logged and swallowed: the feed is observability, not part of
// the state transition.
func (d *Dispatcher) appendEvent(ctx context.Context, result *Result) {
	payload, err := json.Marshal(result.Payload)
	if err != nil {
		log.Printf("[WARN] Failed to marshal event payload: %v", err)
		return
	}

	event := &board.Event{
		ID:          uuid.New().String(),
		Kind:        string(result.Kind),
		AgentID:     result.AgentID,
		WorkspaceID: result.WorkspaceID,
		Payload:     payload,
		CreatedAtMs: time.Now().UnixMilli(),
	}
	if err := d.store.AppendEvent(ctx, event); err != nil {
		log.Printf("[WARN] Failed to append %s event: %v", event.Kind, err)
	}
}

// agentResult wraps a presence mutation. A nil agent means the reference
// was unknown; mutators no-op in that case and the caller gets a
// rejection instead of a fault.
func agentResult(agent *board.Agent) *Result {
	if agent == nil {
		return rejected("", board.Reject(board.RuleNotFound, "", "no such agent"))
	}
	return &Result{
		Kind:    ResultAgentUpdated,
		AgentID: agent.ID,
		Payload: agent,
	}
}
