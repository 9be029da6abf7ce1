// Package delegation implements the contract-net task lifecycle:
// open → assigned → in_progress → completed/failed. Tasks accept scored
// bids only while open and are assigned either directly or to the highest
// bid. Business-rule violations come back as board.Rejection values, never
// errors — rejections are expected traffic, not faults.
package delegation

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roost-dev/roost/pkg/board"
)

// Spec describes a task to create. Title is the only required field.
type Spec struct {
	Title       string
	Description string
	Priority    string
	WorkspaceID string
	Tags        []string
}

// Engine owns the task record store. A single lock guards the flat task
// collection; there is no per-task lock because every mutation arrives as
// one event at a time from the dispatcher.
//
// All methods are safe for concurrent use.
type Engine struct {
	mu    sync.Mutex
	tasks map[string]*board.Task
	nowMs func() int64
}

// NewEngine creates an empty delegation engine.
func NewEngine() *Engine {
	return &Engine{
		tasks: make(map[string]*board.Task),
		nowMs: func() int64 { return time.Now().UnixMilli() },
	}
}

// SetClock overrides the engine's time source. Test hook.
func (e *Engine) SetClock(nowMs func() int64) {
	e.nowMs = nowMs
}

// CreateTask builds a task in the open state with an empty bid list and no
// assignee. Rejected only when the title is missing.
func (e *Engine) CreateTask(spec Spec) (*board.Task, *board.Rejection) {
	if spec.Title == "" {
		return nil, board.Reject(board.RuleInvalid, "", "task title is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowMs()
	task := &board.Task{
		ID:          uuid.New().String(),
		Title:       spec.Title,
		Description: spec.Description,
		Priority:    spec.Priority,
		WorkspaceID: spec.WorkspaceID,
		Status:      board.TaskStatusOpen,
		Bids:        []board.Bid{},
		Tags:        spec.Tags,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	e.tasks[task.ID] = task

	return snapshot(task), nil
}

// Bid appends a scored bid to a task. Bids are accepted iff the task
// exists and its status is exactly open; anything else is a silent
// rejection, the explicit guard against bidding on non-open tasks.
func (e *Engine) Bid(taskID, agentID string, score float64) (*board.Task, *board.Rejection) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[taskID]
	if !ok {
		return nil, board.Reject(board.RuleNotFound, taskID, "no such task")
	}
	if task.Status != board.TaskStatusOpen {
		return nil, board.Reject(board.RuleTaskNotOpen, taskID,
			"bids are only accepted while a task is open")
	}

	task.Bids = append(task.Bids, board.Bid{
		AgentID:    agentID,
		Score:      score,
		PlacedAtMs: e.nowMs(),
	})
	task.UpdatedAtMs = e.nowMs()

	return snapshot(task), nil
}

// Assign transitions a task to assigned. With an explicit agent ID the
// task is bound directly, regardless of bids — direct assignment overrides
// the auction. With no agent ID the highest-scoring bid wins; score ties
// keep bid submission order (the sort is stable and bids are appended in
// arrival order), so the earliest bid wins. Assignment with no agent and
// no bids is rejected, as is assignment of any task that is no longer
// open: no transition moves backward.
func (e *Engine) Assign(taskID, agentID string) (*board.Task, *board.Rejection) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[taskID]
	if !ok {
		return nil, board.Reject(board.RuleNotFound, taskID, "no such task")
	}
	if task.Status != board.TaskStatusOpen {
		return nil, board.Reject(board.RuleTaskNotOpen, taskID,
			"only open tasks can be assigned")
	}

	if agentID == "" {
		if len(task.Bids) == 0 {
			return nil, board.Reject(board.RuleNoBids, taskID,
				"auction assignment requires at least one bid")
		}
		bids := append([]board.Bid(nil), task.Bids...)
		sort.SliceStable(bids, func(i, j int) bool {
			return bids[i].Score > bids[j].Score
		})
		agentID = bids[0].AgentID
	}

	task.AssignedTo = agentID
	task.Status = board.TaskStatusAssigned
	task.UpdatedAtMs = e.nowMs()

	return snapshot(task), nil
}

// Start moves a task to in_progress. Permitted only when the task has no
// assignee yet (the first start binds it) or the assignee matches the
// acting agent; otherwise rejected, guarding against a different agent
// hijacking an assigned task. Completed and failed tasks cannot be
// restarted.
func (e *Engine) Start(taskID, agentID string) (*board.Task, *board.Rejection) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[taskID]
	if !ok {
		return nil, board.Reject(board.RuleNotFound, taskID, "no such task")
	}
	if task.Status.Terminal() {
		return nil, board.Reject(board.RuleTaskFinished, taskID,
			"task has already finished")
	}
	if task.AssignedTo != "" && task.AssignedTo != agentID {
		return nil, board.Reject(board.RuleWrongAssignee, taskID,
			"task is assigned to a different agent")
	}

	task.AssignedTo = agentID
	task.Status = board.TaskStatusInProgress
	task.UpdatedAtMs = e.nowMs()

	return snapshot(task), nil
}

// Complete records the result and moves the task to completed. Permitted
// from any prior status, including open: agents may complete out-of-band
// work without a bid round. The permissiveness is deliberate policy.
func (e *Engine) Complete(taskID, agentID, result string) (*board.Task, *board.Rejection) {
	return e.finish(taskID, agentID, result, board.TaskStatusCompleted)
}

// Fail records the failure reason and moves the task to failed. Like
// Complete, permitted from any prior status.
func (e *Engine) Fail(taskID, agentID, reason string) (*board.Task, *board.Rejection) {
	return e.finish(taskID, agentID, reason, board.TaskStatusFailed)
}

func (e *Engine) finish(taskID, agentID, result string, status board.TaskStatus) (*board.Task, *board.Rejection) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[taskID]
	if !ok {
		return nil, board.Reject(board.RuleNotFound, taskID, "no such task")
	}

	now := e.nowMs()
	task.Status = status
	task.CompletedBy = agentID
	task.Result = result
	task.UpdatedAtMs = now
	task.CompletedAtMs = now

	return snapshot(task), nil
}

// Get returns the task with the given ID, or nil.
func (e *Engine) Get(taskID string) *board.Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[taskID]
	if !ok {
		return nil
	}
	return snapshot(task)
}

// OpenTasks lists open tasks, optionally filtered by workspace, oldest
// first.
func (e *Engine) OpenTasks(workspaceID string) []*board.Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	open := make([]*board.Task, 0)
	for _, task := range e.tasks {
		if task.Status != board.TaskStatusOpen {
			continue
		}
		if workspaceID != "" && task.WorkspaceID != workspaceID {
			continue
		}
		open = append(open, snapshot(task))
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].CreatedAtMs < open[j].CreatedAtMs
	})
	return open
}

// TasksForAgent lists tasks the agent touched as assignee or completer,
// oldest first.
func (e *Engine) TasksForAgent(agentID string) []*board.Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	touched := make([]*board.Task, 0)
	for _, task := range e.tasks {
		if task.AssignedTo == agentID || task.CompletedBy == agentID {
			touched = append(touched, snapshot(task))
		}
	}
	sort.Slice(touched, func(i, j int) bool {
		return touched[i].CreatedAtMs < touched[j].CreatedAtMs
	})
	return touched
}

// snapshot copies a task so callers never share the engine's mutable
// state. Bids stay an empty slice rather than nil so a fresh task
// serializes as [] instead of null.
func snapshot(t *board.Task) *board.Task {
	cp := *t
	cp.Bids = make([]board.Bid, len(t.Bids))
	copy(cp.Bids, t.Bids)
	if t.Tags != nil {
		cp.Tags = make([]string, len(t.Tags))
		copy(cp.Tags, t.Tags)
	}
	return &cp
}
