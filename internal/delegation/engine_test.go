package delegation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roost-dev/roost/pkg/board"
)

func TestCreateTask(t *testing.T) {
	t.Run("creates an open task with empty bids", func(t *testing.T) {
		e := NewEngine()

		task, rej := e.CreateTask(Spec{Title: "Index the corpus", Priority: "high", WorkspaceID: "ws1"})
		require.Nil(t, rej)
		require.NotNil(t, task)

		_, err := uuid.Parse(task.ID)
		assert.NoError(t, err)
		assert.Equal(t, board.TaskStatusOpen, task.Status)
		// Empty slice, not nil: a fresh task serializes its bids as [].
		require.NotNil(t, task.Bids)
		assert.Empty(t, task.Bids)
		assert.Empty(t, task.AssignedTo)
		assert.NotZero(t, task.CreatedAtMs)
	})

	t.Run("rejects a task without a title", func(t *testing.T) {
		e := NewEngine()

		task, rej := e.CreateTask(Spec{Description: "no title"})
		assert.Nil(t, task)
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleInvalid, rej.Rule)
	})
}

func TestBid(t *testing.T) {
	t.Run("appends bids in arrival order", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})

		_, rej := e.Bid(task.ID, "a1", 3)
		require.Nil(t, rej)
		updated, rej := e.Bid(task.ID, "a2", 7)
		require.Nil(t, rej)

		require.Len(t, updated.Bids, 2)
		assert.Equal(t, "a1", updated.Bids[0].AgentID)
		assert.Equal(t, "a2", updated.Bids[1].AgentID)
	})

	t.Run("rejects bids on unknown tasks", func(t *testing.T) {
		e := NewEngine()

		_, rej := e.Bid(uuid.New().String(), "a1", 5)
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleNotFound, rej.Rule)
	})

	t.Run("rejects bids once the task leaves open", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})
		_, rej := e.Assign(task.ID, "a1")
		require.Nil(t, rej)

		_, rej = e.Bid(task.ID, "a2", 9)
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleTaskNotOpen, rej.Rule)
	})
}

func TestAssign(t *testing.T) {
	t.Run("auction picks the highest score", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})
		e.Bid(task.ID, "a1", 3)
		e.Bid(task.ID, "a2", 7)
		e.Bid(task.ID, "a3", 5)

		assigned, rej := e.Assign(task.ID, "")
		require.Nil(t, rej)
		assert.Equal(t, "a2", assigned.AssignedTo)
		assert.Equal(t, board.TaskStatusAssigned, assigned.Status)
	})

	t.Run("score ties go to the earliest bid", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})
		e.Bid(task.ID, "a1", 5)
		e.Bid(task.ID, "a2", 5)

		assigned, rej := e.Assign(task.ID, "")
		require.Nil(t, rej)
		assert.Equal(t, "a1", assigned.AssignedTo)
	})

	t.Run("direct assignment overrides the auction", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})
		e.Bid(task.ID, "a1", 99)

		assigned, rej := e.Assign(task.ID, "a9")
		require.Nil(t, rej)
		assert.Equal(t, "a9", assigned.AssignedTo)
	})

	t.Run("auction without bids is rejected", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})

		_, rej := e.Assign(task.ID, "")
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleNoBids, rej.Rule)
	})

	t.Run("completed tasks cannot be reassigned", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})
		_, rej := e.Complete(task.ID, "a1", "done")
		require.Nil(t, rej)

		_, rej = e.Assign(task.ID, "a2")
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleTaskNotOpen, rej.Rule)
		assert.Equal(t, board.TaskStatusCompleted, e.Get(task.ID).Status)
	})

	t.Run("assigned tasks cannot be reassigned", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})
		_, rej := e.Assign(task.ID, "a1")
		require.Nil(t, rej)

		_, rej = e.Assign(task.ID, "a2")
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleTaskNotOpen, rej.Rule)
		assert.Equal(t, "a1", e.Get(task.ID).AssignedTo)
	})
}

func TestStart(t *testing.T) {
	t.Run("assignee may start", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})
		e.Bid(task.ID, "a1", 5)
		e.Assign(task.ID, "")

		started, rej := e.Start(task.ID, "a1")
		require.Nil(t, rej)
		assert.Equal(t, board.TaskStatusInProgress, started.Status)
	})

	t.Run("other agents cannot hijack an assigned task", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})
		e.Assign(task.ID, "a1")

		_, rej := e.Start(task.ID, "a2")
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleWrongAssignee, rej.Rule)
	})

	t.Run("start on an unassigned task binds it", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})

		started, rej := e.Start(task.ID, "a1")
		require.Nil(t, rej)
		assert.Equal(t, "a1", started.AssignedTo)
		assert.Equal(t, board.TaskStatusInProgress, started.Status)
	})

	t.Run("finished tasks cannot be restarted", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})
		_, rej := e.Complete(task.ID, "a1", "done")
		require.Nil(t, rej)

		_, rej = e.Start(task.ID, "a2")
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleTaskFinished, rej.Rule)
		got := e.Get(task.ID)
		assert.Equal(t, board.TaskStatusCompleted, got.Status)
		assert.Empty(t, got.AssignedTo)
	})
}

func TestCompleteAndFail(t *testing.T) {
	t.Run("complete records result and completer", func(t *testing.T) {
		e := NewEngine()
		e.SetClock(func() int64 { return 900 })
		task, _ := e.CreateTask(Spec{Title: "t"})

		done, rej := e.Complete(task.ID, "a1", "all green")
		require.Nil(t, rej)
		assert.Equal(t, board.TaskStatusCompleted, done.Status)
		assert.Equal(t, "a1", done.CompletedBy)
		assert.Equal(t, "all green", done.Result)
		assert.Equal(t, int64(900), done.CompletedAtMs)
	})

	t.Run("complete from open is allowed without a bid round", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "out-of-band work"})

		done, rej := e.Complete(task.ID, "a1", "done")
		require.Nil(t, rej)
		assert.Equal(t, board.TaskStatusCompleted, done.Status)
	})

	t.Run("fail records the reason", func(t *testing.T) {
		e := NewEngine()
		task, _ := e.CreateTask(Spec{Title: "t"})
		e.Start(task.ID, "a1")

		failed, rej := e.Fail(task.ID, "a1", "compile error")
		require.Nil(t, rej)
		assert.Equal(t, board.TaskStatusFailed, failed.Status)
		assert.Equal(t, "compile error", failed.Result)
	})

	t.Run("unknown task is rejected", func(t *testing.T) {
		e := NewEngine()

		_, rej := e.Complete(uuid.New().String(), "a1", "x")
		require.NotNil(t, rej)
		assert.Equal(t, board.RuleNotFound, rej.Rule)
	})
}

func TestQueries(t *testing.T) {
	e := NewEngine()

	now := int64(100)
	e.SetClock(func() int64 { now++; return now })

	open1, _ := e.CreateTask(Spec{Title: "first", WorkspaceID: "ws1"})
	open2, _ := e.CreateTask(Spec{Title: "second", WorkspaceID: "ws2"})
	doneTask, _ := e.CreateTask(Spec{Title: "third", WorkspaceID: "ws1"})
	e.Complete(doneTask.ID, "a1", "done")

	t.Run("Get returns a copy or nil", func(t *testing.T) {
		got := e.Get(open1.ID)
		require.NotNil(t, got)
		got.Title = "mutated"
		assert.Equal(t, "first", e.Get(open1.ID).Title)

		assert.Nil(t, e.Get("missing"))
	})

	t.Run("OpenTasks lists oldest first", func(t *testing.T) {
		open := e.OpenTasks("")
		require.Len(t, open, 2)
		assert.Equal(t, open1.ID, open[0].ID)
		assert.Equal(t, open2.ID, open[1].ID)
	})

	t.Run("OpenTasks filters by workspace", func(t *testing.T) {
		open := e.OpenTasks("ws1")
		require.Len(t, open, 1)
		assert.Equal(t, open1.ID, open[0].ID)
	})

	t.Run("TasksForAgent covers assignee and completer", func(t *testing.T) {
		e.Start(open2.ID, "a1")

		tasks := e.TasksForAgent("a1")
		require.Len(t, tasks, 2)
	})
}

// Full contract-net round: open, bid, auction, start, complete.
func TestTaskLifecycle(t *testing.T) {
	e := NewEngine()

	task, rej := e.CreateTask(Spec{Title: "Build X", Priority: "high"})
	require.Nil(t, rej)

	_, rej = e.Bid(task.ID, "a1", 3)
	require.Nil(t, rej)
	_, rej = e.Bid(task.ID, "a2", 7)
	require.Nil(t, rej)

	assigned, rej := e.Assign(task.ID, "")
	require.Nil(t, rej)
	assert.Equal(t, "a2", assigned.AssignedTo)

	_, rej = e.Start(task.ID, "a1")
	require.NotNil(t, rej)
	assert.Equal(t, board.RuleWrongAssignee, rej.Rule)

	started, rej := e.Start(task.ID, "a2")
	require.Nil(t, rej)
	assert.Equal(t, board.TaskStatusInProgress, started.Status)

	done, rej := e.Complete(task.ID, "a2", "done")
	require.Nil(t, rej)
	assert.Equal(t, board.TaskStatusCompleted, done.Status)
	assert.Equal(t, "done", done.Result)
	assert.NotZero(t, done.CompletedAtMs)
}
