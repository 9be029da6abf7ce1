// Package presence tracks connected agents: identity and ordinal
// assignment, contribution stats, declared resources, heartbeat liveness
// and the contribution leaderboard. The registry exclusively owns Agent
// records; other components refer to agents by ID through explicit queries.
package presence

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roost-dev/roost/pkg/board"
)

// ActivityWindow is the session-continuity window for active-coding time.
// A gap between two recorded activities within this window counts as
// continuous work; a longer gap is treated as idle and not counted.
const ActivityWindow = 2 * time.Minute

// Identity is the self-declared identity an agent presents on connection.
type Identity struct {
	Name      string
	Skills    []string
	Resources board.Resources
}

// StatKind selects which cumulative counter IncrementStat bumps.
type StatKind string

const (
	StatActions StatKind = "actions"
	StatTasks   StatKind = "tasks"
	StatLines   StatKind = "lines"
	StatErrors  StatKind = "errors"
)

// Registry tracks all currently connected agents, keyed by connection
// reference with a secondary index by agent ID. The ordinal counter is
// owned by the registry instance, never a package global, so multiple
// independent registries can coexist in one process.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	byConn       map[string]*board.Agent
	byID         map[string]*board.Agent
	order        []string // agent IDs in registration order
	lastActivity map[string]int64
	nextOrdinal  int

	nowMs func() int64
}

// NewRegistry creates an empty registry. Ordinal 0 stays reserved for the
// root identity; regular agents start at ordinal 1.
func NewRegistry() *Registry {
	return &Registry{
		byConn:       make(map[string]*board.Agent),
		byID:         make(map[string]*board.Agent),
		lastActivity: make(map[string]int64),
		nextOrdinal:  1,
		nowMs:        func() int64 { return time.Now().UnixMilli() },
	}
}

// SetClock overrides the registry's time source. Test hook.
func (r *Registry) SetClock(nowMs func() int64) {
	r.nowMs = nowMs
}

// Register creates an Agent for the given connection reference. An agent
// declaring exactly the reserved root name receives ordinal 0 and the fixed
// "root" label regardless of arrival order; every other agent draws the
// next sequential ordinal. The counter is never reused, even across
// reconnects.
//
// Returns an error only if the connection reference is already registered;
// the caller should treat that as fatal for the connection.
func (r *Registry) Register(connRef string, identity Identity) (*board.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byConn[connRef]; exists {
		return nil, fmt.Errorf("connection %s is already registered", connRef)
	}

	now := r.nowMs()

	agent := &board.Agent{
		ID:         uuid.New().String(),
		Name:       identity.Name,
		Skills:     identity.Skills,
		Resources:  identity.Resources,
		Status:     "online",
		JoinedAtMs: now,
		LastSeenMs: now,
	}
	if agent.Skills == nil {
		agent.Skills = []string{}
	}

	if identity.Name == board.RootAgentName {
		agent.Ordinal = 0
		agent.Label = board.RootAgentName
	} else {
		agent.Ordinal = r.nextOrdinal
		r.nextOrdinal++
		agent.Label = fmt.Sprintf("agent-%d", agent.Ordinal)
	}

	// Visual identity is seeded by name so it survives reconnects.
	agent.Avatar = DeriveAvatar(agent.Name)
	agent.Color = DeriveColor(agent.Name)

	r.byConn[connRef] = agent
	r.byID[agent.ID] = agent
	r.order = append(r.order, agent.ID)

	return snapshot(agent), nil
}

// Remove detaches the agent bound to the given connection reference and
// returns the removed record for the caller to persist and broadcast.
// Returns nil if the connection is unknown.
func (r *Registry) Remove(connRef string) *board.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.byConn[connRef]
	if !ok {
		return nil
	}

	delete(r.byConn, connRef)
	delete(r.byID, agent.ID)
	delete(r.lastActivity, agent.ID)
	for i, id := range r.order {
		if id == agent.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return snapshot(agent)
}

// Lookup returns the agent bound to a connection reference, or nil.
func (r *Registry) Lookup(connRef string) *board.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.byConn[connRef]
	if !ok {
		return nil
	}
	return snapshot(agent)
}

// Get returns the agent with the given ID, or nil.
func (r *Registry) Get(agentID string) *board.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.byID[agentID]
	if !ok {
		return nil
	}
	return snapshot(agent)
}

// List returns all connected agents in registration order.
func (r *Registry) List() []*board.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*board.Agent, 0, len(r.order))
	for _, id := range r.order {
		agents = append(agents, snapshot(r.byID[id]))
	}
	return agents
}

// Count returns the number of connected agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// UpdateStatus sets the agent's status string. No-op on unknown agents.
func (r *Registry) UpdateStatus(agentID, status string) *board.Agent {
	return r.mutate(agentID, func(a *board.Agent) {
		a.Status = status
	})
}

// UpdateWorkspace moves the agent to a workspace (empty string detaches).
// No-op on unknown agents.
func (r *Registry) UpdateWorkspace(agentID, workspaceID string) *board.Agent {
	return r.mutate(agentID, func(a *board.Agent) {
		a.WorkspaceID = workspaceID
	})
}

// UpdateResources replaces the agent's declared compute resources.
// No-op on unknown agents.
func (r *Registry) UpdateResources(agentID string, res board.Resources) *board.Agent {
	return r.mutate(agentID, func(a *board.Agent) {
		a.Resources = res
	})
}

// Heartbeat refreshes the agent's last-seen timestamp and clears any stale
// flag set by the liveness sweep. No-op on unknown agents.
func (r *Registry) Heartbeat(agentID string) *board.Agent {
	return r.mutate(agentID, func(a *board.Agent) {})
}

// IncrementStat adds delta to one of the agent's cumulative counters.
// No-op on unknown agents.
func (r *Registry) IncrementStat(agentID string, stat StatKind, delta int) *board.Agent {
	return r.mutate(agentID, func(a *board.Agent) {
		switch stat {
		case StatActions:
			a.Stats.Actions += delta
		case StatTasks:
			a.Stats.TasksCompleted += delta
		case StatLines:
			a.Stats.LinesWritten += delta
		case StatErrors:
			a.Stats.Errors += delta
		}
	})
}

// RecordActivityTime coalesces rapid bursts of activity into continuous
// active-coding time. If the gap since the agent's previous activity is
// within ActivityWindow, the gap is added to cumulative active time; a
// longer gap is an idle period and is not counted. No-op on unknown agents.
func (r *Registry) RecordActivityTime(agentID string) *board.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.byID[agentID]
	if !ok {
		return nil
	}

	now := r.nowMs()
	if last, seen := r.lastActivity[agentID]; seen {
		gap := now - last
		if gap >= 0 && gap <= ActivityWindow.Milliseconds() {
			agent.Stats.ActiveMs += gap
		}
	}
	r.lastActivity[agentID] = now
	agent.LastSeenMs = now
	agent.Stale = false

	return snapshot(agent)
}

// markStale flags an agent whose last-seen timestamp exceeded the liveness
// timeout. Called by the sweeper; removal stays tied to transport
// disconnect.
func (r *Registry) markStale(agentID string) *board.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.byID[agentID]
	if !ok {
		return nil
	}
	agent.Stale = true
	return snapshot(agent)
}

// mutate applies fn to the agent under the write lock, refreshing its
// last-seen timestamp. Returns nil when the agent is unknown.
func (r *Registry) mutate(agentID string, fn func(*board.Agent)) *board.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.byID[agentID]
	if !ok {
		return nil
	}

	fn(agent)
	agent.LastSeenMs = r.nowMs()
	agent.Stale = false

	return snapshot(agent)
}

// snapshot copies an agent record so callers never share the registry's
// mutable state. Skills stay an empty slice rather than nil so the record
// serializes as [] instead of null.
func snapshot(a *board.Agent) *board.Agent {
	cp := *a
	cp.Skills = make([]string, len(a.Skills))
	copy(cp.Skills, a.Skills)
	return &cp
}
