// Package skillreg maps declared skills to providing agents and brokers
// point-to-point skill requests (pending → claimed → completed), distinct
// from the general task lifecycle. The qualifying provider list is
// snapshotted into every request at creation: later registry changes never
// retroactively affect who may claim an existing request.
package skillreg

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roost-dev/roost/pkg/board"
)

// Stats is the aggregate view returned by GetStats.
type Stats struct {
	TotalSkills      int            `json:"total_skills"`
	TotalProviders   int            `json:"total_providers"` // agents with at least one skill
	PendingRequests  int            `json:"pending_requests"`
	ProvidersBySkill map[string]int `json:"providers_by_skill"`
}

// Registry owns the skill→provider mapping and the skill request store.
// One lock guards the flat collections.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu          sync.Mutex
	providers   map[string]map[string]struct{} // skill -> set of agent IDs
	agentSkills map[string]map[string]struct{} // agent ID -> set of skills
	requests    map[string]*board.SkillRequest
	nowMs       func() int64
}

// NewRegistry creates an empty skill registry.
func NewRegistry() *Registry {
	return &Registry{
		providers:   make(map[string]map[string]struct{}),
		agentSkills: make(map[string]map[string]struct{}),
		requests:    make(map[string]*board.SkillRequest),
		nowMs:       func() int64 { return time.Now().UnixMilli() },
	}
}

// SetClock overrides the registry's time source. Test hook.
func (r *Registry) SetClock(nowMs func() int64) {
	r.nowMs = nowMs
}

// RegisterSkills idempotently adds the agent to each named skill's
// provider set and returns the agent's full current skill set, sorted.
func (r *Registry) RegisterSkills(agentID string, skills []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned, ok := r.agentSkills[agentID]
	if !ok {
		owned = make(map[string]struct{})
		r.agentSkills[agentID] = owned
	}

	for _, skill := range skills {
		if skill == "" {
			continue
		}
		set, ok := r.providers[skill]
		if !ok {
			set = make(map[string]struct{})
			r.providers[skill] = set
		}
		set[agentID] = struct{}{}
		owned[skill] = struct{}{}
	}

	return sortedKeys(owned)
}

// UnregisterAgent removes the agent from every skill's provider set. Any
// skill left with zero providers is pruned entirely; no empty entries
// persist.
func (r *Registry) UnregisterAgent(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for skill := range r.agentSkills[agentID] {
		set := r.providers[skill]
		delete(set, agentID)
		if len(set) == 0 {
			delete(r.providers, skill)
		}
	}
	delete(r.agentSkills, agentID)
}

// FindProviders returns the current provider list for a skill, sorted.
// Unknown skills return an empty list.
func (r *Registry) FindProviders(skill string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.providers[skill])
}

// CreateRequest opens a skill request. Rejected when no providers exist
// for the skill at creation time. Otherwise the current provider list is
// snapshotted into the request; only agents in that snapshot may claim it.
func (r *Registry) CreateRequest(requesterID, skill string, params json.RawMessage) (*board.SkillRequest, *board.Rejection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	providers := sortedKeys(r.providers[skill])
	if len(providers) == 0 {
		return nil, board.Reject(board.RuleNoProviders, skill,
			"no agents provide this skill")
	}

	now := r.nowMs()
	req := &board.SkillRequest{
		ID:          uuid.New().String(),
		RequesterID: requesterID,
		Skill:       skill,
		Params:      params,
		Status:      board.RequestStatusPending,
		Providers:   providers,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	r.requests[req.ID] = req

	return snapshot(req), nil
}

// ClaimRequest moves a pending request to claimed. Rejected when the
// request is unknown, no longer pending, or the claiming agent is not in
// the provider snapshot taken at creation.
func (r *Registry) ClaimRequest(requestID, agentID string) (*board.SkillRequest, *board.Rejection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[requestID]
	if !ok {
		return nil, board.Reject(board.RuleNotFound, requestID, "no such request")
	}
	if req.Status != board.RequestStatusPending {
		return nil, board.Reject(board.RuleNotPending, requestID,
			"request is no longer pending")
	}
	if !contains(req.Providers, agentID) {
		return nil, board.Reject(board.RuleNotProvider, requestID,
			"agent is not in the request's provider snapshot")
	}

	req.Status = board.RequestStatusClaimed
	req.ClaimedBy = agentID
	req.UpdatedAtMs = r.nowMs()

	return snapshot(req), nil
}

// CompleteRequest delivers the result of a claimed request. Rejected when
// the request is unknown or the completer does not match the claimant.
func (r *Registry) CompleteRequest(requestID, agentID string, result json.RawMessage) (*board.SkillRequest, *board.Rejection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[requestID]
	if !ok {
		return nil, board.Reject(board.RuleNotFound, requestID, "no such request")
	}
	if req.ClaimedBy != agentID {
		return nil, board.Reject(board.RuleWrongClaimant, requestID,
			"only the claimant may complete a request")
	}

	req.Status = board.RequestStatusCompleted
	req.Result = result
	req.UpdatedAtMs = r.nowMs()

	return snapshot(req), nil
}

// GetRequest returns the request with the given ID, or nil.
func (r *Registry) GetRequest(requestID string) *board.SkillRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[requestID]
	if !ok {
		return nil
	}
	return snapshot(req)
}

// PendingRequests lists pending requests, optionally filtered by skill
// name, oldest first.
func (r *Registry) PendingRequests(skill string) []*board.SkillRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*board.SkillRequest, 0)
	for _, req := range r.requests {
		if req.Status != board.RequestStatusPending {
			continue
		}
		if skill != "" && req.Skill != skill {
			continue
		}
		pending = append(pending, snapshot(req))
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAtMs < pending[j].CreatedAtMs
	})
	return pending
}

// GetStats returns aggregate counts over the registry.
func (r *Registry) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		TotalSkills:      len(r.providers),
		ProvidersBySkill: make(map[string]int, len(r.providers)),
	}
	for skill, set := range r.providers {
		stats.ProvidersBySkill[skill] = len(set)
	}
	for _, skills := range r.agentSkills {
		if len(skills) > 0 {
			stats.TotalProviders++
		}
	}
	for _, req := range r.requests {
		if req.Status == board.RequestStatusPending {
			stats.PendingRequests++
		}
	}

	return stats
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}

// snapshot copies a request so callers never share the registry's mutable
// state.
func snapshot(req *board.SkillRequest) *board.SkillRequest {
	cp := *req
	cp.Providers = append([]string(nil), req.Providers...)
	return &cp
}
