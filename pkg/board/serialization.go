package board

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Complex fields like
// bid lists and skill sets are JSON-encoded into single hash fields. This
// keeps scalar fields individually queryable while still round-tripping the
// nested structures.

// AgentToHash converts an Agent struct to Redis hash format.
// Nested structures (skills, resources, stats) are JSON-encoded.
func AgentToHash(a *Agent) (map[string]interface{}, error) {
	skillsJSON, err := json.Marshal(a.Skills)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal skills: %w", err)
	}
	resourcesJSON, err := json.Marshal(a.Resources)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resources: %w", err)
	}
	statsJSON, err := json.Marshal(a.Stats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}

	hash := map[string]interface{}{
		"id":           a.ID,
		"name":         a.Name,
		"label":        a.Label,
		"ordinal":      a.Ordinal,
		"avatar":       a.Avatar,
		"color":        a.Color,
		"skills":       string(skillsJSON),
		"resources":    string(resourcesJSON),
		"stats":        string(statsJSON),
		"workspace_id": a.WorkspaceID,
		"status":       a.Status,
		"stale":        strconv.FormatBool(a.Stale),
		"joined_at_ms": a.JoinedAtMs,
		"last_seen_ms": a.LastSeenMs,
	}

	return hash, nil
}

// HashToAgent converts a Redis hash back to an Agent struct.
func HashToAgent(hash map[string]string) (*Agent, error) {
	ordinal, err := strconv.Atoi(hash["ordinal"])
	if err != nil {
		return nil, fmt.Errorf("invalid ordinal field: %w", err)
	}

	var skills []string
	if s := hash["skills"]; s != "" {
		if err := json.Unmarshal([]byte(s), &skills); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skills: %w", err)
		}
	}
	if skills == nil {
		skills = []string{}
	}

	var resources Resources
	if s := hash["resources"]; s != "" {
		if err := json.Unmarshal([]byte(s), &resources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal resources: %w", err)
		}
	}

	var stats AgentStats
	if s := hash["stats"]; s != "" {
		if err := json.Unmarshal([]byte(s), &stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
		}
	}

	stale, _ := strconv.ParseBool(hash["stale"])
	joinedAtMs, _ := strconv.ParseInt(hash["joined_at_ms"], 10, 64)
	lastSeenMs, _ := strconv.ParseInt(hash["last_seen_ms"], 10, 64)

	return &Agent{
		ID:          hash["id"],
		Name:        hash["name"],
		Label:       hash["label"],
		Ordinal:     ordinal,
		Avatar:      hash["avatar"],
		Color:       hash["color"],
		Skills:      skills,
		Resources:   resources,
		Stats:       stats,
		WorkspaceID: hash["workspace_id"],
		Status:      hash["status"],
		Stale:       stale,
		JoinedAtMs:  joinedAtMs,
		LastSeenMs:  lastSeenMs,
	}, nil
}

// TaskToHash converts a Task struct to Redis hash format.
// The bid list and tags are JSON-encoded.
func TaskToHash(t *Task) (map[string]interface{}, error) {
	bidsJSON, err := json.Marshal(t.Bids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bids: %w", err)
	}
	tagsJSON, err := json.Marshal(t.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	hash := map[string]interface{}{
		"id":              t.ID,
		"title":           t.Title,
		"description":     t.Description,
		"priority":        t.Priority,
		"workspace_id":    t.WorkspaceID,
		"status":          string(t.Status),
		"bids":            string(bidsJSON),
		"assigned_to":     t.AssignedTo,
		"completed_by":    t.CompletedBy,
		"result":          t.Result,
		"tags":            string(tagsJSON),
		"created_at_ms":   t.CreatedAtMs,
		"updated_at_ms":   t.UpdatedAtMs,
		"completed_at_ms": t.CompletedAtMs,
	}

	return hash, nil
}

// HashToTask converts a Redis hash back to a Task struct.
func HashToTask(hash map[string]string) (*Task, error) {
	var bids []Bid
	if s := hash["bids"]; s != "" {
		if err := json.Unmarshal([]byte(s), &bids); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bids: %w", err)
		}
	}
	if bids == nil {
		bids = []Bid{}
	}

	var tags []string
	if s := hash["tags"]; s != "" {
		if err := json.Unmarshal([]byte(s), &tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)
	completedAtMs, _ := strconv.ParseInt(hash["completed_at_ms"], 10, 64)

	return &Task{
		ID:            hash["id"],
		Title:         hash["title"],
		Description:   hash["description"],
		Priority:      hash["priority"],
		WorkspaceID:   hash["workspace_id"],
		Status:        TaskStatus(hash["status"]),
		Bids:          bids,
		AssignedTo:    hash["assigned_to"],
		CompletedBy:   hash["completed_by"],
		Result:        hash["result"],
		Tags:          tags,
		CreatedAtMs:   createdAtMs,
		UpdatedAtMs:   updatedAtMs,
		CompletedAtMs: completedAtMs,
	}, nil
}

// RequestToHash converts a SkillRequest struct to Redis hash format.
// The provider snapshot and opaque payloads are JSON-encoded.
func RequestToHash(r *SkillRequest) (map[string]interface{}, error) {
	providersJSON, err := json.Marshal(r.Providers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal providers: %w", err)
	}

	hash := map[string]interface{}{
		"id":            r.ID,
		"requester_id":  r.RequesterID,
		"skill":         r.Skill,
		"params":        string(r.Params),
		"status":        string(r.Status),
		"providers":     string(providersJSON),
		"claimed_by":    r.ClaimedBy,
		"result":        string(r.Result),
		"created_at_ms": r.CreatedAtMs,
		"updated_at_ms": r.UpdatedAtMs,
	}

	return hash, nil
}

// HashToRequest converts a Redis hash back to a SkillRequest struct.
func HashToRequest(hash map[string]string) (*SkillRequest, error) {
	var providers []string
	if s := hash["providers"]; s != "" {
		if err := json.Unmarshal([]byte(s), &providers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal providers: %w", err)
		}
	}
	if providers == nil {
		providers = []string{}
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	req := &SkillRequest{
		ID:          hash["id"],
		RequesterID: hash["requester_id"],
		Skill:       hash["skill"],
		Status:      RequestStatus(hash["status"]),
		Providers:   providers,
		ClaimedBy:   hash["claimed_by"],
		CreatedAtMs: createdAtMs,
		UpdatedAtMs: updatedAtMs,
	}
	if s := hash["params"]; s != "" {
		req.Params = json.RawMessage(s)
	}
	if s := hash["result"]; s != "" {
		req.Result = json.RawMessage(s)
	}

	return req, nil
}

// WorkspaceToHash converts workspace metadata to Redis hash format.
func WorkspaceToHash(w *WorkspaceMeta) (map[string]interface{}, error) {
	filesJSON, err := json.Marshal(w.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal files: %w", err)
	}

	hash := map[string]interface{}{
		"id":            w.ID,
		"name":          w.Name,
		"files":         string(filesJSON),
		"last_version":  w.LastVersion,
		"created_at_ms": w.CreatedAtMs,
		"updated_at_ms": w.UpdatedAtMs,
	}

	return hash, nil
}

// HashToWorkspace converts a Redis hash back to workspace metadata.
func HashToWorkspace(hash map[string]string) (*WorkspaceMeta, error) {
	var files []string
	if s := hash["files"]; s != "" {
		if err := json.Unmarshal([]byte(s), &files); err != nil {
			return nil, fmt.Errorf("failed to unmarshal files: %w", err)
		}
	}
	if files == nil {
		files = []string{}
	}

	lastVersion, _ := strconv.ParseInt(hash["last_version"], 10, 64)
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	return &WorkspaceMeta{
		ID:          hash["id"],
		Name:        hash["name"],
		Files:       files,
		LastVersion: lastVersion,
		CreatedAtMs: createdAtMs,
		UpdatedAtMs: updatedAtMs,
	}, nil
}
