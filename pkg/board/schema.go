package board

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so
// multiple Roost instances can coexist on one Redis server.
//
// Key pattern: roost:{instance_name}:{entity}:{id}
// Channel pattern: roost:{instance_name}:{event_type}_events

// AgentKey returns the Redis key for an agent record.
// Pattern: roost:{instance_name}:agent:{agent_id}
func AgentKey(instanceName, agentID string) string {
	return fmt.Sprintf("roost:%s:agent:%s", instanceName, agentID)
}

// AgentIndexKey returns the Redis key for the set of known agent IDs.
// Pattern: roost:{instance_name}:agents
func AgentIndexKey(instanceName string) string {
	return fmt.Sprintf("roost:%s:agents", instanceName)
}

// TaskKey returns the Redis key for a task record.
// Pattern: roost:{instance_name}:task:{task_id}
func TaskKey(instanceName, taskID string) string {
	return fmt.Sprintf("roost:%s:task:%s", instanceName, taskID)
}

// TaskIndexKey returns the Redis key for the set of known task IDs.
// Pattern: roost:{instance_name}:tasks
func TaskIndexKey(instanceName string) string {
	return fmt.Sprintf("roost:%s:tasks", instanceName)
}

// RequestKey returns the Redis key for a skill request record.
// Pattern: roost:{instance_name}:request:{request_id}
func RequestKey(instanceName, requestID string) string {
	return fmt.Sprintf("roost:%s:request:%s", instanceName, requestID)
}

// WorkspaceKey returns the Redis key for workspace metadata.
// Pattern: roost:{instance_name}:workspace:{workspace_id}
func WorkspaceKey(instanceName, workspaceID string) string {
	return fmt.Sprintf("roost:%s:workspace:%s", instanceName, workspaceID)
}

// EventFeedKey returns the Redis key for the capped coordination event list.
// Pattern: roost:{instance_name}:events
func EventFeedKey(instanceName string) string {
	return fmt.Sprintf("roost:%s:events", instanceName)
}

// EventsChannel returns the Pub/Sub channel name for coordination events.
// Every accepted dispatch result is published here for observers.
// Pattern: roost:{instance_name}:coordination_events
func EventsChannel(instanceName string) string {
	return fmt.Sprintf("roost:%s:coordination_events", instanceName)
}
