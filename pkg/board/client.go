package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultEventRetention is how many entries the coordination event feed
// keeps before trimming oldest.
const DefaultEventRetention = 512

// Client provides instance-scoped Redis operations for the coordination
// board. All keys and channels are automatically namespaced with the
// instance name. The client is thread-safe and can be used concurrently
// from multiple goroutines.
type Client struct {
	rdb            *redis.Client
	instanceName   string
	eventRetention int64
}

// NewClient creates a new board client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: Roost instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:            redis.NewClient(redisOpts),
		instanceName:   instanceName,
		eventRetention: DefaultEventRetention,
	}, nil
}

// SetEventRetention overrides the capped length of the event feed.
// Values below 1 are ignored.
func (c *Client) SetEventRetention(n int) {
	if n >= 1 {
		c.eventRetention = int64(n)
	}
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SaveAgent upserts an agent record and adds it to the agent index.
// The presence registry calls this on every stat flush so that CLIs and a
// restarted daemon can observe cumulative contributions.
func (c *Client) SaveAgent(ctx context.Context, a *Agent) error {
	hash, err := AgentToHash(a)
	if err != nil {
		return fmt.Errorf("failed to serialize agent: %w", err)
	}

	key := AgentKey(c.instanceName, a.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write agent to Redis: %w", err)
	}
	if err := c.rdb.SAdd(ctx, AgentIndexKey(c.instanceName), a.ID).Err(); err != nil {
		return fmt.Errorf("failed to index agent: %w", err)
	}

	return nil
}

// GetAgent retrieves an agent record by ID.
// Returns (nil, redis.Nil) if the agent doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	key := AgentKey(c.instanceName, agentID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read agent from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	agent, err := HashToAgent(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize agent: %w", err)
	}

	return agent, nil
}

// ListAgents retrieves every agent record in the index. Records whose hash
// has been deleted out from under the index are skipped, not errors.
func (c *Client) ListAgents(ctx context.Context) ([]*Agent, error) {
	ids, err := c.rdb.SMembers(ctx, AgentIndexKey(c.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read agent index: %w", err)
	}

	agents := make([]*Agent, 0, len(ids))
	for _, id := range ids {
		agent, err := c.GetAgent(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		agents = append(agents, agent)
	}

	return agents, nil
}

// SaveTask upserts a task record and adds it to the task index.
// Validates the task before writing.
func (c *Client) SaveTask(ctx context.Context, t *Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	hash, err := TaskToHash(t)
	if err != nil {
		return fmt.Errorf("failed to serialize task: %w", err)
	}

	key := TaskKey(c.instanceName, t.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write task to Redis: %w", err)
	}
	if err := c.rdb.SAdd(ctx, TaskIndexKey(c.instanceName), t.ID).Err(); err != nil {
		return fmt.Errorf("failed to index task: %w", err)
	}

	return nil
}

// GetTask retrieves a task record by ID.
// Returns (nil, redis.Nil) if the task doesn't exist.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	key := TaskKey(c.instanceName, taskID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read task from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	task, err := HashToTask(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize task: %w", err)
	}

	return task, nil
}

// ListTasks retrieves every task record in the index.
func (c *Client) ListTasks(ctx context.Context) ([]*Task, error) {
	ids, err := c.rdb.SMembers(ctx, TaskIndexKey(c.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read task index: %w", err)
	}

	tasks := make([]*Task, 0, len(ids))
	for _, id := range ids {
		task, err := c.GetTask(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// SaveRequest upserts a skill request record.
func (c *Client) SaveRequest(ctx context.Context, r *SkillRequest) error {
	hash, err := RequestToHash(r)
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	key := RequestKey(c.instanceName, r.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write request to Redis: %w", err)
	}

	return nil
}

// GetRequest retrieves a skill request record by ID.
// Returns (nil, redis.Nil) if the request doesn't exist.
func (c *Client) GetRequest(ctx context.Context, requestID string) (*SkillRequest, error) {
	key := RequestKey(c.instanceName, requestID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read request from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	req, err := HashToRequest(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize request: %w", err)
	}

	return req, nil
}

// SaveWorkspace upserts workspace metadata.
func (c *Client) SaveWorkspace(ctx context.Context, w *WorkspaceMeta) error {
	hash, err := WorkspaceToHash(w)
	if err != nil {
		return fmt.Errorf("failed to serialize workspace: %w", err)
	}

	key := WorkspaceKey(c.instanceName, w.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write workspace to Redis: %w", err)
	}

	return nil
}

// GetWorkspace retrieves workspace metadata by ID.
// Returns (nil, redis.Nil) if the workspace doesn't exist.
func (c *Client) GetWorkspace(ctx context.Context, workspaceID string) (*WorkspaceMeta, error) {
	key := WorkspaceKey(c.instanceName, workspaceID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	ws, err := HashToWorkspace(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize workspace: %w", err)
	}

	return ws, nil
}

// AppendEvent pushes an event onto the capped coordination feed and
// publishes it on the events channel for live observers.
func (c *Client) AppendEvent(ctx context.Context, e *Event) error {
	eventJSON, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := EventFeedKey(c.instanceName)
	if err := c.rdb.LPush(ctx, key, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to append event to feed: %w", err)
	}
	if err := c.rdb.LTrim(ctx, key, 0, c.eventRetention-1).Err(); err != nil {
		return fmt.Errorf("failed to trim event feed: %w", err)
	}

	channel := EventsChannel(c.instanceName)
	if err := c.rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// RecentEvents returns up to limit most recent feed entries, newest first.
func (c *Client) RecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	if limit < 1 {
		limit = 1
	}

	raw, err := c.rdb.LRange(ctx, EventFeedKey(c.instanceName), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event feed: %w", err)
	}

	events := make([]*Event, 0, len(raw))
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, &e)
	}

	return events, nil
}

// Subscription represents an active Pub/Sub subscription to coordination
// events. Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of coordination events.
// The channel is closed when the subscription closes or the context ends.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvents subscribes to coordination events for this instance.
// Returns a Subscription that delivers full event objects.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 16) to prevent blocking.
// Redis Pub/Sub is at-most-once: a slow subscriber may miss events.
func (c *Client) SubscribeEvents(ctx context.Context) (*Subscription, error) {
	channel := EventsChannel(c.instanceName)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *Event, 16)
	errorsChan := make(chan error, 16)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check if a Get returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
