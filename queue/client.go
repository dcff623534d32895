package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the job list workers consume when no queue name is
// configured.
const DefaultQueue = "warden:jobs"

// heartbeatTTL is how long a worker health key survives without refresh.
const heartbeatTTL = 30 * time.Second

// VerdictChannel returns the pub/sub channel verdicts for a job are
// published to.
func VerdictChannel(jobID string) string {
	return "warden:verdicts:" + jobID
}

func workerMetaKey(workerID string) string {
	return "warden:worker:" + workerID + ":meta"
}

func workerHealthKey(workerID string) string {
	return "warden:worker:" + workerID + ":health"
}

// workersSetKey is the set of registered worker IDs.
const workersSetKey = "warden:workers"

// activeCountKey is the counter of currently running workers.
const activeCountKey = "warden:workers:active"

// Client defines the interface for interacting with Redis-based validation queues.
type Client interface {
	// Push adds a job to the end of a queue (LPUSH).
	Push(ctx context.Context, queue string, job Job) error

	// Pop removes and returns a job from the front of a queue (BRPOP).
	// Blocks until a job is available or context is cancelled.
	Pop(ctx context.Context, queue string) (*Job, error)

	// PublishVerdict sends a verdict to the pub/sub channel of its job.
	PublishVerdict(ctx context.Context, verdict Verdict) error

	// SubscribeVerdicts creates a subscription to a job's verdict channel.
	// Returns a channel that receives verdicts until the subscription is closed.
	SubscribeVerdicts(ctx context.Context, jobID string) (<-chan Verdict, error)

	// RegisterWorker writes worker metadata to Redis and adds the worker
	// to the registered set.
	RegisterWorker(ctx context.Context, meta WorkerMeta) error

	// DeregisterWorker removes a worker's metadata, health key, and set entry.
	DeregisterWorker(ctx context.Context, workerID string) error

	// ListWorkers returns metadata for all registered workers.
	ListWorkers(ctx context.Context) ([]WorkerMeta, error)

	// Heartbeat refreshes the health key for a worker with a 30s TTL.
	Heartbeat(ctx context.Context, workerID string) error

	// ActiveWorkers returns the current active worker count.
	ActiveWorkers(ctx context.Context) (int, error)

	// IncrementActive increments the active worker count.
	IncrementActive(ctx context.Context) error

	// DecrementActive decrements the active worker count.
	DecrementActive(ctx context.Context) error

	// Close closes the Redis connection.
	Close() error
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// RedisClient implements the Client interface using go-redis/v9.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis queue client with the given options.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}

	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// Push adds a job to the end of a queue.
func (c *RedisClient) Push(ctx context.Context, queue string, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := c.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", queue, err)
	}

	return nil
}

// Pop removes and returns a job from the front of a queue.
// Blocks until a job is available or context is cancelled.
func (c *RedisClient) Pop(ctx context.Context, queue string) (*Job, error) {
	// BRPOP returns [queue_name, value] or empty if timeout
	result, err := c.client.BRPop(ctx, 0, queue).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue %s: %w", queue, err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// PublishVerdict sends a verdict to the pub/sub channel of its job.
func (c *RedisClient) PublishVerdict(ctx context.Context, verdict Verdict) error {
	data, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}

	channel := VerdictChannel(verdict.JobID)
	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}

	return nil
}

// SubscribeVerdicts creates a subscription to a job's verdict channel.
func (c *RedisClient) SubscribeVerdicts(ctx context.Context, jobID string) (<-chan Verdict, error) {
	channel := VerdictChannel(jobID)
	pubsub := c.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	verdictChan := make(chan Verdict)

	go func() {
		defer close(verdictChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var verdict Verdict
				if err := json.Unmarshal([]byte(msg.Payload), &verdict); err != nil {
					// Skip malformed payloads but keep the subscription alive
					continue
				}

				select {
				case verdictChan <- verdict:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return verdictChan, nil
}

// RegisterWorker writes worker metadata to Redis and adds the worker to the
// registered set.
func (c *RedisClient) RegisterWorker(ctx context.Context, meta WorkerMeta) error {
	if err := meta.IsValid(); err != nil {
		return fmt.Errorf("invalid worker metadata: %w", err)
	}

	// Build a flat map for HSET - all values must be strings for go-redis
	metaMap := map[string]string{
		"id":          meta.ID,
		"hostname":    meta.Hostname,
		"version":     meta.Version,
		"concurrency": strconv.Itoa(meta.Concurrency),
		"queue":       meta.Queue,
		"started_at":  strconv.FormatInt(meta.StartedAt, 10),
	}

	args := make([]interface{}, 0, len(metaMap)*2)
	for k, v := range metaMap {
		args = append(args, k, v)
	}
	if err := c.client.HSet(ctx, workerMetaKey(meta.ID), args...).Err(); err != nil {
		return fmt.Errorf("failed to set worker metadata: %w", err)
	}

	if err := c.client.SAdd(ctx, workersSetKey, meta.ID).Err(); err != nil {
		return fmt.Errorf("failed to add worker to registered set: %w", err)
	}

	return nil
}

// DeregisterWorker removes a worker's metadata, health key, and set entry.
func (c *RedisClient) DeregisterWorker(ctx context.Context, workerID string) error {
	if err := c.client.Del(ctx, workerMetaKey(workerID), workerHealthKey(workerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete worker keys: %w", err)
	}
	if err := c.client.SRem(ctx, workersSetKey, workerID).Err(); err != nil {
		return fmt.Errorf("failed to remove worker from registered set: %w", err)
	}
	return nil
}

// ListWorkers returns metadata for all registered workers.
func (c *RedisClient) ListWorkers(ctx context.Context) ([]WorkerMeta, error) {
	ids, err := c.client.SMembers(ctx, workersSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get registered workers: %w", err)
	}

	workers := make([]WorkerMeta, 0, len(ids))

	for _, id := range ids {
		metaMap, err := c.client.HGetAll(ctx, workerMetaKey(id)).Result()
		if err != nil {
			// Skip workers with missing metadata
			continue
		}

		if len(metaMap) == 0 {
			// Skip empty metadata
			continue
		}

		meta := WorkerMeta{
			ID:       metaMap["id"],
			Hostname: metaMap["hostname"],
			Version:  metaMap["version"],
			Queue:    metaMap["queue"],
		}
		if n, err := strconv.Atoi(metaMap["concurrency"]); err == nil {
			meta.Concurrency = n
		}
		if ts, err := strconv.ParseInt(metaMap["started_at"], 10, 64); err == nil {
			meta.StartedAt = ts
		}

		workers = append(workers, meta)
	}

	return workers, nil
}

// Heartbeat refreshes the health key for a worker with a 30s TTL.
func (c *RedisClient) Heartbeat(ctx context.Context, workerID string) error {
	if err := c.client.Set(ctx, workerHealthKey(workerID), "ok", heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to set heartbeat for worker %s: %w", workerID, err)
	}
	return nil
}

// ActiveWorkers returns the current active worker count.
func (c *RedisClient) ActiveWorkers(ctx context.Context) (int, error) {
	countStr, err := c.client.Get(ctx, activeCountKey).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get active worker count: %w", err)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return 0, fmt.Errorf("invalid active worker count value: %w", err)
	}

	return count, nil
}

// IncrementActive increments the active worker count.
func (c *RedisClient) IncrementActive(ctx context.Context) error {
	if err := c.client.Incr(ctx, activeCountKey).Err(); err != nil {
		return fmt.Errorf("failed to increment active worker count: %w", err)
	}
	return nil
}

// DecrementActive decrements the active worker count.
func (c *RedisClient) DecrementActive(ctx context.Context) error {
	if err := c.client.Decr(ctx, activeCountKey).Err(); err != nil {
		return fmt.Errorf("failed to decrement active worker count: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}
