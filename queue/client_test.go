package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/warden/validate"
)

// setupTestClient creates a miniredis instance and returns a connected RedisClient.
func setupTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return client, mr
}

func testJob(index, total int) Job {
	return Job{
		JobID:       "job-123",
		Index:       index,
		Total:       total,
		Schema:      "person",
		Document:    fmt.Sprintf(`{"name": "person-%d"}`, index),
		TraceID:     "trace-456",
		SpanID:      "span-789",
		SubmittedAt: time.Now().UnixMilli(),
	}
}

func TestNewRedisClient(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)
		defer mr.Close()

		client, err := NewRedisClient(RedisOptions{
			URL: fmt.Sprintf("redis://%s", mr.Addr()),
		})
		require.NoError(t, err)
		require.NotNil(t, client)
		defer client.Close()
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL:            "redis://localhost:99999",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL: "invalid://url",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestPushPop(t *testing.T) {
	t.Run("successful push and pop", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		job := testJob(0, 1)

		err := client.Push(ctx, DefaultQueue, job)
		require.NoError(t, err)

		popped, err := client.Pop(ctx, DefaultQueue)
		require.NoError(t, err)
		require.NotNil(t, popped)
		assert.Equal(t, job, *popped)
	})

	t.Run("inline definition survives the round trip", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		job := Job{
			JobID:       "job-inline",
			Index:       0,
			Total:       1,
			Definition:  "Root:\n  +type: Object\n  name: String\n",
			Document:    `{"name": "Ada"}`,
			SubmittedAt: time.Now().UnixMilli(),
		}

		require.NoError(t, client.Push(ctx, DefaultQueue, job))

		popped, err := client.Pop(ctx, DefaultQueue)
		require.NoError(t, err)
		require.NotNil(t, popped)
		assert.Equal(t, job.Definition, popped.Definition)
		assert.Empty(t, popped.Schema)
	})

	t.Run("multiple jobs FIFO order", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			err := client.Push(ctx, DefaultQueue, testJob(i, 5))
			require.NoError(t, err)
		}

		for i := 0; i < 5; i++ {
			popped, err := client.Pop(ctx, DefaultQueue)
			require.NoError(t, err)
			require.NotNil(t, popped)
			assert.Equal(t, i, popped.Index)
		}
	})

	t.Run("pop from empty queue returns on data", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		jobChan := make(chan *Job, 1)
		errChan := make(chan error, 1)

		go func() {
			job, err := client.Pop(ctx, "delayed-queue")
			if err != nil {
				errChan <- err
				return
			}
			jobChan <- job
		}()

		// Give it a moment to start blocking
		time.Sleep(100 * time.Millisecond)

		job := testJob(0, 1)
		job.JobID = "delayed-job"
		require.NoError(t, client.Push(ctx, "delayed-queue", job))

		select {
		case popped := <-jobChan:
			require.NotNil(t, popped)
			assert.Equal(t, "delayed-job", popped.JobID)
		case err := <-errChan:
			t.Fatalf("unexpected error: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("Pop did not return after job was pushed")
		}
	})
}

func TestPublishSubscribeVerdicts(t *testing.T) {
	t.Run("verdict with violations round-trips", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		jobID := "job-123"

		verdictChan, err := client.SubscribeVerdicts(ctx, jobID)
		require.NoError(t, err)

		verdict := Verdict{
			JobID: jobID,
			Index: 0,
			Valid: false,
			Violations: []validate.Violation{
				{
					Path:   validate.Path{validate.FieldSegment("name")},
					Kind:   validate.KindConstraintFailed,
					Detail: "max_length: length 6 exceeds maximum 5",
				},
				{
					Path:   validate.Path{validate.FieldSegment("values"), validate.IndexSegment(2)},
					Kind:   validate.KindTypeMismatch,
					Detail: "expected Integer, got String",
				},
			},
			WorkerID:    "worker-1",
			StartedAt:   time.Now().UnixMilli(),
			CompletedAt: time.Now().UnixMilli() + 100,
		}

		require.NoError(t, client.PublishVerdict(ctx, verdict))

		select {
		case received := <-verdictChan:
			assert.Equal(t, verdict.JobID, received.JobID)
			assert.Equal(t, verdict.Index, received.Index)
			assert.False(t, received.Valid)
			require.Len(t, received.Violations, 2)
			assert.Equal(t, "$.name", received.Violations[0].Path.String())
			assert.Equal(t, validate.KindConstraintFailed, received.Violations[0].Kind)
			assert.Equal(t, "$.values[2]", received.Violations[1].Path.String())
			assert.Equal(t, verdict.WorkerID, received.WorkerID)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for verdict")
		}
	})

	t.Run("multiple subscribers", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		jobID := "job-multi"

		sub1, err := client.SubscribeVerdicts(ctx, jobID)
		require.NoError(t, err)

		sub2, err := client.SubscribeVerdicts(ctx, jobID)
		require.NoError(t, err)

		verdict := Verdict{
			JobID:       jobID,
			Index:       0,
			Valid:       true,
			WorkerID:    "worker-1",
			StartedAt:   time.Now().UnixMilli(),
			CompletedAt: time.Now().UnixMilli() + 100,
		}

		require.NoError(t, client.PublishVerdict(ctx, verdict))

		for i, sub := range []<-chan Verdict{sub1, sub2} {
			select {
			case received := <-sub:
				assert.Equal(t, verdict.JobID, received.JobID, "subscriber %d", i)
				assert.True(t, received.Valid, "subscriber %d", i)
			case <-time.After(2 * time.Second):
				t.Fatalf("subscriber %d: timeout waiting for verdict", i)
			}
		}
	})

	t.Run("subscribe with context cancellation", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())

		verdictChan, err := client.SubscribeVerdicts(ctx, "job-cancel")
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-verdictChan:
			assert.False(t, ok, "channel should be closed")
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for channel to close")
		}
	})

	t.Run("publish verdict with processing error", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		jobID := "job-error"

		verdictChan, err := client.SubscribeVerdicts(ctx, jobID)
		require.NoError(t, err)

		verdict := Verdict{
			JobID:       jobID,
			Index:       0,
			Valid:       false,
			Error:       "schema \"ghost\" not found in registry",
			WorkerID:    "worker-1",
			StartedAt:   time.Now().UnixMilli(),
			CompletedAt: time.Now().UnixMilli() + 100,
		}

		require.NoError(t, client.PublishVerdict(ctx, verdict))

		select {
		case received := <-verdictChan:
			assert.Equal(t, verdict.Error, received.Error)
			assert.True(t, received.HasError())
			assert.Empty(t, received.Violations)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for verdict")
		}
	})
}

func TestWorkerRegistry(t *testing.T) {
	meta := WorkerMeta{
		ID:          "host-1234-abcdef01",
		Hostname:    "host",
		Version:     "1.0.0",
		Concurrency: 4,
		Queue:       DefaultQueue,
		StartedAt:   time.Now().UnixMilli(),
	}

	t.Run("register and list round-trips metadata", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.RegisterWorker(ctx, meta))

		members, err := mr.Members(workersSetKey)
		require.NoError(t, err)
		assert.Contains(t, members, meta.ID)

		workers, err := client.ListWorkers(ctx)
		require.NoError(t, err)
		require.Len(t, workers, 1)
		assert.Equal(t, meta, workers[0])
	})

	t.Run("register rejects invalid metadata", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		err := client.RegisterWorker(ctx, WorkerMeta{ID: "incomplete"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid worker metadata")
	})

	t.Run("deregister removes worker", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.RegisterWorker(ctx, meta))
		require.NoError(t, client.Heartbeat(ctx, meta.ID))
		require.NoError(t, client.DeregisterWorker(ctx, meta.ID))

		workers, err := client.ListWorkers(ctx)
		require.NoError(t, err)
		assert.Empty(t, workers)

		assert.False(t, mr.Exists(workerMetaKey(meta.ID)))
		assert.False(t, mr.Exists(workerHealthKey(meta.ID)))
	})

	t.Run("list skips workers without metadata", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		// A set entry with no metadata hash, as left by a crashed worker
		mr.SAdd(workersSetKey, "ghost-worker")

		workers, err := client.ListWorkers(ctx)
		require.NoError(t, err)
		assert.Empty(t, workers)
	})

	t.Run("list workers when none registered", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		workers, err := client.ListWorkers(ctx)
		require.NoError(t, err)
		assert.Empty(t, workers)
	})
}

func TestHeartbeat(t *testing.T) {
	t.Run("successful heartbeat", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		workerID := "worker-1"

		require.NoError(t, client.Heartbeat(ctx, workerID))

		healthKey := workerHealthKey(workerID)
		assert.True(t, mr.Exists(healthKey))

		ttl := mr.TTL(healthKey)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, heartbeatTTL)
	})

	t.Run("heartbeat TTL expiry", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		workerID := "worker-1"

		require.NoError(t, client.Heartbeat(ctx, workerID))

		mr.FastForward(heartbeatTTL + time.Second)

		assert.False(t, mr.Exists(workerHealthKey(workerID)))
	})

	t.Run("repeated heartbeats refresh TTL", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		workerID := "worker-1"
		healthKey := workerHealthKey(workerID)

		require.NoError(t, client.Heartbeat(ctx, workerID))

		mr.FastForward(15 * time.Second)
		assert.True(t, mr.Exists(healthKey))

		require.NoError(t, client.Heartbeat(ctx, workerID))

		mr.FastForward(20 * time.Second)
		assert.True(t, mr.Exists(healthKey), "second heartbeat should have refreshed the TTL")

		mr.FastForward(15 * time.Second)
		assert.False(t, mr.Exists(healthKey), "key should expire 30s after the last heartbeat")
	})
}

func TestActiveWorkers(t *testing.T) {
	t.Run("count is zero when none active", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		count, err := client.ActiveWorkers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("increment and decrement", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		for i := 1; i <= 3; i++ {
			require.NoError(t, client.IncrementActive(ctx))

			count, err := client.ActiveWorkers(ctx)
			require.NoError(t, err)
			assert.Equal(t, i, count)
		}

		for i := 2; i >= 0; i-- {
			require.NoError(t, client.DecrementActive(ctx))

			count, err := client.ActiveWorkers(ctx)
			require.NoError(t, err)
			assert.Equal(t, i, count)
		}
	})
}

func TestErrorScenarios(t *testing.T) {
	t.Run("push to closed client", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Close())

		err := client.Push(ctx, DefaultQueue, testJob(0, 1))
		require.Error(t, err)
	})

	t.Run("pop with expired context", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Pop(ctx, DefaultQueue)
		require.Error(t, err)
	})

	t.Run("publish with expired context", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		verdict := Verdict{
			JobID:       "job-123",
			Index:       0,
			Valid:       true,
			WorkerID:    "worker-1",
			StartedAt:   time.Now().UnixMilli(),
			CompletedAt: time.Now().UnixMilli(),
		}

		err := client.PublishVerdict(ctx, verdict)
		require.Error(t, err)
	})

	t.Run("subscribe with expired context", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.SubscribeVerdicts(ctx, "job-123")
		require.Error(t, err)
	})

	t.Run("heartbeat with expired context", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := client.Heartbeat(ctx, "worker-1")
		require.Error(t, err)
	})
}

func TestClose(t *testing.T) {
	t.Run("close client", func(t *testing.T) {
		client, _ := setupTestClient(t)

		require.NoError(t, client.Close())
	})

	t.Run("double close", func(t *testing.T) {
		client, _ := setupTestClient(t)

		require.NoError(t, client.Close())

		// Second close should not panic (may return error)
		_ = client.Close()
	})
}

// TestSubmitAndCollect exercises the full submit/consume/collect flow the
// worker daemon performs.
func TestSubmitAndCollect(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	jobs := NewBatch("person", []string{
		`{"name": "Ada"}`,
		`{"name": "Grace"}`,
		`{"name": "Margaret"}`,
	})
	jobID := jobs[0].JobID

	verdictChan, err := client.SubscribeVerdicts(ctx, jobID)
	require.NoError(t, err)

	for _, job := range jobs {
		require.NoError(t, client.Push(ctx, DefaultQueue, job))
	}

	// Simulate a worker draining the queue
	go func() {
		for range jobs {
			popped, err := client.Pop(ctx, DefaultQueue)
			if err != nil || popped == nil {
				continue
			}
			_ = client.PublishVerdict(ctx, Verdict{
				JobID:       popped.JobID,
				Index:       popped.Index,
				Valid:       true,
				WorkerID:    "worker-1",
				StartedAt:   time.Now().UnixMilli(),
				CompletedAt: time.Now().UnixMilli() + 10,
			})
		}
	}()

	received := 0
	timeout := time.After(5 * time.Second)
	for received < len(jobs) {
		select {
		case verdict := <-verdictChan:
			assert.Equal(t, jobID, verdict.JobID)
			assert.True(t, verdict.Valid)
			received++
		case <-timeout:
			t.Fatalf("timeout: only received %d/%d verdicts", received, len(jobs))
		}
	}
}
