// Package queue provides Redis-based work queue primitives for distributed
// document validation.
//
// The queue decouples submission from validation so validation throughput can
// scale horizontally. Submitters push jobs onto a Redis list, workers consume
// and validate them, and verdicts flow back through Redis pub/sub keyed by
// job ID.
//
// # Core Components
//
// Client: Interface for interacting with Redis queues. Provides methods for:
//   - Push/Pop operations for the job queue
//   - PublishVerdict/SubscribeVerdicts for verdict delivery
//   - Worker registration and fleet inspection
//   - Health monitoring and active worker tracking
//
// Job: One document to validate, referencing a registry schema by name or
// carrying an inline definition, plus trace context.
//
// Verdict: The outcome of validating a Job. Either a validity flag with
// violations, or a processing error when the job itself was unusable.
//
// WorkerMeta: Metadata about a live worker for fleet inspection.
//
// # Redis Key Schema
//
// The queue system uses a structured key naming convention:
//   - warden:jobs - List for jobs (LPUSH/BRPOP); configurable per deployment
//   - warden:verdicts:<jobID> - Pub/Sub channel for a job's verdicts
//   - warden:worker:<id>:meta - Hash for worker metadata
//   - warden:worker:<id>:health - String with 30s TTL for heartbeat
//   - warden:workers - Set of all registered worker IDs
//   - warden:workers:active - Integer counter for running workers
//
// # Usage
//
// Creating a queue client:
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{
//		URL:            "redis://localhost:6379",
//		ConnectTimeout: 5 * time.Second,
//	})
//
// Submitting a document for validation:
//
//	job := queue.NewJob("person", `{"name": "Ada", "age": 36}`)
//	err := client.Push(ctx, queue.DefaultQueue, job)
//
// Collecting the verdict:
//
//	verdicts, err := client.SubscribeVerdicts(ctx, job.JobID)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for verdict := range verdicts {
//		if verdict.Valid {
//			fmt.Println("document conforms")
//		}
//		for _, v := range verdict.Violations {
//			fmt.Println(v.String())
//		}
//	}
//
// Consuming jobs (worker side):
//
//	job, err := client.Pop(ctx, queue.DefaultQueue)
//	if err != nil {
//		log.Fatal(err)
//	}
//	// Validate job.Document and publish the verdict...
//
// # Error Handling
//
// All methods return errors for Redis connection failures, serialization
// errors, or context cancellation. Clients should implement retry logic
// with exponential backoff for transient failures.
//
// # Thread Safety
//
// RedisClient is safe for concurrent use by multiple goroutines.
package queue
