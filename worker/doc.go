// Package worker provides the daemon loop for running warden validators as
// Redis queue workers.
//
// # Overview
//
// The worker package turns the in-process validator into a horizontally
// scalable service. Submitters push validation jobs onto a Redis queue,
// workers pop them, validate the document against the job's schema, and
// publish verdicts back over Redis pub/sub. Any number of worker processes
// can consume the same queue.
//
// # Usage
//
// To run a worker:
//
//	func main() {
//	    opts := worker.Options{
//	        RedisURL:        "redis://localhost:6379",
//	        Concurrency:     4,  // Number of validation goroutines
//	        ShutdownTimeout: 30 * time.Second,
//	    }
//
//	    // Run the worker (blocks until shutdown)
//	    if err := worker.Run(opts); err != nil {
//	        log.Fatalf("Worker failed: %v", err)
//	    }
//	}
//
// Options left at their zero value fall back to the warden.yaml worker
// section, then to built-in defaults.
//
// # Schema Resolution
//
// Jobs carry either an inline YAML definition or the name of a schema stored
// in the registry. Inline definitions are compiled per job. Named schemas
// are fetched once, compiled, and cached; a registry watch swaps in
// recompiled trees when the stored definition changes, so workers follow
// schema updates without restarting. Without a registry (no explicit client,
// no warden.yaml endpoints, no WARDEN_REGISTRY_ENDPOINTS), jobs must carry
// inline definitions and named jobs fail with an error verdict.
//
// # Verdicts
//
// Every popped job produces exactly one verdict. A verdict either reports
// the validation outcome (valid, or invalid with the full violation list) or
// carries a processing error: the definition did not compile, the document
// was not JSON, or the schema name was unknown. Processing errors are
// distinct from invalid documents so submitters can tell a broken job from a
// nonconforming one.
//
// # Graceful Shutdown
//
// Workers handle SIGTERM and SIGINT:
//  1. Signal received, loop context cancelled
//  2. No new jobs are popped from the queue
//  3. Goroutines finish their current jobs and publish the verdicts
//  4. Run() returns (or times out after ShutdownTimeout)
//
// A job popped before the signal still gets its verdict; publication falls
// back to a short background context when the loop context is cancelled.
//
// # Observability
//
// Each job runs under an OpenTelemetry span linked to the submitter's trace
// via the job's trace/span IDs. Completed spans surface as structured log
// records. Jobs, violations, and duration are recorded on otel metric
// instruments, labeled by schema name and outcome.
package worker
