package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/zero-day-ai/warden"
	"github.com/zero-day-ai/warden/config"
	"github.com/zero-day-ai/warden/document"
	"github.com/zero-day-ai/warden/health"
	"github.com/zero-day-ai/warden/queue"
	"github.com/zero-day-ai/warden/registry"
	"github.com/zero-day-ai/warden/serve"
	"github.com/zero-day-ai/warden/validate"
)

// Options configures the worker behavior.
type Options struct {
	// RedisURL is the Redis connection string (e.g., "redis://localhost:6379").
	// If empty, uses the value from warden.yaml or the default.
	RedisURL string

	// Queue is the job list to consume.
	// If empty, uses the value from warden.yaml or queue.DefaultQueue.
	Queue string

	// Concurrency is the number of validation goroutines to start.
	// If 0, uses the value from warden.yaml or the default (4).
	Concurrency int

	// ShutdownTimeout is the time to wait for graceful shutdown.
	// If 0, uses the value from warden.yaml or the default (30s).
	ShutdownTimeout time.Duration

	// HeartbeatInterval is how often the worker refreshes its Redis health
	// key. If 0, uses the value from warden.yaml or the default (10s).
	HeartbeatInterval time.Duration

	// AdminPort is the port of the gRPC health endpoint. If 0, uses the
	// value from warden.yaml; when no port is configured anywhere, no
	// admin server is started.
	AdminPort int

	// Registry resolves named schemas. If nil, a client is built from
	// warden.yaml or WARDEN_REGISTRY_ENDPOINTS; when neither is set the
	// worker runs without a registry and jobs must carry inline
	// definitions.
	Registry registry.Registry

	// Validation holds extra validation options, applied after the ones
	// derived from warden.yaml.
	Validation []validate.Option

	// Logger is the structured logger for worker operations.
	// If nil, a default logger will be created.
	Logger *slog.Logger

	// Config is the parsed warden.yaml configuration.
	// If nil, the worker will attempt to load it from the current directory.
	// Set to an empty config to skip warden.yaml loading.
	Config *config.Config

	// ConfigPath is the path to warden.yaml.
	// If empty and Config is nil, searches from the current directory.
	ConfigPath string
}

// Run starts the worker daemon with the specified options.
// It connects to Redis, registers the worker, starts N validation goroutines
// based on Concurrency, maintains a heartbeat, and handles graceful shutdown
// on SIGTERM/SIGINT.
//
// Configuration priority (highest to lowest):
//  1. Explicit Options values (if non-zero)
//  2. warden.yaml worker/redis/registry/validation sections
//  3. Default values
//
// Each validation goroutine:
//  1. Pops a job from the queue
//  2. Resolves and compiles the job's schema (cached for named schemas)
//  3. Validates the document and publishes the verdict back to Redis
//
// The function blocks until a shutdown signal is received or an error occurs.
// On shutdown, it waits for all goroutines to finish their current jobs
// before returning.
//
// Returns an error if the Redis or registry connection fails or if the
// worker cannot register itself.
func Run(opts Options) error {
	// Load warden.yaml if not provided
	cfg := opts.Config
	if cfg == nil {
		var err error
		if opts.ConfigPath != "" {
			cfg, err = config.Load(opts.ConfigPath)
		} else {
			cfg, err = config.LoadFromCurrentDir()
		}
		if err != nil {
			// warden.yaml is optional - just use defaults
			cfg = nil
		}
	}

	// Apply configuration with priority: explicit opts > warden.yaml > defaults
	opts = applyConfig(opts, cfg)
	if cfg == nil {
		cfg = &config.Config{}
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	// Generate unique worker ID (hostname + PID + UUID)
	workerID := generateWorkerID()

	logger := opts.Logger.With(
		"worker_id", workerID,
		"queue", opts.Queue,
	)

	logger.Info("worker starting",
		"version", warden.Version,
		"concurrency", opts.Concurrency,
		"redis_url", opts.RedisURL,
	)

	// Create context for worker lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	preflight(ctx, opts, cfg, logger)

	// Connect to Redis
	redisClient, err := queue.NewRedisClient(queue.RedisOptions{
		URL: opts.RedisURL,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer warden.CloseWithLog(redisClient, logger, "queue client")

	// Resolve the schema registry: explicit opts > warden.yaml > environment
	reg, owned, err := resolveRegistry(opts, cfg)
	if err != nil {
		return err
	}
	if owned {
		defer warden.CloseWithLog(reg, logger, "registry client")
	}
	if reg == nil {
		logger.Info("no registry configured, jobs must carry inline definitions")
	}

	// Tracing: completed spans surface as structured log records
	tp := serve.NewTracerProvider("warden-worker", logger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer provider shutdown failed", "error", err)
		}
	}()

	m, err := newMetrics(otel.Meter(scopeName))
	if err != nil {
		logger.Warn("metric instruments unavailable", "error", err)
	}

	d := &daemon{
		id:        workerID,
		queue:     opts.Queue,
		client:    redisClient,
		schemas:   newSchemaCache(ctx, reg, logger),
		validator: validate.New(append(cfg.Validation.Options(), opts.Validation...)...),
		metrics:   m,
		tracer:    tp.Tracer(scopeName),
		logger:    logger,
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	// Register worker with Redis
	meta := queue.WorkerMeta{
		ID:          workerID,
		Hostname:    hostname,
		Version:     warden.Version,
		Concurrency: opts.Concurrency,
		Queue:       opts.Queue,
		StartedAt:   time.Now().UnixMilli(),
	}

	if err := redisClient.RegisterWorker(ctx, meta); err != nil {
		logger.Error("failed to register worker", "error", err)
		return fmt.Errorf("failed to register worker: %w", err)
	}

	logger.Info("worker registered", "hostname", hostname)

	// Increment active worker count on startup
	if err := redisClient.IncrementActive(ctx); err != nil {
		logger.Error("failed to increment active worker count", "error", err)
	}

	// Ensure registration is cleaned up on exit (even on crash)
	defer func() {
		// Use background context for cleanup since ctx may be cancelled
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		if err := redisClient.DecrementActive(cleanupCtx); err != nil {
			logger.Error("failed to decrement active worker count", "error", err)
		}
		if err := redisClient.DeregisterWorker(cleanupCtx, workerID); err != nil {
			logger.Error("failed to deregister worker", "error", err)
		}
	}()

	// Announce presence in the registry so the fleet is discoverable
	if reg != nil {
		info := registry.WorkerInfo{
			ID:          workerID,
			Hostname:    hostname,
			Queue:       opts.Queue,
			Concurrency: opts.Concurrency,
			Version:     warden.Version,
			StartedAt:   time.Now(),
		}
		if err := reg.RegisterWorker(ctx, info); err != nil {
			logger.Error("failed to register worker presence", "error", err)
			return fmt.Errorf("failed to register worker presence: %w", err)
		}
		defer func() {
			cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cleanupCancel()
			if err := reg.DeregisterWorker(cleanupCtx, info); err != nil {
				logger.Error("failed to deregister worker presence", "error", err)
			}
		}()
	}

	// Start heartbeat goroutine
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go runHeartbeat(heartbeatCtx, redisClient, workerID, opts.HeartbeatInterval, logger)

	// Optional gRPC health endpoint for liveness probes
	if opts.AdminPort > 0 {
		admin, err := serve.NewServer(&serve.Config{
			Port:            opts.AdminPort,
			GracefulTimeout: opts.ShutdownTimeout,
			Logger:          logger,
		})
		if err != nil {
			return fmt.Errorf("failed to start admin server: %w", err)
		}
		admin.HealthServer().SetServingStatus("warden.worker", grpc_health_v1.HealthCheckResponse_SERVING)
		go func() {
			if err := admin.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("admin server error", "error", err)
			}
		}()
		logger.Info("admin server listening", "port", admin.Port())
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	// Start validation goroutines
	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			d.loop(ctx, workerNum)
		}(i)
	}

	logger.Info("worker started", "workers", opts.Concurrency)

	// Wait for shutdown signal
	sig := <-sigChan
	logger.Info("received signal, initiating graceful shutdown", "signal", sig)

	// Cancel context to stop workers and heartbeat
	cancel()

	// Wait for workers to finish with timeout
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		logger.Info("worker shutdown complete")
	case <-time.After(opts.ShutdownTimeout):
		logger.Warn("worker shutdown timeout exceeded", "timeout", opts.ShutdownTimeout)
	}

	return nil
}

// daemon holds the shared state of one worker process. Its methods are safe
// for concurrent use by the validation goroutines.
type daemon struct {
	id        string
	queue     string
	client    queue.Client
	schemas   *schemaCache
	validator *validate.Validator
	metrics   *metrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// loop is the main loop for a single validation goroutine.
// It continuously pops jobs from the queue, validates them, and publishes
// verdicts until the context is cancelled.
func (d *daemon) loop(ctx context.Context, workerNum int) {
	logger := d.logger.With("worker_num", workerNum)
	logger.Debug("worker loop started", "queue", d.queue)

	for {
		// Check if context is cancelled before popping
		select {
		case <-ctx.Done():
			logger.Debug("worker loop stopped", "reason", "context_cancelled")
			return
		default:
		}

		// Pop job from queue (blocking with context)
		job, err := d.client.Pop(ctx, d.queue)
		if err != nil {
			// Check if context was cancelled during Pop
			if ctx.Err() != nil {
				logger.Debug("worker loop stopped", "reason", "context_error")
				return
			}
			// Log error and continue
			logger.Error("failed to pop job", "error", err)
			continue
		}

		// Check if Pop returned nil (shouldn't happen but handle it)
		if job == nil {
			continue
		}

		// A malformed job still gets a verdict when it can be correlated,
		// so the submitter is not left waiting for a timeout
		if err := job.IsValid(); err != nil {
			logger.Error("received malformed job", "job_id", job.JobID, "error", err)
			if job.JobID != "" {
				now := time.Now().UnixMilli()
				d.publish(ctx, queue.Verdict{
					JobID:       job.JobID,
					Index:       job.Index,
					Error:       fmt.Sprintf("malformed job: %v", err),
					WorkerID:    d.id,
					StartedAt:   now,
					CompletedAt: now,
				})
			}
			continue
		}

		logger.Info("received job",
			"job_id", job.JobID,
			"index", job.Index,
			"total", job.Total,
			"schema", schemaLabel(job),
		)

		d.publish(ctx, d.process(ctx, *job))
	}
}

// publish delivers a verdict to the job's channel. A job popped before
// shutdown still gets its verdict: when the loop context is already
// cancelled, publication runs on a short background context instead.
func (d *daemon) publish(ctx context.Context, v queue.Verdict) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	if err := d.client.PublishVerdict(ctx, v); err != nil {
		d.logger.Error("failed to publish verdict", "job_id", v.JobID, "error", err)
	}
}

// process validates a single job and returns its verdict.
// It handles all errors at each step and ensures a verdict is always returned.
func (d *daemon) process(ctx context.Context, job queue.Job) queue.Verdict {
	startedAt := time.Now().UnixMilli()

	verdict := queue.Verdict{
		JobID:     job.JobID,
		Index:     job.Index,
		WorkerID:  d.id,
		StartedAt: startedAt,
	}

	// Link this span to the submitter's trace
	ctx = serve.ContextWithRemoteParent(ctx, job.TraceID, job.SpanID)
	ctx, span := d.tracer.Start(ctx, "worker.validate")
	defer span.End()

	label := schemaLabel(&job)
	span.SetAttributes(
		attribute.String("job.id", job.JobID),
		attribute.Int("job.index", job.Index),
		attribute.String("job.schema", label),
	)

	root, err := d.schemas.resolve(ctx, &job)
	if err != nil {
		return d.fail(ctx, span, verdict, label, fmt.Errorf("schema resolution failed: %w", err))
	}

	doc, err := document.Decode([]byte(job.Document))
	if err != nil {
		return d.fail(ctx, span, verdict, label, fmt.Errorf("document is not valid JSON: %w", err))
	}

	report := d.validator.Validate(root, doc)

	verdict.Valid = report.OK()
	verdict.Violations = report.Violations
	verdict.CompletedAt = time.Now().UnixMilli()

	outcome := "valid"
	if !verdict.Valid {
		outcome = "invalid"
	}

	span.SetAttributes(
		attribute.Bool("job.valid", verdict.Valid),
		attribute.Int("job.violations", report.Len()),
	)
	span.SetStatus(codes.Ok, outcome)

	d.metrics.record(ctx, label, outcome, report.Len(), verdict.Duration())

	d.logger.Info("job completed",
		"job_id", job.JobID,
		"index", job.Index,
		"valid", verdict.Valid,
		"violations", report.Len(),
		"duration_ms", verdict.CompletedAt-verdict.StartedAt,
	)

	return verdict
}

// fail finalizes a verdict for a job that could not be processed. The error
// goes into the verdict's Error field rather than its violation list: the
// submitter must be able to tell a broken job from an invalid document.
func (d *daemon) fail(ctx context.Context, span trace.Span, verdict queue.Verdict, label string, err error) queue.Verdict {
	verdict.Error = err.Error()
	verdict.CompletedAt = time.Now().UnixMilli()

	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)

	d.metrics.record(ctx, label, "error", 0, verdict.Duration())
	d.logger.Error("job failed", "job_id", verdict.JobID, "error", err)

	return verdict
}

// schemaLabel names the schema a job validates against, for logs and metric
// attributes. Inline definitions share a single label to keep attribute
// cardinality bounded.
func schemaLabel(job *queue.Job) string {
	if job.Schema != "" {
		return job.Schema
	}
	return "inline"
}

// preflight reports the reachability of configured dependencies before the
// worker connects. Failures are logged, not fatal; the real clients produce
// the authoritative errors.
func preflight(ctx context.Context, opts Options, cfg *config.Config, logger *slog.Logger) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var checks []health.Status
	if opts.ConfigPath != "" {
		checks = append(checks, health.FileCheck(opts.ConfigPath))
	}
	if u, err := url.Parse(opts.RedisURL); err == nil && u.Host != "" {
		checks = append(checks, health.EndpointCheck(checkCtx, u.Host))
	}
	if opts.Registry == nil && cfg != nil && cfg.Registry != nil {
		for _, ep := range cfg.Registry.Endpoints {
			checks = append(checks, health.EndpointCheck(checkCtx, ep))
		}
	}
	if len(checks) == 0 {
		return
	}

	combined := health.Combine(checks...)
	if combined.IsHealthy() {
		logger.Info("preflight checks passed", "checks", len(checks))
		return
	}

	logger.Warn("preflight checks failed",
		"state", combined.State,
		"message", combined.Message,
		"details", combined.Details,
	)
}

// resolveRegistry picks the schema registry: an explicit Options value wins,
// then warden.yaml endpoints, then WARDEN_REGISTRY_ENDPOINTS. A nil result
// with a nil error means the worker runs without a registry. The boolean
// reports whether Run owns the client and must close it.
func resolveRegistry(opts Options, cfg *config.Config) (registry.Registry, bool, error) {
	if opts.Registry != nil {
		return opts.Registry, false, nil
	}

	if cfg != nil && cfg.Registry != nil && len(cfg.Registry.Endpoints) > 0 {
		client, err := registry.NewClient(cfg.Registry.ClientConfig())
		if err != nil {
			return nil, false, fmt.Errorf("failed to connect to registry: %w", err)
		}
		return client, true, nil
	}

	client, err := registry.NewClientFromEnv()
	if err != nil {
		return nil, false, fmt.Errorf("failed to connect to registry: %w", err)
	}
	if client == nil {
		// No registry anywhere - the worker still processes inline definitions
		return nil, false, nil
	}
	return client, true, nil
}

// runHeartbeat refreshes the worker's Redis health key on a fixed interval.
// It runs in a goroutine and stops when the context is cancelled.
func runHeartbeat(ctx context.Context, client queue.Client, workerID string, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Debug("heartbeat goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("heartbeat goroutine stopped")
			return
		case <-ticker.C:
			if err := client.Heartbeat(ctx, workerID); err != nil {
				// Log at debug level to avoid noise - heartbeat failures are transient
				logger.Debug("heartbeat failed", "error", err)
			}
		}
	}
}

// generateWorkerID creates a unique identifier for this worker instance.
// Uses hostname + PID + UUID for uniqueness.
func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	pid := os.Getpid()

	// Add UUID suffix for additional uniqueness
	id := uuid.New().String()[:8]

	return fmt.Sprintf("%s-%d-%s", hostname, pid, id)
}

// applyConfig applies warden.yaml settings to Options.
// Explicit Options values take priority over warden.yaml values, which in
// turn take priority over the built-in defaults.
func applyConfig(opts Options, cfg *config.Config) Options {
	if cfg == nil {
		cfg = &config.Config{}
	}

	if opts.RedisURL == "" {
		opts.RedisURL = cfg.Redis.GetURL()
	}
	if opts.Queue == "" {
		opts.Queue = cfg.Worker.GetQueue()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = cfg.Worker.GetConcurrency()
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = cfg.Worker.GetShutdownTimeout()
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = cfg.Worker.GetHeartbeatInterval()
	}
	if opts.AdminPort == 0 {
		opts.AdminPort = cfg.Worker.GetAdminPort()
	}

	return opts
}
