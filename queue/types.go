package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/warden/validate"
)

// Job represents a single document submitted for validation.
// It carries everything a worker needs to produce a verdict.
type Job struct {
	// JobID is a UUID that correlates all jobs in a batch
	JobID string `json:"job_id"`

	// Index is the position of this job in the batch (0-based)
	Index int `json:"index"`

	// Total is the total number of jobs in the batch
	Total int `json:"total"`

	// Schema is the registry name of the schema to validate against.
	// Exactly one of Schema and Definition is set.
	Schema string `json:"schema,omitempty"`

	// Definition is an inline YAML schema definition, for jobs that do
	// not reference the registry
	Definition string `json:"definition,omitempty"`

	// Document is the raw JSON document to validate
	Document string `json:"document"`

	// TraceID is the distributed tracing trace ID for observability
	TraceID string `json:"trace_id,omitempty"`

	// SpanID is the distributed tracing span ID for observability
	SpanID string `json:"span_id,omitempty"`

	// SubmittedAt is the Unix timestamp in milliseconds when the job was submitted
	SubmittedAt int64 `json:"submitted_at"`
}

// Verdict represents the outcome of validating one Job.
// It is published to a job-specific pub/sub channel for the submitter to collect.
type Verdict struct {
	// JobID correlates this verdict with the original job
	JobID string `json:"job_id"`

	// Index is the position of this verdict in the batch
	Index int `json:"index"`

	// Valid reports whether the document conformed to the schema
	Valid bool `json:"valid"`

	// Violations lists everything that did not conform.
	// Empty when Valid is true or when Error is set.
	Violations []validate.Violation `json:"violations,omitempty"`

	// Error is set when the job could not be processed at all: the
	// definition failed to compile, the document was not JSON, or the
	// schema name was unknown. Distinct from an invalid document.
	Error string `json:"error,omitempty"`

	// WorkerID is the unique identifier of the worker that processed this job
	WorkerID string `json:"worker_id"`

	// StartedAt is the Unix timestamp in milliseconds when validation started
	StartedAt int64 `json:"started_at"`

	// CompletedAt is the Unix timestamp in milliseconds when validation completed
	CompletedAt int64 `json:"completed_at"`
}

// WorkerMeta contains metadata about a live worker.
// It is stored as a Redis hash and used for fleet inspection.
type WorkerMeta struct {
	// ID is the unique worker identifier
	ID string `json:"id"`

	// Hostname is the machine the worker runs on
	Hostname string `json:"hostname"`

	// Version is the warden version the worker was built from
	Version string `json:"version"`

	// Concurrency is the number of validation goroutines the worker runs
	Concurrency int `json:"concurrency"`

	// Queue is the job queue the worker consumes
	Queue string `json:"queue"`

	// StartedAt is the Unix timestamp in milliseconds when the worker started
	StartedAt int64 `json:"started_at"`
}

// NewJob creates a single-document job against a named registry schema,
// with a fresh UUID and the current submission time.
func NewJob(schema, document string) Job {
	return Job{
		JobID:       uuid.NewString(),
		Index:       0,
		Total:       1,
		Schema:      schema,
		Document:    document,
		SubmittedAt: time.Now().UnixMilli(),
	}
}

// NewBatch creates one job per document, all sharing a batch UUID.
func NewBatch(schema string, documents []string) []Job {
	jobID := uuid.NewString()
	now := time.Now().UnixMilli()

	jobs := make([]Job, len(documents))
	for i, doc := range documents {
		jobs[i] = Job{
			JobID:       jobID,
			Index:       i,
			Total:       len(documents),
			Schema:      schema,
			Document:    doc,
			SubmittedAt: now,
		}
	}
	return jobs
}

// IsValid checks if the Job has all required fields populated correctly.
// Returns an error describing any validation failures.
func (j *Job) IsValid() error {
	if j.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if j.Index < 0 {
		return fmt.Errorf("index must be non-negative, got %d", j.Index)
	}
	if j.Total <= 0 {
		return fmt.Errorf("total must be positive, got %d", j.Total)
	}
	if j.Index >= j.Total {
		return fmt.Errorf("index %d is out of bounds for total %d", j.Index, j.Total)
	}
	if (j.Schema == "") == (j.Definition == "") {
		return fmt.Errorf("exactly one of schema and definition must be set")
	}
	if j.Document == "" {
		return fmt.Errorf("document is required")
	}
	if j.SubmittedAt <= 0 {
		return fmt.Errorf("submitted_at must be positive, got %d", j.SubmittedAt)
	}
	return nil
}

// Age returns the duration since this job was submitted.
// Useful for detecting stale jobs and computing queue wait time.
func (j *Job) Age() time.Duration {
	if j.SubmittedAt <= 0 {
		return 0
	}
	now := time.Now().UnixMilli()
	return time.Duration(now-j.SubmittedAt) * time.Millisecond
}

// HasError returns true if the verdict represents a processing failure
// rather than a validation outcome.
func (v *Verdict) HasError() bool {
	return v.Error != ""
}

// Duration returns the wall-clock time the worker spent on this job.
func (v *Verdict) Duration() time.Duration {
	if v.StartedAt <= 0 || v.CompletedAt <= 0 {
		return 0
	}
	return time.Duration(v.CompletedAt-v.StartedAt) * time.Millisecond
}

// IsValid checks if the Verdict has all required fields populated correctly.
func (v *Verdict) IsValid() error {
	if v.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if v.Index < 0 {
		return fmt.Errorf("index must be non-negative, got %d", v.Index)
	}
	if v.WorkerID == "" {
		return fmt.Errorf("worker_id is required")
	}
	if v.StartedAt <= 0 {
		return fmt.Errorf("started_at must be positive, got %d", v.StartedAt)
	}
	if v.CompletedAt <= 0 {
		return fmt.Errorf("completed_at must be positive, got %d", v.CompletedAt)
	}
	if v.CompletedAt < v.StartedAt {
		return fmt.Errorf("completed_at (%d) cannot be before started_at (%d)", v.CompletedAt, v.StartedAt)
	}
	if v.HasError() && v.Valid {
		return fmt.Errorf("a verdict with a processing error cannot be valid")
	}
	if v.Valid && len(v.Violations) > 0 {
		return fmt.Errorf("a valid verdict cannot carry violations")
	}
	if !v.Valid && !v.HasError() && len(v.Violations) == 0 {
		return fmt.Errorf("an invalid verdict must carry violations")
	}
	return nil
}

// IsValid checks if the WorkerMeta has all required fields populated correctly.
func (m *WorkerMeta) IsValid() error {
	if m.ID == "" {
		return fmt.Errorf("worker id is required")
	}
	if m.Hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if m.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", m.Concurrency)
	}
	if m.Queue == "" {
		return fmt.Errorf("queue is required")
	}
	if m.StartedAt <= 0 {
		return fmt.Errorf("started_at must be positive, got %d", m.StartedAt)
	}
	return nil
}
