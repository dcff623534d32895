package queue

import (
	"strings"
	"testing"
	"time"

	"github.com/zero-day-ai/warden/validate"
)

func TestJob_IsValid(t *testing.T) {
	now := time.Now().UnixMilli()

	tests := []struct {
		name    string
		job     Job
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid registry job",
			job: Job{
				JobID:       "job-123",
				Index:       0,
				Total:       1,
				Schema:      "person",
				Document:    `{"name": "Ada"}`,
				TraceID:     "trace-456",
				SpanID:      "span-789",
				SubmittedAt: now,
			},
			wantErr: false,
		},
		{
			name: "valid inline definition job",
			job: Job{
				JobID:       "job-123",
				Index:       0,
				Total:       1,
				Definition:  "Root:\n  +type: Object\n  name: String\n",
				Document:    `{"name": "Ada"}`,
				SubmittedAt: now,
			},
			wantErr: false,
		},
		{
			name: "missing job_id",
			job: Job{
				Index:       0,
				Total:       1,
				Schema:      "person",
				Document:    `{}`,
				SubmittedAt: now,
			},
			wantErr: true,
			errMsg:  "job_id is required",
		},
		{
			name: "negative index",
			job: Job{
				JobID:       "job-123",
				Index:       -1,
				Total:       1,
				Schema:      "person",
				Document:    `{}`,
				SubmittedAt: now,
			},
			wantErr: true,
			errMsg:  "index must be non-negative, got -1",
		},
		{
			name: "zero total",
			job: Job{
				JobID:       "job-123",
				Index:       0,
				Total:       0,
				Schema:      "person",
				Document:    `{}`,
				SubmittedAt: now,
			},
			wantErr: true,
			errMsg:  "total must be positive, got 0",
		},
		{
			name: "index out of bounds",
			job: Job{
				JobID:       "job-123",
				Index:       5,
				Total:       3,
				Schema:      "person",
				Document:    `{}`,
				SubmittedAt: now,
			},
			wantErr: true,
			errMsg:  "index 5 is out of bounds for total 3",
		},
		{
			name: "both schema and definition",
			job: Job{
				JobID:       "job-123",
				Index:       0,
				Total:       1,
				Schema:      "person",
				Definition:  "Root:\n  +type: Object\n",
				Document:    `{}`,
				SubmittedAt: now,
			},
			wantErr: true,
			errMsg:  "exactly one of schema and definition must be set",
		},
		{
			name: "neither schema nor definition",
			job: Job{
				JobID:       "job-123",
				Index:       0,
				Total:       1,
				Document:    `{}`,
				SubmittedAt: now,
			},
			wantErr: true,
			errMsg:  "exactly one of schema and definition must be set",
		},
		{
			name: "missing document",
			job: Job{
				JobID:       "job-123",
				Index:       0,
				Total:       1,
				Schema:      "person",
				SubmittedAt: now,
			},
			wantErr: true,
			errMsg:  "document is required",
		},
		{
			name: "invalid submitted_at",
			job: Job{
				JobID:       "job-123",
				Index:       0,
				Total:       1,
				Schema:      "person",
				Document:    `{}`,
				SubmittedAt: -1,
			},
			wantErr: true,
			errMsg:  "submitted_at must be positive, got -1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.IsValid()
			if (err != nil) != tt.wantErr {
				t.Errorf("Job.IsValid() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMsg {
				t.Errorf("Job.IsValid() error = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("person", `{"name": "Ada"}`)

	if err := job.IsValid(); err != nil {
		t.Fatalf("NewJob produced invalid job: %v", err)
	}
	if job.JobID == "" {
		t.Error("NewJob should not leave JobID empty")
	}
	if job.Index != 0 || job.Total != 1 {
		t.Errorf("NewJob index/total = %d/%d, want 0/1", job.Index, job.Total)
	}
	if job.Schema != "person" {
		t.Errorf("NewJob schema = %q, want %q", job.Schema, "person")
	}
}

func TestNewBatch(t *testing.T) {
	docs := []string{`{"n": 1}`, `{"n": 2}`, `{"n": 3}`}
	jobs := NewBatch("numbers", docs)

	if len(jobs) != len(docs) {
		t.Fatalf("NewBatch returned %d jobs, want %d", len(jobs), len(docs))
	}

	for i, job := range jobs {
		if err := job.IsValid(); err != nil {
			t.Errorf("job %d invalid: %v", i, err)
		}
		if job.JobID != jobs[0].JobID {
			t.Errorf("job %d has JobID %q, want shared %q", i, job.JobID, jobs[0].JobID)
		}
		if job.Index != i {
			t.Errorf("job %d has index %d", i, job.Index)
		}
		if job.Total != len(docs) {
			t.Errorf("job %d has total %d, want %d", i, job.Total, len(docs))
		}
		if job.Document != docs[i] {
			t.Errorf("job %d has document %q, want %q", i, job.Document, docs[i])
		}
	}
}

func TestJob_Age(t *testing.T) {
	now := time.Now().UnixMilli()

	tests := []struct {
		name        string
		submittedAt int64
		wantMin     time.Duration
		wantMax     time.Duration
	}{
		{
			name:        "recent submission",
			submittedAt: now,
			wantMin:     0,
			wantMax:     100 * time.Millisecond,
		},
		{
			name:        "one second old",
			submittedAt: now - 1000,
			wantMin:     900 * time.Millisecond,
			wantMax:     1100 * time.Millisecond,
		},
		{
			name:        "zero timestamp",
			submittedAt: 0,
			wantMin:     0,
			wantMax:     0,
		},
		{
			name:        "negative timestamp",
			submittedAt: -1,
			wantMin:     0,
			wantMax:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := Job{SubmittedAt: tt.submittedAt}
			age := job.Age()
			if age < tt.wantMin || age > tt.wantMax {
				t.Errorf("Job.Age() = %v, want between %v and %v", age, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestVerdict_IsValid(t *testing.T) {
	now := time.Now().UnixMilli()

	violation := validate.Violation{
		Path:   validate.Path{validate.FieldSegment("name")},
		Kind:   validate.KindTypeMismatch,
		Detail: "expected String, got Integer",
	}

	tests := []struct {
		name    string
		verdict Verdict
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid conforming verdict",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       0,
				Valid:       true,
				WorkerID:    "worker-1",
				StartedAt:   now - 1000,
				CompletedAt: now,
			},
			wantErr: false,
		},
		{
			name: "valid non-conforming verdict",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       0,
				Valid:       false,
				Violations:  []validate.Violation{violation},
				WorkerID:    "worker-1",
				StartedAt:   now - 1000,
				CompletedAt: now,
			},
			wantErr: false,
		},
		{
			name: "valid processing error verdict",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       0,
				Valid:       false,
				Error:       "definition failed to compile",
				WorkerID:    "worker-1",
				StartedAt:   now - 1000,
				CompletedAt: now,
			},
			wantErr: false,
		},
		{
			name: "missing job_id",
			verdict: Verdict{
				Index:       0,
				Valid:       true,
				WorkerID:    "worker-1",
				StartedAt:   now - 1000,
				CompletedAt: now,
			},
			wantErr: true,
			errMsg:  "job_id is required",
		},
		{
			name: "negative index",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       -1,
				Valid:       true,
				WorkerID:    "worker-1",
				StartedAt:   now - 1000,
				CompletedAt: now,
			},
			wantErr: true,
			errMsg:  "index must be non-negative, got -1",
		},
		{
			name: "missing worker_id",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       0,
				Valid:       true,
				StartedAt:   now - 1000,
				CompletedAt: now,
			},
			wantErr: true,
			errMsg:  "worker_id is required",
		},
		{
			name: "invalid started_at",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       0,
				Valid:       true,
				WorkerID:    "worker-1",
				StartedAt:   0,
				CompletedAt: now,
			},
			wantErr: true,
			errMsg:  "started_at must be positive, got 0",
		},
		{
			name: "invalid completed_at",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       0,
				Valid:       true,
				WorkerID:    "worker-1",
				StartedAt:   now,
				CompletedAt: 0,
			},
			wantErr: true,
			errMsg:  "completed_at must be positive, got 0",
		},
		{
			name: "completed_at before started_at",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       0,
				Valid:       true,
				WorkerID:    "worker-1",
				StartedAt:   now,
				CompletedAt: now - 1000,
			},
			wantErr: true,
			errMsg:  "completed_at",
		},
		{
			name: "error verdict marked valid",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       0,
				Valid:       true,
				Error:       "document was not JSON",
				WorkerID:    "worker-1",
				StartedAt:   now - 1000,
				CompletedAt: now,
			},
			wantErr: true,
			errMsg:  "a verdict with a processing error cannot be valid",
		},
		{
			name: "valid verdict with violations",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       0,
				Valid:       true,
				Violations:  []validate.Violation{violation},
				WorkerID:    "worker-1",
				StartedAt:   now - 1000,
				CompletedAt: now,
			},
			wantErr: true,
			errMsg:  "a valid verdict cannot carry violations",
		},
		{
			name: "invalid verdict without violations or error",
			verdict: Verdict{
				JobID:       "job-123",
				Index:       0,
				Valid:       false,
				WorkerID:    "worker-1",
				StartedAt:   now - 1000,
				CompletedAt: now,
			},
			wantErr: true,
			errMsg:  "an invalid verdict must carry violations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verdict.IsValid()
			if (err != nil) != tt.wantErr {
				t.Errorf("Verdict.IsValid() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err != nil && !strings.HasPrefix(err.Error(), tt.errMsg) {
				t.Errorf("Verdict.IsValid() error = %v, want prefix %v", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestVerdict_HasError(t *testing.T) {
	tests := []struct {
		name    string
		verdict Verdict
		want    bool
	}{
		{
			name:    "no error",
			verdict: Verdict{Error: ""},
			want:    false,
		},
		{
			name:    "has error",
			verdict: Verdict{Error: "schema not found"},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.verdict.HasError(); got != tt.want {
				t.Errorf("Verdict.HasError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerdict_Duration(t *testing.T) {
	now := time.Now().UnixMilli()

	tests := []struct {
		name      string
		startedAt int64
		completed int64
		want      time.Duration
	}{
		{
			name:      "one second duration",
			startedAt: now - 1000,
			completed: now,
			want:      1000 * time.Millisecond,
		},
		{
			name:      "100ms duration",
			startedAt: now - 100,
			completed: now,
			want:      100 * time.Millisecond,
		},
		{
			name:      "zero started_at",
			startedAt: 0,
			completed: now,
			want:      0,
		},
		{
			name:      "zero completed_at",
			startedAt: now,
			completed: 0,
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Verdict{
				StartedAt:   tt.startedAt,
				CompletedAt: tt.completed,
			}
			got := v.Duration()
			if got != tt.want {
				t.Errorf("Verdict.Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorkerMeta_IsValid(t *testing.T) {
	now := time.Now().UnixMilli()

	tests := []struct {
		name    string
		meta    WorkerMeta
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid worker meta",
			meta: WorkerMeta{
				ID:          "host-1234-abcdef01",
				Hostname:    "host",
				Version:     "1.0.0",
				Concurrency: 4,
				Queue:       DefaultQueue,
				StartedAt:   now,
			},
			wantErr: false,
		},
		{
			name: "missing id",
			meta: WorkerMeta{
				Hostname:    "host",
				Concurrency: 4,
				Queue:       DefaultQueue,
				StartedAt:   now,
			},
			wantErr: true,
			errMsg:  "worker id is required",
		},
		{
			name: "missing hostname",
			meta: WorkerMeta{
				ID:          "host-1234-abcdef01",
				Concurrency: 4,
				Queue:       DefaultQueue,
				StartedAt:   now,
			},
			wantErr: true,
			errMsg:  "hostname is required",
		},
		{
			name: "zero concurrency",
			meta: WorkerMeta{
				ID:        "host-1234-abcdef01",
				Hostname:  "host",
				Queue:     DefaultQueue,
				StartedAt: now,
			},
			wantErr: true,
			errMsg:  "concurrency must be positive, got 0",
		},
		{
			name: "missing queue",
			meta: WorkerMeta{
				ID:          "host-1234-abcdef01",
				Hostname:    "host",
				Concurrency: 4,
				StartedAt:   now,
			},
			wantErr: true,
			errMsg:  "queue is required",
		},
		{
			name: "invalid started_at",
			meta: WorkerMeta{
				ID:          "host-1234-abcdef01",
				Hostname:    "host",
				Concurrency: 4,
				Queue:       DefaultQueue,
				StartedAt:   0,
			},
			wantErr: true,
			errMsg:  "started_at must be positive, got 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.meta.IsValid()
			if (err != nil) != tt.wantErr {
				t.Errorf("WorkerMeta.IsValid() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMsg {
				t.Errorf("WorkerMeta.IsValid() error = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}
