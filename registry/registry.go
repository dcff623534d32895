// Package registry provides durable schema storage and worker presence on etcd.
//
// Schemas are named YAML definitions stored under /{namespace}/schemas/{name}.
// They survive restarts and are watchable, so workers can hot-reload compiled
// schemas when a definition changes. Definitions are compiled before they are
// written; the registry never stores a definition that does not build.
//
// Workers register their presence under /{namespace}/workers/{id} with an etcd
// lease. A background goroutine renews the lease periodically, so entries for
// crashed workers disappear on their own when the lease expires.
package registry

import (
	"context"
	"errors"
	"time"
)

// ErrSchemaNotFound is returned when a named schema does not exist in the
// registry.
var ErrSchemaNotFound = errors.New("schema not found")

// Schema is a named, versioned validation schema stored in the registry.
type Schema struct {
	// Name is the unique schema identifier (e.g., "person", "invoice-v2")
	Name string `json:"name"`

	// Definition is the YAML schema definition text
	Definition string `json:"definition"`

	// Description is a human-readable summary of what the schema validates
	Description string `json:"description,omitempty"`

	// UpdatedAt is when this definition was last written
	UpdatedAt time.Time `json:"updated_at"`

	// Revision is the etcd mod revision of the stored entry. Populated on
	// reads, ignored on writes.
	Revision int64 `json:"-"`
}

// WorkerInfo describes a live worker instance.
//
// Each running worker registers a WorkerInfo entry bound to an etcd lease.
// Multiple workers can run concurrently, each with a unique ID.
type WorkerInfo struct {
	// ID is the unique worker identifier (typically hostname-pid-uuid)
	ID string `json:"id"`

	// Hostname is the machine the worker runs on
	Hostname string `json:"hostname"`

	// Queue is the Redis job queue the worker consumes
	Queue string `json:"queue"`

	// Concurrency is the number of validation goroutines the worker runs
	Concurrency int `json:"concurrency"`

	// Version is the warden version the worker was built from
	Version string `json:"version"`

	// Metadata contains worker-specific attributes, such as the names of
	// schemas held in the worker's compile cache
	Metadata map[string]string `json:"metadata,omitempty"`

	// StartedAt is the timestamp when this worker started
	StartedAt time.Time `json:"started_at"`
}

// Registry defines schema storage and worker presence operations.
//
// Implementations must be safe for concurrent use. Worker presence relies on
// etcd leases with TTL so stale entries vanish when workers crash or
// disconnect.
//
// Example usage:
//
//	reg, _ := registry.NewClient(cfg)
//	defer reg.Close()
//
//	err := reg.PutSchema(ctx, registry.Schema{
//	    Name:       "person",
//	    Definition: "Root:\n  +type: Object\n  name: String\n",
//	})
type Registry interface {
	// PutSchema stores a named schema definition.
	//
	// The definition is compiled first; a definition that does not build is
	// rejected with the compile error and nothing is written. Writing an
	// existing name replaces the stored definition.
	PutSchema(ctx context.Context, s Schema) error

	// GetSchema returns the stored schema with the given name.
	// Returns ErrSchemaNotFound if no such schema exists.
	GetSchema(ctx context.Context, name string) (*Schema, error)

	// ListSchemas returns all stored schemas in name order.
	ListSchemas(ctx context.Context) ([]Schema, error)

	// DeleteSchema removes the named schema.
	// Returns ErrSchemaNotFound if no such schema exists.
	DeleteSchema(ctx context.Context, name string) error

	// WatchSchema returns a channel that receives the schema each time its
	// definition changes. The current state is sent immediately if the
	// schema exists. Deletions emit nothing; consumers detect them with
	// GetSchema. The channel is closed when the context is cancelled or the
	// client is closed.
	WatchSchema(ctx context.Context, name string) (<-chan Schema, error)

	// RegisterWorker adds a worker's presence entry under a lease and keeps
	// the lease alive in the background until DeregisterWorker or Close.
	//
	// Re-registering the same worker ID updates the entry and restarts the
	// keepalive.
	RegisterWorker(ctx context.Context, info WorkerInfo) error

	// DeregisterWorker revokes the worker's lease, removing its entry.
	// Deregistering an unknown worker is a no-op.
	DeregisterWorker(ctx context.Context, info WorkerInfo) error

	// Workers returns all currently present workers.
	Workers(ctx context.Context) ([]WorkerInfo, error)

	// Close releases resources and stops all background goroutines. After
	// Close all other methods return errors.
	Close() error
}

// Config holds registry connection configuration for an etcd cluster.
type Config struct {
	// Endpoints is the list of etcd endpoints
	// Format: ["host1:2379", "host2:2379", "host3:2379"]
	Endpoints []string `json:"endpoints"`

	// Namespace is the etcd key prefix for all warden entries.
	// Schemas live under /{namespace}/schemas/, workers under
	// /{namespace}/workers/.
	// Default: "warden"
	Namespace string `json:"namespace"`

	// TTL is the worker lease time-to-live in seconds.
	// Workers must renew their lease within this interval or be removed.
	// Default: 30 seconds
	TTL int `json:"ttl"`

	// DialTimeout bounds the initial connection to etcd.
	// Default: 5 seconds
	DialTimeout time.Duration `json:"dial_timeout"`

	// TLS holds TLS configuration for secure etcd communication.
	// If nil, TLS is disabled.
	TLS *TLSConfig `json:"tls"`
}

// TLSConfig holds TLS certificate configuration for secure registry
// communication. When enabled, all communication with etcd is encrypted and
// authenticated using mutual TLS.
type TLSConfig struct {
	// Enabled determines whether TLS is active.
	// If false, all other fields are ignored.
	Enabled bool `json:"enabled"`

	// CertFile is the path to the client certificate file (PEM format)
	CertFile string `json:"cert_file"`

	// KeyFile is the path to the client private key file (PEM format)
	KeyFile string `json:"key_file"`

	// CAFile is the path to the certificate authority file (PEM format),
	// used to verify the etcd server's certificate
	CAFile string `json:"ca_file"`
}
