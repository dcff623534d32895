package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/zero-day-ai/warden/schema"
)

// Client implements Registry on an external etcd cluster.
//
// The client provides schema storage, schema watches, and worker presence.
// Worker leases are renewed every TTL/3 by background goroutines.
//
// Example usage:
//
//	cfg := registry.Config{
//	    Endpoints: []string{"localhost:2379"},
//	    Namespace: "warden",
//	    TTL:       30,
//	}
//	client, err := registry.NewClient(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// Thread-safety: all methods are safe for concurrent use.
type Client struct {
	client    *clientv3.Client
	namespace string
	ttl       int

	// Lease tracking for worker keepalive
	mu         sync.RWMutex
	leases     map[string]clientv3.LeaseID // key: worker ID, value: lease ID
	cancelFns  map[string]context.CancelFunc
	wg         sync.WaitGroup // tracks background goroutines
	closed     bool
	closedChan chan struct{}
}

// NewClient creates a registry client from the provided configuration.
//
// This establishes a connection to the etcd cluster and verifies connectivity
// with a quick read. The client must be closed using Close() when no longer
// needed to release resources and stop background keepalive goroutines.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("registry endpoints cannot be empty")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "warden"
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	}

	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsConfig, err := clientTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
		clientCfg.TLS = tlsConfig
	}

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	// Verify connectivity with a quick health check
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = cli.Get(ctx, "health-check")
	if err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return &Client{
		client:     cli,
		namespace:  namespace,
		ttl:        ttl,
		leases:     make(map[string]clientv3.LeaseID),
		cancelFns:  make(map[string]context.CancelFunc),
		closedChan: make(chan struct{}),
	}, nil
}

// NewClientFromEnv creates a registry client using the
// WARDEN_REGISTRY_ENDPOINTS environment variable.
//
// The environment variable should contain a comma-separated list of etcd
// endpoints:
//
//	WARDEN_REGISTRY_ENDPOINTS=localhost:2379,localhost:2380
//
// If the environment variable is not set, this function returns (nil, nil) so
// callers can run without registry integration. This is NOT an error; the
// process works but schemas must be supplied inline and the worker is not
// discoverable.
func NewClientFromEnv() (*Client, error) {
	endpoints := os.Getenv("WARDEN_REGISTRY_ENDPOINTS")
	if endpoints == "" {
		// Not an error - the process works without a registry
		return nil, nil
	}

	endpointList := strings.Split(endpoints, ",")
	for i, ep := range endpointList {
		endpointList[i] = strings.TrimSpace(ep)
	}

	cfg := Config{
		Endpoints: endpointList,
		Namespace: "warden",
		TTL:       30,
	}

	return NewClient(cfg)
}

// PutSchema stores a named schema definition.
//
// The definition is compiled before anything is written; a definition that
// does not build is rejected with the compile error. UpdatedAt is stamped
// with the current time when unset.
func (c *Client) PutSchema(ctx context.Context, s Schema) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	if s.Name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}
	if strings.Contains(s.Name, "/") {
		return fmt.Errorf("schema name cannot contain '/': %q", s.Name)
	}

	// Never store a definition that does not build
	if _, err := schema.Parse([]byte(s.Definition)); err != nil {
		return fmt.Errorf("definition does not compile: %w", err)
	}

	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	if _, err := c.client.Put(ctx, c.schemaKey(s.Name), string(data)); err != nil {
		return fmt.Errorf("failed to store schema %q: %w", s.Name, err)
	}

	return nil
}

// GetSchema returns the stored schema with the given name.
// Returns ErrSchemaNotFound if no such schema exists.
func (c *Client) GetSchema(ctx context.Context, name string) (*Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	return c.getSchema(ctx, name)
}

// getSchema fetches and decodes one schema entry. Callers hold c.mu.
func (c *Client) getSchema(ctx context.Context, name string) (*Schema, error) {
	resp, err := c.client.Get(ctx, c.schemaKey(name))
	if err != nil {
		return nil, fmt.Errorf("failed to get schema %q: %w", name, err)
	}

	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("schema %q: %w", name, ErrSchemaNotFound)
	}

	kv := resp.Kvs[0]
	var s Schema
	if err := json.Unmarshal(kv.Value, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema %q: %w", name, err)
	}
	s.Revision = kv.ModRevision

	return &s, nil
}

// ListSchemas returns all stored schemas. etcd returns keys in lexical
// order, so results are sorted by name.
func (c *Client) ListSchemas(ctx context.Context) ([]Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	resp, err := c.client.Get(ctx, c.schemaPrefix(), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}

	schemas := make([]Schema, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var s Schema
		if err := json.Unmarshal(kv.Value, &s); err != nil {
			// Skip invalid entries
			continue
		}
		s.Revision = kv.ModRevision
		schemas = append(schemas, s)
	}

	return schemas, nil
}

// DeleteSchema removes the named schema.
// Returns ErrSchemaNotFound if no such schema exists.
func (c *Client) DeleteSchema(ctx context.Context, name string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	resp, err := c.client.Delete(ctx, c.schemaKey(name))
	if err != nil {
		return fmt.Errorf("failed to delete schema %q: %w", name, err)
	}

	if resp.Deleted == 0 {
		return fmt.Errorf("schema %q: %w", name, ErrSchemaNotFound)
	}

	return nil
}

// WatchSchema returns a channel that receives the schema each time its
// definition changes. The current state is sent immediately if the schema
// exists.
func (c *Client) WatchSchema(ctx context.Context, name string) (<-chan Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	ch := make(chan Schema, 1)

	// Send initial state when the schema already exists
	current, err := c.getSchema(ctx, name)
	switch {
	case err == nil:
		ch <- *current
	case errors.Is(err, ErrSchemaNotFound):
		// Nothing to send yet; the watch delivers the first Put
	default:
		return nil, err
	}

	key := c.schemaKey(name)
	watchChan := c.client.Watch(ctx, key)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closedChan:
				return
			case watchResp, ok := <-watchChan:
				if !ok {
					return
				}
				if watchResp.Err() != nil {
					return
				}

				for _, ev := range watchResp.Events {
					if ev.Type != clientv3.EventTypePut {
						// Deletions emit nothing; consumers re-Get
						continue
					}

					var s Schema
					if err := json.Unmarshal(ev.Kv.Value, &s); err != nil {
						continue
					}
					s.Revision = ev.Kv.ModRevision

					select {
					case ch <- s:
					case <-ctx.Done():
						return
					case <-c.closedChan:
						return
					}
				}
			}
		}
	}()

	return ch, nil
}

// RegisterWorker adds this worker's presence entry to the registry.
//
// The entry is bound to a lease and remains visible as long as the lease is
// kept alive. A background goroutine renews the lease every TTL/3 seconds.
//
// Re-registering the same worker ID updates the entry and restarts the
// keepalive goroutine.
func (c *Client) RegisterWorker(ctx context.Context, info WorkerInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	if info.ID == "" {
		return fmt.Errorf("worker ID cannot be empty")
	}

	// Cancel existing keepalive if re-registering
	if cancelFn, exists := c.cancelFns[info.ID]; exists {
		cancelFn()
		delete(c.cancelFns, info.ID)
	}

	// Create lease with TTL
	leaseResp, err := c.client.Grant(ctx, int64(c.ttl))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal worker info: %w", err)
	}

	_, err = c.client.Put(ctx, c.workerKey(info.ID), string(data), clientv3.WithLease(leaseResp.ID))
	if err != nil {
		return fmt.Errorf("failed to register worker: %w", err)
	}

	c.leases[info.ID] = leaseResp.ID

	// Start keepalive goroutine
	keepaliveCtx, cancel := context.WithCancel(context.Background())
	c.cancelFns[info.ID] = cancel

	c.wg.Add(1)
	go c.keepalive(keepaliveCtx, leaseResp.ID, info.ID)

	return nil
}

// DeregisterWorker removes this worker's presence entry.
//
// This revokes the etcd lease, which immediately deletes the entry, and
// stops the keepalive goroutine. Deregistering an unknown worker is a no-op.
func (c *Client) DeregisterWorker(ctx context.Context, info WorkerInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry client is closed")
	}

	// Stop keepalive goroutine
	if cancelFn, exists := c.cancelFns[info.ID]; exists {
		cancelFn()
		delete(c.cancelFns, info.ID)
	}

	leaseID, exists := c.leases[info.ID]
	if !exists {
		// Not registered, this is a no-op
		return nil
	}

	if _, err := c.client.Revoke(ctx, leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}

	delete(c.leases, info.ID)

	return nil
}

// Workers returns all currently present workers.
func (c *Client) Workers(ctx context.Context) ([]WorkerInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("registry client is closed")
	}

	resp, err := c.client.Get(ctx, c.workerPrefix(), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	workers := make([]WorkerInfo, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var info WorkerInfo
		if err := json.Unmarshal(kv.Value, &info); err != nil {
			// Skip invalid entries
			continue
		}
		workers = append(workers, info)
	}

	return workers, nil
}

// Close releases all resources and stops background goroutines.
//
// After Close() is called, all other methods return errors. All active
// watches are terminated and their channels closed. All keepalive goroutines
// are stopped.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	// Cancel all keepalive goroutines
	for _, cancel := range c.cancelFns {
		cancel()
	}
	c.cancelFns = make(map[string]context.CancelFunc)

	close(c.closedChan)
	c.mu.Unlock()

	// Wait for all goroutines to finish
	c.wg.Wait()

	return c.client.Close()
}

// keepalive renews the lease every TTL/3 seconds to maintain worker presence.
//
// This runs in a background goroutine started by RegisterWorker. It stops
// when the context is canceled (via DeregisterWorker or Close) or when the
// lease becomes invalid.
func (c *Client) keepalive(ctx context.Context, leaseID clientv3.LeaseID, workerID string) {
	defer c.wg.Done()

	interval := time.Duration(c.ttl) * time.Second / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closedChan:
			return
		case <-ticker.C:
			_, err := c.client.KeepAliveOnce(context.Background(), leaseID)
			if err != nil {
				// Lease is invalid, stop keepalive
				c.mu.Lock()
				delete(c.leases, workerID)
				delete(c.cancelFns, workerID)
				c.mu.Unlock()
				return
			}
		}
	}
}

// schemaKey constructs the etcd key for a named schema.
//
// Format: /namespace/schemas/name
func (c *Client) schemaKey(name string) string {
	return fmt.Sprintf("/%s/schemas/%s", c.namespace, name)
}

func (c *Client) schemaPrefix() string {
	return fmt.Sprintf("/%s/schemas/", c.namespace)
}

// workerKey constructs the etcd key for a worker presence entry.
//
// Format: /namespace/workers/id
func (c *Client) workerKey(id string) string {
	return fmt.Sprintf("/%s/workers/%s", c.namespace, id)
}

func (c *Client) workerPrefix() string {
	return fmt.Sprintf("/%s/workers/", c.namespace)
}
