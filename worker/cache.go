package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zero-day-ai/warden/queue"
	"github.com/zero-day-ai/warden/registry"
	"github.com/zero-day-ai/warden/schema"
)

// schemaCache holds compiled trees for named registry schemas. The first job
// naming a schema fetches and compiles it; a watch goroutine then swaps in
// recompiled trees as the registry entry changes, so long-lived workers pick
// up definition updates without a restart.
//
// Deleted registry entries keep serving their last compiled tree until the
// worker restarts. The registry emits no watch event for deletions.
type schemaCache struct {
	logger *slog.Logger
	reg    registry.Registry

	// ctx bounds the watch goroutines to the daemon lifetime
	ctx context.Context

	mu       sync.RWMutex
	compiled map[string]*schema.Node
	watching map[string]bool
}

func newSchemaCache(ctx context.Context, reg registry.Registry, logger *slog.Logger) *schemaCache {
	return &schemaCache{
		logger:   logger,
		reg:      reg,
		ctx:      ctx,
		compiled: make(map[string]*schema.Node),
		watching: make(map[string]bool),
	}
}

// resolve returns the compiled schema tree for a job. Inline definitions are
// compiled per job; named schemas come from the cache.
func (c *schemaCache) resolve(ctx context.Context, job *queue.Job) (*schema.Node, error) {
	if job.Definition != "" {
		root, err := schema.Parse([]byte(job.Definition))
		if err != nil {
			return nil, fmt.Errorf("inline definition does not compile: %w", err)
		}
		return root, nil
	}
	return c.get(ctx, job.Schema)
}

// get returns the compiled tree for a named schema, fetching and compiling
// it on first use.
func (c *schemaCache) get(ctx context.Context, name string) (*schema.Node, error) {
	if name == "" {
		return nil, fmt.Errorf("job names no schema and carries no definition")
	}

	c.mu.RLock()
	root, ok := c.compiled[name]
	c.mu.RUnlock()
	if ok {
		return root, nil
	}

	if c.reg == nil {
		return nil, fmt.Errorf("schema %q requires a registry, but none is configured", name)
	}

	stored, err := c.reg.GetSchema(ctx, name)
	if err != nil {
		return nil, err
	}

	root, err = schema.Parse([]byte(stored.Definition))
	if err != nil {
		// The registry compiles on write, so this means version skew
		return nil, fmt.Errorf("stored schema %q does not compile: %w", name, err)
	}

	c.mu.Lock()
	c.compiled[name] = root
	start := !c.watching[name]
	c.watching[name] = true
	c.mu.Unlock()

	if start {
		go c.watch(name)
	}

	return root, nil
}

// watch follows registry updates for one schema name and swaps recompiled
// trees into the cache. It exits when the cache context is cancelled.
func (c *schemaCache) watch(name string) {
	updates, err := c.reg.WatchSchema(c.ctx, name)
	if err != nil {
		c.logger.Warn("schema watch failed to start", "schema", name, "error", err)
		c.mu.Lock()
		c.watching[name] = false
		c.mu.Unlock()
		return
	}

	for s := range updates {
		root, err := schema.Parse([]byte(s.Definition))
		if err != nil {
			c.logger.Error("updated schema does not compile, keeping previous",
				"schema", name, "error", err)
			continue
		}

		c.mu.Lock()
		c.compiled[name] = root
		c.mu.Unlock()

		c.logger.Info("schema reloaded", "schema", name, "revision", s.Revision)
	}
}
