// Package health provides reusable health check functions for validation
// workers.
//
// This package offers standardized ways to verify dependencies, connectivity,
// and definition files. Workers run these checks as a preflight before
// registering for jobs, so a worker with a broken definition directory or an
// unreachable queue fails early instead of consuming jobs it cannot serve.
//
// # Health Check Functions
//
// The package provides five main health check functions:
//
//   - FileCheck: Verify a file or directory exists
//   - DefinitionCheck: Verify a schema definition file exists and compiles
//   - NetworkCheck: Verify TCP connectivity to a host:port
//   - EndpointCheck: Verify TCP connectivity to a host:port address string
//   - Combine: Aggregate multiple health checks into a single status
//
// # Usage Example
//
//	import (
//	    "context"
//	    "time"
//	    "github.com/zero-day-ai/warden/health"
//	)
//
//	// Check the definition compiles before serving it
//	defStatus := health.DefinitionCheck("schemas/person.yaml")
//	if defStatus.IsUnhealthy() {
//	    log.Fatal("definition does not compile")
//	}
//
//	// Check connectivity to the queue and registry
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	overall := health.Combine(
//	    defStatus,
//	    health.EndpointCheck(ctx, "localhost:6379"),
//	    health.EndpointCheck(ctx, "localhost:2379"),
//	)
//
//	if overall.IsUnhealthy() {
//	    log.Printf("Health check failed: %s", overall.Message)
//	    log.Printf("Details: %+v", overall.Details)
//	}
//
// # Health Status Priority
//
// When combining health checks with Combine(), the result follows this priority:
//
//   - Unhealthy: If any check is unhealthy, the combined result is unhealthy
//   - Degraded: If any check is degraded (and none unhealthy), the result is degraded
//   - Healthy: If all checks are healthy, the result is healthy
//
// # Context and Timeouts
//
// NetworkCheck and EndpointCheck accept a context for timeout and
// cancellation control. If nil is passed, a default 5-second timeout is used.
package health
