package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/zero-day-ai/warden/schema"
)

// States represent the operational condition of a checked dependency.
const (
	// StateHealthy indicates the dependency is fully operational.
	StateHealthy = "healthy"

	// StateDegraded indicates the dependency is operational but impaired.
	StateDegraded = "degraded"

	// StateUnhealthy indicates the dependency is not operational.
	StateUnhealthy = "unhealthy"
)

// Status represents the outcome of a single health check.
// It provides the operational state, a human-readable message, and
// diagnostic details.
type Status struct {
	// State is the current condition (healthy, degraded, or unhealthy).
	State string `json:"state"`

	// Message provides a human-readable description of the outcome.
	Message string `json:"message,omitempty"`

	// Details contains additional context and diagnostic information,
	// such as error text or the address that failed to connect.
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy returns true if the state is StateHealthy.
func (s Status) IsHealthy() bool {
	return s.State == StateHealthy
}

// IsDegraded returns true if the state is StateDegraded.
func (s Status) IsDegraded() bool {
	return s.State == StateDegraded
}

// IsUnhealthy returns true if the state is StateUnhealthy.
func (s Status) IsUnhealthy() bool {
	return s.State == StateUnhealthy
}

// Healthy creates a healthy status with an optional message.
func Healthy(message string) Status {
	return Status{
		State:   StateHealthy,
		Message: message,
	}
}

// Degraded creates a degraded status with a message and optional details.
func Degraded(message string, details map[string]any) Status {
	return Status{
		State:   StateDegraded,
		Message: message,
		Details: details,
	}
}

// Unhealthy creates an unhealthy status with a message and optional details.
func Unhealthy(message string, details map[string]any) Status {
	return Status{
		State:   StateUnhealthy,
		Message: message,
		Details: details,
	}
}

// FileCheck verifies that a file or directory exists at the specified path.
// It returns healthy if the path exists, unhealthy otherwise.
//
// Example:
//
//	status := health.FileCheck("warden.yaml")
//	if status.IsUnhealthy() {
//	    log.Fatal("config file is missing")
//	}
func FileCheck(path string) Status {
	if path == "" {
		return Unhealthy("path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Unhealthy(
				fmt.Sprintf("path '%s' does not exist", path),
				map[string]any{
					"path": path,
				},
			)
		}

		return Unhealthy(
			fmt.Sprintf("failed to stat path '%s'", path),
			map[string]any{
				"path":  path,
				"error": err.Error(),
			},
		)
	}

	fileType := "file"
	if info.IsDir() {
		fileType = "directory"
	}

	return Healthy(
		fmt.Sprintf("%s '%s' exists", fileType, path),
	)
}

// DefinitionCheck verifies that a schema definition file exists and
// compiles. A file that exists but fails to build reports unhealthy with
// the configuration error code in the details.
//
// Example:
//
//	status := health.DefinitionCheck("schemas/person.yaml")
//	if status.IsUnhealthy() {
//	    log.Fatal("definition does not compile")
//	}
func DefinitionCheck(path string) Status {
	if path == "" {
		return Unhealthy("path cannot be empty", nil)
	}

	if _, err := schema.ParseFile(path); err != nil {
		details := map[string]any{
			"path":  path,
			"error": err.Error(),
		}
		var cerr *schema.ConfigError
		if errors.As(err, &cerr) {
			details["code"] = cerr.Code
		}
		return Unhealthy(
			fmt.Sprintf("definition '%s' does not compile", path),
			details,
		)
	}

	return Healthy(
		fmt.Sprintf("definition '%s' compiles", path),
	)
}

// NetworkCheck verifies TCP connectivity to a host and port.
// It uses the provided context for timeout and cancellation control.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	status := health.NetworkCheck(ctx, "localhost", 6379)
//	if status.IsUnhealthy() {
//	    log.Println("Cannot reach Redis")
//	}
func NetworkCheck(ctx context.Context, host string, port int) Status {
	if host == "" {
		return Unhealthy("host cannot be empty", nil)
	}

	if port <= 0 || port > 65535 {
		return Unhealthy(
			fmt.Sprintf("invalid port number: %d", port),
			map[string]any{"port": port},
		)
	}

	// Use context with timeout if not already set
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{
				"host":  host,
				"port":  port,
				"error": err.Error(),
			},
		)
	}

	// Close connection immediately
	conn.Close()

	return Healthy(
		fmt.Sprintf("successfully connected to %s", address),
	)
}

// EndpointCheck verifies TCP connectivity to a host:port address string.
// It is a convenience for checking Redis addresses and etcd endpoints as
// they appear in configuration.
//
// Example:
//
//	status := health.EndpointCheck(ctx, "localhost:2379")
func EndpointCheck(ctx context.Context, addr string) Status {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("invalid address '%s'", addr),
			map[string]any{
				"address": addr,
				"error":   err.Error(),
			},
		)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("invalid port in address '%s'", addr),
			map[string]any{
				"address": addr,
				"error":   err.Error(),
			},
		)
	}

	return NetworkCheck(ctx, host, port)
}

// Combine aggregates multiple health checks into a single status.
// The result follows this priority:
//   - If any check is unhealthy, the result is unhealthy
//   - If any check is degraded (and none unhealthy), the result is degraded
//   - If all checks are healthy, the result is healthy
//
// Example:
//
//	status := health.Combine(
//	    health.FileCheck("warden.yaml"),
//	    health.EndpointCheck(ctx, "localhost:6379"),
//	    health.EndpointCheck(ctx, "localhost:2379"),
//	)
//	if status.IsUnhealthy() {
//	    log.Fatal("worker dependencies not met")
//	}
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("no checks provided")
	}

	var unhealthyChecks []string
	var degradedChecks []string
	var healthyCount int

	for _, check := range checks {
		switch check.State {
		case StateUnhealthy:
			msg := check.Message
			if msg == "" {
				msg = "unnamed check"
			}
			unhealthyChecks = append(unhealthyChecks, msg)
		case StateDegraded:
			msg := check.Message
			if msg == "" {
				msg = "unnamed check"
			}
			degradedChecks = append(degradedChecks, msg)
		case StateHealthy:
			healthyCount++
		}
	}

	// Return unhealthy if any check is unhealthy
	if len(unhealthyChecks) > 0 {
		return Unhealthy(
			fmt.Sprintf("%d check(s) failed", len(unhealthyChecks)),
			map[string]any{
				"total":         len(checks),
				"unhealthy":     len(unhealthyChecks),
				"degraded":      len(degradedChecks),
				"healthy":       healthyCount,
				"failed_checks": unhealthyChecks,
			},
		)
	}

	// Return degraded if any check is degraded
	if len(degradedChecks) > 0 {
		return Degraded(
			fmt.Sprintf("%d check(s) degraded", len(degradedChecks)),
			map[string]any{
				"total":           len(checks),
				"degraded":        len(degradedChecks),
				"healthy":         healthyCount,
				"degraded_checks": degradedChecks,
			},
		)
	}

	// All checks are healthy
	return Healthy(
		fmt.Sprintf("all %d check(s) passed", len(checks)),
	)
}
