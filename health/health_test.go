package health

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zero-day-ai/warden/schema"
)

func TestStatusPredicates(t *testing.T) {
	if !Healthy("ok").IsHealthy() {
		t.Error("Healthy status should report IsHealthy")
	}
	if !Degraded("slow", nil).IsDegraded() {
		t.Error("Degraded status should report IsDegraded")
	}
	if !Unhealthy("down", nil).IsUnhealthy() {
		t.Error("Unhealthy status should report IsUnhealthy")
	}
	if Healthy("ok").IsUnhealthy() {
		t.Error("Healthy status should not report IsUnhealthy")
	}
}

func TestFileCheck(t *testing.T) {
	// Create a temporary file for testing
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test.txt")

	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name          string
		path          string
		expectHealthy bool
	}{
		{
			name:          "existing file",
			path:          tmpFile,
			expectHealthy: true,
		},
		{
			name:          "existing directory",
			path:          tmpDir,
			expectHealthy: true,
		},
		{
			name:          "non-existent path",
			path:          "/this/path/definitely/does/not/exist/12345",
			expectHealthy: false,
		},
		{
			name:          "empty path",
			path:          "",
			expectHealthy: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := FileCheck(tt.path)

			if tt.expectHealthy && !status.IsHealthy() {
				t.Errorf("expected healthy status, got %s: %s", status.State, status.Message)
			}

			if !tt.expectHealthy && status.IsHealthy() {
				t.Errorf("expected unhealthy status, got %s: %s", status.State, status.Message)
			}

			if status.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestDefinitionCheck(t *testing.T) {
	tmpDir := t.TempDir()

	goodFile := filepath.Join(tmpDir, "good.yaml")
	good := `Root:
  +type: Object
  name: String
  age:
    +type: Integer
    min: 0
`
	if err := os.WriteFile(goodFile, []byte(good), 0644); err != nil {
		t.Fatalf("failed to write definition: %v", err)
	}

	badFile := filepath.Join(tmpDir, "bad.yaml")
	bad := `Root:
  +type: String
  bogus: 1
`
	if err := os.WriteFile(badFile, []byte(bad), 0644); err != nil {
		t.Fatalf("failed to write definition: %v", err)
	}

	t.Run("compiling definition is healthy", func(t *testing.T) {
		status := DefinitionCheck(goodFile)
		if !status.IsHealthy() {
			t.Errorf("expected healthy status, got %s: %s", status.State, status.Message)
		}
	})

	t.Run("broken definition is unhealthy with code", func(t *testing.T) {
		status := DefinitionCheck(badFile)
		if !status.IsUnhealthy() {
			t.Fatalf("expected unhealthy status, got %s: %s", status.State, status.Message)
		}
		if code, ok := status.Details["code"]; !ok || code != schema.CodeUnknownConstraint {
			t.Errorf("expected code %s in details, got %v", schema.CodeUnknownConstraint, status.Details)
		}
	})

	t.Run("missing file is unhealthy", func(t *testing.T) {
		status := DefinitionCheck(filepath.Join(tmpDir, "missing.yaml"))
		if !status.IsUnhealthy() {
			t.Errorf("expected unhealthy status, got %s: %s", status.State, status.Message)
		}
	})

	t.Run("empty path is unhealthy", func(t *testing.T) {
		status := DefinitionCheck("")
		if !status.IsUnhealthy() {
			t.Errorf("expected unhealthy status, got %s: %s", status.State, status.Message)
		}
	})
}

func TestNetworkCheck(t *testing.T) {
	// Start a test TCP server
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}
	defer listener.Close()

	// Get the port
	addr := listener.Addr().(*net.TCPAddr)
	testPort := addr.Port

	// Accept connections in background
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	tests := []struct {
		name          string
		host          string
		port          int
		timeout       time.Duration
		expectHealthy bool
	}{
		{
			name:          "successful connection to test server",
			host:          "127.0.0.1",
			port:          testPort,
			timeout:       2 * time.Second,
			expectHealthy: true,
		},
		{
			name:          "connection to non-existent port",
			host:          "127.0.0.1",
			port:          65000, // unlikely to be in use
			timeout:       1 * time.Second,
			expectHealthy: false,
		},
		{
			name:          "invalid port number negative",
			host:          "127.0.0.1",
			port:          -1,
			timeout:       1 * time.Second,
			expectHealthy: false,
		},
		{
			name:          "invalid port number too large",
			host:          "127.0.0.1",
			port:          70000,
			timeout:       1 * time.Second,
			expectHealthy: false,
		},
		{
			name:          "empty host",
			host:          "",
			port:          80,
			timeout:       1 * time.Second,
			expectHealthy: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()

			status := NetworkCheck(ctx, tt.host, tt.port)

			if tt.expectHealthy && !status.IsHealthy() {
				t.Errorf("expected healthy status, got %s: %s", status.State, status.Message)
			}

			if !tt.expectHealthy && status.IsHealthy() {
				t.Errorf("expected unhealthy status, got %s: %s", status.State, status.Message)
			}

			if status.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestNetworkCheckWithNilContext(t *testing.T) {
	// NetworkCheck should handle nil context gracefully
	status := NetworkCheck(nil, "127.0.0.1", 65000)
	if status.IsHealthy() {
		t.Error("expected unhealthy status for unreachable port")
	}
}

func TestEndpointCheck(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	t.Run("reachable endpoint", func(t *testing.T) {
		status := EndpointCheck(ctx, listener.Addr().String())
		if !status.IsHealthy() {
			t.Errorf("expected healthy status, got %s: %s", status.State, status.Message)
		}
	})

	t.Run("address without port", func(t *testing.T) {
		status := EndpointCheck(ctx, "localhost")
		if !status.IsUnhealthy() {
			t.Errorf("expected unhealthy status, got %s: %s", status.State, status.Message)
		}
	})

	t.Run("non-numeric port", func(t *testing.T) {
		status := EndpointCheck(ctx, "localhost:redis")
		if !status.IsUnhealthy() {
			t.Errorf("expected unhealthy status, got %s: %s", status.State, status.Message)
		}
	})
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name        string
		checks      []Status
		expectState string
	}{
		{
			name: "all healthy",
			checks: []Status{
				Healthy("check 1"),
				Healthy("check 2"),
				Healthy("check 3"),
			},
			expectState: StateHealthy,
		},
		{
			name: "one unhealthy",
			checks: []Status{
				Healthy("check 1"),
				Unhealthy("check 2 failed", nil),
				Healthy("check 3"),
			},
			expectState: StateUnhealthy,
		},
		{
			name: "one degraded",
			checks: []Status{
				Healthy("check 1"),
				Degraded("check 2 degraded", nil),
				Healthy("check 3"),
			},
			expectState: StateDegraded,
		},
		{
			name: "unhealthy beats degraded",
			checks: []Status{
				Degraded("check 1 degraded", nil),
				Unhealthy("check 2 failed", nil),
			},
			expectState: StateUnhealthy,
		},
		{
			name:        "no checks",
			checks:      nil,
			expectState: StateHealthy,
		},
		{
			name: "unnamed unhealthy check",
			checks: []Status{
				{State: StateUnhealthy},
			},
			expectState: StateUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := Combine(tt.checks...)

			if status.State != tt.expectState {
				t.Errorf("expected state %s, got %s: %s", tt.expectState, status.State, status.Message)
			}

			if status.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestCombineDetails(t *testing.T) {
	status := Combine(
		Healthy("ok"),
		Unhealthy("queue unreachable", nil),
		Degraded("registry slow", nil),
	)

	if !status.IsUnhealthy() {
		t.Fatalf("expected unhealthy status, got %s", status.State)
	}

	failed, ok := status.Details["failed_checks"].([]string)
	if !ok || len(failed) != 1 || failed[0] != "queue unreachable" {
		t.Errorf("expected failed check message in details, got %v", status.Details)
	}
	if status.Details["healthy"] != 1 {
		t.Errorf("expected healthy count 1, got %v", status.Details["healthy"])
	}
	if status.Details["degraded"] != 1 {
		t.Errorf("expected degraded count 1, got %v", status.Details["degraded"])
	}
}
