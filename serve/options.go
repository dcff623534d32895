package serve

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Server.
// Options provide a flexible way to customize server behavior
// without requiring a large number of constructor parameters.
type Option func(*Config)

// WithPort sets the TCP port for the gRPC server.
// The port must be between 1 and 65535.
// Use port 0 to automatically select an available port.
//
// Example:
//
//	serve.NewServer(serve.Configure(serve.WithPort(8080)))
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithGracefulShutdown sets the maximum duration to wait for active
// requests to complete during graceful shutdown.
// After this timeout, the server will force shutdown.
//
// A longer timeout gives more time for long-running requests to complete,
// but delays shutdown. A shorter timeout causes faster shutdown but may
// interrupt active requests.
//
// Example:
//
//	serve.Configure(serve.WithGracefulShutdown(60 * time.Second))
func WithGracefulShutdown(timeout time.Duration) Option {
	return func(c *Config) {
		c.GracefulTimeout = timeout
	}
}

// WithTLS enables TLS encryption for the gRPC server.
// Both certFile and keyFile must be valid paths to PEM-encoded files.
// If either path is empty, TLS will be disabled.
//
// The certificate file should contain the server's certificate chain.
// The key file should contain the server's private key.
//
// Example:
//
//	serve.Configure(serve.WithTLS("/etc/certs/server.crt", "/etc/certs/server.key"))
func WithTLS(certFile, keyFile string) Option {
	return func(c *Config) {
		c.TLSCertFile = certFile
		c.TLSKeyFile = keyFile
	}
}

// WithLocalMode enables Unix domain socket listening alongside TCP.
// The server will create a Unix socket at the specified path with 0600
// permissions (owner read/write only) for secure local IPC communication.
// The socket is automatically cleaned up on server shutdown.
//
// This is useful for co-located deployments where a supervisor probes
// worker liveness via Unix sockets instead of TCP localhost connections.
//
// Example:
//
//	serve.Configure(serve.WithLocalMode("/var/run/warden/worker.sock"))
func WithLocalMode(socketPath string) Option {
	return func(c *Config) {
		c.LocalMode = socketPath
	}
}

// WithLogger sets the structured logger used for server lifecycle events.
// If not set, slog.Default() is used.
//
// Example:
//
//	serve.Configure(serve.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Configure builds a Config by applying the provided options on top of
// the defaults. It is a convenience for callers that construct servers
// from functional options rather than a literal Config.
func Configure(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
