package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Config holds serve configuration.
// It defines the server's network settings, graceful shutdown behavior,
// and optional TLS and Unix socket settings.
type Config struct {
	// Port is the TCP port on which the gRPC server listens.
	// Default: 50052
	Port int

	// GracefulTimeout is the maximum duration to wait for active requests
	// to complete during graceful shutdown.
	// Default: 30 seconds
	GracefulTimeout time.Duration

	// TLSCertFile is the path to the TLS certificate file.
	// If empty, TLS is disabled.
	TLSCertFile string

	// TLSKeyFile is the path to the TLS private key file.
	// If empty, TLS is disabled.
	TLSKeyFile string

	// LocalMode is the path of a Unix domain socket to listen on alongside
	// TCP. The socket is created with 0600 permissions and removed on
	// shutdown. If empty, only the TCP listener is used.
	LocalMode string

	// Logger is the structured logger for lifecycle events.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns default serve configuration.
// These defaults are suitable for local development and testing.
func DefaultConfig() *Config {
	return &Config{
		Port:            50052,
		GracefulTimeout: 30 * time.Second,
	}
}

// Server wraps a gRPC server with lifecycle management.
// It handles server initialization, startup, graceful shutdown,
// and health check registration.
type Server struct {
	grpcServer    *grpc.Server
	listener      net.Listener
	localListener net.Listener
	config        *Config
	healthServer  *health.Server
	logger        *slog.Logger
}

// NewServer creates a new gRPC server with the provided configuration.
// It sets up the listeners and server options (e.g., TLS) and registers
// the health check service.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Create TCP listener
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", cfg.Port, err)
	}

	// Create Unix socket listener if local mode is enabled
	var localListener net.Listener
	if cfg.LocalMode != "" {
		// Remove a stale socket left over from a previous run
		if err := os.Remove(cfg.LocalMode); err != nil && !os.IsNotExist(err) {
			listener.Close()
			return nil, fmt.Errorf("failed to remove stale socket %s: %w", cfg.LocalMode, err)
		}

		localListener, err = net.Listen("unix", cfg.LocalMode)
		if err != nil {
			listener.Close()
			return nil, fmt.Errorf("failed to listen on socket %s: %w", cfg.LocalMode, err)
		}

		// Owner read/write only
		if err := os.Chmod(cfg.LocalMode, 0600); err != nil {
			listener.Close()
			localListener.Close()
			return nil, fmt.Errorf("failed to set socket permissions: %w", err)
		}
	}

	// Build gRPC server options
	var opts []grpc.ServerOption

	// Configure TLS if cert and key are provided
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			listener.Close()
			if localListener != nil {
				localListener.Close()
			}
			return nil, fmt.Errorf("failed to load TLS credentials: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	// Create gRPC server
	grpcServer := grpc.NewServer(opts...)

	// Create and register health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		grpcServer:    grpcServer,
		listener:      listener,
		localListener: localListener,
		config:        cfg,
		healthServer:  healthServer,
		logger:        logger,
	}, nil
}

// GRPCServer returns the underlying gRPC server.
// This allows callers to register additional services.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// HealthServer returns the health check server.
// This allows callers to set service health status.
func (s *Server) HealthServer() *health.Server {
	return s.healthServer
}

// Serve starts the gRPC server and blocks until shutdown.
// It handles graceful shutdown on SIGINT/SIGTERM signals.
// The context can be used to initiate shutdown programmatically.
func (s *Server) Serve(ctx context.Context) error {
	// Create error channel for serve errors
	errCh := make(chan error, 2)

	// Start serving in a goroutine
	go func() {
		if err := s.grpcServer.Serve(s.listener); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// Serve the Unix socket alongside TCP
	if s.localListener != nil {
		go func() {
			if err := s.grpcServer.Serve(s.localListener); err != nil {
				errCh <- fmt.Errorf("gRPC socket server error: %w", err)
			}
		}()
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Wait for shutdown signal, context cancellation, or error
	select {
	case <-ctx.Done():
		// Context cancelled - graceful shutdown
		s.GracefulStop()
		return ctx.Err()
	case sig := <-sigCh:
		// Signal received - graceful shutdown
		s.logger.Info("received signal, shutting down gracefully", "signal", sig.String())
		s.GracefulStop()
		return nil
	case err := <-errCh:
		// Server error
		return err
	}
}

// Stop immediately stops the gRPC server.
// Active RPCs will be terminated abruptly.
// This should only be used when graceful shutdown is not required.
func (s *Server) Stop() {
	s.grpcServer.Stop()
	s.removeSocket()
}

// GracefulStop gracefully stops the gRPC server.
// It stops accepting new connections and waits for active RPCs
// to complete within the configured timeout period.
func (s *Server) GracefulStop() {
	// Create a timeout context for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.config.GracefulTimeout)
	defer cancel()

	// Channel to signal graceful stop completion
	done := make(chan struct{})

	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	// Wait for graceful stop or timeout
	select {
	case <-done:
		// Graceful stop completed
		s.logger.Info("server stopped gracefully")
	case <-ctx.Done():
		// Timeout - force stop
		s.logger.Warn("graceful shutdown timeout, forcing stop")
		s.grpcServer.Stop()
	}

	s.removeSocket()
}

// removeSocket deletes the Unix socket file if local mode is enabled.
// The net package unlinks the socket when the listener closes, so the
// explicit removal only matters when shutdown is interrupted.
func (s *Server) removeSocket() {
	if s.config.LocalMode != "" {
		if err := os.Remove(s.config.LocalMode); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove socket", "path", s.config.LocalMode, "error", err)
		}
	}
}

// Port returns the port the server is listening on.
// This is useful when using port 0 to get an available port.
func (s *Server) Port() int {
	if s.listener != nil {
		if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return s.config.Port
}
