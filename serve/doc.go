// Package serve provides gRPC server infrastructure for validation workers.
//
// Workers expose a small admin endpoint over gRPC so orchestration systems
// can probe their liveness with the standard gRPC health checking protocol.
// The package handles server lifecycle, graceful shutdown, health checks,
// and signal handling, plus the OpenTelemetry tracer wiring that workers
// use for per-job spans.
//
// # Usage
//
//	func main() {
//	    srv, err := serve.NewServer(serve.Configure(
//	        serve.WithPort(50052),
//	        serve.WithGracefulShutdown(30*time.Second),
//	    ))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    srv.HealthServer().SetServingStatus("warden.worker",
//	        grpc_health_v1.HealthCheckResponse_SERVING)
//
//	    if err := srv.Serve(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Server Configuration
//
// The serve package provides flexible configuration through functional options:
//
//   - WithPort: Set the gRPC server port (default: 50052)
//   - WithGracefulShutdown: Set the graceful shutdown timeout (default: 30s)
//   - WithTLS: Enable TLS with certificate and key files
//   - WithLocalMode: Listen on a Unix domain socket alongside TCP
//   - WithLogger: Set the structured logger for lifecycle events
//
// # Graceful Shutdown
//
// The server handles SIGINT and SIGTERM signals for graceful shutdown:
//
//  1. Signal received
//  2. Server stops accepting new connections
//  3. Active requests complete within timeout period
//  4. Resources are cleaned up
//  5. Process exits
//
// # Health Checks
//
// The server automatically exposes gRPC health checks compatible with
// the standard gRPC health checking protocol. This allows load balancers
// and orchestration systems to monitor worker health.
//
// # Distributed Tracing
//
// NewTracerProvider builds an OpenTelemetry tracer provider whose spans
// are exported as structured log records. ContextWithRemoteParent links a
// worker's spans to the submitting process by rebuilding the parent span
// context from the trace and span IDs carried on a job.
package serve
