// Package app wires the dashboard together: configuration, telemetry, the
// dataset service, the WebSocket hub and the chi router.
//
// # Initialization Flow
//
//	1. cmd/dashboard loads configuration and the logger
//	2. NewApplication initializes OpenTelemetry and business metrics
//	3. The pipeline, hub, dashboard and health services are created
//	4. Handlers and middleware are mounted on the router
//	5. Run builds the first dataset, starts the hub and serves HTTP
//
// A missing source file or a missing required column is a schema error and
// aborts Run. Other load failures are logged and the dataset is retried on the
// next request.
//
// # Middleware Order
//
//	RequestID → RealIP → OTel → Logger → Recoverer → SecurityHeaders → CORS → RateLimit → Compress → Timeout
//
// The /ws route only sees RequestID and RealIP so the upgrade can hijack the
// connection. /metrics is served by the Prometheus exporter.
//
// # Shutdown
//
// Run returns when its context is cancelled. Shutdown stops the HTTP server,
// closes every WebSocket client and flushes the telemetry providers within
// the configured shutdown timeout.
package app
