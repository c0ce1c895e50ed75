// Package server provides HTTP routing, middleware, and the inbound API of the setlistx service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [Middleware] wraps handlers in
// reverse order (last added executes first). [BasicRouter] uses [http.ServeMux] internally, with method
// filtering and optional per-route middleware.
//
// # Routes
//
//	GET /api/setlist?input=     → mapped setlist JSON (alias /api/setlist/proxy; ?id= and ?url= also accepted)
//	GET /api/apple/dev-token    → {"token": "..."}; fixed-window rate limited per client
//	GET /api/health             → liveness
//	GET /metrics                → prometheus exposition
//
// Errors are JSON {"error", "code"} with messages truncated to [MaxErrorMessage] characters. Upstream
// statuses map 404 → 404, 429 → 429, 5xx → 503; everything else passes through.
//
// # Middleware
//
//   - [RequestID] : propagates or generates X-Request-ID
//   - [Logging] : one structured log line per request
//   - [RateLimit] : per-client fixed window with Retry-After and X-RateLimit-Remaining headers
package server
