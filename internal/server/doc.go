// Package server provides the HTTP transport for the calbridge JSON-RPC
// tool server.
//
// The transport owns exactly four concerns: body parsing (malformed JSON
// is -32700, a well-formed body of the wrong shape is -32600), the
// authentication gate (HTTP 401 with JSON-RPC code -32000), CORS, and
// the plain /health endpoint. Everything else, including method routing
// and tier gating, belongs to the dispatcher.
//
// Kubernetes probes (/healthz, /readyz) are served by HealthChecker on
// the same listener; Prometheus metrics get a dedicated listener via
// MetricsServer so operational data never shares a port with caller
// traffic.
package server
