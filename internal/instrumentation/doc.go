// Package instrumentation provides OpenTelemetry instrumentation for
// the calbridge tool server.
//
// # Metrics
//
// HTTP metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// JSON-RPC metrics:
//   - rpc_requests_total: Counter of dispatched requests by method and error code
//
// Tool metrics:
//   - tool_invocations_total: Counter of tool invocations by tool, tier, and outcome
//   - tool_duration_seconds: Histogram of tool execution durations
//   - tier_denials_total: Counter of tool calls rejected by the tier gate
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate 0.0 to 1.0 (default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calbridge)
package instrumentation
