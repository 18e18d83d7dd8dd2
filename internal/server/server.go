package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/jsonrpc"
	"github.com/calbridge/calbridge/internal/logging"
)

const (
	// DefaultAddr is the default address for the RPC server.
	DefaultAddr = ":8080"

	// DefaultReadTimeout is the default read timeout for the RPC server.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default write timeout for the RPC server.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the default idle timeout for the RPC server.
	DefaultIdleTimeout = 60 * time.Second

	// maxBodyBytes caps the accepted request body size.
	maxBodyBytes = 1 << 20
)

const authRequiredMessage = "Authentication required: provide a valid JWT in the Authorization header"

// Dispatcher routes one authenticated JSON-RPC request.
type Dispatcher interface {
	Dispatch(ctx context.Context, user *auth.UserContext, req *jsonrpc.Request) *jsonrpc.Response
}

// HTTPServer is the JSON-RPC transport: it owns body parsing, the
// authentication gate, CORS, and the health endpoint, and delegates
// everything else to the dispatcher.
type HTTPServer struct {
	addr          string
	dispatcher    Dispatcher
	authenticator auth.Authenticator
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
	health        *HealthChecker
	httpServer    *http.Server
}

// HTTPServerConfig holds configuration for the RPC server.
type HTTPServerConfig struct {
	// Addr is the address to bind to (e.g. ":8080").
	Addr string

	// Dispatcher handles authenticated requests. Required.
	Dispatcher Dispatcher

	// Authenticator resolves the caller. Required.
	Authenticator auth.Authenticator

	// Logger is the process logger; defaults to slog.Default.
	Logger *slog.Logger

	// Metrics records HTTP-level metrics; may be nil.
	Metrics *instrumentation.Metrics

	// Health serves the liveness and readiness probes; may be nil.
	Health *HealthChecker
}

// NewHTTPServer creates the RPC transport server.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &HTTPServer{
		addr:          config.Addr,
		dispatcher:    config.Dispatcher,
		authenticator: config.Authenticator,
		logger:        config.Logger,
		metrics:       config.Metrics,
		health:        config.Health,
	}
}

// Handler returns the full route table as an http.Handler.
func (s *HTTPServer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := s.route(w, r)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
		}
	})
}

// route serves one request and returns the HTTP status written.
func (s *HTTPServer) route(w http.ResponseWriter, r *http.Request) int {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return http.StatusNoContent
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/mcp":
		return s.handleRPC(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		return writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "healthy"})
	default:
		resp := jsonrpc.NewError(nil, jsonrpc.CodeMethodNotFound, "Not Found")
		return writeJSON(w, http.StatusNotFound, resp)
	}
}

func (s *HTTPServer) handleRPC(w http.ResponseWriter, r *http.Request) int {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		resp := jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error")
		return writeJSON(w, http.StatusOK, resp)
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		// Valid JSON of the wrong shape (an array, a scalar) is a bad
		// request, not a parse failure.
		if json.Valid(body) {
			resp := jsonrpc.NewError(nil, jsonrpc.CodeInvalidRequest, "Invalid Request")
			return writeJSON(w, http.StatusOK, resp)
		}
		resp := jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error")
		return writeJSON(w, http.StatusOK, resp)
	}

	// Envelope shape is a protocol concern and is checked before the
	// caller's identity; a bad envelope never yields a 401.
	if !req.Valid() {
		resp := jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidRequest, "Invalid Request")
		return writeJSON(w, http.StatusOK, resp)
	}

	user := s.authenticator.Authenticate(r)
	if user == nil {
		s.logger.Info("request rejected", logging.RPCCode(jsonrpc.CodeAuthRequired))
		resp := jsonrpc.NewError(req.ID, jsonrpc.CodeAuthRequired, authRequiredMessage)
		return writeJSON(w, http.StatusUnauthorized, resp)
	}

	resp := s.dispatcher.Dispatch(r.Context(), user, &req)
	return writeJSON(w, http.StatusOK, resp)
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func writeJSON(w http.ResponseWriter, status int, body any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
	return status
}

// Start starts the RPC server in a blocking manner. Call in a goroutine
// for non-blocking operation.
func (s *HTTPServer) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler())
	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.logger.Info("starting rpc server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the RPC server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("shutting down rpc server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.addr
}
