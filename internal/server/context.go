package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/calbridge/calbridge/internal/bindings"
	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/storage"
)

// ServerContext holds the shared dependencies handed to every tool
// handler: storage, the service bindings, the logger, and the metrics
// recorder. It is built once at startup and read-only afterwards except
// for the shutdown flag.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	store    storage.Store
	sync     bindings.SyncService
	exporter bindings.ProofExporter
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	mu       sync.RWMutex
	shutdown bool
}

// ServerContextConfig collects the dependencies for NewServerContext.
// Sync and Exporter may be nil; they default to the unavailable
// bindings.
type ServerContextConfig struct {
	Store    storage.Store
	Sync     bindings.SyncService
	Exporter bindings.ProofExporter
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
}

// NewServerContext creates a server context owning a cancelable
// lifetime derived from ctx.
func NewServerContext(ctx context.Context, config ServerContextConfig) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	if config.Sync == nil {
		config.Sync = bindings.UnavailableSync{}
	}
	if config.Exporter == nil {
		config.Exporter = bindings.UnavailableExporter{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = &instrumentation.Metrics{}
	}

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		store:    config.Store,
		sync:     config.Sync,
		exporter: config.Exporter,
		logger:   config.Logger,
		metrics:  config.Metrics,
	}
}

// Context returns the server lifetime context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Store returns the storage backend.
func (sc *ServerContext) Store() storage.Store {
	return sc.store
}

// Sync returns the sync service binding.
func (sc *ServerContext) Sync() bindings.SyncService {
	return sc.sync
}

// Exporter returns the proof export binding.
func (sc *ServerContext) Exporter() bindings.ProofExporter {
	return sc.exporter
}

// Logger returns the process logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server lifetime. Safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
