package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/bindings"
	"github.com/calbridge/calbridge/internal/config"
	"github.com/calbridge/calbridge/internal/dispatch"
	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/logging"
	"github.com/calbridge/calbridge/internal/registry"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/storage"
	"github.com/calbridge/calbridge/internal/tools/account_tools"
	"github.com/calbridge/calbridge/internal/tools/availability_tools"
	"github.com/calbridge/calbridge/internal/tools/crm_tools"
	"github.com/calbridge/calbridge/internal/tools/event_tools"
	"github.com/calbridge/calbridge/internal/tools/policy_tools"
	"github.com/calbridge/calbridge/internal/tools/scheduling_tools"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr           string
		metricsAddr    string
		metricsEnabled bool
		dbPath         string
		logLevel       string
		logFormat      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP calendar server",
		Long: `Start the JSON-RPC server exposing the calendar tools over the Model
Context Protocol.

Configuration is read from CALBRIDGE_* environment variables; flags
override the environment. CALBRIDGE_JWT_SECRET is required: it verifies
the bearer tokens carrying the caller's identity and tier.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg, metricsEnabled)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "Listen address for the JSON-RPC server")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Listen address for the Prometheus metrics server")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics", true, "Serve Prometheus metrics on a dedicated port")
	cmd.Flags().StringVar(&dbPath, "db", "calbridge.db", "SQLite database path (\":memory:\" for no persistence)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "Log format: json or text")

	return cmd
}

func runServe(cfg *config.Config, metricsEnabled bool) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	instrConfig := instrumentation.DefaultConfig()
	if err := instrConfig.Validate(); err != nil {
		return err
	}
	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if metricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
		logger.Info("metrics server started", "addr", metricsServer.Addr())
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("database close failed", logging.Err(err))
		}
	}()

	serverContext := server.NewServerContext(shutdownCtx, server.ServerContextConfig{
		Store:    store,
		Exporter: bindings.NewLocalExporter(store, []byte(cfg.JWTSecret)),
		Logger:   logger,
		Metrics:  provider.Metrics(),
	})

	reg := registry.New()
	for _, register := range []func(*registry.Registry, *server.ServerContext) error{
		account_tools.RegisterAccountTools,
		event_tools.RegisterEventTools,
		availability_tools.RegisterAvailabilityTools,
		policy_tools.RegisterPolicyTools,
		scheduling_tools.RegisterSchedulingTools,
		crm_tools.RegisterCRMTools,
	} {
		if err := register(reg, serverContext); err != nil {
			return fmt.Errorf("failed to register tools: %w", err)
		}
	}
	logger.Info("tools registered", "count", reg.Len())

	auditLogger := instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)
	engine := dispatch.New(reg, logger, provider.Metrics(), auditLogger)
	health := server.NewHealthChecker(serverContext)
	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Addr:          cfg.Addr,
		Dispatcher:    engine,
		Authenticator: auth.NewJWTAuthenticator([]byte(cfg.JWTSecret)),
		Logger:        logger,
		Metrics:       provider.Metrics(),
		Health:        health,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	health.SetReady(true)
	logger.Info("server started", "addr", cfg.Addr)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-shutdownCtx.Done():
	}

	logger.Info("shutdown signal received")
	health.SetReady(false)

	ctx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown failed", logging.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}
	if err := serverContext.Shutdown(); err != nil {
		logger.Warn("server context shutdown failed", logging.Err(err))
	}
	return nil
}
