package cmd

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/labelens/labelens/internal/ailink"
	"github.com/labelens/labelens/internal/config"
	"github.com/labelens/labelens/internal/core/engine"
	"github.com/labelens/labelens/internal/core/store"
	errwrap "github.com/labelens/labelens/internal/errors"
	"github.com/labelens/labelens/internal/observability"
	"github.com/labelens/labelens/internal/server"
	"github.com/labelens/labelens/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// signalHealthChecker implements HealthChecker for signal system
type signalHealthChecker struct{}

func (s signalHealthChecker) CheckHealth(ctx context.Context) error {
	return nil // Signal handlers are registered and ready
}

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker validates app identity metadata
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (i identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case i.binaryName == "":
		return errwrap.NewConfigInvalidError("app identity missing binary name")
	case i.envPrefix == "":
		return errwrap.NewConfigInvalidError("app identity missing env prefix")
	case i.configName == "":
		return errwrap.NewConfigInvalidError("app identity missing config name")
	}
	return nil
}

// storeHealthChecker pings the rate limit store
type storeHealthChecker struct {
	store *store.Store
}

func (s storeHealthChecker) CheckHealth(ctx context.Context) error {
	if s.store == nil {
		return errwrap.NewInternalError("store not initialized")
	}
	return s.store.Ping(ctx)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP extraction server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration load failed")
		}

		// Get app identity for telemetry namespace
		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		// Initialize server logger with namespace
		logLevel := viper.GetString("logging.level")
		observability.InitServerLogger(identity.BinaryName, logLevel, namespace)

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = 9090
		}

		// Initialize metrics with namespace
		if err := observability.InitMetrics(identity.BinaryName, metricsPort, namespace); err != nil {
			observability.ServerLogger.Error("Failed to initialize metrics",
				zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}

		host := serverHost
		if !cmd.Flags().Changed("host") && cfg.Server.Host != "" {
			host = cfg.Server.Host
		}
		port := serverPort
		if !cmd.Flags().Changed("port") && cfg.Server.Port != 0 {
			port = cfg.Server.Port
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("host", host),
			zap.Int("port", port),
			zap.Int("metrics_port", metricsPort))

		// Open the store for persisted upstream rate limit state
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "store open failed")
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup
		if err := st.Migrate(cmd.Context()); err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "store migration failed")
		}

		// Outbound provider budget, persisted across restarts
		upstream := &engine.UpstreamLimiter{Store: st}
		upstream.ApplyOverrides(cfg.UpstreamLimits)
		upstream.ApplySafetyMargin(cfg.UpstreamMargin)

		// Per-client sliding window admission
		limiter := engine.NewClientLimiter(
			cfg.RateLimit.MaxRequests,
			cfg.RateLimit.Window,
			cfg.RateLimit.IdleTTL,
		)
		sweeperStop := make(chan struct{})
		go limiter.Run(sweeperStop)

		extractor, err := ailink.NewService(cfg.AILink)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "extraction service init failed")
		}

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("signal_handlers", signalHealthChecker{})
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		hm.RegisterChecker("store", storeHealthChecker{store: st})
		hm.RegisterChecker("app_identity", identityHealthChecker{
			binaryName: identity.BinaryName,
			envPrefix:  identity.EnvPrefix,
			configName: identity.ConfigName,
		})

		// Create server
		srv := server.New(server.Options{
			Host:              host,
			Port:              port,
			Extractor:         extractor,
			ClientLimiter:     limiter,
			UpstreamLimiter:   upstream,
			UpstreamEndpoint:  upstreamEndpoint(cfg),
			ClientHeader:      cfg.RateLimit.ClientHeader,
			TrustForwardedFor: cfg.RateLimit.TrustForwardedFor,
			MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		})

		// Set app identity for handlers
		handlers.SetAppIdentity(identity)

		// Get shutdown timeout from config
		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Shutdown HTTP server and stop the sweeper (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			close(sweeperStop)
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Register config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			if _, err := config.Load(ctx); err != nil {
				observability.ServerLogger.Error("Failed to reload config",
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully")

			// TODO: propagate reloaded rate limit settings into the running limiters
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", host),
				zap.Int("port", port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

// upstreamEndpoint resolves the provider driver id used to key the persisted
// upstream budget. Falls back to anthropic when nothing is configured.
func upstreamEndpoint(cfg *config.Config) string {
	if inst, ok := cfg.AILink.Providers[cfg.AILink.DefaultProvider]; ok {
		if driver := strings.TrimSpace(inst.AIProvider); driver != "" {
			return driver
		}
	}
	for _, inst := range cfg.AILink.Providers {
		if !inst.Enabled {
			continue
		}
		if driver := strings.TrimSpace(inst.AIProvider); driver != "" {
			return driver
		}
	}
	return "anthropic"
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
