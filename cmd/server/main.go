// Package main is the entry point for the Prism server binary. It dispatches
// three subcommands — serve, migrate, and version — via a simple switch on
// os.Args so the binary's full CLI surface is readable in one place without
// requiring a cobra dependency. The serve command runs auto-migration on
// startup so freshly deployed containers never need a separate migration step.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prism-hq/prism-server/internal/api"
	"github.com/prism-hq/prism-server/internal/audit"
	"github.com/prism-hq/prism-server/internal/config"
	"github.com/prism-hq/prism-server/internal/db"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/jobs"
	"github.com/prism-hq/prism-server/internal/safego"
	"github.com/prism-hq/prism-server/internal/telemetry"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "version":
		fmt.Printf("Prism Server v%s\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, version", command)
	}
}

func serve(cfg *config.Config) error {
	// Initialise structured logging as early as possible so all subsequent
	// output uses the configured format (json / text) and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Info("database config",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"user", cfg.Database.User,
		"name", cfg.Database.Name,
		"ssl_mode", cfg.Database.SSLMode,
	)

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	slog.Info("connected to database")

	// Begin exporting DB pool statistics to Prometheus.
	telemetry.StartDBStatsCollector(database)

	// Run migrations automatically on startup.
	slog.Info("running database migrations")
	if err := db.Migrate(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("database migrations completed")

	// Serve Prometheus metrics on a dedicated port so the scrape path is not
	// reachable through the public API ingress.
	if cfg.Telemetry.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.PrometheusPort)
		safego.Go("metrics-server", func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		})
	}

	router, bgServices, err := api.NewRouter(cfg, database)
	if err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	jobsCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	startBackgroundJobs(jobsCtx, cfg, database)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.Server.GetAddress(), "base_url", cfg.Server.BaseURL, "environment", cfg.Environment)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Stop rate limiter and job goroutines after in-flight requests drain.
	stopJobs()
	bgServices.Shutdown()

	slog.Info("server stopped gracefully")
	return nil
}

// startBackgroundJobs launches the invitation reaper and, when configured,
// the audit export job.
func startBackgroundJobs(ctx context.Context, cfg *config.Config, database *sql.DB) {
	invitationRepo := repositories.NewInvitationRepository(sqlx.NewDb(database, "postgres"))
	reaper := jobs.NewInvitationReaper(invitationRepo, time.Hour)
	safego.Go("invitation-reaper", func() { reaper.Start(ctx) })

	if !cfg.AuditExport.Enabled {
		return
	}

	var shipperConfigs []audit.ShipperConfig
	if cfg.AuditExport.FilePath != "" {
		shipperConfigs = append(shipperConfigs, audit.ShipperConfig{
			Enabled: true,
			Type:    "file",
			File:    &audit.FileConfig{Path: cfg.AuditExport.FilePath},
		})
	}
	if cfg.AuditExport.WebhookURL != "" {
		shipperConfigs = append(shipperConfigs, audit.ShipperConfig{
			Enabled: true,
			Type:    "webhook",
			Webhook: &audit.WebhookConfig{URL: cfg.AuditExport.WebhookURL},
		})
	}

	shipper, err := audit.NewMultiShipper(shipperConfigs)
	if err != nil {
		slog.Error("failed to configure audit export, continuing without it", "error", err)
		return
	}

	exporter := jobs.NewAuditExporter(repositories.NewAuditRepository(database), shipper, cfg.AuditExport.Interval)
	safego.Go("audit-exporter", func() { exporter.Start(ctx) })
}

func runMigrations(cfg *config.Config, direction string) error {
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if direction != "up" && direction != "down" {
		return fmt.Errorf("invalid migration direction: %s (must be 'up' or 'down')", direction)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)
	if err := db.Migrate(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("migrations completed", "direction", direction)
	return nil
}
