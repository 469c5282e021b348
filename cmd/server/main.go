package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/fr0stylo/abacate/internal/adapters/sqlite"
	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/internal/app/services"
	"github.com/fr0stylo/abacate/internal/config"
	"github.com/fr0stylo/abacate/internal/db"
	"github.com/fr0stylo/abacate/internal/notify"
	"github.com/fr0stylo/abacate/internal/observability"
	"github.com/fr0stylo/abacate/internal/server"
	"github.com/fr0stylo/abacate/internal/server/routes"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	log := observability.NewLogger(os.Stdout, "info", "text")
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log = observability.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)
	if cfg.IsLocalDevelopment() && cfg.Auth.AdminJWTSecret == "abacate-local-dev" {
		slog.Warn("ABACATE_ADMIN_JWT_SECRET not set, using local development fallback")
	}

	shutdownTelemetry, err := observability.SetupOpenTelemetry(context.Background(), log, observability.OpenTelemetryConfig{
		Enabled:           cfg.Observability.Enabled,
		Environment:       cfg.Environment,
		OTLPEndpoint:      cfg.Observability.OTLPEndpoint,
		OTLPTraceHeaders:  cfg.Observability.OTLPTraceHeaders,
		OTLPMetricHeaders: cfg.Observability.OTLPMetricHeaders,
		ServiceName:       cfg.Observability.ServiceName,
		ServiceVer:        cfg.Observability.ServiceVer,
		SamplingRatio:     cfg.Observability.SamplingRatio,
		MetricsConsole:    cfg.Observability.MetricsConsole,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	if cfg.Database.LogTiming {
		go logDBLatencyStats(log, database)
	}

	store := sqlite.NewStore(database)
	settings := gatewaySettings(cfg.Gateway)
	if settings.Credentials.Current() == "" {
		slog.Warn("AbacatePay API key not configured for active mode", "mode", settings.Credentials.Mode())
	}

	providerLog := log.With("component", "abacatepay")
	httpClient := observability.HTTPClient("abacatepay", cfg.Gateway.Timeout)
	provider := func(apiKey string) ports.ProviderClient {
		return cfg.Gateway.Client(httpClient, providerLog).WithAPIKey(apiKey)
	}

	gatewayOpts := []services.GatewayOption{services.WithGatewayLogger(log)}
	webhookOpts := []services.WebhookOption{
		services.WithWebhookAudit(store),
		services.WithWebhookLogger(log),
	}
	if cfg.Notify.SinkURL != "" {
		notifier, err := notify.NewCloudEventsNotifier(cfg.Notify.SinkURL, cfg.Notify.Source, cfg.Notify.Timeout)
		if err != nil {
			return fmt.Errorf("failed to create order notifier: %w", err)
		}
		gatewayOpts = append(gatewayOpts, services.WithGatewayNotifier(notifier))
		webhookOpts = append(webhookOpts, services.WithWebhookNotifier(notifier, cfg.Notify.Timeout))
		slog.Info("Publishing order events", "sink", cfg.Notify.SinkURL)
	}

	gateway := services.NewGateway(settings, store, provider, gatewayOpts...)
	webhooks := services.NewWebhookService(settings, store, webhookOpts...)

	srv := server.New(log)
	srv.RegisterRouter(routes.NewWebhookRoutes(webhooks))
	srv.RegisterRouter(routes.NewAPIRoutes(gateway, store, cfg.Auth.AdminJWTSecret))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "mode", settings.Credentials.Mode(), "gateway_enabled", settings.Enabled)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	webhooks.Wait()
	return err
}

func main() {
	if err := Run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func gatewaySettings(cfg config.GatewayConfig) services.GatewaySettings {
	return services.GatewaySettings{
		Enabled:        cfg.Enabled,
		Title:          cfg.Title,
		Description:    cfg.Description,
		Credentials:    cfg.Credentials(),
		PaymentMethods: cfg.PaymentMethods,
		WebhookURL:     cfg.WebhookURL,
		ReturnURL:      cfg.ReturnURL,
		PixExpiresIn:   cfg.PixExpiresIn,
	}
}

func logDBLatencyStats(log *slog.Logger, database *db.Database) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for _, entry := range database.SlowestQueries(5) {
			log.Info("db_query_latency",
				"query", entry.Name,
				"count", entry.Count,
				"errors", entry.Errors,
				"p50_ms", entry.P50.Milliseconds(),
				"p95_ms", entry.P95.Milliseconds(),
				"max_ms", entry.Max.Milliseconds(),
			)
		}
	}
}
