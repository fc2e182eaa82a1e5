package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/viradabrew/storefront/internal/config"
	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/messaging"
	"github.com/viradabrew/storefront/internal/telemetry"
	"github.com/viradabrew/storefront/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := telemetry.NewLogger(os.Stdout)

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.EmailRelayURL == "" {
		logger.Error("EMAIL_RELAY_URL environment variable is required")
		os.Exit(1)
	}

	tracerShutdown, err := telemetry.InitTracerProvider(context.Background(), cfg.ServiceName+"-worker", cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to init tracer provider", "error", err)
		os.Exit(1)
	}

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, domain.TopicPaymentUpdated, "email-notifier")
	defer func() { _ = consumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	notificationHandler := worker.NewNotificationHandler(cfg.EmailRelayURL, httpClient, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = tracerShutdown(shutdownCtx)
	}()

	logger.Info("starting notification worker", "brokers", cfg.KafkaBrokers)

	if err := consumer.Consume(ctx, notificationHandler.Handle); err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
