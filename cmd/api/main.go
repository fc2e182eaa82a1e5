package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/viradabrew/storefront/internal/auth"
	"github.com/viradabrew/storefront/internal/cache"
	"github.com/viradabrew/storefront/internal/catalog"
	"github.com/viradabrew/storefront/internal/config"
	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/mercadopago"
	"github.com/viradabrew/storefront/internal/messaging"
	"github.com/viradabrew/storefront/internal/orders"
	"github.com/viradabrew/storefront/internal/payments"
	"github.com/viradabrew/storefront/internal/pix"
	"github.com/viradabrew/storefront/internal/telemetry"
	"github.com/viradabrew/storefront/internal/users"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := telemetry.NewLogger(os.Stdout)

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	ctx := context.Background()

	tracerShutdown, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to init tracer provider", "error", err)
		os.Exit(1)
	}

	metricsHandler, meterShutdown, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to init meter provider", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var statusCache payments.Cache
	if cfg.RedisAddr != "" {
		redisCache := cache.New(cfg.RedisAddr)
		defer func() { _ = redisCache.Close() }()
		statusCache = redisCache
	}

	var publisher payments.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, domain.TopicPaymentUpdated)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	gatewayClient := mercadopago.NewClient(cfg.GatewayBaseURL, cfg.GatewayAccessToken, &http.Client{
		Timeout:   15 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})

	ordersRepo := orders.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	usersRepo := users.NewRepository(db)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret)
	authMW := auth.NewMiddleware(issuer, logger)

	orderService := orders.NewService(ordersRepo, catalogRepo, logger)
	intentService := payments.NewIntentService(gatewayClient, ordersRepo, cfg.FrontendURL, cfg.BackendURL, logger)
	reconciler := payments.NewReconciler(gatewayClient, ordersRepo, catalogRepo, statusCache, publisher, logger)
	refundService := payments.NewRefundService(gatewayClient, ordersRepo, catalogRepo, statusCache, publisher, logger)

	merchant := pix.Merchant{Key: cfg.PixKey, Name: cfg.MerchantName, City: cfg.MerchantCity}

	usersHandler := users.NewHandler(usersRepo, issuer, logger)
	catalogHandler := catalog.NewHandler(catalogRepo, logger)
	ordersHandler := orders.NewHandler(orderService, logger)
	paymentsHandler := payments.NewHandler(orderService, intentService, refundService, reconciler,
		ordersRepo, statusCache, merchant, cfg.WebhookSecret, logger)

	route := telemetry.WithHTTPRoute
	user := func(h http.HandlerFunc) http.HandlerFunc { return route(authMW.Require(h)) }
	admin := func(h http.HandlerFunc) http.HandlerFunc { return route(authMW.RequireAdmin(h)) }

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", route(usersHandler.HandleRegister))
	mux.HandleFunc("POST /api/auth/login", route(usersHandler.HandleLogin))

	mux.HandleFunc("GET /api/beers", route(catalogHandler.HandleList))
	mux.HandleFunc("GET /api/beers/{id}", route(catalogHandler.HandleGet))
	mux.HandleFunc("POST /api/beers", admin(catalogHandler.HandleCreate))
	mux.HandleFunc("PUT /api/beers/{id}", admin(catalogHandler.HandleUpdate))
	mux.HandleFunc("DELETE /api/beers/{id}", admin(catalogHandler.HandleDelete))

	mux.HandleFunc("POST /api/orders", user(ordersHandler.HandleCreate))
	mux.HandleFunc("GET /api/orders", user(ordersHandler.HandleListMine))
	mux.HandleFunc("GET /api/orders/all", admin(ordersHandler.HandleListAll))
	mux.HandleFunc("GET /api/orders/{id}", user(ordersHandler.HandleGet))
	mux.HandleFunc("PATCH /api/orders/{id}/status", admin(ordersHandler.HandleUpdateStatus))
	mux.HandleFunc("POST /api/orders/{id}/cancel", admin(paymentsHandler.HandleCancel))

	mux.HandleFunc("POST /api/payments/create-preference", user(paymentsHandler.HandleCreatePreference))
	mux.HandleFunc("POST /api/payments/create-pix-payment", user(paymentsHandler.HandleCreatePixCharge))
	mux.HandleFunc("POST /api/payments/static-pix", user(paymentsHandler.HandleStaticPix))
	mux.HandleFunc("GET /api/payments/{orderId}/status", user(paymentsHandler.HandleStatus))
	mux.HandleFunc("POST /api/payments/webhook", route(paymentsHandler.HandleWebhook))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      otelhttp.NewHandler(mux, "http.server"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting storefront api", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := tracerShutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", "error", err)
	}
	if err := meterShutdown(shutdownCtx); err != nil {
		logger.Error("meter shutdown error", "error", err)
	}
}
