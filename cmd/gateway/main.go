package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/embedchat/embedchat-gateway/internal/billing"
	"github.com/embedchat/embedchat-gateway/internal/config"
	"github.com/embedchat/embedchat-gateway/internal/domain"
	billingfd "github.com/embedchat/embedchat-gateway/internal/frontdoor/billing"
	"github.com/embedchat/embedchat-gateway/internal/frontdoor/chat"
	"github.com/embedchat/embedchat-gateway/internal/server"
	"github.com/embedchat/embedchat-gateway/internal/storage"
	"github.com/embedchat/embedchat-gateway/internal/storage/sqlite"
	"github.com/embedchat/embedchat-gateway/internal/telemetry"
	"github.com/embedchat/embedchat-gateway/internal/upstream/openai"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	shutdownTracer, err := telemetry.InitTracer("embedchat-gateway", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	// Lazily opened, reconnecting store handle shared by all handlers.
	handle := storage.NewHandle(func(ctx context.Context) (storage.Store, error) {
		return sqlite.New(cfg.Storage.Path)
	}, 5*time.Second)
	defer handle.Close()

	var upstreamOpts []openai.ClientOption
	if cfg.OpenAI.BaseURL != "" {
		upstreamOpts = append(upstreamOpts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	upstream := openai.NewClient(cfg.OpenAI.APIKey, upstreamOpts...)

	chatHandler := chat.NewHandler(
		handle,
		upstream,
		cfg.OpenAI.Model,
		domain.AccessMode(cfg.Gatekeeper.Mode),
		time.Duration(cfg.Gatekeeper.RateLimitMS)*time.Millisecond,
		logger,
	)

	var checkout *billing.Checkout
	if cfg.Stripe.SecretKey != "" {
		checkout, err = billing.NewCheckout(cfg.Stripe.SecretKey, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)
		if err != nil {
			log.Fatalf("Failed to initialize billing: %v", err)
		}
	} else {
		logger.Warn("stripe secret key not set, checkout endpoint disabled")
	}

	issuer := billing.NewIssuer(handle.Lazy(), cfg.Stripe.WebhookSecret, logger)
	billingHandler := billingfd.NewHandler(handle, checkout, issuer, logger)

	srv := server.New(cfg.Server.Port, cfg.Server.AllowedOrigins, logger)
	srv.Router.Post("/v1/chat", chatHandler.HandleChat)
	srv.Router.Get("/v1/license", billingHandler.HandleLicenseLookup)
	srv.Router.Post("/v1/checkout", billingHandler.HandleCreateCheckout)
	srv.Router.Post("/v1/stripe/webhook", billingHandler.HandleWebhook)
	srv.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("gateway shutdown complete")
}
