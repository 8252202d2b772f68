package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/russhil/backend-parchi/internal/api/router"
	appconfig "github.com/russhil/backend-parchi/internal/config"
	"github.com/russhil/backend-parchi/internal/observability/metrics"
	"github.com/russhil/backend-parchi/internal/parchi"
	"github.com/russhil/backend-parchi/internal/registry"
	"github.com/russhil/backend-parchi/internal/whatsapp"
	"github.com/russhil/backend-parchi/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting parchi intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Patient and appointment storage
	var reg registry.Registry
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		reg = registry.NewPostgresRegistry(pool)
		logger.Info("patient registry backed by postgres")
	} else {
		reg = registry.NewInMemoryRegistry()
		logger.Warn("DATABASE_URL not set, patient registry is in-memory and resets on restart")
	}

	// Optional Redis cache for extracted text
	var cache *parchi.ExtractionCache
	if cfg.RedisAddr != "" {
		redisOptions := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb := redis.NewClient(redisOptions)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not available, extraction cache disabled", "error", err)
		} else {
			cache = parchi.NewExtractionCache(rdb, cfg.ExtractCacheTTL)
			logger.Info("extraction cache enabled", "ttl", cfg.ExtractCacheTTL.String())
		}
	}

	if cfg.GeminiAPIKey == "" {
		logger.Error("GOOGLE_API_KEY is required")
		os.Exit(1)
	}

	// Vision and parsing models
	vision, err := parchi.NewGeminiVision(ctx, cfg.GeminiAPIKey, cfg.GeminiVisionModel)
	if err != nil {
		logger.Error("failed to initialize vision model", "error", err)
		os.Exit(1)
	}
	defer vision.Close()

	normalizer, err := parchi.NewNormalizer(cfg.CountryCode, cfg.ClinicTimezone)
	if err != nil {
		logger.Error("failed to initialize normalizer", "error", err)
		os.Exit(1)
	}

	primary, err := parchi.NewGeminiParser(ctx, cfg.GeminiAPIKey, cfg.GeminiParserModel, normalizer.Location())
	if err != nil {
		logger.Error("failed to initialize entry parser", "error", err)
		os.Exit(1)
	}
	defer primary.Close()

	var entryParser parchi.EntryParser = primary
	if cfg.FallbackLLMAPIKey != "" {
		occfg := openai.DefaultConfig(cfg.FallbackLLMAPIKey)
		if cfg.FallbackLLMBaseURL != "" {
			occfg.BaseURL = cfg.FallbackLLMBaseURL
		}
		fallback := parchi.NewOpenAIParser(openai.NewClientWithConfig(occfg), cfg.FallbackLLMModel, normalizer.Location())
		entryParser = parchi.NewFallbackParser(primary, fallback, logger.Logger)
		logger.Info("fallback entry parser enabled", "model", cfg.FallbackLLMModel)
	}

	pipelineMetrics := metrics.NewPipelineMetrics(nil)

	// Optional WhatsApp messenger; without credentials confirmations are skipped
	var messenger parchi.Messenger
	if cfg.WhatsAppAccessToken != "" && cfg.WhatsAppPhoneNumberID != "" {
		wa, err := whatsapp.New(whatsapp.Config{
			AccessToken:   cfg.WhatsAppAccessToken,
			PhoneNumberID: cfg.WhatsAppPhoneNumberID,
			GraphVersion:  cfg.WhatsAppGraphVersion,
			TemplateName:  cfg.WhatsAppTemplate,
			HeaderImageID: cfg.WhatsAppHeaderImageID,
			Timeout:       cfg.WhatsAppTimeout,
			MaxRetries:    cfg.NotifyRetryMax,
			Backoff:       cfg.NotifyRetryBaseDelay,
			Logger:        logger.Logger,
		})
		if err != nil {
			logger.Error("failed to initialize whatsapp client", "error", err)
			os.Exit(1)
		}
		messenger = wa
	} else {
		logger.Warn("whatsapp credentials not set, confirmations will not be sent")
	}

	// Pipeline services
	notifier := parchi.NewNotifier(reg, messenger, cfg.PublicBaseURL, cfg.CountryCode, logger, pipelineMetrics)
	matcher := parchi.NewMatcher(reg, parchi.ParseDuplicateWindow(cfg.DuplicateWindow))
	processor := parchi.NewProcessor(normalizer, matcher, reg, notifier, parchi.ProcessorConfig{
		Workers:          cfg.Workers,
		NotifyDuplicates: cfg.NotifyDuplicates,
		RegistryTimeout:  cfg.RegistryTimeout,
	}, logger, pipelineMetrics)
	uploads := parchi.NewUploadService(vision, entryParser, cache, normalizer, parchi.UploadConfig{
		MaxImageBytes:  cfg.MaxUploadBytes,
		ExtractTimeout: cfg.ExtractTimeout,
		ParseTimeout:   cfg.ParseTimeout,
	}, logger, pipelineMetrics)

	// Initialize handlers
	parchiHandler := parchi.NewHandler(uploads, processor, cfg.MaxUploadBytes, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		ParchiHandler:      parchiHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: splitOrigins(cfg.CORSAllowedOrigins),
		UploadRateLimit:    cfg.UploadRateLimit,
		UploadRateWindow:   cfg.UploadRateWindow,
		VisionModel:        cfg.GeminiVisionModel,
		AIConfigured:       cfg.GeminiAPIKey != "",
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func splitOrigins(s string) []string {
	var origins []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
