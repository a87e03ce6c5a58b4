// Package main implements the scrape-to-RAG gateway server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/AditiJR/EuclidPublic/engine/domain"
	"github.com/AditiJR/EuclidPublic/engine/ingest"
	"github.com/AditiJR/EuclidPublic/engine/rag"
	"github.com/AditiJR/EuclidPublic/engine/scraper"
	"github.com/AditiJR/EuclidPublic/engine/store"
	"github.com/AditiJR/EuclidPublic/pkg/metrics"
	"github.com/AditiJR/EuclidPublic/pkg/natsutil"
	"github.com/AditiJR/EuclidPublic/pkg/resilience"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	CORSOrigin  string
	ServiceName string
	LogLevel    slog.Level

	ApifyToken   string
	ApifyBaseURL string
	SensoAPIKey  string
	SensoBaseURL string

	UpstreamTimeout  time.Duration
	WriteTimeout     time.Duration
	ChunkSize        int
	ChunkOverlap     int
	StoreRateLimit   float64
	BreakerThreshold int
	BreakerTimeout   time.Duration

	NATSURL     string
	NATSSubject string
}

func loadConfig() (Config, error) {
	cfg := Config{
		Port:         envOr("PORT", "8080"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		ServiceName:  envOr("OTEL_SERVICE_NAME", "rag-gateway"),
		ApifyToken:   os.Getenv("APIFY_TOKEN"),
		ApifyBaseURL: envOr("APIFY_BASE_URL", scraper.DefaultBaseURL),
		SensoAPIKey:  os.Getenv("SENSO_API_KEY"),
		SensoBaseURL: envOr("SENSO_BASE_URL", store.DefaultBaseURL),
		NATSURL:      os.Getenv("NATS_URL"),
		NATSSubject:  envOr("NATS_SUBJECT", "rag.ingest.completed"),
	}

	var errs []error
	if cfg.ApifyToken == "" {
		errs = append(errs, errors.New("APIFY_TOKEN is required"))
	}
	if cfg.SensoAPIKey == "" {
		errs = append(errs, errors.New("SENSO_API_KEY is required"))
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	var err error
	if cfg.UpstreamTimeout, err = envDuration("UPSTREAM_TIMEOUT", 60*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.WriteTimeout, err = envDuration("WRITE_TIMEOUT", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.BreakerTimeout, err = envDuration("BREAKER_TIMEOUT", 30*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.ChunkSize, err = envInt("CHUNK_SIZE", ingest.DefaultChunkSize); err != nil {
		errs = append(errs, err)
	}
	if cfg.ChunkOverlap, err = envInt("CHUNK_OVERLAP", ingest.DefaultChunkOverlap); err != nil {
		errs = append(errs, err)
	}
	if cfg.BreakerThreshold, err = envInt("BREAKER_THRESHOLD", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.StoreRateLimit, err = envFloat("STORE_RATE_LIMIT", 0); err != nil {
		errs = append(errs, err)
	}
	if err := ingest.ValidateWindow(cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE/CHUNK_OVERLAP: %w", err))
	}
	return cfg, errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: invalid non-negative integer %q", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%s: invalid non-negative number %q", key, v)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Optional event publisher (NATS) ---
	var publisher ingest.Publisher
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		pub := natsutil.NewPublisher(nc, cfg.NATSSubject)
		publisher = pub
		logger.Info("ingest events enabled", "subject", pub.Subject())
	}

	svc, err := buildServices(cfg, publisher, logger)
	if err != nil {
		return err
	}

	// --- Build HTTP server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(cfg, svc, metrics.New(), logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// buildServices wires the upstream clients into the ingest and search flows.
// publisher may be nil.
func buildServices(cfg Config, publisher ingest.Publisher, logger *slog.Logger) (services, error) {
	httpClient := &http.Client{
		Timeout:   cfg.UpstreamTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	breakers := map[string]*resilience.Breaker{}
	var scrapeBreaker, storeBreaker *resilience.Breaker
	if cfg.BreakerThreshold > 0 {
		opts := resilience.BreakerOpts{
			FailThreshold: cfg.BreakerThreshold,
			Timeout:       cfg.BreakerTimeout,
			IsFailure:     domain.IsOutage,
		}
		scrapeBreaker = resilience.NewBreaker(opts)
		storeBreaker = resilience.NewBreaker(opts)
		breakers["scraper"], breakers["store"] = scrapeBreaker, storeBreaker
	}

	scrapeClient := scraper.New(cfg.ApifyToken, scraper.Options{
		BaseURL:    cfg.ApifyBaseURL,
		HTTPClient: httpClient,
		Breaker:    scrapeBreaker,
	})
	storeClient := store.New(cfg.SensoAPIKey, store.Options{
		BaseURL:    cfg.SensoBaseURL,
		HTTPClient: httpClient,
		RateLimit:  cfg.StoreRateLimit,
		Breaker:    storeBreaker,
	})

	ingestSvc, err := ingest.New(scrapeClient, storeClient, publisher,
		ingest.Options{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap}, logger)
	if err != nil {
		return services{}, fmt.Errorf("ingest service: %w", err)
	}
	return services{
		ingest:   ingestSvc,
		search:   rag.New(storeClient, logger),
		breakers: breakers,
	}, nil
}
