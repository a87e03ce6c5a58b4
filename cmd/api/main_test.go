package main

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APIFY_TOKEN", "apify-token")
	t.Setenv("SENSO_API_KEY", "senso-key")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.CORSOrigin != "*" {
		t.Fatalf("expected default CORS *, got %s", cfg.CORSOrigin)
	}
	if cfg.SensoBaseURL != "https://sdk.senso.ai/api/v1" {
		t.Fatalf("unexpected store base url %s", cfg.SensoBaseURL)
	}
	if cfg.ChunkSize != 4000 || cfg.ChunkOverlap != 300 {
		t.Fatalf("unexpected chunk window %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.UpstreamTimeout != 60*time.Second {
		t.Fatalf("unexpected upstream timeout %v", cfg.UpstreamTimeout)
	}
	if cfg.WriteTimeout != 0 {
		t.Fatalf("write timeout should be unset by default, got %v", cfg.WriteTimeout)
	}
	if cfg.BreakerThreshold != 0 || cfg.StoreRateLimit != 0 || cfg.NATSURL != "" {
		t.Fatalf("optional features should be off by default: %+v", cfg)
	}
	if cfg.NATSSubject != "rag.ingest.completed" {
		t.Fatalf("unexpected nats subject %s", cfg.NATSSubject)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHUNK_SIZE", "1000")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("WRITE_TIMEOUT", "2m")
	t.Setenv("STORE_RATE_LIMIT", "2.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 100 {
		t.Fatalf("unexpected chunk window %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.UpstreamTimeout != 5*time.Second || cfg.WriteTimeout != 2*time.Minute || cfg.StoreRateLimit != 2.5 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.LogLevel.String() != "DEBUG" {
		t.Fatalf("expected debug level, got %s", cfg.LogLevel)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing token", map[string]string{"SENSO_API_KEY": "k"}, "APIFY_TOKEN is required"},
		{"missing key", map[string]string{"APIFY_TOKEN": "t"}, "SENSO_API_KEY is required"},
		{"overlap too large", map[string]string{"APIFY_TOKEN": "t", "SENSO_API_KEY": "k", "CHUNK_SIZE": "100", "CHUNK_OVERLAP": "100"}, "CHUNK_SIZE/CHUNK_OVERLAP"},
		{"bad int", map[string]string{"APIFY_TOKEN": "t", "SENSO_API_KEY": "k", "CHUNK_SIZE": "big"}, "CHUNK_SIZE"},
		{"bad duration", map[string]string{"APIFY_TOKEN": "t", "SENSO_API_KEY": "k", "UPSTREAM_TIMEOUT": "soon"}, "UPSTREAM_TIMEOUT"},
		{"bad level", map[string]string{"APIFY_TOKEN": "t", "SENSO_API_KEY": "k", "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APIFY_TOKEN", "")
			t.Setenv("SENSO_API_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("TEST_ENV_VAR_XYZ", "custom")
	if v := envOr("TEST_ENV_VAR_XYZ", "default"); v != "custom" {
		t.Fatalf("expected custom, got %s", v)
	}
	if v := envOr("NONEXISTENT_VAR_ABC", "fallback"); v != "fallback" {
		t.Fatalf("expected fallback, got %s", v)
	}
}
