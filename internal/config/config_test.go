package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"HOST", "PORT", "REQUEST_TIMEOUT", "APPLY_TIMEOUT", "RECOMMEND_LATENCY",
		"METRICS_EXTRACTOR", "FILTER_BACKEND", "ARTIFACT_STORE", "ANALYSIS_MAX_DIMENSION",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Expected default address, got %s", cfg.ServerAddress())
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected 30s request timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.RecommendLatency != 0 {
		t.Errorf("Expected no recommend latency, got %s", cfg.RecommendLatency)
	}
	if cfg.MetricsExtractor != ExtractorAnalyzer || cfg.FilterBackend != BackendBild || cfg.ArtifactStore != ArtifactStoreMemory {
		t.Errorf("Unexpected component defaults: %+v", cfg)
	}
	if cfg.AnalysisMaxDimension != 1024 {
		t.Errorf("Expected 1024 analysis dimension, got %d", cfg.AnalysisMaxDimension)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RECOMMEND_LATENCY", "750ms")
	t.Setenv("METRICS_EXTRACTOR", "STUB")
	t.Setenv("APPLY_TIMEOUT", "not-a-duration")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.RecommendLatency != 750*time.Millisecond {
		t.Errorf("Expected 750ms latency, got %s", cfg.RecommendLatency)
	}
	if cfg.MetricsExtractor != ExtractorStub {
		t.Errorf("Expected stub extractor, got %s", cfg.MetricsExtractor)
	}
	if cfg.ApplyTimeout != 20*time.Second {
		t.Errorf("Expected invalid duration to fall back to default, got %s", cfg.ApplyTimeout)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad port", map[string]string{"PORT": "70000"}, "invalid PORT"},
		{"non numeric port", map[string]string{"PORT": "http"}, "invalid PORT"},
		{"body size", map[string]string{"MAX_REQUEST_BODY_SIZE": "0"}, "MAX_REQUEST_BODY_SIZE"},
		{"backend", map[string]string{"FILTER_BACKEND": "vips"}, "FILTER_BACKEND"},
		{"extractor", map[string]string{"METRICS_EXTRACTOR": "ai"}, "METRICS_EXTRACTOR"},
		{"azure without credentials", map[string]string{"ARTIFACT_STORE": "azure", "AZURE_STORAGE_ACCOUNT": "", "AZURE_STORAGE_KEY": ""}, "AZURE_STORAGE_ACCOUNT"},
		{"tiny analysis size", map[string]string{"ANALYSIS_MAX_DIMENSION": "4"}, "ANALYSIS_MAX_DIMENSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
