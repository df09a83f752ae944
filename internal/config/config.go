package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend and store names accepted by the factories
const (
	ExtractorAnalyzer = "analyzer"
	ExtractorStub     = "stub"

	BackendBild = "bild"
	BackendGoCV = "gocv"

	ArtifactStoreMemory = "memory"
	ArtifactStoreAzure  = "azure"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	ApplyTimeout       time.Duration
	RecommendLatency   time.Duration
	MaxRequestBodySize int64

	// Metrics extraction
	MetricsExtractor     string
	AnalysisMaxDimension int

	// Filter application
	FilterBackend string
	TaskWorkers   int

	// Artifact storage
	ArtifactStore  string
	AzureAccount   string
	AzureKey       string
	AzureContainer string

	LogLevel string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:                 getEnvOrDefault("HOST", "0.0.0.0"),
		Port:                 getEnvOrDefault("PORT", "8080"),
		RequestTimeout:       parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:    parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		ApplyTimeout:         parseDurationOrDefault("APPLY_TIMEOUT", 20*time.Second),
		RecommendLatency:     parseNonNegativeDurationOrDefault("RECOMMEND_LATENCY", 0),
		MaxRequestBodySize:   parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MetricsExtractor:     strings.ToLower(getEnvOrDefault("METRICS_EXTRACTOR", ExtractorAnalyzer)),
		AnalysisMaxDimension: int(parseIntOrDefault("ANALYSIS_MAX_DIMENSION", 1024)),
		FilterBackend:        strings.ToLower(getEnvOrDefault("FILTER_BACKEND", BackendBild)),
		TaskWorkers:          int(parseIntOrDefault("TASK_WORKERS", 0)),
		ArtifactStore:        strings.ToLower(getEnvOrDefault("ARTIFACT_STORE", ArtifactStoreMemory)),
		AzureAccount:         os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:             os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer:       getEnvOrDefault("AZURE_STORAGE_CONTAINER", "filtered-images"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.ApplyTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, apply=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.ApplyTimeout)
	}
	if c.AnalysisMaxDimension < 16 {
		return fmt.Errorf("ANALYSIS_MAX_DIMENSION must be >= 16 (got %d)", c.AnalysisMaxDimension)
	}
	if c.TaskWorkers < 0 {
		return fmt.Errorf("TASK_WORKERS must be >= 0 (got %d)", c.TaskWorkers)
	}

	switch c.MetricsExtractor {
	case ExtractorAnalyzer, ExtractorStub:
	default:
		return fmt.Errorf("unsupported METRICS_EXTRACTOR: %q", c.MetricsExtractor)
	}
	switch c.FilterBackend {
	case BackendBild, BackendGoCV:
	default:
		return fmt.Errorf("unsupported FILTER_BACKEND: %q", c.FilterBackend)
	}
	switch c.ArtifactStore {
	case ArtifactStoreMemory:
	case ArtifactStoreAzure:
		if c.AzureAccount == "" || c.AzureKey == "" {
			return fmt.Errorf("ARTIFACT_STORE=azure requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
	default:
		return fmt.Errorf("unsupported ARTIFACT_STORE: %q", c.ArtifactStore)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

// parseNonNegativeDurationOrDefault accepts "0s" as a valid value
func parseNonNegativeDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
