package container

import (
	"context"
	"fmt"
	"net/http"

	"go-image-enhancer/internal/config"
	"go-image-enhancer/internal/factory"
	"go-image-enhancer/internal/filter"
	"go-image-enhancer/internal/logger"
	"go-image-enhancer/internal/observer"
	"go-image-enhancer/internal/recommend"
	"go-image-enhancer/internal/repository"
	"go-image-enhancer/internal/service"
	"go-image-enhancer/internal/storage"
	"go-image-enhancer/internal/task"
	"go-image-enhancer/internal/transport"

	"github.com/sirupsen/logrus"
)

// maxSessions bounds the number of live sessions held in memory
const maxSessions = 1000

// Container holds all application dependencies
type Container struct {
	config             *config.Config
	sessions           *repository.MemorySessionRepository
	pool               *task.Pool
	metrics            *observer.MetricsObserver
	enhancementService service.EnhancementService
	handler            http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.SetLevel(cfg.LogLevel)
	components := factory.NewComponentFactory(cfg)

	// Build dependency graph
	extractor, err := components.ExtractorFactory.CreateExtractor(factory.ExtractorType(cfg.MetricsExtractor))
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	backend, err := components.BackendFactory.CreateBackend(factory.BackendType(cfg.FilterBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to create filter backend: %w", err)
	}
	artifacts, err := components.ArtifactStoreFactory.CreateArtifactStore(context.Background(), factory.ArtifactStoreType(cfg.ArtifactStore))
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	fetcherOptions := storage.DefaultFetcherOptions()
	fetcherOptions.Timeout = cfg.ImageFetchTimeout
	fetcherOptions.MaxBytes = cfg.MaxRequestBodySize

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	sessions := repository.NewMemorySessionRepository(maxSessions)
	pool := task.NewPool(cfg.TaskWorkers)

	enhancementService := service.NewEnhancementService(service.Dependencies{
		Sessions:  sessions,
		Extractor: extractor,
		Advisor:   recommend.NewRuleEngine(),
		Pipeline:  filter.NewPipeline(backend),
		Fetcher:   storage.NewHTTPImageFetcher(fetcherOptions),
		Artifacts: artifacts,
		Pool:      pool,
		Events:    events,
		Metrics:   metrics,
	}, service.Options{
		RecommendLatency: cfg.RecommendLatency,
		ApplyTimeout:     cfg.ApplyTimeout,
		FetchTimeout:     cfg.ImageFetchTimeout,
	})
	handler := transport.NewHandler(enhancementService, cfg)

	logger.WithFields(logrus.Fields{
		"extractor":      extractor.Name(),
		"filter_backend": backend.Name(),
		"artifact_store": artifacts.Name(),
		"task_workers":   pool.GetStats().Workers,
	}).Info("Components initialized")

	return &Container{
		config:             cfg,
		sessions:           sessions,
		pool:               pool,
		metrics:            metrics,
		enhancementService: enhancementService,
		handler:            handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close cancels in-flight session work and stops the worker pool
func (c *Container) Close() {
	c.sessions.CloseAll()
	c.enhancementService.Close()
}
