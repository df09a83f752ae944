package factory

import (
	"context"
	"fmt"

	"go-image-enhancer/internal/analyzer"
	"go-image-enhancer/internal/config"
	"go-image-enhancer/internal/filter"
	"go-image-enhancer/internal/storage"
)

// ExtractorType represents different metrics extractors
type ExtractorType string

const (
	// PixelExtractor measures the decoded pixels
	PixelExtractor ExtractorType = config.ExtractorAnalyzer
	// StubExtractor derives repeatable metrics from the image digest
	StubExtractor ExtractorType = config.ExtractorStub
)

// BackendType represents different filter backends
type BackendType string

const (
	// BildBackend is the pure Go backend
	BildBackend BackendType = config.BackendBild
	// GoCVBackend uses OpenCV and needs the gocv build tag
	GoCVBackend BackendType = config.BackendGoCV
)

// ArtifactStoreType represents different stores for filtered outputs
type ArtifactStoreType string

const (
	// MemoryStore keeps outputs in process
	MemoryStore ArtifactStoreType = config.ArtifactStoreMemory
	// AzureStore keeps outputs in an Azure blob container
	AzureStore ArtifactStoreType = config.ArtifactStoreAzure
)

// ExtractorFactory creates metrics extractors
type ExtractorFactory interface {
	CreateExtractor(extractorType ExtractorType) (analyzer.Extractor, error)
}

// BackendFactory creates filter backends
type BackendFactory interface {
	CreateBackend(backendType BackendType) (filter.Backend, error)
}

// ArtifactStoreFactory creates artifact stores
type ArtifactStoreFactory interface {
	CreateArtifactStore(ctx context.Context, storeType ArtifactStoreType) (storage.ArtifactStore, error)
}

// extractorFactory implements ExtractorFactory
type extractorFactory struct {
	options analyzer.ExtractorOptions
}

// NewExtractorFactory creates a new extractor factory
func NewExtractorFactory(options analyzer.ExtractorOptions) ExtractorFactory {
	return &extractorFactory{options: options}
}

// CreateExtractor creates an extractor based on the specified type
func (f *extractorFactory) CreateExtractor(extractorType ExtractorType) (analyzer.Extractor, error) {
	switch extractorType {
	case PixelExtractor:
		return analyzer.NewExtractorWithOptions(f.options), nil
	case StubExtractor:
		return analyzer.NewStubExtractor(), nil
	default:
		return nil, fmt.Errorf("unsupported extractor type: %s", extractorType)
	}
}

// backendFactory implements BackendFactory
type backendFactory struct{}

// NewBackendFactory creates a new backend factory
func NewBackendFactory() BackendFactory {
	return &backendFactory{}
}

// CreateBackend creates a backend based on the specified type
func (f *backendFactory) CreateBackend(backendType BackendType) (filter.Backend, error) {
	switch backendType {
	case BildBackend:
		return filter.NewBildBackend(), nil
	case GoCVBackend:
		return filter.NewGoCVBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}
}

// AzureSettings holds the credentials for the Azure artifact store
type AzureSettings struct {
	Account   string
	Key       string
	Container string
}

// artifactStoreFactory implements ArtifactStoreFactory
type artifactStoreFactory struct {
	azure AzureSettings
}

// NewArtifactStoreFactory creates a new artifact store factory
func NewArtifactStoreFactory(azure AzureSettings) ArtifactStoreFactory {
	return &artifactStoreFactory{azure: azure}
}

// CreateArtifactStore creates a store based on the specified type
func (f *artifactStoreFactory) CreateArtifactStore(ctx context.Context, storeType ArtifactStoreType) (storage.ArtifactStore, error) {
	switch storeType {
	case MemoryStore:
		return storage.NewMemoryArtifactStore(), nil
	case AzureStore:
		if f.azure.Account == "" || f.azure.Key == "" {
			return nil, fmt.Errorf("azure artifact store requires an account and key")
		}
		return storage.NewAzureArtifactStore(ctx, f.azure.Account, f.azure.Key, f.azure.Container)
	default:
		return nil, fmt.Errorf("unsupported artifact store type: %s", storeType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ExtractorFactory     ExtractorFactory
	BackendFactory       BackendFactory
	ArtifactStoreFactory ArtifactStoreFactory
}

// NewComponentFactory creates a component factory configured from cfg
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		ExtractorFactory: NewExtractorFactory(analyzer.DefaultExtractorOptions().WithMaxDimension(cfg.AnalysisMaxDimension)),
		BackendFactory:   NewBackendFactory(),
		ArtifactStoreFactory: NewArtifactStoreFactory(AzureSettings{
			Account:   cfg.AzureAccount,
			Key:       cfg.AzureKey,
			Container: cfg.AzureContainer,
		}),
	}
}
