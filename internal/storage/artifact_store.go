package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrArtifactNotFound is returned when no artifact exists under a key
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is a stored output
type Artifact struct {
	Data        []byte
	ContentType string
}

// ArtifactStore keeps filtered outputs available for download
type ArtifactStore interface {
	Put(ctx context.Context, key string, artifact Artifact) error
	Get(ctx context.Context, key string) (Artifact, error)
	DeletePrefix(ctx context.Context, prefix string) error
	Name() string
}

// memoryArtifactStore keeps artifacts in process memory
type memoryArtifactStore struct {
	mu        sync.RWMutex
	artifacts map[string]Artifact
}

// NewMemoryArtifactStore creates an in-memory artifact store
func NewMemoryArtifactStore() ArtifactStore {
	return &memoryArtifactStore{artifacts: make(map[string]Artifact)}
}

func (s *memoryArtifactStore) Name() string {
	return "memory"
}

func (s *memoryArtifactStore) Put(ctx context.Context, key string, artifact Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := make([]byte, len(artifact.Data))
	copy(data, artifact.Data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[key] = Artifact{Data: data, ContentType: artifact.ContentType}
	return nil
}

func (s *memoryArtifactStore) Get(ctx context.Context, key string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[key]
	if !ok {
		return Artifact{}, ErrArtifactNotFound
	}
	return a, nil
}

func (s *memoryArtifactStore) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.artifacts {
		if strings.HasPrefix(key, prefix) {
			delete(s.artifacts, key)
		}
	}
	return nil
}
