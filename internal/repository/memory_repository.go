package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"go-image-enhancer/internal/session"
)

// MemorySessionRepository keeps sessions in process memory
type MemorySessionRepository struct {
	mu          sync.RWMutex
	sessions    map[string]*session.Session
	maxSessions int
}

// NewMemorySessionRepository creates a repository holding at most maxSessions
// sessions; zero means unlimited
func NewMemorySessionRepository(maxSessions int) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions:    make(map[string]*session.Session),
		maxSessions: maxSessions,
	}
}

func (r *MemorySessionRepository) Create(ctx context.Context) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		return nil, ErrRepositoryFull
	}
	s := session.New(uuid.NewString())
	r.sessions[s.ID()] = s
	return s, nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

func (r *MemorySessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes and removes every session
func (r *MemorySessionRepository) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session.Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
