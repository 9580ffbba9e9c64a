package task

import (
	"context"
	"sort"
	"sync"

	"github.com/comicdl/comicdl/internal/comic"
)

// MemoryStore is the in-process Store used when no database is configured.
type MemoryStore struct {
	mu    sync.Mutex
	clock comic.Clock
	tasks map[string]Task
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore(clock comic.Clock) *MemoryStore {
	return &MemoryStore{clock: clock, tasks: make(map[string]Task)}
}

// Create inserts a new task.
func (s *MemoryStore) Create(_ context.Context, t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tasks[t.ID] = t
	return nil
}

// Get fetches a task by id.
func (s *MemoryStore) Get(_ context.Context, id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

// FindByHash returns the newest task with the given parameter hash.
func (s *MemoryStore) FindByHash(_ context.Context, hash string) (Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest Task
	var found bool
	for _, t := range s.tasks {
		if t.ParamsHash != hash {
			continue
		}
		if !found || t.CreatedAt.After(newest.CreatedAt) {
			newest = t
			found = true
		}
	}
	return newest, found, nil
}

// UpdateStatus moves a task to status, recording a message.
func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	t.Message = message
	t.UpdatedAt = s.clock.Now()
	s.tasks[id] = t
	return nil
}

// List returns the newest tasks, capped at limit.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
