// Package jobs runs pipeline requests asynchronously and tracks their lifecycle.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/repository"
)

var (
	// ErrNotFound is returned for an unknown job id.
	ErrNotFound = repository.ErrJobNotFound
	// ErrNotReady is returned when a result is requested before the job finished.
	ErrNotReady = errors.New("job result not ready")
	// ErrQueueFull is returned when the queue cannot take another job.
	ErrQueueFull = errors.New("job queue is full")
	// ErrUnknownKind is returned for a kind no runner handles.
	ErrUnknownKind = errors.New("unknown job kind")
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("job manager is shut down")
)

// Store is the job registry. Update must be an atomic read-modify-write:
// fn sees the current record and nothing is written when it fails.
type Store interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, id string, fn func(*domain.Job) error) (*domain.Job, error)
	Delete(ctx context.Context, id string) error
	ListExpired(ctx context.Context, cutoff time.Time) ([]domain.Job, error)
}

var _ Store = (*repository.JobRepository)(nil)

// MemoryStore keeps jobs in a map. Records are copied in and out.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]domain.Job
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]domain.Job)}
}

func (s *MemoryStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("duplicate job id " + job.ID)
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*domain.Job) error) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(&job); err != nil {
		return nil, err
	}
	job.UpdatedAt = time.Now()
	s.jobs[id] = job
	return &job, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) ListExpired(_ context.Context, cutoff time.Time) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Job
	for _, job := range s.jobs {
		if job.Status.IsTerminal() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinishedAt.Before(*out[j].FinishedAt) })
	return out, nil
}
