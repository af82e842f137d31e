package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/grouping"
	"github.com/timmy/lexpdf/internal/logger"
	"github.com/timmy/lexpdf/internal/pdf"
	"github.com/timmy/lexpdf/internal/pipeline"
	"github.com/timmy/lexpdf/internal/storage"
)

// Indexer pushes chunks to the retrieval index.
type Indexer interface {
	Index(ctx context.Context, document string, chunks []domain.Chunk) (int, error)
}

// Services are the collaborators a job runs against. A new set replaces the
// old one on config reload; running jobs keep the set they started with.
type Services struct {
	Coordinator *pipeline.Coordinator
	Grouper     *grouping.Grouper
	// Indexer is nil when retrieval indexing is not configured.
	Indexer  Indexer
	ChunkMin int
	ChunkMax int
}

// Config sizes the worker pool and the janitor.
type Config struct {
	Workers         int
	Retention       time.Duration
	JanitorInterval time.Duration
}

// Manager owns the job registry, the queue and the worker pool.
type Manager struct {
	cfg       Config
	store     Store
	queue     Queue
	artifacts storage.ObjectStorage
	services  atomic.Pointer[Services]
	now       func() time.Time

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager wires a Manager. Call Start to launch the workers.
func NewManager(cfg Config, store Store, queue Queue, artifacts storage.ObjectStorage, services *Services) *Manager {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	m := &Manager{
		cfg:       cfg,
		store:     store,
		queue:     queue,
		artifacts: artifacts,
		now:       time.Now,
	}
	m.services.Store(services)
	return m
}

// SetServices swaps the collaborators used by jobs that start from now on.
func (m *Manager) SetServices(s *Services) {
	m.services.Store(s)
}

// Submit persists a queued job, validates it and enqueues it. A job failing
// validation is stored as failed and returned together with the error.
func (m *Manager) Submit(ctx context.Context, kind domain.JobKind, payload domain.Payload, opts domain.Options) (string, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return "", ErrClosed
	}

	job := &domain.Job{
		ID:      uuid.NewString(),
		Kind:    kind,
		Status:  domain.JobStatusQueued,
		Payload: payload,
		Options: opts.WithDefaults(),
		Message: "queued",
	}
	if err := m.store.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}
	ctx = logger.SetJobID(ctx, job.ID)

	if err := m.preflight(job, m.services.Load()); err != nil {
		m.fail(ctx, job.ID, err)
		return job.ID, err
	}
	if err := m.queue.Push(ctx, job.ID); err != nil {
		m.fail(ctx, job.ID, err)
		return job.ID, err
	}

	logger.With(logger.Fields{}).WithJobKind(string(kind)).Info(ctx, "job queued")
	return job.ID, nil
}

// Get returns the job with id.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Job, error) {
	return m.store.Get(ctx, id)
}

// GetResult returns the artifact of a finished job.
func (m *Manager) GetResult(ctx context.Context, id string) ([]byte, string, error) {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if job.Status != domain.JobStatusFinished {
		return nil, "", fmt.Errorf("%w: job is %s", ErrNotReady, job.Status)
	}
	data, err := storage.Get(ctx, m.artifacts, job.ResultKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: artifact %s is gone", ErrNotFound, job.ResultKey)
		}
		return nil, "", err
	}
	return data, job.ResultContentType, nil
}

// Delete removes the job and its artifact. A job deleted while it runs
// discards its result when the worker finishes.
func (m *Manager) Delete(ctx context.Context, id string) error {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.ResultKey != "" {
		if err := m.artifacts.Delete(ctx, job.ResultKey); err != nil {
			return fmt.Errorf("failed to delete artifact: %w", err)
		}
	}
	return m.store.Delete(ctx, id)
}

// Start launches the workers and the janitor. Calling it twice is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	ctx, m.cancel = context.WithCancel(logger.SetComponent(ctx, "jobs"))
	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}
	if m.cfg.Retention > 0 && m.cfg.JanitorInterval > 0 {
		m.wg.Add(1)
		go m.janitor(ctx)
	}
	logger.With(logger.Fields{}).WithCount(m.cfg.Workers).Info(ctx, "job workers started")
}

// Shutdown stops intake and waits for running jobs until ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return m.queue.Close()
	case <-ctx.Done():
		return fmt.Errorf("job workers did not stop: %w", ctx.Err())
	}
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		id, err := m.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.CtxWarn(ctx, "queue pop failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		// A started job runs to completion even during shutdown.
		m.execute(context.WithoutCancel(ctx), id)
	}
}

func (m *Manager) execute(ctx context.Context, id string) {
	ctx = logger.SetJobID(ctx, id)
	start := m.now()

	defer func() {
		if r := recover(); r != nil {
			logger.Recovered(ctx, r)
			m.fail(ctx, id, fmt.Errorf("internal error: %v", r))
		}
	}()

	job, err := m.store.Get(ctx, id)
	if err != nil {
		logger.CtxWarn(ctx, "dropping queued id: %v", err)
		return
	}
	if job.Status != domain.JobStatusQueued {
		logger.CtxWarn(ctx, "job is %s, not running it again", job.Status)
		return
	}

	svc := m.services.Load()
	if err := m.preflight(job, svc); err != nil {
		m.fail(ctx, id, err)
		return
	}

	job, err = m.store.Update(ctx, id, func(j *domain.Job) error {
		j.Message = "started"
		return j.Transition(domain.JobStatusStarted, m.now())
	})
	if err != nil {
		logger.CtxError(ctx, "cannot start job: %v", err)
		return
	}

	art, err := m.run(ctx, svc, job, m.progress(ctx, id))
	if err != nil {
		m.fail(ctx, id, err)
		return
	}

	key := storage.ResultKey(id, art.extension)
	if err := storage.Put(ctx, m.artifacts, key, art.content, art.contentType); err != nil {
		m.fail(ctx, id, fmt.Errorf("failed to store result: %w", err))
		return
	}

	_, err = m.store.Update(ctx, id, func(j *domain.Job) error {
		j.ResultKey = key
		j.ResultContentType = art.contentType
		j.Message = art.message
		return j.Transition(domain.JobStatusFinished, m.now())
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// deleted while running: nothing references the artifact any more
			if derr := m.artifacts.Delete(ctx, key); derr != nil {
				logger.CtxError(ctx, "cannot remove artifact of deleted job: %v", derr)
			}
			logger.CtxInfo(ctx, "job deleted while running, result discarded")
			return
		}
		logger.CtxError(ctx, "cannot finish job: %v", err)
		return
	}
	logger.With(logger.Fields{}).WithJobKind(string(job.Kind)).
		WithDuration(m.now().Sub(start).Milliseconds()).
		WithSize(int64(len(art.content))).
		Info(ctx, "job %s", art.message)
}

var errTerminal = errors.New("job already terminal")

func (m *Manager) progress(ctx context.Context, id string) pipeline.ProgressFunc {
	return func(p int) {
		_, err := m.store.Update(ctx, id, func(j *domain.Job) error {
			if j.Status.IsTerminal() {
				return errTerminal
			}
			j.SetProgress(p)
			return nil
		})
		if err != nil && !errors.Is(err, errTerminal) {
			logger.CtxDebug(ctx, "progress update dropped: %v", err)
		}
	}
}

func (m *Manager) fail(ctx context.Context, id string, cause error) {
	_, err := m.store.Update(ctx, id, func(j *domain.Job) error {
		j.Message = cause.Error()
		return j.Transition(domain.JobStatusFailed, m.now())
	})
	if err != nil {
		logger.CtxError(ctx, "cannot mark job failed (%v): %v", cause, err)
		return
	}
	logger.CtxWarn(ctx, "job failed: %v", cause)
}

// preflight rejects requests that cannot succeed before any work starts.
func (m *Manager) preflight(job *domain.Job, svc *Services) error {
	if !job.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
	}
	if svc == nil || svc.Coordinator == nil {
		return apperror.Configuration("job services are not configured")
	}

	opts := job.Options
	if !opts.Format.Valid() {
		return apperror.Configuration("unsupported output format %q", opts.Format)
	}
	if !opts.TableFormat.Valid() {
		return apperror.Configuration("unsupported table format %q", opts.TableFormat)
	}
	if opts.Chunk && (opts.ChunkSize < svc.ChunkMin || opts.ChunkSize > svc.ChunkMax) {
		return apperror.Configuration("chunk_size must lie in [%d, %d], got %d", svc.ChunkMin, svc.ChunkMax, opts.ChunkSize)
	}
	if opts.Index {
		if !opts.Chunk {
			return apperror.Configuration("index requires chunk=true")
		}
		if svc.Indexer == nil {
			return apperror.Configuration("indexing was requested but is not configured")
		}
	}

	switch job.Kind {
	case domain.JobKindBatch, domain.JobKindMerge:
		if svc.Grouper == nil {
			return apperror.Configuration("grouping is not configured")
		}
		return validateDir(job.Payload.Dir)
	default:
		_, err := pdf.ValidatePath(job.Payload.Path)
		return err
	}
}

func validateDir(dir string) error {
	if dir == "" {
		return apperror.Input(dir, "empty directory")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return apperror.Input(dir, "directory not found")
	}
	if !info.IsDir() {
		return apperror.Input(dir, "not a directory")
	}
	return nil
}
