// Package app builds the long-lived collaborators shared by the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/timmy/lexpdf/internal/config"
	"github.com/timmy/lexpdf/internal/grouping"
	"github.com/timmy/lexpdf/internal/imageanalysis"
	"github.com/timmy/lexpdf/internal/indexing"
	"github.com/timmy/lexpdf/internal/jobs"
	"github.com/timmy/lexpdf/internal/logger"
	"github.com/timmy/lexpdf/internal/normalize"
	"github.com/timmy/lexpdf/internal/pdf"
	"github.com/timmy/lexpdf/internal/pipeline"
	"github.com/timmy/lexpdf/internal/repository"
	"github.com/timmy/lexpdf/internal/storage"
)

// ErrSearchDisabled is returned by Search when indexing is not configured.
var ErrSearchDisabled = errors.New("retrieval indexing is not configured")

// NewExtractor creates the PDF extractor with the configured limits.
func NewExtractor(cfg *config.Config) *pdf.Extractor {
	return pdf.NewExtractor(pdf.NewFileOpener(), pdf.Limits{
		MaxSizeBytes: int64(cfg.PDF.MaxSizeMB) << 20,
		MaxPages:     cfg.PDF.MaxPages,
		OpenTimeout:  cfg.PDF.OpenTimeout,
	})
}

// NewAnalyzer returns the vision analyzer, or nil when image analysis is disabled.
func NewAnalyzer(cfg *config.Config) pipeline.ImageAnalyzer {
	ia := cfg.ImageAnalysis
	if !ia.Enabled || ia.APIKey == "" {
		return nil
	}
	client := imageanalysis.NewClient(imageanalysis.ClientConfig{
		BaseURL:   ia.BaseURL,
		APIKey:    ia.APIKey,
		Model:     ia.Model,
		MaxTokens: ia.MaxTokens,
		Timeout:   ia.Timeout,
	})
	opts := imageanalysis.DefaultOptions()
	if ia.MinDimension > 0 {
		opts.MinDimension = ia.MinDimension
	}
	if ia.MaxDimension > 0 {
		opts.MaxDimension = ia.MaxDimension
	}
	if ia.MaxImageSizeMB > 0 {
		opts.MaxBytes = int64(ia.MaxImageSizeMB) << 20
	}
	if ia.Retry.MaxAttempts > 0 {
		opts.Retry = imageanalysis.RetryPolicy{
			MaxAttempts:    ia.Retry.MaxAttempts,
			InitialBackoff: ia.Retry.InitialBackoff,
			MaxBackoff:     ia.Retry.MaxBackoff,
			Multiplier:     ia.Retry.Multiplier,
		}
	}
	return imageanalysis.NewAnalyzer(client, opts)
}

// NewCoordinator wires extraction, normalization and formatting from cfg.
func NewCoordinator(cfg *config.Config) *pipeline.Coordinator {
	return pipeline.New(pipeline.Config{
		Normalize: normalize.Config{
			ShoutingRatio:   cfg.Text.ShoutingRatio,
			RepeatThreshold: cfg.Text.RepeatThreshold,
			ExtraAcronyms:   cfg.Text.ExtraAcronyms,
		},
		ChunkMin: cfg.Chunking.Min,
		ChunkMax: cfg.Chunking.Max,
	}, NewExtractor(cfg), NewAnalyzer(cfg))
}

// NewGrouper shares the coordinator's extractor and normalizer.
func NewGrouper(cfg *config.Config, c *pipeline.Coordinator) *grouping.Grouper {
	return grouping.New(c.Extractor(), c.Normalizer(), cfg.Grouping.ProcessedDir)
}

// index is the retrieval side: the indexer for jobs and the searcher for queries.
type index struct {
	indexer  *indexing.Indexer
	searcher *indexing.Searcher
	qdrant   *repository.QdrantRepository
}

func newIndex(ctx context.Context, cfg *config.Config) (*index, error) {
	if !cfg.IndexingConfigured() {
		return nil, nil
	}
	qdrant, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	embedder := indexing.NewEmbeddingClient(indexing.EmbeddingConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	})
	indexer := indexing.NewIndexer(embedder, qdrant, cfg.Indexing.BatchSize)
	if err := indexer.Init(ctx); err != nil {
		qdrant.Close()
		return nil, fmt.Errorf("failed to prepare qdrant collection: %w", err)
	}
	return &index{
		indexer:  indexer,
		searcher: indexing.NewSearcher(embedder, qdrant),
		qdrant:   qdrant,
	}, nil
}

// buildServices builds the per-snapshot job collaborators.
func buildServices(ctx context.Context, cfg *config.Config) (*jobs.Services, *index, error) {
	coordinator := NewCoordinator(cfg)
	svc := &jobs.Services{
		Coordinator: coordinator,
		Grouper:     NewGrouper(cfg, coordinator),
		ChunkMin:    cfg.Chunking.Min,
		ChunkMax:    cfg.Chunking.Max,
	}
	idx, err := newIndex(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if idx != nil {
		svc.Indexer = idx.indexer
	}
	return svc, idx, nil
}

// Runtime owns the resources of the API process.
type Runtime struct {
	store   *config.Store
	Jobs    *jobs.Manager
	Storage storage.ObjectStorage
	index   atomic.Pointer[index]

	mu      sync.Mutex
	closers []func() error
}

// New opens the job registry, queue and artifact storage described by the
// store's current snapshot.
func New(ctx context.Context, store *config.Store) (*Runtime, error) {
	cfg := store.Current()
	rt := &Runtime{store: store}

	artifacts, err := storage.NewStorage(ctx, storage.Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		LocalDir:  cfg.Storage.LocalDir,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Prefix:    cfg.Storage.Prefix,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	rt.Storage = artifacts

	var jobStore jobs.Store
	switch cfg.Jobs.Store {
	case "memory":
		jobStore = jobs.NewMemoryStore()
	default:
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		rt.onClose(func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		jobStore = repository.NewJobRepository(db)
	}

	var queue jobs.Queue
	switch cfg.Jobs.Queue {
	case "redis":
		queue, err = jobs.NewRedisQueue(ctx, jobs.RedisQueueConfig{
			Addr:        cfg.Jobs.Redis.Addr,
			Password:    cfg.Jobs.Redis.Password,
			DB:          cfg.Jobs.Redis.DB,
			Key:         cfg.Jobs.Redis.QueueKey,
			PollTimeout: cfg.Jobs.Redis.PollTimeout,
		})
		if err != nil {
			rt.Close()
			return nil, err
		}
	default:
		queue = jobs.NewMemoryQueue(cfg.Jobs.QueueSize)
	}

	svc, idx, err := buildServices(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.setIndex(idx)

	rt.Jobs = jobs.NewManager(jobs.Config{
		Workers:         cfg.Jobs.Workers,
		Retention:       cfg.Jobs.Retention,
		JanitorInterval: cfg.Jobs.JanitorInterval,
	}, jobStore, queue, artifacts, svc)
	return rt, nil
}

func (r *Runtime) onClose(fn func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, fn)
}

func (r *Runtime) setIndex(idx *index) {
	r.index.Store(idx)
	if idx != nil {
		r.onClose(idx.qdrant.Close)
	}
}

// Config returns the active snapshot.
func (r *Runtime) Config() *config.Config {
	return r.store.Current()
}

// Reload swaps in a fresh config snapshot. Jobs started afterwards use it;
// storage, registry and queue keep their original settings.
func (r *Runtime) Reload(ctx context.Context) error {
	cfg, err := r.store.Reload()
	if err != nil {
		return err
	}
	svc, idx, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	r.setIndex(idx)
	r.Jobs.SetServices(svc)
	logger.CtxInfo(ctx, "configuration reloaded")
	return nil
}

// Search runs a semantic query over the chunk index.
func (r *Runtime) Search(ctx context.Context, req indexing.SearchRequest) (*indexing.SearchResponse, error) {
	idx := r.index.Load()
	if idx == nil {
		return nil, ErrSearchDisabled
	}
	return idx.searcher.Search(ctx, req)
}

// Close releases connections in reverse order of creation.
func (r *Runtime) Close() error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
