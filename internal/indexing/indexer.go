// Package indexing embeds chunks and stores them in a vector index.
package indexing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/logger"
	"github.com/timmy/lexpdf/internal/repository"
)

const DefaultBatchSize = 32

// pointNamespace scopes the name-based point ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("lexpdf/chunks"))

// Embedder turns passages into vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists chunk vectors.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	DeleteDocument(ctx context.Context, document string) error
	Upsert(ctx context.Context, points []repository.ChunkPoint) error
}

// PointID is the deterministic id of chunk index of document.
func PointID(document string, index int) string {
	return uuid.NewSHA1(pointNamespace, []byte(document+":"+strconv.Itoa(index))).String()
}

// Indexer embeds chunks in batches and upserts them.
type Indexer struct {
	embedder  Embedder
	store     VectorStore
	batchSize int
}

// NewIndexer creates an Indexer. batchSize <= 0 means DefaultBatchSize.
func NewIndexer(embedder Embedder, store VectorStore, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Indexer{embedder: embedder, store: store, batchSize: batchSize}
}

// Init prepares the underlying collection.
func (x *Indexer) Init(ctx context.Context) error {
	return x.store.EnsureCollection(ctx)
}

// Index replaces the chunks of document in the store and returns how many were written.
func (x *Indexer) Index(ctx context.Context, document string, chunks []domain.Chunk) (int, error) {
	ctx = logger.SetComponent(ctx, "indexing")
	start := time.Now()

	if err := x.store.DeleteDocument(ctx, document); err != nil {
		return 0, err
	}

	written := 0
	for from := 0; from < len(chunks); from += x.batchSize {
		to := from + x.batchSize
		if to > len(chunks) {
			to = len(chunks)
		}
		batch := chunks[from:to]

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}
		vectors, err := x.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embed chunks %d-%d: %w", from, to-1, err)
		}

		points := make([]repository.ChunkPoint, len(batch))
		for i, ch := range batch {
			points[i] = repository.ChunkPoint{
				ID:     PointID(document, ch.Index),
				Vector: vectors[i],
				Payload: repository.ChunkPayload{
					Document:      document,
					ProcessNumber: ch.Metadata.ProcessNumber,
					ChunkIndex:    ch.Index,
					DocumentType:  string(ch.Metadata.DocumentType),
					Text:          ch.Text,
				},
			}
		}
		if err := x.store.Upsert(ctx, points); err != nil {
			return written, err
		}
		written += len(points)
	}

	logger.With(logger.Fields{}).
		WithCount(written).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "indexed %s", document)
	return written, nil
}
