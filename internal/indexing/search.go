package indexing

import (
	"context"
	"strings"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/repository"
)

const (
	DefaultTopK = 10
	MaxTopK     = 100
)

// QueryEmbedder embeds a search query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// ChunkSearcher runs a vector query.
type ChunkSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, processNumber string) ([]repository.ChunkSearchResult, error)
}

// SearchRequest is a semantic query over indexed chunks.
type SearchRequest struct {
	Query         string `json:"query" binding:"required"`
	TopK          int    `json:"top_k,omitempty"`
	ProcessNumber string `json:"process_number,omitempty"`
}

// SearchHit is one matching chunk.
type SearchHit struct {
	Score         float32 `json:"score"`
	Document      string  `json:"document"`
	ProcessNumber string  `json:"process_number,omitempty"`
	DocumentType  string  `json:"document_type,omitempty"`
	ChunkIndex    int     `json:"chunk_index"`
	Text          string  `json:"text"`
}

// SearchResponse lists hits by descending score.
type SearchResponse struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
	Total int         `json:"total"`
}

// Searcher answers queries against the chunk index.
type Searcher struct {
	embedder QueryEmbedder
	store    ChunkSearcher
}

// NewSearcher creates a Searcher.
func NewSearcher(embedder QueryEmbedder, store ChunkSearcher) *Searcher {
	return &Searcher{embedder: embedder, store: store}
}

// Search embeds the query and returns the closest chunks.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperror.Input("", "empty query")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := s.store.Search(ctx, vector, topK, req.ProcessNumber)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{
			Score:         r.Score,
			Document:      r.Payload.Document,
			ProcessNumber: r.Payload.ProcessNumber,
			DocumentType:  r.Payload.DocumentType,
			ChunkIndex:    r.Payload.ChunkIndex,
			Text:          r.Payload.Text,
		}
	}
	return &SearchResponse{Query: query, Hits: hits, Total: len(hits)}, nil
}
