package indexing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timmy/lexpdf/internal/domain"
	"github.com/timmy/lexpdf/internal/repository"
)

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("a.pdf", 0)
	if a != PointID("a.pdf", 0) {
		t.Error("point id is not deterministic")
	}
	if a == PointID("a.pdf", 1) || a == PointID("b.pdf", 0) {
		t.Error("distinct chunks share an id")
	}
}

func TestEmbeddingClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "bad key"})
			return
		}
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		// answer in reverse order to check reordering
		data := make([]item, len(req.Input))
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = item{Embedding: []float32{float32(j)}, Index: j}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(EmbeddingConfig{BaseURL: srv.URL, APIKey: "secret", Model: "m"})
	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error: %v", err)
	}
	for i, v := range vectors {
		if len(v) != 1 || v[0] != float32(i) {
			t.Errorf("vector %d = %v", i, v)
		}
	}

	bad := NewEmbeddingClient(EmbeddingConfig{BaseURL: srv.URL, APIKey: "wrong"})
	if _, err := bad.EmbedQuery(context.Background(), "q"); err == nil || err.Error() != "embeddings API error: bad key" {
		t.Errorf("err = %v", err)
	}
}

type fakeEmbedder struct{ batches int }

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batches++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type fakeStore struct {
	deleted []string
	points  []repository.ChunkPoint
	fail    bool
}

func (s *fakeStore) EnsureCollection(context.Context) error { return nil }

func (s *fakeStore) DeleteDocument(_ context.Context, doc string) error {
	s.deleted = append(s.deleted, doc)
	return nil
}

func (s *fakeStore) Upsert(_ context.Context, points []repository.ChunkPoint) error {
	if s.fail {
		return errors.New("unavailable")
	}
	s.points = append(s.points, points...)
	return nil
}

func TestIndexer(t *testing.T) {
	meta := domain.DocumentMetadata{ProcessNumber: "1234567-89.2024.8.08.0012", DocumentType: domain.DocumentDecision}
	chunks := make([]domain.Chunk, 5)
	for i := range chunks {
		chunks[i] = domain.Chunk{Index: i, Text: "trecho", Metadata: meta}
	}

	emb := &fakeEmbedder{}
	store := &fakeStore{}
	n, err := NewIndexer(emb, store, 2).Index(context.Background(), "a.pdf", chunks)
	if err != nil {
		t.Fatalf("Index() error: %v", err)
	}
	if n != 5 || len(store.points) != 5 {
		t.Errorf("written = %d, stored = %d", n, len(store.points))
	}
	if emb.batches != 3 {
		t.Errorf("batches = %d, want 3", emb.batches)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "a.pdf" {
		t.Errorf("deleted = %v", store.deleted)
	}
	p := store.points[4]
	if p.ID != PointID("a.pdf", 4) || p.Payload.ChunkIndex != 4 || p.Payload.DocumentType != "decision" {
		t.Errorf("point = %+v", p)
	}

	if _, err := NewIndexer(emb, &fakeStore{fail: true}, 0).Index(context.Background(), "a.pdf", chunks); err == nil {
		t.Error("expected upsert failure")
	}
}

type fakeQuery struct{ query string }

func (f *fakeQuery) EmbedQuery(_ context.Context, q string) ([]float32, error) {
	f.query = q
	return []float32{0, 1}, nil
}

type fakeSearch struct {
	topK          int
	processNumber string
}

func (f *fakeSearch) Search(_ context.Context, _ []float32, topK int, processNumber string) ([]repository.ChunkSearchResult, error) {
	f.topK, f.processNumber = topK, processNumber
	return []repository.ChunkSearchResult{{
		ID:      PointID("a.pdf", 0),
		Score:   0.9,
		Payload: repository.ChunkPayload{Document: "a.pdf", ChunkIndex: 0, Text: "trecho"},
	}}, nil
}

func TestSearcher(t *testing.T) {
	emb := &fakeQuery{}
	store := &fakeSearch{}
	s := NewSearcher(emb, store)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "  dano moral ", TopK: 500, ProcessNumber: "1234567-89.2024.8.08.0012"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if emb.query != "dano moral" {
		t.Errorf("query = %q", emb.query)
	}
	if store.topK != MaxTopK || store.processNumber != "1234567-89.2024.8.08.0012" {
		t.Errorf("topK = %d, process = %q", store.topK, store.processNumber)
	}
	if resp.Total != 1 || resp.Hits[0].Document != "a.pdf" {
		t.Errorf("resp = %+v", resp)
	}

	if _, err := s.Search(context.Background(), SearchRequest{Query: " "}); err == nil {
		t.Error("expected error for empty query")
	}
}
