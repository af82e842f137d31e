package indexing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultEmbeddingURL = "https://api.jina.ai/v1/embeddings"
	taskPassage         = "retrieval.passage"
	taskQuery           = "retrieval.query"
)

// EmbeddingConfig holds configuration for the embeddings client.
type EmbeddingConfig struct {
	BaseURL    string
	Model      string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
}

// EmbeddingClient calls a Jina-compatible embeddings endpoint.
type EmbeddingClient struct {
	client     *resty.Client
	url        string
	model      string
	dimensions int
}

// NewEmbeddingClient creates an EmbeddingClient.
func NewEmbeddingClient(cfg EmbeddingConfig) *EmbeddingClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultEmbeddingURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &EmbeddingClient{
		client:     client,
		url:        cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Model returns the embedding model name.
func (c *EmbeddingClient) Model() string {
	return c.model
}

type embeddingRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Detail string `json:"detail,omitempty"`
}

// EmbedBatch embeds passages, returning vectors in input order.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, taskPassage, texts)
}

// EmbedQuery embeds a search query.
func (c *EmbeddingClient) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embed(ctx, taskQuery, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *EmbeddingClient) embed(ctx context.Context, task string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var resp embeddingResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{
			Model:         c.model,
			Task:          task,
			Dimensions:    c.dimensions,
			Input:         texts,
			EmbeddingType: "float",
		}).
		SetResult(&resp).
		SetError(&resp).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to call embeddings API: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("embeddings API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("embeddings API error: status %d", httpResp.StatusCode())
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
