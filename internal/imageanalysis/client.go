package imageanalysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/lexpdf/internal/prompts"
)

// Describer turns an encoded image into a textual description.
type Describer interface {
	Describe(ctx context.Context, data []byte, mimeType string, page int) (string, error)
}

// ClientConfig holds the vision endpoint settings.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client calls an OpenAI-compatible chat/completions endpoint with image input.
type Client struct {
	client    *resty.Client
	model     string
	maxTokens int
	endpoint  string
}

// NewClient creates a vision client.
func NewClient(cfg ClientConfig) *Client {
	client := resty.New()
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	return &Client{
		client:    client,
		model:     cfg.Model,
		maxTokens: maxTokens,
		endpoint:  baseURL + "/chat/completions",
	}
}

// StatusError is a non-2xx answer from the vision service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vision API returned HTTP %d: %s", e.Code, e.Message)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for user with images
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageContent struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Describe sends one image. Client errors other than 429 are permanent.
func (c *Client) Describe(ctx context.Context, data []byte, mimeType string, page int) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.VisionSystemPrompt},
			{
				Role: "user",
				Content: []interface{}{
					textContent{Type: "text", Text: prompts.VisionUserPrompt(page)},
					imageContent{Type: "image_url", ImageURL: imageURL{URL: dataURL, Detail: "auto"}},
				},
			},
		},
		MaxTokens: c.maxTokens,
	}

	var resp chatResponse
	var errResp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&errResp).
		Post(c.endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return "", Permanent(ctx.Err())
		}
		return "", fmt.Errorf("call vision API: %w", err)
	}

	if httpResp.IsError() {
		msg := string(httpResp.Body())
		if errResp.Error != nil {
			msg = errResp.Error.Message
		}
		statusErr := &StatusError{Code: httpResp.StatusCode(), Message: msg}
		if statusErr.Retryable() {
			return "", statusErr
		}
		return "", Permanent(statusErr)
	}

	if resp.Error != nil {
		return "", Permanent(fmt.Errorf("vision API error: %s", resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision API returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
