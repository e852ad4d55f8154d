package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Client talks to the OpenAI chat-completions and embeddings endpoints.
type Client struct {
	apiKey          string
	baseURL         string
	completionModel string
	embeddingModel  string
	maxTokens       int
	retries         int
	client          *http.Client

	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

// ErrTimeout reports that a generation call exceeded its deadline.
var ErrTimeout = errors.New("openai: request timed out")

// ErrProvider reports a non-timeout failure from the API.
var ErrProvider = errors.New("openai: provider error")

func NewClient(apiKey, baseURL, completionModel, embeddingModel string, maxTokens int, timeout time.Duration, retries int) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if completionModel == "" {
		completionModel = "gpt-4o"
	}
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &Client{
		apiKey:          apiKey,
		baseURL:         baseURL,
		completionModel: completionModel,
		embeddingModel:  embeddingModel,
		maxTokens:       maxTokens,
		retries:         retries,
		client:          &http.Client{Timeout: timeout},
	}
}

// Generate produces a completion for prompt. format is "json" or "text";
// json requests structured output from the API.
func (c *Client) Generate(ctx context.Context, prompt string, format string, temperature float64) (string, error) {
	type chatMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type respFormat struct {
		Type string `json:"type"`
	}
	type chatReq struct {
		Model          string      `json:"model"`
		Messages       []chatMsg   `json:"messages"`
		Temperature    float64     `json:"temperature,omitempty"`
		MaxTokens      int         `json:"max_tokens,omitempty"`
		ResponseFormat *respFormat `json:"response_format,omitempty"`
	}

	req := chatReq{
		Model:       c.completionModel,
		Messages:    []chatMsg{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
	}
	if format == "json" {
		req.ResponseFormat = &respFormat{Type: "json_object"}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := c.doJSON(ctx, "/chat/completions", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrProvider)
	}
	c.inputTokens.Add(int64(out.Usage.PromptTokens))
	c.outputTokens.Add(int64(out.Usage.CompletionTokens))
	return out.Choices[0].Message.Content, nil
}

// ConsumeTokens returns the input and output token counts accumulated since
// the previous call and resets them. Safe for concurrent use.
func (c *Client) ConsumeTokens() (int64, int64) {
	return c.inputTokens.Swap(0), c.outputTokens.Swap(0)
}

// Embed returns one vector per input text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(map[string]any{
		"model": c.embeddingModel,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Usage struct {
			PromptTokens int `json:"prompt_tokens"`
		} `json:"usage"`
	}
	if err := c.doJSON(ctx, "/embeddings", body, &out); err != nil {
		return nil, err
	}
	c.inputTokens.Add(int64(out.Usage.PromptTokens))
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrProvider, len(texts), len(out.Data))
	}
	vecs := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProvider, d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

func (c *Client) doJSON(ctx context.Context, path string, body []byte, out any) error {
	var lastErr error
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			lastErr = fmt.Errorf("%w: %v", ErrProvider, err)
		} else {
			func() {
				defer resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					lastErr = fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
					return
				}
				if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
					lastErr = fmt.Errorf("%w: decode: %v", ErrProvider, err)
					return
				}
				lastErr = nil
			}()
			if lastErr == nil {
				return nil
			}
		}

		if attempt < tries-1 {
			select {
			case <-time.After(time.Duration(1<<attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			}
		}
	}
	return lastErr
}
