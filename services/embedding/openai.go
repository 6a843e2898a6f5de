package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/casecoach/backend/services"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIConfig configures the OpenAI-compatible embeddings client.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIProvider is an embeddings client for any OpenAI-compatible
// /embeddings endpoint.
type OpenAIProvider struct {
	config     OpenAIConfig
	httpClient *http.Client
}

// NewOpenAIProvider creates a new embeddings client. The API key is
// required; without it the provider is unavailable and the pipeline cannot
// become ready.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, services.ErrProviderUnavailable.WithDetail("reason", "missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &OpenAIProvider{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model returns the configured model identity.
func (p *OpenAIProvider) Model() string { return p.config.Model }

// Dimension returns the configured vector dimension.
func (p *OpenAIProvider) Dimension() int { return p.config.Dimension }

// Embed requests one embedding per input text. The batch is sent as a
// single request; order of the response data is matched to input order by
// the API's index field.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	reqBody := embeddingsRequest{
		Input:      texts,
		Model:      p.config.Model,
		Dimensions: p.config.Dimension,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, services.WrapInternal("failed to marshal embeddings request", err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, services.WrapExternal("embedding request cancelled", ctx.Err())
			case <-time.After(retryDelay(attempt)):
			}
		}

		vectors, retryable, err := p.doRequest(ctx, payload, len(texts))
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (p *OpenAIProvider) doRequest(ctx context.Context, payload []byte, want int) ([][]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, false, services.WrapInternal("failed to create embeddings request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, true, services.WrapExternal("embeddings request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, services.WrapExternal("failed to read embeddings response", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, services.ErrEmbeddingFailed.
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(body))
	}

	var out embeddingsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, false, services.WrapExternal("failed to unmarshal embeddings response", err)
	}
	if len(out.Data) != want {
		return nil, false, services.ErrEmbeddingFailed.
			WithDetail("reason", fmt.Sprintf("expected %d embeddings, got %d", want, len(out.Data)))
	}

	vectors := make([][]float32, want)
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= want {
			return nil, false, services.ErrEmbeddingFailed.WithDetail("reason", "embedding index out of range")
		}
		if len(d.Embedding) != p.config.Dimension {
			return nil, false, services.ErrEmbeddingFailed.
				WithDetail("reason", fmt.Sprintf("expected dimension %d, got %d", p.config.Dimension, len(d.Embedding)))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, false, nil
}

func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

type embeddingsRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}
