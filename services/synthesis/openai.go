package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIConfig configures the chat-completion generator.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIGenerator implements Generator against an OpenAI-compatible chat
// completions endpoint.
type OpenAIGenerator struct {
	config     OpenAIConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOpenAIGenerator creates a generator. The API key is required.
func NewOpenAIGenerator(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, services.ErrProviderUnavailable.WithDetail("reason", "missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAIGenerator{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// Synthesize sends the bounded prompt and parses the structured reply.
// Generation failures are external errors and context expiry is a timeout;
// neither is ever folded into a refusal.
func (g *OpenAIGenerator) Synthesize(ctx context.Context, query string, cases []models.Case) (*models.SynthesisOutput, error) {
	reqBody := chatRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(query, cases)},
		},
		Temperature:    g.config.Temperature,
		MaxTokens:      g.config.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, services.WrapInternal("failed to marshal synthesis request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, services.WrapInternal("failed to create synthesis request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, services.ErrGenerationTimeout
		}
		return nil, services.WrapExternal("generation request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.WrapExternal("failed to read generation response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.ErrGenerationFailed.
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, services.WrapExternal("failed to unmarshal generation response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, services.ErrGenerationFailed.WithDetail("reason", "empty choices")
	}

	out, err := parseOutput(chatResp.Choices[0].Message.Content)
	if err != nil {
		g.logger.Warn("generator returned malformed output", zap.Error(err))
		return nil, services.WrapExternal("generator returned malformed output", err)
	}
	return out, nil
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
