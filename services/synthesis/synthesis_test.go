package synthesis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casecoach/backend/internal/sentences"
	"github.com/casecoach/backend/models"
	"github.com/casecoach/backend/services"
)

func evidenceCases() []models.Case {
	resp := "A study schedule helps. Rest matters too."
	return []models.Case{{
		ID:                7,
		Context:           "anxious about exams",
		Response:          resp,
		ResponseSentences: sentences.Split(resp),
	}}
}

func TestParseOutputValid(t *testing.T) {
	raw := `{"answer_markdown": "Plan your study time.", "citations": [{"case_id": 7, "sent_id": 0}]}`
	out, err := parseOutput(raw)
	require.NoError(t, err)
	assert.Equal(t, "Plan your study time.", out.AnswerMarkdown)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, 7, out.Citations[0].CaseID)
	assert.Equal(t, 0, out.Citations[0].SentID)
	assert.False(t, out.Refuse)
}

func TestParseOutputRefusal(t *testing.T) {
	out, err := parseOutput(`{"answer_markdown": "", "citations": [], "refuse": true}`)
	require.NoError(t, err)
	assert.True(t, out.Refuse)
}

func TestParseOutputCodeFence(t *testing.T) {
	raw := "```json\n{\"answer_markdown\": \"ok\", \"citations\": []}\n```"
	out, err := parseOutput(raw)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.AnswerMarkdown)
}

func TestParseOutputSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "this is prose, not JSON"},
		{"missing citations", `{"answer_markdown": "x"}`},
		{"negative sent_id", `{"answer_markdown": "x", "citations": [{"case_id": 1, "sent_id": -1}]}`},
		{"citation missing field", `{"answer_markdown": "x", "citations": [{"case_id": 1}]}`},
		{"wrong citation type", `{"answer_markdown": "x", "citations": [{"case_id": "one", "sent_id": 0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOutput(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestBuildUserPromptContainsOnlySuppliedCases(t *testing.T) {
	prompt := buildUserPrompt("how to handle exam stress?", evidenceCases())

	assert.Contains(t, prompt, "how to handle exam stress?")
	assert.Contains(t, prompt, "[case 7]")
	assert.Contains(t, prompt, "(0) A study schedule helps.")
	assert.Contains(t, prompt, "(1) Rest matters too.")
}

func TestNewOpenAIGeneratorRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIGenerator(OpenAIConfig{}, zap.NewNop())
	assert.True(t, services.IsExternalError(err))
}

func TestOpenAIGeneratorSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "[case 7]")

		content := `{"answer_markdown": "Make a schedule.", "citations": [{"case_id": 7, "sent_id": 0}]}`
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, err)

	out, err := g.Synthesize(context.Background(), "exam stress", evidenceCases())
	require.NoError(t, err)
	assert.Equal(t, "Make a schedule.", out.AnswerMarkdown)
	require.Len(t, out.Citations, 1)
}

func TestOpenAIGeneratorTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Synthesize(ctx, "query", evidenceCases())
	require.Error(t, err)
	assert.True(t, services.IsTimeoutError(err), "expected timeout, got %v", err)
}

func TestOpenAIGeneratorMalformedOutputIsExternalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "sorry, plain prose"}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: server.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = g.Synthesize(context.Background(), "query", evidenceCases())
	assert.True(t, services.IsExternalError(err))
}
