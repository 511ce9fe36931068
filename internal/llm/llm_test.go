package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJSONBlock("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSONBlock("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, CleanJSONBlock(`  {"a":1} `))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "가나다", TruncateRunes("가나다", 10))
	assert.Equal(t, "가나", TruncateRunes("가나다", 2))
	assert.Equal(t, "첫 문장. 둘째 문장.", TruncateRunes("첫 문장. 둘째 문장. 셋째 문장", 14))
}

func TestExtractTextFromResponse(t *testing.T) {
	_, err := extractTextFromResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"results":`), genai.Text(`[]}`)}},
	}}}
	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"results":[]}`, text)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Provider: ProviderOpenAI})
	assert.Error(t, err)

	_, err = NewClient(context.Background(), Config{Provider: "claude", APIKey: "k"})
	assert.Error(t, err)

	c, err := NewClient(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, c.Provider())
}

func TestOpenAIClient_GenerateJSON(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel, _ = req["model"].(string)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   gotModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": "```json\n{\"results\":[]}\n```",
				},
			}},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	out, err := c.GenerateJSON(context.Background(), "score these")
	require.NoError(t, err)
	assert.Equal(t, `{"results":[]}`, out)
	assert.Equal(t, DefaultOpenAIModel, gotModel)
}
