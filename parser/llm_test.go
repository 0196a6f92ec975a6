package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func llmServer(t *testing.T, modelOutput string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("x-goog-api-key"))

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": modelOutput}},
				}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestLLMParser_ParsesTask(t *testing.T) {
	output := `{"task_type":"price_check",
		"product":{"brand":"nike","model":"Air Max 90","category":"shoes","color":"Grey","gender":"mens"},
		"constraints":{"max_price":100,"currency":"€","size":"size 42"},
		"sources":{"mode":"google"},
		"confidence":0.92,
		"clarification_questions":[]}`
	srv := llmServer(t, output)
	defer srv.Close()

	p := NewLLMParser(LLMConfig{BaseURL: srv.URL, APIKey: "k", Model: "test"}, zap.NewNop())
	res, err := p.Parse(context.Background(), "nike air max 90 grey under 100 euro size 42")
	require.NoError(t, err)
	require.NotNil(t, res.Task)

	assert.Equal(t, "Nike", *res.Task.Product.Brand)
	assert.Equal(t, "gray", *res.Task.Product.Color)
	assert.Equal(t, "men", *res.Task.Product.Gender)
	assert.Equal(t, "EUR", *res.Task.Constraints.Currency)
	assert.Equal(t, "42", *res.Task.Constraints.Size)
	assert.InDelta(t, 0.92, res.Task.Confidence, 0.001)
}

func TestLLMParser_Clarification(t *testing.T) {
	output := `{"confidence":0.2,"clarification_questions":["Which brand?","What is your budget?"]}`
	srv := llmServer(t, output)
	defer srv.Close()

	p := NewLLMParser(LLMConfig{BaseURL: srv.URL, APIKey: "k", Model: "test"}, zap.NewNop())
	res, err := p.Parse(context.Background(), "find something cheap")
	require.NoError(t, err)
	assert.Nil(t, res.Task)
	assert.Len(t, res.Clarification, 2)
}

func TestLLMParser_ToleratesCodeFences(t *testing.T) {
	output := "```json\n{\"product\":{\"brand\":\"adidas\"},\"sources\":{\"mode\":\"google\"},\"confidence\":0.8}\n```"
	srv := llmServer(t, output)
	defer srv.Close()

	p := NewLLMParser(LLMConfig{BaseURL: srv.URL, APIKey: "k", Model: "test"}, zap.NewNop())
	res, err := p.Parse(context.Background(), "adidas")
	require.NoError(t, err)
	require.NotNil(t, res.Task)
	assert.Equal(t, "Adidas", *res.Task.Product.Brand)
}

func TestLLMParser_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewLLMParser(LLMConfig{BaseURL: srv.URL, APIKey: "k", Model: "test"}, zap.NewNop())
	_, err := p.Parse(context.Background(), "anything")
	assert.Error(t, err)
}
