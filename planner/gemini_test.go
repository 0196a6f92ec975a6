package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/pricescout/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedConversation() *types.Conversation {
	conv := types.NewConversation()
	conv.Append(types.Turn{
		Role:  types.RoleUser,
		Text:  "Find the price of Nike Air Max 90",
		Image: &types.ImagePayload{MIMEType: "image/png", Data: "c2NyZWVuc2hvdA=="},
	})
	return conv
}

func TestGeminiClient_ActionsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// The full history plus the screenshot must be on the wire.
		require.NotEmpty(t, req.Contents)
		assert.NotNil(t, req.Contents[0].Parts[1].InlineData)
		assert.NotEmpty(t, req.Tools)

		resp := geminiResponse{}
		resp.Candidates = append(resp.Candidates, struct {
			Content geminiContent `json:"content"`
		}{Content: geminiContent{
			Role: "model",
			Parts: []geminiPart{
				{FunctionCall: &geminiFunctionCall{
					Name: "click",
					Args: map[string]any{"x": 500, "y": 250},
				}},
				{FunctionCall: &geminiFunctionCall{
					Name: "type_text",
					Args: map[string]any{"text": "air max 90", "press_enter": true},
				}},
			},
		}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewGeminiClient(Config{BaseURL: srv.URL, APIKey: "k", Model: "test"}, zap.NewNop())
	decision, err := c.NextTurn(context.Background(), seedConversation())
	require.NoError(t, err)
	require.Len(t, decision.Actions, 2)

	assert.Equal(t, types.ActionClick, decision.Actions[0].Type)
	assert.Equal(t, 500, decision.Actions[0].X)
	assert.Equal(t, types.ActionTypeText, decision.Actions[1].Type)
	assert.Equal(t, "air max 90", decision.Actions[1].Text)
	assert.True(t, decision.Actions[1].PressEnter)
}

func TestGeminiClient_TerminalText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := geminiResponse{}
		resp.Candidates = append(resp.Candidates, struct {
			Content geminiContent `json:"content"`
		}{Content: geminiContent{
			Role:  "model",
			Parts: []geminiPart{{Text: "Nike Air Max 90 - €89.99 - Zalando"}},
		}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewGeminiClient(Config{BaseURL: srv.URL, APIKey: "k", Model: "test"}, zap.NewNop())
	decision, err := c.NextTurn(context.Background(), seedConversation())
	require.NoError(t, err)
	assert.Empty(t, decision.Actions)
	assert.Contains(t, decision.Text, "€89.99")
}

func TestGeminiClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		c := NewGeminiClient(Config{BaseURL: srv.URL, APIKey: "k", Model: "test"}, zap.NewNop())
		_, err := c.NextTurn(context.Background(), seedConversation())
		require.Error(t, err, "status %d", tt.status)
		assert.Equal(t, tt.retryable, IsRetryable(err), "status %d", tt.status)
		srv.Close()
	}
}

func TestGeminiClient_UnknownActionSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := geminiResponse{}
		resp.Candidates = append(resp.Candidates, struct {
			Content geminiContent `json:"content"`
		}{Content: geminiContent{
			Role: "model",
			Parts: []geminiPart{
				{FunctionCall: &geminiFunctionCall{Name: "self_destruct", Args: map[string]any{}}},
				{FunctionCall: &geminiFunctionCall{Name: "click", Args: map[string]any{"x": 1, "y": 2}}},
			},
		}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewGeminiClient(Config{BaseURL: srv.URL, APIKey: "k", Model: "test"}, zap.NewNop())
	decision, err := c.NextTurn(context.Background(), seedConversation())
	require.NoError(t, err)
	require.Len(t, decision.Actions, 1)
	assert.Equal(t, types.ActionClick, decision.Actions[0].Type)
}
