package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pricescout/normalize"
	"github.com/BaSui01/pricescout/types"
)

// LLMConfig configures the remote parsing model.
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LLMParser translates free text into a ParsedTask with a single JSON-mode
// call to a remote reasoning model.
type LLMParser struct {
	cfg    LLMConfig
	client *http.Client
	logger *zap.Logger
}

// NewLLMParser creates the LLM-backed parser.
func NewLLMParser(cfg LLMConfig, logger *zap.Logger) *LLMParser {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMParser{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "llm_parser")),
	}
}

const parsePrompt = `You translate retail price-check requests into JSON.
Given the user request, return ONLY a JSON object of this shape:
{
  "task_type": "price_check",
  "product": {"brand": null, "model": null, "category": null, "color": null, "gender": null},
  "constraints": {"max_price": null, "currency": null, "size": null},
  "sources": {"mode": "google|specific_sites|direct_url", "sites": [], "url": ""},
  "confidence": 0.0,
  "clarification_questions": []
}
Set confidence in [0,1] for how completely the request specifies a product.
If the request is too vague to execute, fill clarification_questions instead
of guessing. No markdown, no commentary.`

type llmContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []llmPart `json:"parts"`
}

type llmPart struct {
	Text string `json:"text,omitempty"`
}

type llmRequest struct {
	Contents          []llmContent `json:"contents"`
	SystemInstruction *llmContent  `json:"systemInstruction,omitempty"`
}

type llmResponse struct {
	Candidates []struct {
		Content llmContent `json:"content"`
	} `json:"candidates"`
}

// parsedPayload is the model's JSON output shape.
type parsedPayload struct {
	types.ParsedTask
	ClarificationQuestions []string `json:"clarification_questions"`
}

// Parse implements IntentParser.
func (p *LLMParser) Parse(ctx context.Context, query string) (*Result, error) {
	body, err := json.Marshal(llmRequest{
		SystemInstruction: &llmContent{Parts: []llmPart{{Text: parsePrompt}}},
		Contents: []llmContent{
			{Role: "user", Parts: []llmPart{{Text: query}}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal parse request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrParseFailed, "parsing service unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrParseFailed, "read parsing response").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrParseFailed,
			fmt.Sprintf("parsing service returned status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode)
	}

	var llmResp llmResponse
	if err := json.Unmarshal(raw, &llmResp); err != nil {
		return nil, types.NewError(types.ErrParseFailed, "malformed parsing response").WithCause(err)
	}
	if len(llmResp.Candidates) == 0 || len(llmResp.Candidates[0].Content.Parts) == 0 {
		return nil, types.NewError(types.ErrParseFailed, "parsing response carried no candidates")
	}

	text := stripCodeFence(llmResp.Candidates[0].Content.Parts[0].Text)
	var payload parsedPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		p.logger.Warn("model returned non-JSON parse output", zap.Error(err))
		return nil, types.NewError(types.ErrParseFailed, "model output is not valid JSON").WithCause(err)
	}

	if len(payload.ClarificationQuestions) > 0 {
		return &Result{Clarification: payload.ClarificationQuestions}, nil
	}

	task := payload.ParsedTask
	normalizeTask(&task)
	return &Result{Task: &task}, nil
}

// normalizeTask canonicalizes the model's free-form attribute strings.
func normalizeTask(t *types.ParsedTask) {
	if t.TaskType == "" {
		t.TaskType = types.TaskTypePriceCheck
	}
	if t.Product.Brand != nil {
		*t.Product.Brand = normalize.Brand(*t.Product.Brand)
	}
	if t.Product.Color != nil {
		*t.Product.Color = normalize.Color(*t.Product.Color)
	}
	if t.Product.Gender != nil {
		if g := normalize.Gender(*t.Product.Gender); g != "" {
			*t.Product.Gender = g
		}
	}
	if t.Constraints.Size != nil {
		*t.Constraints.Size = normalize.Size(*t.Constraints.Size)
	}
	if t.Constraints.Currency != nil {
		if iso := normalize.Currency(*t.Constraints.Currency); iso != "" {
			*t.Constraints.Currency = iso
		}
	}
	for i, site := range t.Sources.Sites {
		t.Sources.Sites[i] = normalize.SiteName(site)
	}
}

// stripCodeFence tolerates models that wrap JSON in markdown fences despite
// instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
