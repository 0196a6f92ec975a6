package planner

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

	"github.com/BaSui01/pricescout/types"
)

// Config configures the Gemini-backed planning client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiClient implements Client against the Gemini generateContent API.
// Screenshots travel as inlineData parts; planned actions come back as
// function calls whose arguments use the model's 0-999 coordinate grid.
type GeminiClient struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewGeminiClient creates the planning client.
func NewGeminiClient(cfg Config, logger *zap.Logger) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "planner")),
	}
}

const systemInstruction = `You are a browser automation planner for retail
price checking. Each user turn carries a screenshot of the current page.
Plan the next browser action with the declared functions. All coordinates
are on a 0-999 grid on each axis, independent of the real viewport size.
When you have found the product prices, stop calling functions and reply
with a final text listing each finding as "product name - price - store".
Set requires_confirmation=true on any action that would buy, subscribe or
otherwise commit the user.`

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	InlineData       *geminiInlineData       `json:"inlineData,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations,omitempty"`
}

type geminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTool    `json:"tools,omitempty"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func coordSchema(extra map[string]any) map[string]any {
	props := map[string]any{
		"x": map[string]any{"type": "integer", "description": "0-999 grid x"},
		"y": map[string]any{"type": "integer", "description": "0-999 grid y"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{"type": "object", "properties": props}
}

var actionDeclarations = []geminiFunctionDeclaration{
	{Name: "click", Description: "Click at a point", Parameters: coordSchema(nil)},
	{Name: "hover", Description: "Move the pointer to a point", Parameters: coordSchema(nil)},
	{Name: "drag", Description: "Drag from (x,y) to (dest_x,dest_y)", Parameters: coordSchema(map[string]any{
		"dest_x": map[string]any{"type": "integer"},
		"dest_y": map[string]any{"type": "integer"},
	})},
	{Name: "scroll", Description: "Scroll the document", Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"direction": map[string]any{"type": "string", "enum": []string{"up", "down", "left", "right"}},
			"magnitude": map[string]any{"type": "integer", "description": "scroll distance on the 0-999 grid"},
		},
	}},
	{Name: "scroll_at", Description: "Scroll at a point", Parameters: coordSchema(map[string]any{
		"direction": map[string]any{"type": "string", "enum": []string{"up", "down", "left", "right"}},
		"magnitude": map[string]any{"type": "integer"},
	})},
	{Name: "key_combo", Description: "Press a key combination such as ctrl+a or Enter", Parameters: map[string]any{
		"type":       "object",
		"properties": map[string]any{"keys": map[string]any{"type": "string"}},
	}},
	{Name: "type_text", Description: "Type text into the focused element", Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":        map[string]any{"type": "string"},
			"clear":       map[string]any{"type": "boolean", "description": "clear the field first"},
			"press_enter": map[string]any{"type": "boolean", "description": "press Enter after typing"},
		},
	}},
	{Name: "navigate", Description: "Navigate directly to a URL", Parameters: map[string]any{
		"type":       "object",
		"properties": map[string]any{"url": map[string]any{"type": "string"}},
	}},
}

// NextTurn implements Client.
func (c *GeminiClient) NextTurn(ctx context.Context, conv *types.Conversation) (*Decision, error) {
	req := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
		Tools:             []geminiTool{{FunctionDeclarations: actionDeclarations}},
		Contents:          convertConversation(conv),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal planning request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrPlannerError, "planning service unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrPlannerError, "read planning response").WithCause(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapStatusError(resp.StatusCode, raw)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(raw, &geminiResp); err != nil {
		return nil, types.NewError(types.ErrPlannerError, "malformed planning response").WithCause(err)
	}
	if len(geminiResp.Candidates) == 0 {
		return nil, types.NewError(types.ErrPlannerError, "planning response carried no candidates")
	}

	decision := &Decision{}
	var textParts []string
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			action, err := decodeAction(part.FunctionCall)
			if err != nil {
				c.logger.Warn("skipping undecodable action",
					zap.String("name", part.FunctionCall.Name), zap.Error(err))
				continue
			}
			decision.Actions = append(decision.Actions, action)
		}
		if part.Text != "" {
			textParts = append(textParts, part.Text)
		}
	}
	decision.Text = strings.Join(textParts, "\n")

	c.logger.Debug("planning turn complete",
		zap.Int("actions", len(decision.Actions)),
		zap.Bool("terminal", len(decision.Actions) == 0 && decision.Text != ""))

	return decision, nil
}

// mapStatusError classifies upstream HTTP failures. 429 and 503 are
// transient and marked retryable; everything else aborts the task.
func mapStatusError(status int, body []byte) *types.Error {
	msg := fmt.Sprintf("planning service returned status %d", status)
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		msg = fmt.Sprintf("%s: %s", msg, parsed.Error.Message)
	}

	switch status {
	case http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, msg).
			WithHTTPStatus(status).WithRetryable(true)
	case http.StatusServiceUnavailable:
		return types.NewError(types.ErrServiceUnavailable, msg).
			WithHTTPStatus(status).WithRetryable(true)
	default:
		return types.NewError(types.ErrPlannerError, msg).WithHTTPStatus(status)
	}
}

// convertConversation maps the internal turn arena onto the wire format.
func convertConversation(conv *types.Conversation) []geminiContent {
	turns := conv.Turns()
	contents := make([]geminiContent, 0, len(turns))
	for _, turn := range turns {
		var content geminiContent
		switch turn.Role {
		case types.RoleModel:
			content.Role = "model"
			for _, action := range turn.Actions {
				content.Parts = append(content.Parts, geminiPart{
					FunctionCall: &geminiFunctionCall{
						Name: string(action.Type),
						Args: encodeActionArgs(action),
					},
				})
			}
			if turn.Text != "" {
				content.Parts = append(content.Parts, geminiPart{Text: turn.Text})
			}
		case types.RoleFunction:
			content.Role = "user"
			if turn.Outcome != nil {
				response := map[string]any{"url": turn.Outcome.URL}
				if turn.Outcome.Error != "" {
					response["error"] = turn.Outcome.Error
				}
				content.Parts = append(content.Parts, geminiPart{
					FunctionResponse: &geminiFunctionResponse{
						Name:     turn.Text, // the action name this responds to
						Response: response,
					},
				})
			}
			if turn.Image != nil {
				content.Parts = append(content.Parts, geminiPart{
					InlineData: &geminiInlineData{MimeType: turn.Image.MIMEType, Data: turn.Image.Data},
				})
			}
		default:
			content.Role = "user"
			if turn.Text != "" {
				content.Parts = append(content.Parts, geminiPart{Text: turn.Text})
			}
			if turn.Image != nil {
				content.Parts = append(content.Parts, geminiPart{
					InlineData: &geminiInlineData{MimeType: turn.Image.MIMEType, Data: turn.Image.Data},
				})
			}
		}
		if len(content.Parts) > 0 {
			contents = append(contents, content)
		}
	}
	return contents
}

func encodeActionArgs(a types.Action) map[string]any {
	raw, _ := json.Marshal(a)
	args := map[string]any{}
	_ = json.Unmarshal(raw, &args)
	delete(args, "type")
	return args
}

func decodeAction(call *geminiFunctionCall) (types.Action, error) {
	var action types.Action
	raw, err := json.Marshal(call.Args)
	if err != nil {
		return action, err
	}
	if err := json.Unmarshal(raw, &action); err != nil {
		return action, err
	}
	action.Type = types.ActionType(call.Name)
	switch action.Type {
	case types.ActionClick, types.ActionHover, types.ActionDrag, types.ActionScroll,
		types.ActionScrollAt, types.ActionKeyCombo, types.ActionTypeText, types.ActionNavigate:
	default:
		return action, fmt.Errorf("unknown action %q", call.Name)
	}
	return action, nil
}
