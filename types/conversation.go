package types

import "time"

// Role represents the role of a conversation turn participant.
type Role string

const (
	RoleUser     Role = "user"
	RoleModel    Role = "model"
	RoleFunction Role = "function"
)

// ImagePayload carries a base64-encoded screenshot attached to a turn.
type ImagePayload struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64 encoded
}

// ActionType enumerates the discrete browser actions the planning model can
// request.
type ActionType string

const (
	ActionClick    ActionType = "click"
	ActionHover    ActionType = "hover"
	ActionDrag     ActionType = "drag"
	ActionScroll   ActionType = "scroll"    // document-relative
	ActionScrollAt ActionType = "scroll_at" // point-relative
	ActionKeyCombo ActionType = "key_combo"
	ActionTypeText ActionType = "type_text"
	ActionNavigate ActionType = "navigate"
)

// Action is one discrete input event requested by the planning model.
// Coordinates are on the model's fixed 0-999 grid on each axis and must be
// denormalized to viewport pixels before dispatch.
type Action struct {
	Type       ActionType `json:"type"`
	X          int        `json:"x,omitempty"`
	Y          int        `json:"y,omitempty"`
	DestX      int        `json:"dest_x,omitempty"` // drag destination
	DestY      int        `json:"dest_y,omitempty"`
	Direction  string     `json:"direction,omitempty"` // up, down, left, right
	Magnitude  int        `json:"magnitude,omitempty"`
	Keys       string     `json:"keys,omitempty"`
	Text       string     `json:"text,omitempty"`
	Clear      bool       `json:"clear,omitempty"`       // clear field before typing
	PressEnter bool       `json:"press_enter,omitempty"` // trailing Enter after typing
	URL        string     `json:"url,omitempty"`

	// RequiresConfirmation is set by the model for actions it considers
	// sensitive. Such actions are skipped rather than executed.
	RequiresConfirmation bool `json:"requires_confirmation,omitempty"`
}

// ActionOutcome is what the model sees after one of its actions executed.
type ActionOutcome struct {
	URL           string `json:"url"`
	ScreenshotRef string `json:"screenshot_ref,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Turn is one entry in a directed-agent conversation.
type Turn struct {
	Role      Role           `json:"role"`
	Text      string         `json:"text,omitempty"`
	Image     *ImagePayload  `json:"image,omitempty"`
	Actions   []Action       `json:"actions,omitempty"`
	Outcome   *ActionOutcome `json:"outcome,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Conversation is an append-only arena of turns indexed by position. Turns
// are never mutated after being appended, which keeps screenshot references
// from earlier turns stable for replay and debugging.
type Conversation struct {
	turns []Turn
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{turns: make([]Turn, 0, 8)}
}

// Append adds a turn and returns its index.
func (c *Conversation) Append(t Turn) int {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	c.turns = append(c.turns, t)
	return len(c.turns) - 1
}

// Turns returns a copy of the turn sequence.
func (c *Conversation) Turns() []Turn {
	return append([]Turn{}, c.turns...)
}

// Len returns the number of turns.
func (c *Conversation) Len() int { return len(c.turns) }
