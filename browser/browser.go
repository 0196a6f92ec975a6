// Package browser provides the headless-browser session both execution
// strategies drive. One session belongs to exactly one task; sessions are
// never shared.
package browser

import (
	"context"
	"time"
)

// Config configures a browser session.
type Config struct {
	Headless       bool          `json:"headless"`
	ViewportWidth  int           `json:"viewport_width"`
	ViewportHeight int           `json:"viewport_height"`
	NavTimeout     time.Duration `json:"nav_timeout"`
	UserAgent      string        `json:"user_agent,omitempty"`
	ProxyURL       string        `json:"proxy_url,omitempty"`
	// TypeDelay is the per-character delay for typed text, approximating
	// human typing.
	TypeDelay time.Duration `json:"type_delay"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 800,
		NavTimeout:     30 * time.Second,
		TypeDelay:      25 * time.Millisecond,
	}
}

// NavigateInfo reports the outcome of a navigation, including the HTTP
// status of the document response so callers can detect 403/429 blocking.
type NavigateInfo struct {
	URL    string
	Status int
}

// TypeOptions controls TypeText behavior.
type TypeOptions struct {
	Clear      bool // select-all and delete before typing
	PressEnter bool // trailing Enter after the text
}

// Driver is the browser control surface. Coordinate-taking methods expect
// actual viewport pixels; callers denormalize model coordinates first.
type Driver interface {
	Navigate(ctx context.Context, url string) (*NavigateInfo, error)
	Screenshot(ctx context.Context) ([]byte, error)

	ClickAt(ctx context.Context, x, y int) error
	Hover(ctx context.Context, x, y int) error
	Drag(ctx context.Context, fromX, fromY, toX, toY int) error
	Scroll(ctx context.Context, deltaX, deltaY int) error
	ScrollAt(ctx context.Context, x, y, deltaX, deltaY int) error
	TypeText(ctx context.Context, text string, opts TypeOptions) error
	PressKeys(ctx context.Context, combo string) error

	Click(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	Texts(ctx context.Context, selector string) ([]string, error)
	Visible(ctx context.Context, selector string) (bool, error)
	PageText(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)

	Viewport() (width, height int)
	Close() error
}

// Factory creates a fresh driver per task.
type Factory func() (Driver, error)
