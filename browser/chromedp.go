package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

// ChromeDriver implements Driver on top of chromedp.
type ChromeDriver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	config      Config
	logger      *zap.Logger
	mu          sync.Mutex
}

// NewChromeDriver starts a headless Chrome instance.
func NewChromeDriver(config Config, logger *zap.Logger) (*ChromeDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(config.ProxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	driver := &ChromeDriver{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		config:      config,
		logger:      logger.With(zap.String("component", "chrome_driver")),
	}

	if err := chromedp.Run(ctx); err != nil {
		allocCancel()
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info("chrome browser started",
		zap.Bool("headless", config.Headless),
		zap.Int("viewport_w", config.ViewportWidth),
		zap.Int("viewport_h", config.ViewportHeight))

	return driver, nil
}

// Navigate loads the URL and reports the document response status.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) (*NavigateInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Debug("navigating", zap.String("url", url))

	navCtx := d.ctx
	if d.config.NavTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(d.ctx, d.config.NavTimeout)
		defer cancel()
	}

	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	info := &NavigateInfo{URL: url}
	if resp != nil {
		info.Status = int(resp.Status)
		if resp.URL != "" {
			info.URL = resp.URL
		}
	}
	return info, nil
}

// Screenshot captures a full-page screenshot.
func (d *ChromeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf []byte
	if err := chromedp.Run(d.ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// ClickAt dispatches a left click at viewport pixel coordinates.
func (d *ChromeDriver) ClickAt(ctx context.Context, x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Debug("clicking", zap.Int("x", x), zap.Int("y", y))
	return chromedp.Run(d.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MousePressed,
				float64(x), float64(y),
			).WithButton(input.Left).WithClickCount(1).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseReleased,
				float64(x), float64(y),
			).WithButton(input.Left).WithClickCount(1).Do(ctx)
		}),
	)
}

// Hover moves the pointer to the given coordinates.
func (d *ChromeDriver) Hover(ctx context.Context, x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return chromedp.Run(d.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseMoved,
				float64(x), float64(y)).Do(ctx)
		}),
	)
}

// Drag presses at the origin, moves to the destination, and releases.
func (d *ChromeDriver) Drag(ctx context.Context, fromX, fromY, toX, toY int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return chromedp.Run(d.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MousePressed,
				float64(fromX), float64(fromY),
			).WithButton(input.Left).WithClickCount(1).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseMoved,
				float64(toX), float64(toY)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseReleased,
				float64(toX), float64(toY),
			).WithButton(input.Left).WithClickCount(1).Do(ctx)
		}),
	)
}

// Scroll scrolls the document by the given deltas.
func (d *ChromeDriver) Scroll(ctx context.Context, deltaX, deltaY int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return chromedp.Run(d.ctx,
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(%d, %d)", deltaX, deltaY), nil),
	)
}

// ScrollAt dispatches a wheel event at the given point.
func (d *ChromeDriver) ScrollAt(ctx context.Context, x, y, deltaX, deltaY int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return chromedp.Run(d.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.DispatchMouseEvent(input.MouseWheel,
				float64(x), float64(y)).
				WithDeltaX(float64(deltaX)).
				WithDeltaY(float64(deltaY)).Do(ctx)
		}),
	)
}

// TypeText types text character by character with a human-like delay.
func (d *ChromeDriver) TypeText(ctx context.Context, text string, opts TypeOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return chromedp.Run(d.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if opts.Clear {
				if err := pressCombo(ctx, "ctrl+a"); err != nil {
					return err
				}
				if err := chromedp.KeyEvent(kb.Backspace).Do(ctx); err != nil {
					return err
				}
			}
			for _, ch := range text {
				if err := input.DispatchKeyEvent(input.KeyChar).
					WithText(string(ch)).Do(ctx); err != nil {
					return err
				}
				if d.config.TypeDelay > 0 {
					time.Sleep(d.config.TypeDelay)
				}
			}
			if opts.PressEnter {
				return chromedp.KeyEvent(kb.Enter).Do(ctx)
			}
			return nil
		}),
	)
}

// PressKeys dispatches a key combination like "ctrl+a" or a named key like
// "Enter".
func (d *ChromeDriver) PressKeys(ctx context.Context, combo string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return chromedp.Run(d.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return pressCombo(ctx, combo)
		}),
	)
}

var namedKeys = map[string]string{
	"enter":     kb.Enter,
	"tab":       kb.Tab,
	"escape":    kb.Escape,
	"backspace": kb.Backspace,
	"delete":    kb.Delete,
	"pageup":    kb.PageUp,
	"pagedown":  kb.PageDown,
	"home":      kb.Home,
	"end":       kb.End,
}

// CDP input modifier bits.
const (
	modAlt   = 1
	modCtrl  = 2
	modMeta  = 4
	modShift = 8
)

func pressCombo(ctx context.Context, combo string) error {
	parts := strings.Split(strings.ToLower(combo), "+")
	modifiers := int64(0)
	key := ""
	for _, part := range parts {
		switch strings.TrimSpace(part) {
		case "ctrl", "control":
			modifiers |= modCtrl
		case "alt":
			modifiers |= modAlt
		case "shift":
			modifiers |= modShift
		case "meta", "cmd":
			modifiers |= modMeta
		default:
			key = strings.TrimSpace(part)
		}
	}
	if key == "" {
		return fmt.Errorf("key combo %q carries no key", combo)
	}
	if named, ok := namedKeys[key]; ok {
		key = named
	}

	for _, r := range key {
		down := input.DispatchKeyEvent(input.KeyDown).
			WithModifiers(input.Modifier(modifiers)).
			WithText(string(r)).
			WithKey(string(r))
		if err := down.Do(ctx); err != nil {
			return err
		}
		up := input.DispatchKeyEvent(input.KeyUp).
			WithModifiers(input.Modifier(modifiers)).
			WithKey(string(r))
		if err := up.Do(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Click clicks the first element matching the selector.
func (d *ChromeDriver) Click(ctx context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return chromedp.Run(d.ctx, chromedp.Click(selector, chromedp.ByQuery))
}

// Text returns the text content of the first matching element; empty when
// nothing matches.
func (d *ChromeDriver) Text(ctx context.Context, selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var text string
	err := chromedp.Run(d.ctx,
		chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.AtLeast(0)))
	if err != nil {
		return "", fmt.Errorf("text %s: %w", selector, err)
	}
	return text, nil
}

// Texts returns the visible text of every element matching the selector.
func (d *ChromeDriver) Texts(ctx context.Context, selector string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).filter(e => e.offsetParent !== null).map(e => e.textContent.trim())`,
		sel)

	var texts []string
	if err := chromedp.Run(d.ctx, chromedp.Evaluate(script, &texts)); err != nil {
		return nil, fmt.Errorf("texts %s: %w", selector, err)
	}
	return texts, nil
}

// Visible reports whether at least one matching element is rendered.
func (d *ChromeDriver) Visible(ctx context.Context, selector string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	script := fmt.Sprintf(
		`(() => { const e = document.querySelector(%s); return !!e && e.offsetParent !== null; })()`,
		sel)

	var visible bool
	if err := chromedp.Run(d.ctx, chromedp.Evaluate(script, &visible)); err != nil {
		return false, fmt.Errorf("visible %s: %w", selector, err)
	}
	return visible, nil
}

// PageText returns the rendered text of the whole page.
func (d *ChromeDriver) PageText(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var text string
	script := `document.body ? document.body.innerText : ""`
	if err := chromedp.Run(d.ctx, chromedp.Evaluate(script, &text)); err != nil {
		return "", fmt.Errorf("page text: %w", err)
	}
	return text, nil
}

// Title returns the page title.
func (d *ChromeDriver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var title string
	if err := chromedp.Run(d.ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("title: %w", err)
	}
	return title, nil
}

// CurrentURL returns the current location.
func (d *ChromeDriver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var url string
	if err := chromedp.Run(d.ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to get URL: %w", err)
	}
	return url, nil
}

// Viewport returns the configured viewport dimensions.
func (d *ChromeDriver) Viewport() (int, int) {
	return d.config.ViewportWidth, d.config.ViewportHeight
}

// Close shuts the browser down.
func (d *ChromeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("closing chrome browser")
	d.cancel()
	d.allocCancel()
	return nil
}

// NewChromeFactory returns a Factory producing one ChromeDriver per task.
func NewChromeFactory(config Config, logger *zap.Logger) Factory {
	return func() (Driver, error) {
		return NewChromeDriver(config, logger)
	}
}
