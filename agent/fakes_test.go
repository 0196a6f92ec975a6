package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/pricescout/browser"
	"github.com/BaSui01/pricescout/planner"
	"github.com/BaSui01/pricescout/types"
)

// fakeDriver is a scriptable in-memory browser.Driver.
type fakeDriver struct {
	mu sync.Mutex

	// navFn decides each navigation's outcome; nil means status 200.
	navFn func(url string) (*browser.NavigateInfo, error)

	texts    map[string][]string // selector -> element texts
	visible  map[string]bool
	pageText string
	title    string

	currentURL string
	dispatched []string // record of input events and clicks
	closed     bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		texts:   map[string][]string{},
		visible: map[string]bool{},
	}
}

func (f *fakeDriver) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, event)
}

func (f *fakeDriver) Navigate(_ context.Context, url string) (*browser.NavigateInfo, error) {
	f.record("navigate " + url)
	f.mu.Lock()
	f.currentURL = url
	f.mu.Unlock()
	if f.navFn != nil {
		return f.navFn(url)
	}
	return &browser.NavigateInfo{URL: url, Status: 200}, nil
}

func (f *fakeDriver) Screenshot(context.Context) ([]byte, error) { return []byte("png-bytes"), nil }

func (f *fakeDriver) ClickAt(_ context.Context, x, y int) error {
	f.record(fmt.Sprintf("click_at %d,%d", x, y))
	return nil
}

func (f *fakeDriver) Hover(_ context.Context, x, y int) error {
	f.record(fmt.Sprintf("hover %d,%d", x, y))
	return nil
}

func (f *fakeDriver) Drag(_ context.Context, x1, y1, x2, y2 int) error {
	f.record(fmt.Sprintf("drag %d,%d->%d,%d", x1, y1, x2, y2))
	return nil
}

func (f *fakeDriver) Scroll(_ context.Context, dx, dy int) error {
	f.record(fmt.Sprintf("scroll %d,%d", dx, dy))
	return nil
}

func (f *fakeDriver) ScrollAt(_ context.Context, x, y, dx, dy int) error {
	f.record(fmt.Sprintf("scroll_at %d,%d %d,%d", x, y, dx, dy))
	return nil
}

func (f *fakeDriver) TypeText(_ context.Context, text string, _ browser.TypeOptions) error {
	f.record("type " + text)
	return nil
}

func (f *fakeDriver) PressKeys(_ context.Context, combo string) error {
	f.record("keys " + combo)
	return nil
}

func (f *fakeDriver) Click(_ context.Context, selector string) error {
	f.record("click " + selector)
	return nil
}

func (f *fakeDriver) Text(ctx context.Context, selector string) (string, error) {
	texts, _ := f.Texts(ctx, selector)
	if len(texts) == 0 {
		return "", nil
	}
	return texts[0], nil
}

func (f *fakeDriver) Texts(_ context.Context, selector string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[selector], nil
}

func (f *fakeDriver) Visible(_ context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible[selector], nil
}

func (f *fakeDriver) PageText(context.Context) (string, error) { return f.pageText, nil }
func (f *fakeDriver) Title(context.Context) (string, error)    { return f.title, nil }

func (f *fakeDriver) CurrentURL(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentURL, nil
}

func (f *fakeDriver) Viewport() (int, int) { return 1000, 1000 }

func (f *fakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeDriver) factory() browser.Factory {
	return func() (browser.Driver, error) { return f, nil }
}

// scriptedPlanner replays a fixed sequence of planning outcomes.
type scriptedPlanner struct {
	mu    sync.Mutex
	steps []func() (*planner.Decision, error)
	calls int
}

func (p *scriptedPlanner) NextTurn(context.Context, *types.Conversation) (*planner.Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls >= len(p.steps) {
		return nil, types.NewError(types.ErrPlannerError, "script exhausted")
	}
	step := p.steps[p.calls]
	p.calls++
	return step()
}

func decide(d planner.Decision) func() (*planner.Decision, error) {
	return func() (*planner.Decision, error) { return &d, nil }
}

func fail(err error) func() (*planner.Decision, error) {
	return func() (*planner.Decision, error) { return nil, err }
}
