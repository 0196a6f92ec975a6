package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pricescout/browser"
	"github.com/BaSui01/pricescout/planner"
	"github.com/BaSui01/pricescout/retry"
	"github.com/BaSui01/pricescout/types"
)

// DirectedConfig tunes the directed strategy.
type DirectedConfig struct {
	// MaxTurns bounds the planning loop. The loop ends earlier when the
	// model answers with terminal text instead of actions.
	MaxTurns int
	// Settle is the pause after each dispatched action before the next
	// screenshot, giving the page time to react.
	Settle time.Duration
}

// DefaultDirectedConfig returns the standard loop bounds.
func DefaultDirectedConfig() DirectedConfig {
	return DirectedConfig{MaxTurns: 20, Settle: time.Second}
}

// Directed is the vision-model execution strategy. A planning model sees a
// screenshot each turn and requests discrete browser actions until it
// reports its findings as text. Price candidates are also scanned from the
// DOM after every action, independent of what the model reports.
type Directed struct {
	factory browser.Factory
	client  planner.Client
	retryer retry.Retryer
	cfg     DirectedConfig
	shots   ScreenshotSaver
	logger  *zap.Logger
}

// NewDirected builds the strategy. retryer wraps every planning call;
// shots may be nil to disable screenshot persistence.
func NewDirected(factory browser.Factory, client planner.Client, retryer retry.Retryer, cfg DirectedConfig, shots ScreenshotSaver, logger *zap.Logger) *Directed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 20
	}
	if cfg.Settle <= 0 {
		cfg.Settle = time.Second
	}
	if retryer == nil {
		policy := retry.DefaultPolicy()
		policy.Retryable = planner.IsRetryable
		retryer = retry.NewBackoffRetryer(policy, logger)
	}
	return &Directed{
		factory: factory,
		client:  client,
		retryer: retryer,
		cfg:     cfg,
		shots:   shots,
		logger:  logger.With(zap.String("component", "agent.directed")),
	}
}

// ExecuteTask implements Strategy. The browser session is torn down on
// every exit path.
func (d *Directed) ExecuteTask(ctx context.Context, task *types.ParsedTask) (*Outcome, error) {
	drv, err := d.factory()
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "start browser session").WithCause(err)
	}
	defer drv.Close()

	outcome := &Outcome{}
	var candidates []types.ExtractionResult

	startURL := d.startURL(task)
	if _, err := drv.Navigate(ctx, startURL); err != nil {
		return nil, types.NewError(types.ErrNavigation, "navigate to "+startURL).WithCause(err)
	}
	if err := sleep(ctx, d.cfg.Settle); err != nil {
		return nil, err
	}

	conv := types.NewConversation()
	seed := types.Turn{Role: types.RoleUser, Text: BuildGoal(task)}
	if img, _ := d.capture(ctx, drv, "seed"); img != nil {
		seed.Image = img
	}
	conv.Append(seed)

	terminal := false
	for turn := 1; turn <= d.cfg.MaxTurns && !terminal; turn++ {
		var decision *planner.Decision
		err := d.retryer.Do(ctx, func() error {
			var turnErr error
			decision, turnErr = d.client.NextTurn(ctx, conv)
			return turnErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Planning is unrecoverable: keep whatever the DOM scans
			// collected so far and stop.
			d.logger.Error("planning failed", zap.Int("turn", turn), zap.Error(err))
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("planning: %v", err))
			outcome.Turns = turn
			outcome.Results = Dedupe(candidates)
			if len(outcome.Results) > 0 {
				outcome.Status = types.StatusOK
			} else {
				outcome.Status = types.StatusTimeout
			}
			return outcome, nil
		}
		outcome.Turns = turn

		conv.Append(types.Turn{
			Role:    types.RoleModel,
			Text:    decision.Text,
			Actions: decision.Actions,
		})

		if len(decision.Actions) == 0 {
			if decision.Text != "" {
				candidates = append(candidates, ParseReport(decision.Text, task)...)
			}
			terminal = true
			break
		}

		for _, action := range decision.Actions {
			reply := types.Turn{Role: types.RoleFunction, Text: string(action.Type)}

			if action.RequiresConfirmation {
				d.logger.Info("skipping action pending confirmation",
					zap.String("action", string(action.Type)))
				currentURL, _ := drv.CurrentURL(ctx)
				reply.Outcome = &types.ActionOutcome{
					URL:   currentURL,
					Error: "action skipped: requires user confirmation",
				}
				conv.Append(reply)
				continue
			}

			dispatchErr := d.dispatch(ctx, drv, action)
			if err := sleep(ctx, d.cfg.Settle); err != nil {
				return nil, err
			}

			currentURL, _ := drv.CurrentURL(ctx)
			reply.Outcome = &types.ActionOutcome{URL: currentURL}
			if dispatchErr != nil {
				d.logger.Warn("action failed",
					zap.String("action", string(action.Type)), zap.Error(dispatchErr))
				reply.Outcome.Error = dispatchErr.Error()
			}

			img, ref := d.capture(ctx, drv, fmt.Sprintf("turn-%02d", turn))
			reply.Image = img
			reply.Outcome.ScreenshotRef = ref
			conv.Append(reply)

			candidates = append(candidates, d.scanPrices(ctx, drv, task)...)
		}
	}

	if !terminal {
		d.logger.Warn("turn limit reached", zap.Int("max_turns", d.cfg.MaxTurns))
		outcome.Errors = append(outcome.Errors,
			fmt.Sprintf("stopped after %d planning turns", d.cfg.MaxTurns))
	}

	outcome.Results = Dedupe(candidates)
	if len(outcome.Results) > 0 {
		outcome.Status = types.StatusOK
	} else {
		outcome.Status = types.StatusNotFound
	}
	return outcome, nil
}

func (d *Directed) startURL(task *types.ParsedTask) string {
	if task.Sources.Mode == types.SourceModeDirectURL && task.Sources.URL != "" {
		return task.Sources.URL
	}
	return GoogleShoppingURL(SearchQuery(task))
}

// capture takes a screenshot, persists it when a saver is configured, and
// returns the inline payload plus the saved reference.
func (d *Directed) capture(ctx context.Context, drv browser.Driver, name string) (*types.ImagePayload, string) {
	png, err := drv.Screenshot(ctx)
	if err != nil {
		d.logger.Warn("screenshot failed", zap.Error(err))
		return nil, ""
	}
	ref := ""
	if d.shots != nil {
		if saved, err := d.shots.Save(name, png); err == nil {
			ref = saved
		}
	}
	return &types.ImagePayload{
		MIMEType: "image/png",
		Data:     base64.StdEncoding.EncodeToString(png),
	}, ref
}

// dispatch denormalizes grid coordinates against the live viewport and
// executes one action.
func (d *Directed) dispatch(ctx context.Context, drv browser.Driver, a types.Action) error {
	w, h := drv.Viewport()
	switch a.Type {
	case types.ActionClick:
		return drv.ClickAt(ctx, DenormalizeCoord(a.X, w), DenormalizeCoord(a.Y, h))
	case types.ActionHover:
		return drv.Hover(ctx, DenormalizeCoord(a.X, w), DenormalizeCoord(a.Y, h))
	case types.ActionDrag:
		return drv.Drag(ctx,
			DenormalizeCoord(a.X, w), DenormalizeCoord(a.Y, h),
			DenormalizeCoord(a.DestX, w), DenormalizeCoord(a.DestY, h))
	case types.ActionScroll:
		dx, dy := scrollDeltas(a.Direction, a.Magnitude, w, h)
		return drv.Scroll(ctx, dx, dy)
	case types.ActionScrollAt:
		dx, dy := scrollDeltas(a.Direction, a.Magnitude, w, h)
		return drv.ScrollAt(ctx, DenormalizeCoord(a.X, w), DenormalizeCoord(a.Y, h), dx, dy)
	case types.ActionKeyCombo:
		return drv.PressKeys(ctx, a.Keys)
	case types.ActionTypeText:
		return drv.TypeText(ctx, a.Text, browser.TypeOptions{Clear: a.Clear, PressEnter: a.PressEnter})
	case types.ActionNavigate:
		_, err := drv.Navigate(ctx, a.URL)
		return err
	default:
		return fmt.Errorf("unsupported action %q", a.Type)
	}
}

// scrollDeltas converts a grid-relative scroll magnitude into pixel deltas
// along the requested axis.
func scrollDeltas(direction string, magnitude, w, h int) (dx, dy int) {
	if magnitude <= 0 {
		magnitude = 500
	}
	switch direction {
	case "up":
		return 0, -DenormalizeCoord(magnitude, h)
	case "left":
		return -DenormalizeCoord(magnitude, w), 0
	case "right":
		return DenormalizeCoord(magnitude, w), 0
	default:
		return 0, DenormalizeCoord(magnitude, h)
	}
}

// scanPrices reads price-looking DOM nodes on the current page, independent
// of the model's own reporting.
func (d *Directed) scanPrices(ctx context.Context, drv browser.Driver, task *types.ParsedTask) []types.ExtractionResult {
	texts, err := drv.Texts(ctx, "[itemprop='price'], [data-price], [class*='price']")
	if err != nil || len(texts) == 0 {
		return nil
	}

	name, _ := drv.Title(ctx)
	currentURL, _ := drv.CurrentURL(ctx)
	store := storeFromURL(currentURL)

	var results []types.ExtractionResult
	for _, t := range texts {
		p := normalizePriceText(t)
		if p.Amount == nil {
			continue
		}
		results = append(results, types.ExtractionResult{
			ProductName:   name,
			CurrentPrice:  *p.Amount,
			Currency:      p.Currency,
			StoreName:     store,
			Availability:  types.AvailabilityUnknown,
			SelectedSize:  task.Constraints.Size,
			Timestamp:     time.Now().UTC(),
			SourceURL:     currentURL,
			MeetsCriteria: types.MeetsCriteria(*p.Amount, task.Constraints.MaxPrice),
			Method:        types.MethodDOMScan,
		})
	}
	return results
}
