package agent

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/pricescout/browser"
	"github.com/BaSui01/pricescout/config"
	"github.com/BaSui01/pricescout/normalize"
	"github.com/BaSui01/pricescout/types"
)

// genericPriceSelectors is the tier-2 fallback probed when a site has no
// configured price selector or it matched nothing.
var genericPriceSelectors = []string{
	"[itemprop='price']",
	"[data-price]",
	"[class*='price']",
	".price",
}

var genericNameSelectors = []string{
	"[itemprop='name']",
	"h1",
	"[data-testid*='name']",
	"h2 a span",
}

// consentSelectors covers the usual cookie/consent banners. Dismissal is
// best-effort; a banner that stays up only degrades extraction.
var consentSelectors = []string{
	"#onetrust-accept-btn-handler",
	"button[data-testid='uc-accept-all-button']",
	"button[id*='accept']",
	"button[class*='consent']",
	"[aria-label='Accept all']",
}

// Built-in CAPTCHA and block indicators. Site configs extend these lists.
var (
	genericCaptchaSelectors = []string{
		"iframe[src*='recaptcha']",
		"iframe[src*='hcaptcha']",
		"#captcha",
		"[class*='captcha']",
	}
	genericCaptchaText = []string{
		"verify you are human",
		"are you a robot",
		"unusual traffic",
		"security check",
	}
	genericBlockText = []string{
		"access denied",
		"has been blocked",
		"too many requests",
	}
	outOfStockText = []string{
		"out of stock",
		"sold out",
		"currently unavailable",
		"nicht verfügbar",
		"ausverkauft",
	}
	inStockText = []string{
		"in stock",
		"add to cart",
		"add to bag",
		"in den warenkorb",
		"auf lager",
	}
)

// Deterministic is the selector-and-heuristic execution strategy. It visits
// each target site directly, never calls a planning model, and extracts
// prices through a three-tier fallback chain.
type Deterministic struct {
	factory browser.Factory
	sites   map[string]config.SiteConfig
	settle  time.Duration
	shots   ScreenshotSaver
	logger  *zap.Logger

	limiters *limiterTable
}

// NewDeterministic builds the strategy. shots may be nil to disable
// screenshot capture.
func NewDeterministic(factory browser.Factory, sites map[string]config.SiteConfig, settle time.Duration, shots ScreenshotSaver, logger *zap.Logger) *Deterministic {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sites == nil {
		sites = config.DefaultSites()
	}
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &Deterministic{
		factory:  factory,
		sites:    sites,
		settle:   settle,
		shots:    shots,
		logger:   logger.With(zap.String("component", "agent.deterministic")),
		limiters: newLimiterTable(),
	}
}

// target is one site visit within a task.
type target struct {
	key   string // rate-limit key
	store string
	url   string
	site  *config.SiteConfig // nil when only generic tiers apply
}

// ExecuteTask implements Strategy. Target failures are isolated: one site
// blocking or failing never aborts the remaining targets.
func (d *Deterministic) ExecuteTask(ctx context.Context, task *types.ParsedTask) (*Outcome, error) {
	drv, err := d.factory()
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "start browser session").WithCause(err)
	}
	defer drv.Close()

	outcome := &Outcome{}
	var sawCaptcha, sawBlocked bool
	for _, tgt := range d.buildTargets(task) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result, err := d.runTarget(ctx, drv, tgt, task)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			switch types.GetErrorCode(err) {
			case types.ErrCaptchaDetected:
				sawCaptcha = true
			case types.ErrBlocked:
				sawBlocked = true
			}
			d.logger.Warn("target failed",
				zap.String("store", tgt.store), zap.Error(err))
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", tgt.store, err))
			continue
		}
		if result != nil {
			outcome.Results = append(outcome.Results, *result)
		}
	}

	outcome.Results = Dedupe(outcome.Results)
	switch {
	case len(outcome.Results) > 0:
		outcome.Status = types.StatusOK
	case sawCaptcha:
		outcome.Status = types.StatusCaptcha
	case sawBlocked:
		outcome.Status = types.StatusBlocked
	default:
		outcome.Status = types.StatusNotFound
	}
	return outcome, nil
}

func (d *Deterministic) buildTargets(task *types.ParsedTask) []target {
	query := SearchQuery(task)

	switch task.Sources.Mode {
	case types.SourceModeDirectURL:
		key := normalize.SiteName(task.Sources.URL)
		tgt := target{key: key, store: key, url: task.Sources.URL}
		if site, ok := d.sites[key]; ok {
			tgt.store = site.Name
			tgt.site = &site
		}
		return []target{tgt}

	case types.SourceModeSpecificSites:
		targets := make([]target, 0, len(task.Sources.Sites))
		for _, raw := range task.Sources.Sites {
			key := normalize.SiteName(raw)
			if site, ok := d.sites[key]; ok {
				targets = append(targets, target{
					key:   key,
					store: site.Name,
					url:   site.SearchURLFor(url.QueryEscape(query)),
					site:  &site,
				})
				continue
			}
			// Unknown site: search it through Google and rely on the
			// generic extraction tiers.
			targets = append(targets, target{
				key:   key,
				store: raw,
				url: "https://www.google.com/search?q=" +
					url.QueryEscape(query+" site:"+raw),
			})
		}
		return targets

	default:
		return []target{{
			key:   "google",
			store: "Google Shopping",
			url:   GoogleShoppingURL(query),
		}}
	}
}

func (d *Deterministic) runTarget(ctx context.Context, drv browser.Driver, tgt target, task *types.ParsedTask) (*types.ExtractionResult, error) {
	if err := d.limiters.wait(ctx, tgt.key, rateLimitFor(tgt.site)); err != nil {
		return nil, err
	}

	nav, err := drv.Navigate(ctx, tgt.url)
	if err != nil {
		return nil, types.NewError(types.ErrNavigation, "navigate to "+tgt.url).WithCause(err)
	}
	if nav.Status == 403 || nav.Status == 429 {
		return nil, types.NewError(types.ErrBlocked,
			fmt.Sprintf("%s answered with status %d", tgt.store, nav.Status))
	}
	if err := sleep(ctx, d.settle); err != nil {
		return nil, err
	}

	d.dismissConsent(ctx, drv)

	pageText, _ := drv.PageText(ctx)
	if err := d.detectResistance(ctx, drv, tgt.site, pageText); err != nil {
		return nil, err
	}

	price, method := d.extractPrice(ctx, drv, tgt.site, pageText)
	if price.Amount == nil {
		d.logger.Debug("no price found", zap.String("store", tgt.store))
		return nil, nil
	}

	name := d.extractName(ctx, drv, tgt.site)
	currentURL, _ := drv.CurrentURL(ctx)
	if currentURL == "" {
		currentURL = tgt.url
	}

	result := &types.ExtractionResult{
		ProductName:   name,
		CurrentPrice:  *price.Amount,
		Currency:      price.Currency,
		StoreName:     tgt.store,
		Availability:  availabilityOf(pageText),
		SelectedSize:  task.Constraints.Size,
		Timestamp:     time.Now().UTC(),
		SourceURL:     currentURL,
		MeetsCriteria: types.MeetsCriteria(*price.Amount, task.Constraints.MaxPrice),
		Method:        method,
	}
	if d.shots != nil {
		if png, err := drv.Screenshot(ctx); err == nil {
			if ref, err := d.shots.Save(tgt.key, png); err == nil {
				result.ScreenshotPath = &ref
			}
		}
	}
	return result, nil
}

func (d *Deterministic) dismissConsent(ctx context.Context, drv browser.Driver) {
	for _, sel := range consentSelectors {
		visible, err := drv.Visible(ctx, sel)
		if err != nil || !visible {
			continue
		}
		if err := drv.Click(ctx, sel); err == nil {
			d.logger.Debug("dismissed consent banner", zap.String("selector", sel))
			return
		}
	}
}

// detectResistance checks the page for CAPTCHA walls and block notices.
// Any match aborts this target only.
func (d *Deterministic) detectResistance(ctx context.Context, drv browser.Driver, site *config.SiteConfig, pageText string) error {
	captchaSelectors := genericCaptchaSelectors
	captchaText := genericCaptchaText
	blockText := genericBlockText
	if site != nil {
		captchaText = append(captchaText, site.CaptchaIndicators...)
		blockText = append(blockText, site.BlockIndicators...)
	}

	for _, sel := range captchaSelectors {
		if visible, err := drv.Visible(ctx, sel); err == nil && visible {
			return types.NewError(types.ErrCaptchaDetected, "captcha element "+sel)
		}
	}
	lower := strings.ToLower(pageText)
	for _, marker := range captchaText {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return types.NewError(types.ErrCaptchaDetected, "captcha marker "+marker)
		}
	}
	for _, marker := range blockText {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return types.NewError(types.ErrBlocked, "block marker "+marker)
		}
	}
	return nil
}

// extractPrice runs the three extraction tiers in order: the site's own
// selector, generic price selectors, then a regex scan of the page text.
func (d *Deterministic) extractPrice(ctx context.Context, drv browser.Driver, site *config.SiteConfig, pageText string) (normalize.Price, types.ExtractionMethod) {
	if site != nil && site.Selectors.Price != "" {
		if p := firstPrice(ctx, drv, site.Selectors.Price); p.Amount != nil {
			return p, types.MethodSiteSelector
		}
	}
	for _, sel := range genericPriceSelectors {
		if p := firstPrice(ctx, drv, sel); p.Amount != nil {
			return p, types.MethodGenericSelector
		}
	}
	for _, line := range strings.Split(pageText, "\n") {
		if !strings.ContainsAny(line, "€$£") {
			continue
		}
		if p := normalize.ParsePrice(line); p.Amount != nil {
			return p, types.MethodRegexScan
		}
	}
	return normalize.Price{}, ""
}

func firstPrice(ctx context.Context, drv browser.Driver, selector string) normalize.Price {
	texts, err := drv.Texts(ctx, selector)
	if err != nil {
		return normalize.Price{}
	}
	for _, t := range texts {
		if p := normalize.ParsePrice(t); p.Amount != nil {
			return p
		}
	}
	return normalize.Price{}
}

func (d *Deterministic) extractName(ctx context.Context, drv browser.Driver, site *config.SiteConfig) string {
	selectors := genericNameSelectors
	if site != nil && site.Selectors.Name != "" {
		selectors = append([]string{site.Selectors.Name}, selectors...)
	}
	for _, sel := range selectors {
		if text, err := drv.Text(ctx, sel); err == nil {
			if text = strings.TrimSpace(text); text != "" {
				return text
			}
		}
	}
	title, _ := drv.Title(ctx)
	return strings.TrimSpace(title)
}

// availabilityOf resolves stock state from page text. Out-of-stock markers
// win over in-stock markers since "add to cart" often stays rendered on
// sold-out pages.
func availabilityOf(pageText string) types.Availability {
	lower := strings.ToLower(pageText)
	for _, marker := range outOfStockText {
		if strings.Contains(lower, marker) {
			return types.AvailabilityOutOfStock
		}
	}
	for _, marker := range inStockText {
		if strings.Contains(lower, marker) {
			return types.AvailabilityInStock
		}
	}
	return types.AvailabilityUnknown
}

func rateLimitFor(site *config.SiteConfig) time.Duration {
	if site != nil && site.RateLimit > 0 {
		return site.RateLimit
	}
	return time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
