package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"locator-capture/internal/config"
	"locator-capture/internal/dom"
	"locator-capture/internal/entity"
	"locator-capture/internal/locator"
	"locator-capture/pkg/apperr"
	"locator-capture/pkg/logg"
	"locator-capture/pkg/tracing"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	captureBuffer      = 32
)

type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext

	mu       sync.Mutex
	page     playwright.Page
	ready    bool
	captures chan entity.CaptureEvent

	capturing atomic.Bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer:   otel.Tracer(browserTracer),
		captures: make(chan entity.CaptureEvent, captureBuffer),
	}
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")
	step.AddEvent("installing playwright")

	if err = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	if m.config.BrowserConfig.UserDataDir != "" {
		err = m.launchPersistent(ctx)
	} else {
		err = m.launchNew(ctx)
	}
	if err != nil {
		return err
	}

	if err = m.installCaptureHooks(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()

	if url := m.config.BrowserConfig.StartURL; url != "" {
		if err = m.Navigate(ctx, url); err != nil {
			logger.Warn("Failed to open start URL", zap.String(logg.URL, url), zap.Error(err))
		}
	}

	logger.Info("Browser launched successfully")

	return nil
}

func (m *Manager) launchPersistent(ctx context.Context) (err error) {
	const op = "launchPersistent"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	userDataDir := m.config.BrowserConfig.UserDataDir

	if err = os.MkdirAll(userDataDir, 0o755); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	browserContext, err := m.playwright.Chromium.LaunchPersistentContext(userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Viewport: &playwright.Size{Width: 1440, Height: 900},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "launch_persistent_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browserContext = browserContext

	if pages := browserContext.Pages(); len(pages) > 0 {
		m.page = pages[0]
		logger.Info("Using existing page")

		return nil
	}

	page, err := browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "new_page_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.page = page

	return nil
}

func (m *Manager) launchNew(ctx context.Context) (err error) {
	const op = "launchNew"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1440, Height: 900},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browserContext = browserContext

	page, err := browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.page = page

	return nil
}

// installCaptureHooks exposes the page→Go bindings and registers the
// capture script for every current and future document of the context.
func (m *Manager) installCaptureHooks(ctx context.Context) (err error) {
	const op = "installCaptureHooks"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = m.browserContext.ExposeBinding(stateBinding, func(_ *playwright.BindingSource, _ ...interface{}) interface{} {
		return m.capturing.Load()
	}); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "expose_state_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	if err = m.browserContext.ExposeBinding(capturedBinding, m.onCaptured); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "expose_capture_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	script := captureScript(locator.MarkerClass)
	if err = m.browserContext.AddInitScript(playwright.Script{Content: &script}); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "init_script_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	// Documents that were already loaded do not run init scripts.
	for _, p := range m.browserContext.Pages() {
		if _, err := p.Evaluate(script); err != nil {
			logger.Warn("Failed to inject capture script into open page", zap.String(logg.URL, p.URL()), zap.Error(err))
		}
	}

	return nil
}

func (m *Manager) onCaptured(source *playwright.BindingSource, args ...interface{}) interface{} {
	if !m.capturing.Load() || len(args) == 0 {
		return false
	}

	event, ok := parseCaptureEvent(args[0])
	if !ok {
		m.logger.Warn("Ignoring malformed capture event", zap.Any("payload", args[0]))

		return false
	}

	if source != nil && source.Page != nil {
		m.mu.Lock()
		m.page = source.Page
		m.mu.Unlock()
	}

	select {
	case m.captures <- event:
		return true
	default:
		m.logger.Warn("Capture queue full, dropping click", zap.String(logg.Tag, event.Tag))

		return false
	}
}

func parseCaptureEvent(payload interface{}) (entity.CaptureEvent, bool) {
	raw, ok := payload.(map[string]interface{})
	if !ok {
		return entity.CaptureEvent{}, false
	}

	event := entity.CaptureEvent{
		Tag: getString(raw, "tag"),
		URL: getString(raw, "url"),
	}

	items, ok := raw["path"].([]interface{})
	if !ok || event.Tag == "" {
		return entity.CaptureEvent{}, false
	}

	event.IndexPath = make([]int, 0, len(items))
	for _, item := range items {
		idx, ok := toInt(item)
		if !ok {
			return entity.CaptureEvent{}, false
		}
		event.IndexPath = append(event.IndexPath, idx)
	}

	return event, true
}

func (m *Manager) Captures() <-chan entity.CaptureEvent {
	return m.captures
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	m.mu.Lock()
	m.ready = false
	m.mu.Unlock()
	m.capturing.Store(false)

	if m.browserContext != nil {
		if err := m.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if m.playwright != nil {
		if err = m.playwright.Stop(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_stop_failed",
			})
		}
	}

	logger.Info("Browser closed")

	return nil
}

// activePage returns a live page, reconnecting to another open page or
// creating one when the current one was closed.
func (m *Manager) activePage() (playwright.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready || m.browserContext == nil {
		return nil, fmt.Errorf("browser is not ready")
	}

	if m.page != nil && !m.page.IsClosed() {
		return m.page, nil
	}

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			m.page = p
			m.logger.Info("Reconnected to existing page")

			return p, nil
		}
	}

	page, err := m.browserContext.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	m.page = page

	return page, nil
}

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	if _, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageBrowser,
			apperr.MetaURL:    url,
		})
	}

	return nil
}

// SetCapturing switches the in-page hover and click listeners on or off.
func (m *Manager) SetCapturing(ctx context.Context, active bool) (err error) {
	const op = "SetCapturing"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.Bool("active", active))
	defer func() {
		step.End(err)
	}()

	m.capturing.Store(active)

	page, err := m.activePage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	if _, err = page.Evaluate(`active => window.__locatorCapture ? window.__locatorCapture.setActive(active) : false`, active); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	return nil
}

func (m *Manager) ClearHighlight(ctx context.Context) (err error) {
	const op = "ClearHighlight"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	if _, err = page.Evaluate(`() => window.__locatorCapture && window.__locatorCapture.clear()`); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	return nil
}

// Snapshot parses the current document. The highlight marker is stripped so
// the tree matches the page as the site rendered it.
func (m *Manager) Snapshot(ctx context.Context) (doc *html.Node, err error) {
	const op = "Snapshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	content, err := page.Content()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "content_failed",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	doc, err = dom.ParseString(content)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "parse_failed",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	if n := dom.RemoveClass(doc, locator.MarkerClass); n > 0 {
		step.AddEvent("marker stripped", attribute.Int("elements", n))
	}

	return doc, nil
}

func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ready
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}

		return int(n), true
	}

	return 0, false
}
