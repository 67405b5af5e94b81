package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"locator-capture/internal/dom"
	"locator-capture/internal/entity"
	"locator-capture/internal/export"
	"locator-capture/internal/locator"
	"locator-capture/internal/session"
	"locator-capture/pkg/apperr"
)

const page = `<html><head></head><body><form><button id="submit-btn">Go</button></form><section></section></body></html>`

type fakeBrowser struct {
	html      string
	ready     bool
	active    []bool
	cleared   int
	captures  chan entity.CaptureEvent
	snapshots int
}

func (f *fakeBrowser) Launch(context.Context) error           { return nil }
func (f *fakeBrowser) Close(context.Context) error            { return nil }
func (f *fakeBrowser) Navigate(context.Context, string) error { return nil }
func (f *fakeBrowser) IsReady() bool                          { return f.ready }

func (f *fakeBrowser) SetCapturing(_ context.Context, active bool) error {
	f.active = append(f.active, active)

	return nil
}

func (f *fakeBrowser) Snapshot(context.Context) (*html.Node, error) {
	f.snapshots++

	return dom.ParseString(f.html)
}

func (f *fakeBrowser) ClearHighlight(context.Context) error {
	f.cleared++

	return nil
}

func (f *fakeBrowser) Captures() <-chan entity.CaptureEvent { return f.captures }

type fakeExporter struct {
	written [][]entity.LocatorResult
	err     error
}

func (f *fakeExporter) Write(results []entity.LocatorResult) (string, error) {
	if len(results) == 0 {
		return "", export.ErrNothingCaptured
	}
	if f.err != nil {
		return "", f.err
	}
	f.written = append(f.written, results)

	return "/exports/locators_20261017.json", nil
}

type fakePrompter struct {
	answer entity.Identity
	ok     bool
	calls  int
}

func (f *fakePrompter) PromptIdentity(context.Context, entity.IdentityHint) (entity.Identity, bool) {
	f.calls++

	return f.answer, f.ok
}

type fixture struct {
	svc      *CaptureService
	browser  *fakeBrowser
	exporter *fakeExporter
	prompter *fakePrompter
}

func newFixture(t *testing.T) *fixture {
	logger := zaptest.NewLogger(t)
	f := &fixture{
		browser:  &fakeBrowser{html: page, ready: true, captures: make(chan entity.CaptureEvent, 4)},
		exporter: &fakeExporter{},
		prompter: &fakePrompter{ok: false},
	}

	f.svc = NewCaptureService(CaptureServiceParams{
		Logger:      logger,
		Browser:     f.browser,
		Synthesizer: locator.NewSynthesizer(locator.Params{Logger: logger, Prompter: f.prompter}),
		Exporter:    f.exporter,
		Session:     session.New(logger),
	})

	return f
}

// body is element child 1 of <html>; button sits at body > form(0) > button(0).
var buttonClick = entity.CaptureEvent{Tag: "button", IndexPath: []int{1, 0, 0}}

func TestCaptureSessionRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.svc.Dispatch(ctx, session.ActionStart)
	require.NoError(t, err)
	assert.Equal(t, entity.Status{IsCapturing: true}, report.Status)

	result, err := f.svc.HandleCapture(ctx, buttonClick)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Go", result.ElementName)
	assert.Equal(t, "Button", result.ElementType)

	report, err = f.svc.Dispatch(ctx, session.ActionStop)
	require.NoError(t, err)
	assert.Equal(t, entity.Status{}, report.Status)
	assert.Equal(t, 1, report.Count)
	assert.Equal(t, "/exports/locators_20261017.json", report.Path)
	assert.Empty(t, report.Notice)

	require.Len(t, f.exporter.written, 1)
	assert.Equal(t, *result, f.exporter.written[0][0])
	assert.Equal(t, []bool{true, false}, f.browser.active)
}

func TestStopWithNothingCapturedGivesNotice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Dispatch(ctx, session.ActionStart)
	require.NoError(t, err)

	report, err := f.svc.Dispatch(ctx, session.ActionStop)
	require.NoError(t, err)
	assert.Equal(t, export.NothingCapturedNotice, report.Notice)
	assert.Empty(t, report.Path)
}

func TestStopPropagatesExportFailure(t *testing.T) {
	f := newFixture(t)
	f.exporter.err = errors.New("disk full")
	ctx := context.Background()

	_, err := f.svc.Dispatch(ctx, session.ActionStart)
	require.NoError(t, err)
	_, err = f.svc.HandleCapture(ctx, buttonClick)
	require.NoError(t, err)

	report, err := f.svc.Dispatch(ctx, session.ActionStop)
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, entity.Status{IsCapturing: true}, report.Status)
	assert.Equal(t, []bool{true, false, true}, f.browser.active)
	assert.Empty(t, f.exporter.written)

	f.exporter.err = nil

	report, err = f.svc.Dispatch(ctx, session.ActionStop)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count)
	assert.Equal(t, entity.Status{}, report.Status)
	require.Len(t, f.exporter.written, 1)
	assert.Len(t, f.exporter.written[0], 1)
}

func TestStopFailureKeepsPausedSession(t *testing.T) {
	f := newFixture(t)
	f.exporter.err = errors.New("permission denied")
	ctx := context.Background()

	_, err := f.svc.Dispatch(ctx, session.ActionStart)
	require.NoError(t, err)
	_, err = f.svc.HandleCapture(ctx, buttonClick)
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, session.ActionPause)
	require.NoError(t, err)

	report, err := f.svc.Dispatch(ctx, session.ActionStop)
	require.Error(t, err)
	assert.Equal(t, entity.Status{IsCapturing: true, IsPaused: true}, report.Status)

	result, err := f.svc.HandleCapture(ctx, buttonClick)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestCaptureIgnoredWhilePaused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Dispatch(ctx, session.ActionStart)
	require.NoError(t, err)
	report, err := f.svc.Dispatch(ctx, session.ActionPause)
	require.NoError(t, err)
	assert.Equal(t, entity.Status{IsCapturing: true, IsPaused: true}, report.Status)

	result, err := f.svc.HandleCapture(ctx, buttonClick)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Zero(t, f.browser.snapshots)
}

func TestCancelledPromptClearsHighlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Dispatch(ctx, session.ActionStart)
	require.NoError(t, err)

	result, err := f.svc.HandleCapture(ctx, entity.CaptureEvent{Tag: "section", IndexPath: []int{1, 1}})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, f.prompter.calls)
	assert.Equal(t, 1, f.browser.cleared)

	report, err := f.svc.Dispatch(ctx, session.ActionStop)
	require.NoError(t, err)
	assert.Zero(t, report.Count)
}

func TestCaptureSnapshotMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Dispatch(ctx, session.ActionStart)
	require.NoError(t, err)

	_, err = f.svc.HandleCapture(ctx, entity.CaptureEvent{Tag: "a", IndexPath: []int{1, 0, 0}})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = f.svc.HandleCapture(ctx, entity.CaptureEvent{Tag: "button", IndexPath: []int{1, 9}})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestDispatchUnknownAction(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Dispatch(context.Background(), session.Action("JUMP"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnknownAction, apperr.CodeOf(err))
}

func TestSynthesizeHTML(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.SynthesizeHTML(ctx, page, "//button")
	require.NoError(t, err)
	assert.Equal(t, "Go", result.ElementName)
	assert.Contains(t, result.UniqueLocators, entity.Candidate{Type: entity.StrategyID, Value: "submit-btn"})

	result, err = f.svc.SynthesizeHTML(ctx, page, "//section")
	require.NoError(t, err)
	assert.Equal(t, locator.NotAvailable, result.ElementName)
	assert.Zero(t, f.prompter.calls)
}

func TestSynthesizeHTMLErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		source string
		target string
		code   string
	}{
		{"empty html", "  ", "//a", apperr.CodeInvalidArgument},
		{"bad xpath", page, "//[", apperr.CodeInvalidArgument},
		{"no match", page, "//table", apperr.CodeNotFound},
		{"ambiguous", `<p>a</p><p>b</p>`, "//p", apperr.CodeAmbiguousTarget},
		{"not an element", page, "//button/text()", apperr.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SynthesizeHTML(ctx, tt.source, tt.target)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func TestRunProcessesEventsInOrder(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.svc.Dispatch(ctx, session.ActionStart)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		f.svc.Run(ctx)
		close(done)
	}()

	f.browser.captures <- buttonClick
	close(f.browser.captures)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the capture channel closed")
	}

	report, err := f.svc.Dispatch(context.Background(), session.ActionStop)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count)
}
