package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-capture/internal/dom"
	"locator-capture/internal/entity"
	"locator-capture/internal/export"
	"locator-capture/internal/locator"
	"locator-capture/internal/ports"
	"locator-capture/internal/session"
	"locator-capture/pkg/apperr"
	"locator-capture/pkg/logg"
	"locator-capture/pkg/tracing"
)

const (
	captureServiceName = "CaptureService"
	captureTracer      = "usecase.capture"
)

type CaptureService struct {
	logger      *zap.Logger
	tracer      trace.Tracer
	browser     ports.BrowserManager
	synthesizer ports.Synthesizer
	exporter    ports.Exporter
	session     *session.Session
}

type CaptureServiceParams struct {
	fx.In

	Logger      *zap.Logger
	Browser     ports.BrowserManager
	Synthesizer ports.Synthesizer
	Exporter    ports.Exporter
	Session     *session.Session
}

func NewCaptureService(params CaptureServiceParams) *CaptureService {
	return &CaptureService{
		logger:      params.Logger.With(zap.String(logg.Layer, captureServiceName)),
		tracer:      otel.Tracer(captureTracer),
		browser:     params.Browser,
		synthesizer: params.Synthesizer,
		exporter:    params.Exporter,
		session:     params.Session,
	}
}

// Dispatch handles one session-control message. Stop also exports what was
// captured; the report's Notice is set when there was nothing to export.
func (s *CaptureService) Dispatch(ctx context.Context, action session.Action) (report entity.StopReport, err error) {
	const op = "Dispatch"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Action, string(action)))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("action", string(action)))
	defer func() {
		step.End(err)
	}()

	t, err := s.session.Handle(action)
	if err != nil {
		return entity.StopReport{Status: s.session.Status()}, err
	}

	report = entity.StopReport{SessionID: t.ID, Status: t.Status}

	if !t.Changed() {
		return report, nil
	}

	s.setCapturing(ctx, logger, t.To == entity.SessionCapturing)

	if action != session.ActionStop {
		return report, nil
	}

	report.Count = len(t.Results)

	path, err := s.exporter.Write(t.Results)
	switch {
	case errors.Is(err, export.ErrNothingCaptured):
		report.Notice = export.NothingCapturedNotice
		logger.Info(report.Notice, zap.String(logg.SessionID, t.ID.String()))

		return report, nil
	case err != nil:
		if s.session.Restore(t) {
			report.Status = s.session.Status()
			s.setCapturing(ctx, logger, t.From == entity.SessionCapturing)
		}

		return report, err
	}

	report.Path = path
	logger.Info("Capture session stopped",
		zap.String(logg.SessionID, t.ID.String()),
		zap.String(logg.Path, path),
		zap.Int("count", report.Count))

	return report, nil
}

func (s *CaptureService) setCapturing(ctx context.Context, logger *zap.Logger, active bool) {
	if !s.browser.IsReady() {
		return
	}

	if err := s.browser.SetCapturing(ctx, active); err != nil {
		logger.Warn("Failed to update page listeners", zap.Bool("active", active), zap.Error(err))
	}
}

func (s *CaptureService) Status() entity.Status {
	return s.session.Status()
}

// HandleCapture turns a click reported by the page into a recorded result.
// It returns nil without error when capture is inactive or the operator
// declined to name the element.
func (s *CaptureService) HandleCapture(ctx context.Context, event entity.CaptureEvent) (result *entity.LocatorResult, err error) {
	const op = "HandleCapture"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Tag, event.Tag))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("tag", event.Tag),
		attribute.String("url", event.URL))
	defer func() {
		step.End(err)
	}()

	if !s.session.Active() {
		logger.Debug("Ignoring capture outside an active session")

		return nil, nil
	}

	doc, err := s.browser.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	target, err := dom.ResolveIndexPath(doc, event.IndexPath)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaStage: apperr.StageSnapshot,
			apperr.MetaPath:  fmt.Sprint(event.IndexPath),
		})
	}

	if got := dom.Tag(target); event.Tag != "" && got != event.Tag {
		return nil, apperr.Wrap(op, apperr.CodeNotFound, fmt.Errorf("snapshot has <%s> where the page reported <%s>", got, event.Tag), map[string]any{
			apperr.MetaReason: "snapshot_mismatch",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	result, ok := s.synthesizer.Synthesize(ctx, target)
	if !ok {
		step.AddEvent("capture abandoned")
		if err := s.browser.ClearHighlight(ctx); err != nil {
			logger.Warn("Failed to clear highlight", zap.Error(err))
		}

		return nil, nil
	}

	if !s.session.Record(*result) {
		logger.Info("Session ended before the capture completed, result dropped")

		return nil, nil
	}

	return result, nil
}

// SynthesizeHTML runs synthesis against a standalone document. target is an
// XPath that must select exactly one element. The operator is never prompted.
func (s *CaptureService) SynthesizeHTML(ctx context.Context, source, target string) (result *entity.LocatorResult, err error) {
	const op = "SynthesizeHTML"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Locator, target))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("target", target))
	defer func() {
		step.End(err)
	}()

	if strings.TrimSpace(source) == "" {
		return nil, apperr.InvalidReqError(op, "html", errors.New("html must not be empty"))
	}

	doc, err := dom.ParseString(source)
	if err != nil {
		return nil, apperr.InvalidReqError(op, "html", err)
	}

	matches, err := htmlquery.QueryAll(doc, target)
	if err != nil {
		return nil, apperr.InvalidReqError(op, "target", err)
	}

	switch len(matches) {
	case 0:
		return nil, apperr.NotFoundError(op, fmt.Errorf("target %q matched nothing", target))
	case 1:
	default:
		return nil, apperr.Wrap(op, apperr.CodeAmbiguousTarget, fmt.Errorf("target %q matched %d nodes", target, len(matches)), map[string]any{
			apperr.MetaField:    "target",
			apperr.MetaSelector: target,
		})
	}

	if !dom.IsElement(matches[0]) {
		return nil, apperr.InvalidReqError(op, "target", fmt.Errorf("target %q does not select an element", target))
	}

	result, _ = s.synthesizer.Synthesize(locator.WithoutPrompt(ctx), matches[0])
	if result == nil {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeInternal, "synthesis_failed")
	}

	return result, nil
}

// Run consumes capture events until ctx is done or the browser closes the
// channel. Events are handled one at a time.
func (s *CaptureService) Run(ctx context.Context) {
	captures := s.browser.Captures()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-captures:
			if !ok {
				return
			}

			if _, err := s.HandleCapture(ctx, event); err != nil {
				s.logger.Warn("Capture failed", zap.String(logg.Tag, event.Tag), zap.Error(err))
			}
		}
	}
}
