package locator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"locator-capture/internal/dom"
	"locator-capture/internal/entity"
	"locator-capture/internal/ports"
	"locator-capture/pkg/logg"
	"locator-capture/pkg/tracing"
)

const (
	synthesizerName   = "Synthesizer"
	synthesizerTracer = "locator.synthesizer"
)

type Synthesizer struct {
	logger   *zap.Logger
	tracer   trace.Tracer
	prompter ports.Prompter
}

type Params struct {
	fx.In

	Logger   *zap.Logger
	Prompter ports.Prompter `optional:"true"`
}

func NewSynthesizer(params Params) *Synthesizer {
	return &Synthesizer{
		logger:   params.Logger.With(zap.String(logg.Layer, synthesizerName)),
		tracer:   otel.Tracer(synthesizerTracer),
		prompter: params.Prompter,
	}
}

type noPromptKey struct{}

// WithoutPrompt marks ctx so that synthesis never asks the operator.
func WithoutPrompt(ctx context.Context) context.Context {
	return context.WithValue(ctx, noPromptKey{}, true)
}

func promptAllowed(ctx context.Context) bool {
	off, _ := ctx.Value(noPromptKey{}).(bool)

	return !off
}

// Synthesize builds the locator result for n against the tree it belongs to.
// It returns false only when the operator was asked to name the element and
// declined.
func (s *Synthesizer) Synthesize(ctx context.Context, n *html.Node) (*entity.LocatorResult, bool) {
	const op = "Synthesize"
	tag := dom.Tag(n)
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Tag, tag))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("tag", tag))
	defer func() {
		step.End(nil)
	}()

	if !dom.IsElement(n) {
		logger.Warn("Synthesis requested for a non-element node")

		return nil, false
	}

	identity, ok := s.resolveIdentity(ctx, n)
	if !ok {
		logger.Info("Operator cancelled element naming")
		step.AddEvent("identity prompt cancelled")

		return nil, false
	}

	doc := dom.Root(n)
	candidates := Generate(n)
	step.AddEvent("candidates generated", attribute.Int("count", len(candidates)))

	unique := make([]entity.Candidate, 0, len(candidates))
	for _, c := range candidates {
		matches := Evaluate(doc, c.Type, c.Value)
		if matches != 1 {
			logger.Debug("Candidate rejected",
				zap.String(logg.Strategy, string(c.Type)),
				zap.String(logg.Locator, c.Value),
				zap.Int("matches", matches))

			continue
		}
		unique = append(unique, c)
	}

	if len(unique) == 0 {
		path := BuildPath(n)
		logger.Debug("No unique candidate, using structural path", zap.String(logg.Locator, path))
		step.AddEvent("structural path fallback")
		unique = append(unique, entity.Candidate{Type: entity.StrategyStructuralPath, Value: path})
	}

	step.SetAttributes(attribute.Int("unique", len(unique)))
	logger.Info("Locators synthesized",
		zap.String("element_name", identity.Name),
		zap.String("element_type", identity.Type),
		zap.Int("unique", len(unique)))

	return &entity.LocatorResult{
		ElementName:    identity.Name,
		ElementType:    identity.Type,
		UniqueLocators: unique,
	}, true
}

func (s *Synthesizer) resolveIdentity(ctx context.Context, n *html.Node) (entity.Identity, bool) {
	typ, classified := Classify(n)
	identity := entity.Identity{Name: DisplayName(n), Type: typ}

	if identity.Name != NotAvailable || classified || s.prompter == nil || !promptAllowed(ctx) {
		return identity, true
	}

	answer, ok := s.prompter.PromptIdentity(ctx, entity.IdentityHint{
		Tag:        dom.Tag(n),
		Text:       dom.Text(n),
		Attributes: dom.Attributes(n),
		Fallback:   identity,
	})
	if !ok {
		return entity.Identity{}, false
	}

	if answer.Name != "" {
		identity.Name = answer.Name
	}
	if answer.Type != "" {
		identity.Type = answer.Type
	}

	return identity, true
}
