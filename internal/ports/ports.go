package ports

import (
	"context"

	"golang.org/x/net/html"

	"locator-capture/internal/entity"
)

type BrowserManager interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	SetCapturing(ctx context.Context, active bool) error
	Snapshot(ctx context.Context) (*html.Node, error)
	ClearHighlight(ctx context.Context) error
	Captures() <-chan entity.CaptureEvent
	IsReady() bool
}

// Prompter asks the operator for an element's name and type. It returns
// false when the operator declines.
type Prompter interface {
	PromptIdentity(ctx context.Context, hint entity.IdentityHint) (entity.Identity, bool)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, n *html.Node) (*entity.LocatorResult, bool)
}

type Exporter interface {
	Write(results []entity.LocatorResult) (string, error)
}
