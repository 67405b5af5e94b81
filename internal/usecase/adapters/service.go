package adapters

import (
	"context"

	"locator-capture/internal/entity"
	"locator-capture/internal/session"
)

type BrowserService interface {
	Navigate(ctx context.Context, url string) error
	IsReady() bool
}

type CaptureService interface {
	Dispatch(ctx context.Context, action session.Action) (entity.StopReport, error)
	Status() entity.Status
	HandleCapture(ctx context.Context, event entity.CaptureEvent) (*entity.LocatorResult, error)
	SynthesizeHTML(ctx context.Context, source, target string) (*entity.LocatorResult, error)
	Run(ctx context.Context)
}
