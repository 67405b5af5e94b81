package usecase

import (
	"locator-capture/internal/ports"
	"locator-capture/internal/session"
	"locator-capture/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Capture adapters.CaptureService
	Browser adapters.BrowserService
}

type Params struct {
	fx.In

	Logger      *zap.Logger
	Browser     ports.BrowserManager
	Synthesizer ports.Synthesizer
	Exporter    ports.Exporter
	Session     *session.Session
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Capture: factory.CreateCaptureService(),
		Browser: factory.CreateBrowserService(),
	}
}
