package usecase

import (
	"locator-capture/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateCaptureService() adapters.CaptureService {
	return NewCaptureService(CaptureServiceParams{
		Logger:      f.deps.Logger,
		Browser:     f.deps.Browser,
		Synthesizer: f.deps.Synthesizer,
		Exporter:    f.deps.Exporter,
		Session:     f.deps.Session,
	})
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Browser
}
