package bootstrap

import (
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"locator-capture/internal/browser"
	"locator-capture/internal/config"
	"locator-capture/internal/console"
	"locator-capture/internal/export"
	"locator-capture/internal/locator"
	"locator-capture/internal/ports"
	"locator-capture/internal/server"
	"locator-capture/internal/session"
	"locator-capture/internal/usecase"
)

func NewApp() *fx.App {
	return fx.New(options())
}

func options() fx.Option {
	return fx.Options(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewManager, fx.As(new(ports.BrowserManager))),
			fx.Annotate(locator.NewSynthesizer, fx.As(new(ports.Synthesizer))),
			fx.Annotate(export.NewWriter, fx.As(new(ports.Exporter))),
			fx.Annotate(console.NewPrompter, fx.As(new(ports.Prompter))),

			console.NewTerminal,
			session.New,
			usecase.NewUsecase,

			console.NewInterface,
			server.NewServer,
		),

		fx.Invoke(
			func(*sdktrace.TracerProvider) {},
			runCapture,
			runServer,
			runConsole,
		),

		fx.StartTimeout(2*time.Minute),
	)
}
