package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-capture/internal/console"
	"locator-capture/internal/ports"
	"locator-capture/internal/session"
	"locator-capture/internal/usecase"
)

func runConsole(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	consoleInterface *console.Interface,
	browser ports.BrowserManager,
	service *usecase.Service,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Launching browser...")

			if err := browser.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			logger.Info("Browser launched successfully")

			go func() {
				if err := consoleInterface.Start(); err != nil {
					logger.Error("Console interface error", zap.Error(err))
				}

				if err := shutdowner.Shutdown(); err != nil {
					logger.Error("Failed to request shutdown", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down...")

			consoleInterface.Stop()

			// An unfinished session is exported rather than lost.
			if status := service.Capture.Status(); status.IsCapturing {
				report, err := service.Capture.Dispatch(ctx, session.ActionStop)
				if err != nil {
					logger.Error("Failed to export session on shutdown", zap.Error(err))
				} else if report.Path != "" {
					logger.Info("Session exported on shutdown", zap.String("path", report.Path), zap.Int("count", report.Count))
				}
			}

			if err := browser.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}

// runCapture feeds page clicks into the capture service for the lifetime of
// the app.
func runCapture(lc fx.Lifecycle, service *usecase.Service) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go service.Capture.Run(ctx)

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()

			return nil
		},
	})
}
