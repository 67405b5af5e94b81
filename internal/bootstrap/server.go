package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-capture/internal/server"
)

func runServer(lc fx.Lifecycle, srv *server.Server, logger *zap.Logger) {
	if !srv.Enabled() {
		logger.Debug("HTTP API disabled")

		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}
