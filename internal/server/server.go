package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-capture/internal/config"
	"locator-capture/internal/usecase"
	"locator-capture/pkg/logg"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	config  *config.Config
	logger  *zap.Logger
	usecase *usecase.Service
	server  *http.Server
	addr    net.Addr
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewServer(params Params) *Server {
	return &Server{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, "HTTP")),
		usecase: params.Usecase,
	}
}

func (s *Server) Enabled() bool {
	return s.config.ServerConfig.Enabled
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	addr := s.config.ServerConfig.Addr

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.addr = ln.Addr()
	s.server = &http.Server{
		Handler:           NewHandler(s.usecase.Capture, s.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP API listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	return nil
}

// Addr is the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}
