package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/focuspilot/internal/profile"
	"github.com/hrygo/focuspilot/server/assistant"
	"github.com/hrygo/focuspilot/server/middleware"
	apiv1 "github.com/hrygo/focuspilot/server/router/api/v1"
)

type Server struct {
	Profile   *profile.Profile
	Assistant *assistant.Service

	echoServer *echo.Echo
	httpServer *http.Server
}

func NewServer(_ context.Context, profile *profile.Profile, svc *assistant.Service) (*Server, error) {
	s := &Server{
		Profile:   profile,
		Assistant: svc,
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(echomiddleware.BodyLimit("1M"))
	echoServer.Use(middleware.RequestLogger(slog.Default()))
	s.echoServer = echoServer

	// Register healthz endpoint.
	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiv1.NewAPIV1Service(profile, svc).RegisterRoutes(echoServer)

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	s.httpServer = &http.Server{
		Handler:           s.echoServer,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()

	slog.Info("server started", "address", listener.Addr().String(), "version", s.Profile.Version, "mode", s.Profile.Mode)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown server", "error", err)
		}
	}
	if err := s.Assistant.Close(); err != nil {
		slog.Error("failed to close assistant", "error", err)
	}

	slog.Info("server stopped properly")
}
