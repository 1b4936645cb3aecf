// Package server assembles the HTTP surface of the study chatbot.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/solarstories/chatbot/internal/chatbotconfig"
	"github.com/solarstories/chatbot/internal/profile"
	"github.com/solarstories/chatbot/plugin/llm"
	"github.com/solarstories/chatbot/server/middleware"
	"github.com/solarstories/chatbot/server/router/apiv1"
	"github.com/solarstories/chatbot/server/session"
	"github.com/solarstories/chatbot/store"
)

// Server hosts the study chatbot API.
type Server struct {
	echo    *echo.Echo
	profile *profile.Profile
	store   *store.Store
}

// New assembles the echo instance, the session machine, and the API routes.
func New(p *profile.Profile, st *store.Store, cfg *chatbotconfig.Config, completer llm.Completer, logger *slog.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.NewRateLimiter().Middleware())

	machine := session.NewMachine(st, completer, cfg)
	codec := session.NewTokenCodec(p.Secret)
	api := apiv1.NewAPIV1Service(p, st, cfg, machine, codec, logger)
	api.RegisterRoutes(e)

	return &Server{
		echo:    e,
		profile: p,
		store:   st,
	}, nil
}

// Start begins serving and blocks until the listener fails or is shut down.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	if err := s.echo.Start(address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
}
