// Package server exposes the conversation engine over a small HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/chat"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/config"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/grading"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/version"
)

// Server is the advisor HTTP API.
type Server struct {
	cfg      config.ServerConfig
	sessions *chat.Manager
	grader   *grading.Grader
	log      *logging.Logger
	echo     *echo.Echo
}

// New creates the API server over a session manager and grader.
func New(cfg config.ServerConfig, sessions *chat.Manager, grader *grading.Grader, log *logging.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		grader:   grader,
		log:      log.Sub("server"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/health", s.handleHealth)
	e.POST("/api/chat", s.handleChat)
	e.POST("/api/reset", s.handleReset)
	e.POST("/api/config", s.handleConfigure)
	e.POST("/api/evaluate", s.handleEvaluate)
	e.POST("/api/grade", s.handleGrade)
	e.GET("/ws", s.handleWebSocket)

	s.echo = e
	return s
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)
	s.log.Info().Str("addr", addr).Msg("starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// Echo returns the underlying echo instance (used by tests).
func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// session resolves the caller's session from the X-Session-ID header, with
// the "session" query parameter as a fallback.
func (s *Server) session(c echo.Context) *chat.Session {
	key := c.Request().Header.Get("X-Session-ID")
	if key == "" {
		key = c.QueryParam("session")
	}
	return s.sessions.Get(key)
}
