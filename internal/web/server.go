// Package web serves the question answering pipeline over HTTP.
package web

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"ragqa/internal/domain"
)

//go:embed static/index.html
var indexPage []byte

const shutdownTimeout = 5 * time.Second

type Server struct {
	listenAddr string
	app        *fiber.App
	logger     *slog.Logger
}

func NewServer(addr string, service domain.RAGService, topK int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger), DisableStartupMessage: true})
	app.Use(RequestID(logger))

	var (
		handler = NewHandler(service, topK)
		apiv1   = app.Group("/api/v1")
	)

	app.Get("/", handler.HandleIndex)
	app.Get("/health", handler.HandleHealthy)
	apiv1.Get("/status", handler.HandleStatus)
	apiv1.Post("/ingest", handler.HandleIngest)
	apiv1.Post("/ask", handler.HandleAsk)

	return &Server{listenAddr: addr, app: app, logger: logger}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.listenAddr)
		errCh <- s.app.Listen(s.listenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
