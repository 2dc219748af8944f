package web

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/timernudge/timernudge/internal/config"
)

type Server struct {
	handler *Handler
	server  *http.Server
	logger  *zap.Logger
}

// NewServer creates a server listening on the configured web address
func NewServer(cfg *config.Config, handler *Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	return &Server{
		handler: handler,
		logger:  logger,
		server: &http.Server{
			Addr:    cfg.WebAddress(),
			Handler: mux,
			// On-demand checks wait for the remote API.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: cfg.API.Timeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", "http://"+s.server.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "web server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down web server")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "web server shutdown")
	}
	return nil
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
