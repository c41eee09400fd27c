package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/catalogd/catalogd/internal/api"
	"github.com/catalogd/catalogd/internal/backend"
	"github.com/catalogd/catalogd/internal/catalog"
	"github.com/catalogd/catalogd/internal/config"
	"github.com/catalogd/catalogd/internal/query"
	"github.com/catalogd/catalogd/internal/retry"
)

// Server wires the HTTP surface to a catalog.Store built from the
// configured backend.
type Server struct {
	httpServer *http.Server
	Store      *catalog.Store
	logger     *zap.Logger
}

// NewServer builds a Server for cfg. It does not block or open any
// network listeners; call Run to do that.
func NewServer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	b, err := backend.Open(ctx, cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	policy := retry.Policy{MaxAttempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBackoff}
	store := catalog.New(b, policy, logger)
	engine := query.New(store)

	mux := api.NewRouter(engine, logger)

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: mux,
		},
		Store:  store,
		logger: logger,
	}, nil
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then
// drains in-flight requests within a 5 second grace period.
func (s *Server) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	s.logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
