package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"botpos-chat-backend/internal/logging"
	"botpos-chat-backend/internal/queue"

	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 15 * time.Second

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

// Options carries the parts of a server that differ between processes.
type Options struct {
	// Registry receives the HTTP collectors and backs /metrics. A nil
	// registry gets a private one.
	Registry       *prometheus.Registry
	AllowedOrigins []string
	Logger         *slog.Logger
}

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	routeRegistrars     []RouteRegistrar
	registry            *prometheus.Registry
	allowedOrigins      []string
	logger              *slog.Logger
	metrics             *metrics

	buildOnce sync.Once
	handler   http.Handler
}

func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, opts Options, registrars ...RouteRegistrar) *APIServer {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		routeRegistrars:     registrars,
		registry:            reg,
		allowedOrigins:      opts.AllowedOrigins,
		logger:              logging.OrDefault(opts.Logger).With("listen_addr", listenAddr),
		metrics:             newMetrics(reg, listenAddr, rqm),
	}
}

// Handler returns the fully routed and instrumented handler. Routes are
// registered on first use.
func (s *APIServer) Handler() http.Handler {
	s.buildOnce.Do(func() {
		mux := http.NewServeMux()

		for _, reg := range s.routeRegistrars {
			reg(mux, s)
		}

		mux.Handle("/metrics", s.metrics.metricsHandler(s.registry))

		s.handler = s.metrics.instrument(mux)
	})
	return s.handler
}

// Run serves until ctx is cancelled, then drains in-flight requests and the
// worker queue.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.requestQueueManager.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.requestQueueManager.Shutdown()
	if err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *APIServer) Logger() *slog.Logger {
	return s.logger
}
