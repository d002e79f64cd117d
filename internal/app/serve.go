package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/queue"
)

const (
	queueSize  = 256
	maxWorkers = 32
)

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Server builds an API server on the app's registry and logger.
func (a *App) Server(listenAddr string, registrars ...api.RouteRegistrar) *api.APIServer {
	q := queue.NewRequestQueueManager(queueSize, maxWorkers, a.Logger)
	return api.NewAPIServer(listenAddr, q, api.Options{
		Registry:       a.Registry,
		AllowedOrigins: a.Config.AllowedOrigins,
		Logger:         a.Logger,
	}, registrars...)
}
