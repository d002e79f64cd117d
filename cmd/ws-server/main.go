package main

import (
	"context"
	"errors"
	"log"

	"botpos-chat-backend/internal/api/router"
	"botpos-chat-backend/internal/app"
	"botpos-chat-backend/internal/env"
	"botpos-chat-backend/internal/websocket"
)

const prefix = "/api/ws/v1"

func main() {
	cfg, err := app.LoadConfig("ws-server")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatalf("config: %s is required", env.ChatRedisURL)
	}

	ctx, stop := app.SignalContext()
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{HostsHub: true})
	if err != nil {
		log.Fatalf("app init failed: %v", err)
	}
	defer a.Close()

	go a.Hub.Run(ctx)
	handler := websocket.NewHandler(a.Hub, a.Redis, cfg.AllowedOrigins, a.Logger)
	handler.CreateRoom(websocket.GroupAdmin)

	server := a.Server(
		env.GetOrDefault(env.WSListenAddr, ":83"),
		router.UtilsRoutes(prefix, cfg.Service),
		router.RealtimeRoutes(prefix, handler),
	)

	go func() {
		if err := handler.Subscribe(ctx, websocket.GroupAdmin); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error("redis subscription ended", "error", err)
			stop()
		}
	}()

	if err := server.Run(ctx); err != nil {
		a.Logger.Error("ws server stopped", "error", err)
	}
}
