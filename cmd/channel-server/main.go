package main

import (
	"log"

	"botpos-chat-backend/internal/api/router"
	"botpos-chat-backend/internal/app"
	"botpos-chat-backend/internal/env"
)

const prefix = "/api/channel/v1"

func main() {
	cfg, err := app.LoadConfig("channel-server")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.ChannelSecret == "" {
		log.Fatalf("config: %s is required", env.ChannelSecret)
	}

	ctx, stop := app.SignalContext()
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatalf("app init failed: %v", err)
	}
	defer a.Close()

	server := a.Server(
		env.GetOrDefault(env.ChannelListenAddr, ":82"),
		router.UtilsRoutes(prefix, cfg.Service),
		router.ChannelRoutes(prefix, a.Chat, cfg.ChannelSecret),
	)
	if err := server.Run(ctx); err != nil {
		a.Logger.Error("channel server stopped", "error", err)
	}
}
