package main

import (
	"log"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/api/router"
	"botpos-chat-backend/internal/app"
	"botpos-chat-backend/internal/env"
	"botpos-chat-backend/internal/websocket"
)

const (
	prefix        = "/api/admin/v1"
	channelPrefix = "/api/channel/v1"
	wsPrefix      = "/api/ws/v1"
)

func main() {
	cfg, err := app.LoadConfig("admin-server")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := app.SignalContext()
	defer stop()

	// Local runs keep everything in one process, so the channel bridge and
	// the websocket gateway share the admin server's memory.
	a, err := app.New(ctx, cfg, app.Options{HostsHub: cfg.Local()})
	if err != nil {
		log.Fatalf("app init failed: %v", err)
	}
	defer a.Close()

	registrars := []api.RouteRegistrar{
		router.UtilsRoutes(prefix, cfg.Service),
		router.AuthRoutes(prefix, a.Auth),
		router.SessionRoutes(prefix, a.Chat, a.Attachments),
		router.InboxRoutes(prefix, a.Inbox),
		router.FlowRoutes(prefix, a.Flows),
	}
	if cfg.Local() {
		go a.Hub.Run(ctx)
		handler := websocket.NewHandler(a.Hub, nil, cfg.AllowedOrigins, a.Logger)
		handler.CreateRoom(websocket.GroupAdmin)
		registrars = append(registrars,
			router.ChannelRoutes(channelPrefix, a.Chat, cfg.ChannelSecret),
			router.RealtimeRoutes(wsPrefix, handler),
		)
	}

	server := a.Server(env.GetOrDefault(env.AdminListenAddr, ":81"), registrars...)
	if err := server.Run(ctx); err != nil {
		a.Logger.Error("admin server stopped", "error", err)
	}
}
