package app

import (
	"context"
	"path/filepath"
	"testing"

	"botpos-chat-backend/internal/channel"
	"botpos-chat-backend/internal/env"
	authsvc "botpos-chat-backend/internal/service/auth"
	"botpos-chat-backend/internal/websocket"
)

func localEnv(t *testing.T) {
	t.Helper()
	t.Setenv(env.EnvFile, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv(env.StorageBackend, "memory")
	t.Setenv(env.ChatRedisURL, "")
	t.Setenv(env.AttachmentBucket, "")
	t.Setenv(env.LogFile, "")
	t.Setenv(env.LogLevel, "error")
	t.Setenv(env.AdminSecretKey, "app-test-secret")
	t.Setenv(env.BootstrapAdminEmail, "owner@shop.mm")
	t.Setenv(env.BootstrapAdminPassword, "Sup3rS3cret!")
	t.Setenv("CHANNEL_TELEGRAM_OUTBOUND_URL", "http://adapter.test/telegram")
	t.Setenv("CHANNEL_VIBER_OUTBOUND_URL", "")
	t.Setenv("CHANNEL_MESSENGER_OUTBOUND_URL", "")
}

func TestLoadConfigRejectsUnknownStorage(t *testing.T) {
	localEnv(t)
	t.Setenv(env.StorageBackend, "postgres")

	if _, err := LoadConfig("test"); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestLoadConfigReadsChannelURLs(t *testing.T) {
	localEnv(t)

	cfg, err := LoadConfig("test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Local() {
		t.Fatal("expected memory storage")
	}
	if len(cfg.OutboundURLs) != 1 || cfg.OutboundURLs[channel.Telegram] != "http://adapter.test/telegram" {
		t.Fatalf("unexpected outbound urls: %#v", cfg.OutboundURLs)
	}
}

func TestNewWiresMemoryServices(t *testing.T) {
	localEnv(t)
	cfg, err := LoadConfig("test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	a, err := New(context.Background(), cfg, Options{HostsHub: true})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if _, ok := a.Publisher.(*websocket.HubPublisher); !ok {
		t.Fatalf("expected hub publisher without redis, got %T", a.Publisher)
	}

	res, err := a.Auth.Login(context.Background(), authsvc.LoginParams{Email: "owner@shop.mm", Password: "Sup3rS3cret!"})
	if err != nil {
		t.Fatalf("bootstrap admin cannot log in: %v", err)
	}
	if res.Tokens.AccessToken == "" {
		t.Fatal("expected access token")
	}

	sessions, err := a.Chat.ListSessions(context.Background())
	if err != nil || len(sessions) != 0 {
		t.Fatalf("expected empty session list, got %v %v", sessions, err)
	}
}

func TestNewWithoutHubDropsEvents(t *testing.T) {
	localEnv(t)
	cfg, err := LoadConfig("test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	a, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if _, ok := a.Publisher.(websocket.NopPublisher); !ok {
		t.Fatalf("expected nop publisher, got %T", a.Publisher)
	}
}
