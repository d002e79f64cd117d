// Package app builds the services shared by the cmd binaries from the
// process environment.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"botpos-chat-backend/internal/channel"
	"botpos-chat-backend/internal/database"
	"botpos-chat-backend/internal/env"
	internaljwt "botpos-chat-backend/internal/jwt"
	"botpos-chat-backend/internal/logging"
	authsvc "botpos-chat-backend/internal/service/auth"
	chatsvc "botpos-chat-backend/internal/service/chat"
	flowsvc "botpos-chat-backend/internal/service/flow"
	inboxsvc "botpos-chat-backend/internal/service/inbox"
	"botpos-chat-backend/internal/storage"
	"botpos-chat-backend/internal/websocket"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const defaultTokenTTL = 24 * time.Hour

type Config struct {
	Service        string
	Storage        string
	LogLevel       string
	LogFile        string
	AllowedOrigins []string
	RedisURL       string
	RedisPass      string
	AdminSecret    string
	TokenTTL       time.Duration
	ChannelSecret  string
	OutboundURLs   map[channel.Channel]string
	Bucket         string

	BootstrapAdmin authsvc.CreateAdminParams
}

// LoadConfig reads .env and the process environment. service names the
// binary in logs and health responses.
func LoadConfig(service string) (Config, error) {
	if err := env.Load(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Service:        service,
		Storage:        strings.ToLower(env.GetOrDefault(env.StorageBackend, env.StorageDynamo)),
		LogLevel:       env.Get(env.LogLevel),
		LogFile:        env.Get(env.LogFile),
		AllowedOrigins: env.GetList(env.AllowedOrigins, nil),
		RedisURL:       env.Get(env.ChatRedisURL),
		RedisPass:      env.Get(env.ChatRedisPass),
		AdminSecret:    env.Get(env.AdminSecretKey),
		TokenTTL:       env.GetDuration(env.AdminTokenTTL, defaultTokenTTL),
		ChannelSecret:  env.Get(env.ChannelSecret),
		OutboundURLs:   make(map[channel.Channel]string),
		Bucket:         env.Get(env.AttachmentBucket),
		BootstrapAdmin: authsvc.CreateAdminParams{
			Name:     env.GetOrDefault(env.BootstrapAdminName, "Owner"),
			Email:    env.Get(env.BootstrapAdminEmail),
			Password: env.Get(env.BootstrapAdminPassword),
		},
	}
	for _, c := range channel.All {
		if u := env.ChannelOutboundURL(c.String()); u != "" {
			cfg.OutboundURLs[c] = u
		}
	}

	switch cfg.Storage {
	case env.StorageMemory:
	case env.StorageDynamo:
		if err := env.Require(env.AWSRegion); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("app: unknown %s %q", env.StorageBackend, cfg.Storage)
	}
	return cfg, nil
}

func (c Config) Local() bool {
	return c.Storage == env.StorageMemory
}

// App holds the wired services of one process.
type App struct {
	Config   Config
	Logger   *slog.Logger
	Registry *prometheus.Registry

	Redis     *redis.Client
	Hub       *websocket.Hub
	Publisher chatsvc.Notifier

	Chat        *chatsvc.Service
	Inbox       *inboxsvc.Service
	Flows       *flowsvc.Service
	Auth        *authsvc.Service
	Attachments storage.AttachmentStore

	closers []func() error
}

// Options says which parts of the realtime stack this process hosts.
type Options struct {
	// HostsHub is set by processes that run the websocket hub. Without
	// Redis, events are broadcast into that hub directly.
	HostsHub bool
}

// New wires every service. Close releases what New opened.
func New(ctx context.Context, cfg Config, opts Options) (*App, error) {
	logger, closeLog := logging.Setup(cfg.LogLevel, cfg.LogFile)
	a := &App{
		Config:   cfg,
		Logger:   logger.With("service", cfg.Service),
		Registry: prometheus.NewRegistry(),
		closers:  []func() error{closeLog},
	}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := a.configureAuth(); err != nil {
		a.Close()
		return nil, err
	}

	a.Hub = websocket.NewHub(websocket.NewMetrics(a.Registry), a.Logger)
	a.Publisher = a.publisher(opts)

	attachments, err := a.attachmentStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Attachments = attachments

	deps := chatsvc.Deps{
		Sender:   a.senders(),
		Notifier: a.Publisher,
		Signer:   a.Attachments,
		Metrics:  chatsvc.NewMetrics(a.Registry),
		Logger:   a.Logger,
	}

	if cfg.Local() {
		a.wireMemory(deps)
	} else {
		db, err := database.NewDatabase(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		a.Chat = chatsvc.New(db, deps)
		a.Inbox = inboxsvc.New(db, a.Chat, a.Logger)
		a.Flows = flowsvc.New(db, a.Logger)
		a.Auth = authsvc.New(db)
	}

	if err := a.bootstrapAdmin(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Logger.Info("services wired",
		"storage", cfg.Storage,
		"redis", a.Redis != nil,
		"channels", len(cfg.OutboundURLs),
	)
	return a, nil
}

func (a *App) configureAuth() error {
	secret := a.Config.AdminSecret
	if secret == "" {
		if !a.Config.Local() {
			return fmt.Errorf("app: %s is required", env.AdminSecretKey)
		}
		secret = "local-admin-secret"
		a.Logger.Warn("using built-in admin secret for local storage", "key", env.AdminSecretKey)
	}
	internaljwt.Configure(secret, a.Config.TokenTTL)
	return nil
}

func (a *App) publisher(opts Options) chatsvc.Notifier {
	if a.Config.RedisURL != "" {
		a.Redis = websocket.NewRedisClient(a.Config.RedisURL, a.Config.RedisPass)
		a.closers = append(a.closers, a.Redis.Close)
		return websocket.NewRedisPublisher(a.Redis)
	}
	if opts.HostsHub {
		return websocket.NewHubPublisher(a.Hub)
	}
	a.Logger.Warn("no redis configured, realtime events are dropped", "key", env.ChatRedisURL)
	return websocket.NopPublisher{}
}

func (a *App) attachmentStore(ctx context.Context) (storage.AttachmentStore, error) {
	if a.Config.Bucket == "" {
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewS3Store(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: attachments: %w", err)
	}
	return store, nil
}

func (a *App) senders() *channel.Registry {
	reg := channel.NewRegistry()
	for c, u := range a.Config.OutboundURLs {
		reg.Register(c, channel.NewHTTPSender(u, a.Config.ChannelSecret))
	}
	return reg
}

func (a *App) wireMemory(deps chatsvc.Deps) {
	chatRepo := chatsvc.NewMemoryRepository()
	a.Chat = chatsvc.NewWithRepository(chatRepo, deps)

	inboxRepo := inboxsvc.NewMemoryRepository()
	inboxRepo.CustomerLookup = func(ctx context.Context, customerID string) (bool, error) {
		_, err := chatRepo.GetCustomer(ctx, customerID)
		if errors.Is(err, chatsvc.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}
	a.Inbox = inboxsvc.NewWithRepository(inboxRepo, a.Chat, a.Logger, nil)
	a.Flows = flowsvc.NewWithRepository(flowsvc.NewMemoryRepository(), a.Logger, nil)
	a.Auth = authsvc.NewWithRepository(authsvc.NewMemoryRepository(), nil)
}

func (a *App) bootstrapAdmin(ctx context.Context) error {
	params := a.Config.BootstrapAdmin
	if params.Email == "" || params.Password == "" {
		return nil
	}
	admin, created, err := a.Auth.EnsureAdmin(ctx, params)
	if err != nil {
		return fmt.Errorf("app: bootstrap admin: %w", err)
	}
	if created {
		a.Logger.Info("bootstrap admin created", "admin", admin.AdminID, "email", admin.Email)
	}
	return nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
