package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/ytbot/internal/channel"
	"github.com/memohai/ytbot/internal/channel/adapters/discord"
	"github.com/memohai/ytbot/internal/channel/adapters/local"
	"github.com/memohai/ytbot/internal/channel/adapters/telegram"
	"github.com/memohai/ytbot/internal/channel/inbound"
	"github.com/memohai/ytbot/internal/command"
	"github.com/memohai/ytbot/internal/commands/yt"
	"github.com/memohai/ytbot/internal/config"
	"github.com/memohai/ytbot/internal/handlers"
	"github.com/memohai/ytbot/internal/healthcheck"
	channelchecker "github.com/memohai/ytbot/internal/healthcheck/checkers/channel"
	scratchchecker "github.com/memohai/ytbot/internal/healthcheck/checkers/scratch"
	sessionchecker "github.com/memohai/ytbot/internal/healthcheck/checkers/session"
	"github.com/memohai/ytbot/internal/logger"
	"github.com/memohai/ytbot/internal/schedule"
	"github.com/memohai/ytbot/internal/server"
	"github.com/memohai/ytbot/internal/session"
	"github.com/memohai/ytbot/internal/storage/providers/scratchfs"
	"github.com/memohai/ytbot/internal/version"
	"github.com/memohai/ytbot/internal/videosearch"
)

type configPath string

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot: channel connections, HTTP API and housekeeping jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runServe(opts.configPath)
			return nil
		},
	}
}

func runServe(path string) {
	fx.New(
		fx.Supply(configPath(path)),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideVideoClient,
			provideScratch,
			provideSessionStore,
			session.NewKeyedMutex,
			provideCommandRegistry,
			inbound.NewProcessor,
			local.NewRouteHub,
			provideChannelRegistry,
			provideChannelStore,
			provideChannelManager,
			provideJanitor,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideHealthHandler),
			provideServerHandler(provideChannelHandler),
			provideServerHandler(handlers.NewCommandsHandler),
			provideServerHandler(provideLocalChannelHandler),
			provideServer,
		),
		fx.Invoke(
			startChannelManager,
			startJanitor,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Registrar)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig(path configPath) (config.Config, error) {
	cfg, err := config.Load(string(path))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideVideoClient(log *slog.Logger, cfg config.Config) *videosearch.Client {
	return newVideoClient(log, cfg)
}

func newVideoClient(log *slog.Logger, cfg config.Config) *videosearch.Client {
	return videosearch.NewClient(log, videosearch.Config{
		SearchBaseURL:   cfg.Video.SearchBaseURL,
		ResolverBaseURL: cfg.Video.ResolverBaseURL,
		Timeout:         cfg.Video.HTTPTimeout,
	}, &http.Client{})
}

func provideScratch(log *slog.Logger, cfg config.Config) (*scratchfs.Provider, error) {
	provider, err := scratchfs.New(log, cfg.Storage.ScratchDir, scratchfs.WithDownloadTimeout(cfg.Video.DownloadTimeout))
	if err != nil {
		return nil, fmt.Errorf("init scratch storage: %w", err)
	}
	return provider, nil
}

func provideSessionStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) session.Store {
	if cfg.Session.Backend != "redis" {
		return session.NewMemoryStore(cfg.Session.TTL)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := session.NewRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.Session.TTL)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.Ping(ctx); err != nil {
				log.Warn("redis session store unreachable", slog.String("addr", cfg.Redis.Addr), slog.Any("error", err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error { return store.Close() },
	})
	return store
}

func provideCommandRegistry(log *slog.Logger, cfg config.Config, client *videosearch.Client, scratch *scratchfs.Provider, store session.Store, locks *session.KeyedMutex) (*command.Registry, error) {
	registry := command.NewRegistry(log, cfg.Commands.Prefixes)
	ytCmd := yt.New(log, client, scratch, store, locks, yt.WithMaxResults(cfg.Video.MaxResults))
	if err := registry.Register(ytCmd); err != nil {
		return nil, err
	}
	if err := registry.Register(command.NewHelp(registry)); err != nil {
		return nil, err
	}
	return registry, nil
}

func provideChannelRegistry(log *slog.Logger, hub *local.RouteHub) *channel.Registry {
	registry := channel.NewRegistry()
	registry.MustRegister(telegram.NewTelegramAdapter(log))
	registry.MustRegister(discord.NewDiscordAdapter(log))
	registry.MustRegister(local.NewAdapter(log, hub))
	return registry
}

func provideChannelStore(cfg config.Config) *channel.StaticStore {
	return channel.NewStaticStore(cfg.Channels)
}

func provideChannelManager(log *slog.Logger, registry *channel.Registry, store *channel.StaticStore, processor *inbound.Processor) *channel.Manager {
	return channel.NewManager(log, registry, store, processor)
}

func provideJanitor(log *slog.Logger, cfg config.Config, store session.Store, scratch *scratchfs.Provider) (*schedule.Janitor, error) {
	var purger schedule.Purger
	if mem, ok := store.(*session.MemoryStore); ok {
		purger = mem
	}
	return schedule.NewJanitor(log, schedule.Config{
		PurgeSchedule: cfg.Session.PurgeSchedule,
		SweepSchedule: cfg.Storage.SweepSchedule,
		ScratchTTL:    cfg.Storage.ScratchTTL,
	}, purger, scratch)
}

func provideHealthHandler(log *slog.Logger, cfg config.Config, manager *channel.Manager, store session.Store, scratch *scratchfs.Provider) *handlers.HealthHandler {
	checkers := []healthcheck.Checker{
		channelchecker.NewChecker(log, manager),
		sessionchecker.NewChecker(log, store, cfg.Session.Backend),
		scratchchecker.NewChecker(log, scratch),
	}
	return handlers.NewHealthHandler(log, defaultBotID(cfg), checkers...)
}

func provideChannelHandler(registry *channel.Registry, manager *channel.Manager) *handlers.ChannelHandler {
	return handlers.NewChannelHandler(registry, manager)
}

func provideLocalChannelHandler(log *slog.Logger, manager *channel.Manager, store *channel.StaticStore, hub *local.RouteHub) *handlers.LocalChannelHandler {
	return handlers.NewLocalChannelHandler(log, manager, store, hub)
}

type serverParams struct {
	fx.In

	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Registrar `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.Handlers...)
}

func startChannelManager(lc fx.Lifecycle, channelManager *channel.Manager) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { channelManager.Start(ctx); return nil },
		OnStop:  func(stopCtx context.Context) error { cancel(); return channelManager.Shutdown(stopCtx) },
	})
}

func startJanitor(lc fx.Lifecycle, janitor *schedule.Janitor) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { janitor.Start(); return nil },
		OnStop:  func(ctx context.Context) error { return janitor.Stop(ctx) },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	fmt.Printf("Starting ytbot %s\n", version.GetInfo())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
				logger.Warn("auth.jwt_secret is empty, local channel endpoints will reject every token")
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

func defaultBotID(cfg config.Config) string {
	for _, ch := range cfg.Channels {
		if !ch.Disabled && strings.TrimSpace(ch.BotID) != "" {
			return ch.BotID
		}
	}
	return config.DefaultBotID
}
