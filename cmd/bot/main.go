package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"salonbook/internal/api"
	"salonbook/internal/apiclient"
	"salonbook/internal/bot"
	"salonbook/internal/cache"
	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/events"
	"salonbook/internal/logging"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/navigation"
	"salonbook/internal/repository"
	"salonbook/internal/service"
	"salonbook/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		go backupService.Start(ctx)
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	stateService := initStateService(redisClient, logger)
	apiCache := initCache(redisClient, cfg, logger)

	eventBus := events.NewEventBus()
	subscribeChangeEvents(eventBus, logging.Component(logger, "events"))

	metrics.Register()
	client := apiclient.New(cfg.API,
		apiclient.WithCache(apiCache),
		apiclient.WithEvents(eventBus),
		apiclient.WithLogger(logging.Component(logger, "apiclient")),
	)
	sessions := session.NewManager(db, client, apiCache, eventBus, logging.Component(logger, "session"))
	dashboard := service.NewDashboardService(cfg.Bot.Location(), logging.Component(logger, "dashboard"))

	for _, srv := range opsServers(cfg, db, redisClient, logger) {
		go func(s *api.HTTPServer) {
			if err := s.Start(); err != nil {
				logger.Error().Err(err).Msg("HTTP server error")
			}
		}(srv)
		defer func(s *api.HTTPServer) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Shutdown(shutdownCtx)
		}(srv)
	}

	return startBot(ctx, cfg, stateService, sessions, dashboard, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logging.Component(baseLogger, "bot-main"), closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Failed to create database directory")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Failed to create exports directory")
		return err
	}
	return nil
}

// initRedis returns nil when Redis is not configured; state and cache then live in memory.
func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		logger.Info().Msg("Redis not configured, using in-memory state")
		return nil
	}
	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, falling back to memory until it recovers")
	}
	return client
}

func initStateService(redisClient *redis.Client, logger *zerolog.Logger) *service.StateService {
	ttl := time.Duration(models.DefaultRedisTTL) * time.Second
	fallback := repository.NewMemoryStateRepository(ttl)
	stateLogger := logging.Component(logger, "state")
	if redisClient == nil {
		return service.NewStateService(fallback, stateLogger)
	}
	primary := repository.NewRedisStateRepository(redisClient, ttl)
	return service.NewStateService(repository.NewFailoverStateRepository(primary, fallback, stateLogger), stateLogger)
}

func initCache(redisClient *redis.Client, cfg *config.Config, logger *zerolog.Logger) cache.Store {
	memory := cache.NewMemoryStore(cfg.Cache.TTL())
	if redisClient == nil {
		return memory
	}
	return cache.NewFailoverStore(cache.NewRedisStore(redisClient, cfg.Cache.TTL()), memory, logging.Component(logger, "cache"))
}

// opsServers builds the health server and, on its own port if configured so, the metrics server.
func opsServers(cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) []*api.HTTPServer {
	httpLogger := logging.Component(logger, "http")
	opts := []api.Option{
		api.WithCheck("sqlite", db.PingContext),
		api.WithSessions(db),
	}
	if redisClient != nil {
		opts = append(opts, api.WithCheck("redis", func(ctx context.Context) error {
			return repository.Ping(ctx, redisClient)
		}))
	}

	mon := cfg.Monitoring
	separateMetrics := mon.PrometheusEnabled && mon.PrometheusPort != mon.HealthCheckPort
	if mon.PrometheusEnabled && !separateMetrics {
		opts = append(opts, api.WithMetrics())
	}

	servers := []*api.HTTPServer{api.NewHTTPServer(mon.HealthCheckPort, cfg.App, httpLogger, opts...)}
	if separateMetrics {
		servers = append(servers, api.NewHTTPServer(mon.PrometheusPort, cfg.App, httpLogger, api.WithMetrics()))
	}
	return servers
}

// subscribeChangeEvents logs every change the API client reports.
func subscribeChangeEvents(bus *events.EventBus, logger *zerolog.Logger) {
	logChange := func(ev *events.Event) error {
		payload, err := ev.Decode()
		if err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Info().
			Str("event", ev.Type).
			Int64("worker_id", payload.WorkerID).
			Int64("user_id", payload.UserID).
			Str("date", payload.Date).
			Msg("change applied")
		return nil
	}

	bus.Subscribe(logChange,
		events.EventAppointmentBooked,
		events.EventAppointmentCreated,
		events.EventBookingConflict,
		events.EventWorkerCreated,
		events.EventWorkerUpdated,
		events.EventWorkerDeleted,
		events.EventScheduleSaved,
		events.EventServiceSaved,
		events.EventServiceDeleted,
		events.EventOffDayCreated,
		events.EventOffDayDeleted,
		events.EventUserUpdated,
		events.EventSessionStarted,
		events.EventSessionEnded,
	)
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	stateService *service.StateService,
	sessions *session.Manager,
	dashboard *service.DashboardService,
	logger *zerolog.Logger,
) error {
	botAPI, err := bot.Connect(cfg.Telegram)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to Telegram")
		return err
	}
	tgService := service.NewTelegramService(botAPI)

	telegramBot, err := bot.NewBot(tgService, cfg, stateService, sessions, dashboard, navigation.NewGuard(), logging.Component(logger, "bot"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create bot")
		return err
	}

	logger.Info().Msg("Bot started")
	telegramBot.Start(ctx)

	if errors.Is(ctx.Err(), context.Canceled) {
		logger.Info().Msg("Shutdown complete.")
	}
	return nil
}
