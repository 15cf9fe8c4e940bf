package bootstrap

import (
	"context"
	"os"

	"hermes/internal/adapters/config"
	"hermes/internal/adapters/cricket"
	errnoop "hermes/internal/adapters/errors/noop"
	"hermes/internal/adapters/errors/sentry"
	"hermes/internal/adapters/extractor"
	"hermes/internal/adapters/glif"
	"hermes/internal/adapters/greenapi"
	redisclient "hermes/internal/adapters/redis"
	"hermes/internal/adapters/wikipedia"
	"hermes/internal/api"
	"hermes/internal/api/health"
	"hermes/internal/bot"
	"hermes/internal/session"
	"hermes/internal/workers"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/whatsapp"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure sets up the session store and its backing store.
// Redis is optional: with a single instance the in-memory store is enough,
// Redis buys session survival across restarts.
func (c *Container) MustInitInfrastructure() {
	if c.Config.Redis.Enabled {
		c.Log.Info("Connecting to Redis...")
		client, err := redisclient.NewClient(c.Config.Redis)
		if err != nil {
			c.Log.Fatalf("failed to connect redis: %v", err)
		}
		c.Redis = client
		c.SessionStore = session.NewRedisStore(client, c.Config.Session.TTL)
		c.Log.Info("✓ Redis connected, using redis session store")
	} else {
		c.MemoryStore = session.NewMemoryStore()
		c.SessionStore = c.MemoryStore
		c.Log.Info("✓ Using in-memory session store")
	}

	if err := os.MkdirAll(c.Config.Extractor.TempDir, 0o755); err != nil {
		c.Log.Fatalf("failed to create temp dir: %v", err)
	}
}

// ========================================
// Phase 3: External Adapters
// ========================================

// MustInitAdapters initializes the provider clients
func (c *Container) MustInitAdapters() {
	c.Adapters.Messenger = greenapi.NewClient(c.Config.GreenAPI, c.Log)
	c.Adapters.Extractor = extractor.NewClient(c.Config.Extractor, c.Log)
	c.Adapters.Glif = glif.NewClient(c.Config.Glif, c.Log)
	c.Adapters.Wikipedia = wikipedia.NewClient(c.Config.Wikipedia, c.Log)
	c.Adapters.Cricket = cricket.NewScraper(c.Config.Cricket, c.Log)

	c.Log.Info("✓ Provider clients initialized")
}

// ========================================
// Phase 4: Application Layer
// ========================================

// MustInitApplication wires the command registry, bot handler and HTTP server
func (c *Container) MustInitApplication() {
	c.Background.DownloadQueue = bot.NewDownloadQueue(
		c.Adapters.Extractor,
		c.Adapters.Messenger,
		c.Config.Downloads.Workers,
		c.Config.Downloads.QueueSize,
		c.Log,
	)

	registry := whatsapp.NewCommandRegistry(c.Adapters.Messenger, c.Log)
	registry.Use(whatsapp.RecoveryMiddleware(c.Log))
	registry.Use(whatsapp.LoggingMiddleware(c.Log))
	registry.Use(whatsapp.RateLimitMiddleware(10, c.Log))
	c.Application.Registry = registry

	cmds := bot.NewCommands(bot.CommandDeps{
		Store:        c.SessionStore,
		Queue:        c.Background.DownloadQueue,
		Formats:      &formatListerAdapter{client: c.Adapters.Extractor},
		Images:       c.Adapters.Glif,
		Articles:     c.Adapters.Wikipedia,
		Scores:       c.Adapters.Cricket,
		AdminSenders: c.Config.Access.AdminSenders,
		TempDir:      c.Config.Extractor.TempDir,
		Log:          c.Log,
	})
	cmds.RegisterAll(registry)
	c.Application.Commands = cmds

	c.Application.BotHandler = bot.NewHandler(
		c.Adapters.Messenger,
		registry,
		c.SessionStore,
		c.Background.DownloadQueue,
		c.Config.Access.AllowedChats,
		c.Log,
	)

	c.Application.Webhook = whatsapp.NewWebhookHandler(c.Application.BotHandler.HandleNotification, c.Log)

	c.Application.HealthHandler = provideHealthHandler(c.Log, c.Redis, c.MemoryStore, c.Config)

	c.Application.HTTPServer = api.NewServer(api.ServerConfig{
		Port:        c.Config.Server.Port,
		ServiceName: c.Config.App.Name,
		Version:     c.Config.Server.Version,
		Webhook:     c.Application.Webhook,
	}, c.Application.HealthHandler, c.Log)

	c.Log.Info("✓ Application layer initialized")
}

// ========================================
// Phase 5: Background Processing
// ========================================

// MustInitBackground registers the maintenance workers
func (c *Container) MustInitBackground() {
	scheduler := workers.NewScheduler()

	// The redis store expires sessions via key TTL; the sweeper only
	// exists for the in-memory store.
	if c.MemoryStore != nil {
		scheduler.RegisterWorker(workers.NewSessionSweeperWorker(
			c.MemoryStore,
			c.Config.Workers.SessionSweepInterval,
			c.Config.Session.TTL,
			true,
		))
	}

	scheduler.RegisterWorker(workers.NewTempCleanerWorker(
		c.Config.Extractor.TempDir,
		c.Config.Workers.TempCleanInterval,
		c.Config.Workers.TempMaxAge,
		true,
	))

	c.Background.WorkerScheduler = scheduler
	c.Log.Info("✓ Background workers registered")
}

// ========================================
// Providers
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideHealthHandler(log *logger.Logger, redisClient *redisclient.Client, store *session.MemoryStore, cfg *config.Config) *health.Handler {
	var counter health.SessionCounter
	if store != nil {
		counter = store
	}
	if redisClient != nil {
		return health.New(log, redisClient.Client(), counter, cfg.App.Name, cfg.Server.Version)
	}
	return health.New(log, nil, counter, cfg.App.Name, cfg.Server.Version)
}

// formatListerAdapter bridges the extractor client to the command layer
type formatListerAdapter struct {
	client *extractor.Client
}

func (a *formatListerAdapter) ListFormats(ctx context.Context, sourceURL string) (string, []bot.FormatOption, error) {
	title, formats, err := a.client.ListFormats(ctx, sourceURL)
	if err != nil {
		return "", nil, err
	}

	options := make([]bot.FormatOption, 0, len(formats))
	for _, f := range formats {
		options = append(options, bot.FormatOption{ID: f.ID, Label: f.Label})
	}
	return title, options, nil
}
