package bootstrap

import (
	"context"
	"sync"

	"hermes/internal/adapters/config"
	"hermes/internal/adapters/cricket"
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

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer
	Redis        *redisclient.Client  // nil unless REDIS_ENABLED
	SessionStore session.Store        // memory or redis backed
	MemoryStore  *session.MemoryStore // non-nil only in memory mode

	// External Adapters
	Adapters *Adapters

	// Application Layer
	Application *Application

	// Background Processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Adapters groups all external service clients
type Adapters struct {
	Messenger *greenapi.Client
	Extractor *extractor.Client
	Glif      *glif.Client
	Wikipedia *wikipedia.Client
	Cricket   *cricket.Scraper
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
	Registry      *whatsapp.CommandRegistry
	Commands      *bot.Commands
	BotHandler    *bot.Handler
	Webhook       *whatsapp.WebhookHandler
}

// Background groups all background processing components
type Background struct {
	DownloadQueue   *bot.DownloadQueue
	WorkerScheduler *workers.Scheduler
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Adapters:    &Adapters{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitAdapters()
	c.MustInitApplication()
	c.MustInitBackground()
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	// Download workers first so selections can be served immediately
	c.Background.DownloadQueue.Start()
	c.Log.Info("✓ Download queue started")

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	// HTTP server last: only accept webhooks once everything is wired
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Background.WorkerScheduler,
		c.Background.DownloadQueue,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}
