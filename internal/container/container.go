package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/application/dispatcher"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/application/service"
	"github.com/garyjia/office-orders/internal/infrastructure/persistence/sqlite"
	httpif "github.com/garyjia/office-orders/internal/interfaces/http"
	"github.com/garyjia/office-orders/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and are torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle
	redis        *RedisBundle

	// Infrastructure - External
	messenger port.LarkMessageSender
	drafter   port.BodyDrafter

	// Infrastructure - Storage
	storage *StorageBundle

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Interfaces
	server *httpif.Server

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Task    port.TaskRepository
	History port.HistoryRepository
	Comment port.CommentRepository
	Status  port.StatusRepository
	User    port.UserRepository
}

// ServiceBundle groups all application services. Drafting, Notification and
// Archive are nil when their backing integration is not configured.
type ServiceBundle struct {
	Task         service.TaskService
	Export       service.ExportService
	Drafting     service.DraftingService
	Notification service.NotificationService
	Archive      service.ArchiveService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database, repositories and seeded users
// 2. Redis idempotency store
// 3. External clients (Lark, OpenAI)
// 4. Storage
// 5. Dispatcher and application services
// 6. HTTP server
//
// A failed Start releases what it already opened.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"database", c.initDatabase},
		{"redis", c.initRedis},
		{"external clients", c.initExternalClients},
		{"storage", c.initStorage},
		{"services", c.initServices},
		{"server", c.initServer},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Component initialized", zap.String("component", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()
	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases every initialized component, newest first. The HTTP
// server is stopped by its owner before Close.
func (c *Container) teardown() []error {
	var errs []error

	if c.dispatcher != nil {
		// waits for in-flight notifications and archiving
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	if c.redis != nil {
		if err := c.redis.Client.Close(); err != nil {
			c.logger.Error("Failed to close redis", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		} else {
			c.logger.Info("Redis closed")
		}
		c.redis = nil
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.db = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, err error, optional bool) {
		switch {
		case err == nil:
			status.Components[name] = ComponentHealth{Healthy: true}
		case optional:
			status.Components[name] = ComponentHealth{Healthy: true, Message: err.Error()}
		default:
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
		}
	}

	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			set("database", fmt.Errorf("ping failed: %v", err), false)
		} else {
			set("database", nil, false)
		}
	} else {
		set("database", fmt.Errorf("not initialized"), false)
	}

	if c.redis != nil {
		if err := c.redis.Client.Ping(ctx).Err(); err != nil {
			set("redis", fmt.Errorf("ping failed: %v", err), false)
		} else {
			set("redis", nil, false)
		}
	} else {
		set("redis", fmt.Errorf("disabled"), true)
	}

	if c.dispatcher != nil {
		set("dispatcher", nil, false)
	} else {
		set("dispatcher", fmt.Errorf("not initialized"), false)
	}

	if c.messenger == nil {
		set("lark", fmt.Errorf("disabled"), true)
	} else {
		set("lark", nil, true)
	}
	if c.drafter == nil {
		set("openai", fmt.Errorf("disabled"), true)
	} else {
		set("openai", nil, true)
	}

	return status
}

func (c *Container) initDatabase(ctx context.Context) error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = dbBundle.DB
	c.txManager = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos

	return SeedUsers(ctx, repos.User, c.config.Workflow.Users, c.logger)
}

func (c *Container) initRedis(ctx context.Context) error {
	bundle, err := ProvideRedis(ctx, &c.config.Redis, c.logger)
	if err != nil {
		return err
	}
	c.redis = bundle
	return nil
}

func (c *Container) initExternalClients(_ context.Context) error {
	c.messenger = ProvideMessenger(&c.config.Lark, c.logger)

	drafter, err := ProvideDrafter(&c.config.OpenAI, c.logger)
	if err != nil {
		return err
	}
	c.drafter = drafter
	return nil
}

func (c *Container) initStorage(_ context.Context) error {
	if !c.config.Storage.ArchiveFiles {
		return nil
	}
	bundle, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.storage = bundle
	return nil
}

func (c *Container) initServices(_ context.Context) error {
	c.dispatcher = ProvideDispatcher(c.logger)

	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Dispatcher: c.dispatcher,
		Messenger:  c.messenger,
		Drafter:    c.drafter,
		Storage:    c.storage,
		Workflow:   &c.config.Workflow,
		Archive:    c.config.Storage.ArchiveFiles,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initServer(_ context.Context) error {
	server, err := ProvideServer(&ServerDeps{
		Config:     c.config,
		Services:   c.services,
		Redis:      c.redis,
		PreviewDPI: c.config.Storage.PreviewDPI,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.server = server
	return nil
}

// Getters for accessing container components

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Server returns the HTTP server.
func (c *Container) Server() *httpif.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
