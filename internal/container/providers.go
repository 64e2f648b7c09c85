package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/application/dispatcher"
	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/application/preview"
	"github.com/garyjia/office-orders/internal/application/service"
	"github.com/garyjia/office-orders/internal/application/validation"
	"github.com/garyjia/office-orders/internal/domain/entity"
	"github.com/garyjia/office-orders/internal/infrastructure/cache"
	"github.com/garyjia/office-orders/internal/infrastructure/export"
	infraLark "github.com/garyjia/office-orders/internal/infrastructure/external/lark"
	"github.com/garyjia/office-orders/internal/infrastructure/external/openai"
	"github.com/garyjia/office-orders/internal/infrastructure/persistence/repository"
	"github.com/garyjia/office-orders/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/office-orders/internal/infrastructure/render"
	"github.com/garyjia/office-orders/internal/infrastructure/storage"
	httpif "github.com/garyjia/office-orders/internal/interfaces/http"
	"github.com/garyjia/office-orders/pkg/crypto"
	"github.com/garyjia/office-orders/pkg/database"
	"github.com/garyjia/office-orders/pkg/utils"
)

// handlerTimeout bounds each async event handler run
const handlerTimeout = 30 * time.Second

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RedisBundle holds the idempotency store and its client.
type RedisBundle struct {
	Client redis.UniversalClient
	Store  port.IdempotencyStore
}

// StorageBundle holds storage-related components.
type StorageBundle struct {
	FileStorage   port.FileStorage
	FolderManager port.FolderManager
}

// ProvideDatabase opens the database and runs pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.Path != database.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repository instances.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	return &RepositoryBundle{
		Task:    repository.NewTaskRepository(db.DB, logger),
		History: repository.NewHistoryRepository(db.DB, logger),
		Comment: repository.NewCommentRepository(db.DB, logger),
		Status:  repository.NewStatusRepository(db.DB, logger),
		User:    repository.NewUserRepository(db.DB, logger),
	}, nil
}

// SeedUsers upserts the configured chain members into the user directory.
func SeedUsers(ctx context.Context, users port.UserRepository, seed []entity.User, logger *zap.Logger) error {
	for i := range seed {
		u := seed[i]
		if err := users.Upsert(ctx, &u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.UserID, err)
		}
	}
	if len(seed) > 0 {
		logger.Info("Users seeded", zap.Int("count", len(seed)))
	}
	return nil
}

// ProvideRedis connects the idempotency store. It returns nil when no address
// is configured; mutating requests are then not deduplicated.
func ProvideRedis(ctx context.Context, cfg *RedisConfig, logger *zap.Logger) (*RedisBundle, error) {
	if cfg.Addr == "" {
		logger.Warn("Redis address not configured, request replay protection disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("Redis connected", zap.String("addr", cfg.Addr))
	return &RedisBundle{
		Client: client,
		Store:  cache.NewIdempotencyStore(client, cfg.LockTTL, cfg.ReplayTTL),
	}, nil
}

// ProvideMessenger creates the Lark message sender, or nil without credentials.
func ProvideMessenger(cfg *LarkConfig, logger *zap.Logger) port.LarkMessageSender {
	if !cfg.Enabled() {
		logger.Warn("Lark credentials not configured, notifications disabled")
		return nil
	}

	client := infraLark.NewClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.BaseURL,
	}, logger)
	return infraLark.NewMessenger(client, logger)
}

// ProvideDrafter creates the OpenAI body drafter, or nil without an API key.
func ProvideDrafter(cfg *OpenAIConfig, logger *zap.Logger) (port.BodyDrafter, error) {
	if cfg.APIKey == "" {
		logger.Warn("OpenAI API key not configured, body drafting disabled")
		return nil, nil
	}

	prompts, err := openai.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	return openai.NewDrafter(openai.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	}, prompts, logger), nil
}

// ProvideStorage creates file storage and folder manager.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("storage base dir is required")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &StorageBundle{
		FileStorage:   storage.NewLocalFileStorage(cfg.BaseDir, logger),
		FolderManager: storage.NewLocalFolderManager(cfg.BaseDir, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger).Named("dispatcher")),
		dispatcher.WithHandlerTimeout(handlerTimeout),
	)
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Messenger  port.LarkMessageSender
	Drafter    port.BodyDrafter
	Storage    *StorageBundle
	Workflow   *WorkflowConfig
	Archive    bool
	Logger     *zap.Logger
}

// ProvideServices creates the application services and subscribes the
// event handlers to the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("repositories and dispatcher are required")
	}

	log := utils.NewKVLogger(deps.Logger)
	validator := validation.New(deps.Workflow.ApproverRoles...)

	bundle := &ServiceBundle{
		Task: service.NewTaskService(
			deps.Repos.Task,
			deps.Repos.History,
			deps.Repos.Comment,
			deps.Repos.Status,
			deps.Repos.User,
			deps.TxManager,
			validator,
			deps.Dispatcher,
			service.TaskServiceConfig{
				Chain:            deps.Workflow.Chain,
				FallbackStatusID: deps.Workflow.FallbackStatusID,
			},
			log.Named("tasks"),
		),
		Export: service.NewExportService(
			deps.Repos.Task,
			deps.Repos.Status,
			export.NewSheetWriter(deps.Logger),
			log.Named("export"),
		),
	}

	if deps.Drafter != nil {
		bundle.Drafting = service.NewDraftingService(deps.Drafter, validator, log.Named("drafting"))
	}

	if deps.Messenger != nil {
		bundle.Notification = service.NewNotificationService(deps.Repos.Task, deps.Repos.User, deps.Messenger, log.Named("notifier"))
		bundle.Notification.Register(deps.Dispatcher)
	}

	if deps.Archive && deps.Storage != nil {
		bundle.Archive = service.NewArchiveService(deps.Repos.Task, deps.Storage.FileStorage, deps.Storage.FolderManager, log.Named("archiver"))
		bundle.Archive.Register(deps.Dispatcher)
	}

	return bundle, nil
}

// ServerDeps holds dependencies for creating the HTTP server.
type ServerDeps struct {
	Config     *Config
	Services   *ServiceBundle
	Redis      *RedisBundle
	PreviewDPI float64
	Logger     *zap.Logger
}

// ProvideServer creates the HTTP server with its routes.
func ProvideServer(deps *ServerDeps) (*httpif.Server, error) {
	codec, err := crypto.NewEnvelope(deps.Config.Auth.EnvelopeSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create envelope: %w", err)
	}

	log := utils.NewKVLogger(deps.Logger).Named("http")
	rasterizer := render.NewRasterizer(deps.PreviewDPI, deps.Logger)

	httpDeps := httpif.Dependencies{
		Tasks:     deps.Services.Task,
		Export:    deps.Services.Export,
		Previewer: preview.NewPreviewer(nil, rasterizer, log.Named("preview")),
		Codec:     codec,
		JWTSecret: deps.Config.Auth.JWTSecret,
	}
	if deps.Services.Drafting != nil {
		httpDeps.Drafting = deps.Services.Drafting
	}
	if deps.Redis != nil {
		httpDeps.Idempotency = deps.Redis.Store
	}

	srv := deps.Config.Server
	return httpif.NewServer(httpif.ServerConfig{
		Host:         srv.Host,
		Port:         srv.Port,
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
		Version:      srv.Version,
	}, httpDeps, log), nil
}
