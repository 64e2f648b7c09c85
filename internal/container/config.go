// Package container provides dependency injection and lifecycle management
// for the office order workflow backend.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/office-orders/internal/domain/entity"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Workflow WorkflowConfig
	Lark     LarkConfig
	OpenAI   OpenAIConfig
	Storage  StorageConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file, or ":memory:"
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the idempotency store settings.
type RedisConfig struct {
	// Addr of the redis server. Empty disables replay protection.
	Addr      string
	Password  string
	DB        int
	LockTTL   time.Duration
	ReplayTTL time.Duration
}

// AuthConfig holds request authentication settings.
type AuthConfig struct {
	JWTSecret      string
	EnvelopeSecret string
}

// WorkflowConfig holds approval routing settings.
type WorkflowConfig struct {
	// Chain lists roles in routing order
	Chain []string

	// ApproverRoles may approve and return tasks
	ApproverRoles []string

	// FallbackStatusID is used when a status description has no record
	FallbackStatusID int

	// Users are upserted into the directory on start
	Users []entity.User
}

// LarkConfig holds Lark API settings. Empty credentials disable notifications.
type LarkConfig struct {
	AppID     string
	AppSecret string
	BaseURL   string
}

// Enabled reports whether Lark credentials are configured
func (c LarkConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != ""
}

// OpenAIConfig holds body drafting settings. An empty key disables drafting.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	PromptsPath string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// BaseDir is the root of archived Office Orders
	BaseDir string

	// PreviewDPI is the raster resolution of image previews
	PreviewDPI float64

	// ArchiveFiles stores the PDF of every approved task
	ArchiveFiles bool
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/office_orders.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			LockTTL:   60 * time.Second,
			ReplayTTL: 24 * time.Hour,
		},
		Workflow: WorkflowConfig{
			Chain:            []string{entity.RoleInitiator, entity.RoleReviewer, entity.RoleApprover},
			ApproverRoles:    []string{entity.RoleApprover},
			FallbackStatusID: 8,
		},
		Storage: StorageConfig{
			BaseDir:      "data/files",
			PreviewDPI:   72,
			ArchiveFiles: true,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Version:      "dev",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.EnvelopeSecret == "" {
		return fmt.Errorf("crypto.envelope_secret is required")
	}
	if len(c.Workflow.Chain) < 2 {
		return fmt.Errorf("workflow.chain needs at least two roles")
	}
	if c.Storage.ArchiveFiles && c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required when archiving")
	}
	return nil
}
