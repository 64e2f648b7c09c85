package config

import (
	"github.com/garyjia/office-orders/internal/container"
	"github.com/garyjia/office-orders/internal/domain/entity"
)

// Version is stamped at build time with -ldflags "-X .../internal/config.Version=..."
var Version = "dev"

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	users := make([]entity.User, 0, len(c.Workflow.Users))
	for _, u := range c.Workflow.Users {
		users = append(users, entity.User{
			UserID:     u.UserID,
			EmployeeID: u.EmployeeID,
			Name:       u.Name,
			Role:       u.Role,
			LarkOpenID: u.LarkOpenID,
		})
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Redis: container.RedisConfig{
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			LockTTL:   c.Redis.LockTTL,
			ReplayTTL: c.Redis.ReplayTTL,
		},
		Auth: container.AuthConfig{
			JWTSecret:      c.Auth.JWTSecret,
			EnvelopeSecret: c.Crypto.EnvelopeSecret,
		},
		Workflow: container.WorkflowConfig{
			Chain:            c.Workflow.Chain,
			ApproverRoles:    c.Workflow.ApproverRoles,
			FallbackStatusID: c.Workflow.FallbackStatusID,
			Users:            users,
		},
		Lark: container.LarkConfig{
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
			BaseURL:   c.Lark.BaseURL,
		},
		OpenAI: container.OpenAIConfig{
			APIKey:      c.OpenAI.APIKey,
			Model:       c.OpenAI.Model,
			BaseURL:     c.OpenAI.BaseURL,
			PromptsPath: c.OpenAI.PromptsPath,
		},
		Storage: container.StorageConfig{
			BaseDir:      c.Storage.BaseDir,
			PreviewDPI:   c.Storage.PreviewDPI,
			ArchiveFiles: c.Storage.ArchiveFiles,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			Version:      Version,
		},
	}
}
