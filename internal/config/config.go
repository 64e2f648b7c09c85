package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Crypto   CryptoConfig   `mapstructure:"crypto"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Lark     LarkConfig     `mapstructure:"lark"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Client   ClientConfig   `mapstructure:"client"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds the idempotency store connection. An empty Addr disables the guard.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	ReplayTTL time.Duration `mapstructure:"replay_ttl"`
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// CryptoConfig holds the shared envelope secret
type CryptoConfig struct {
	EnvelopeSecret string `mapstructure:"envelope_secret"`
}

// UserConfig seeds one approval chain member
type UserConfig struct {
	UserID     string `mapstructure:"user_id"`
	EmployeeID string `mapstructure:"employee_id"`
	Name       string `mapstructure:"name"`
	Role       string `mapstructure:"role"`
	LarkOpenID string `mapstructure:"lark_open_id"`
}

// WorkflowConfig holds approval routing settings
type WorkflowConfig struct {
	Chain            []string     `mapstructure:"chain"`
	ApproverRoles    []string     `mapstructure:"approver_roles"`
	FallbackStatusID int          `mapstructure:"fallback_status_id"`
	PageSize         int          `mapstructure:"page_size"`
	Users            []UserConfig `mapstructure:"users"`
}

// LarkConfig holds Lark API configuration. Notifications are off without credentials.
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// OpenAIConfig holds OpenAI API configuration. Drafting is off without a key.
type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	BaseURL     string `mapstructure:"base_url"`
	PromptsPath string `mapstructure:"prompts_path"`
}

// StorageConfig holds archive storage configuration
type StorageConfig struct {
	BaseDir      string  `mapstructure:"base_dir"`
	PreviewDPI   float64 `mapstructure:"preview_dpi"`
	ArchiveFiles bool    `mapstructure:"archive_files"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// ClientConfig holds settings of the command line client
type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from file, .env and environment variables.
// A missing config file is tolerated; defaults and environment still apply.
func Load(configPath string) (*Config, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadClient loads configuration for the command line client, which only
// needs the client and crypto sections. override applies command line flags
// before validation and may be nil.
func LoadClient(configPath string, override func(*Config)) (*Config, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("OFFICE_ORDERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/office_orders.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Redis defaults
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 60*time.Second)
	v.SetDefault("redis.replay_ttl", 24*time.Hour)

	// Auth defaults
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	// Workflow defaults
	v.SetDefault("workflow.chain", []string{"initiator", "reviewer", "approver"})
	v.SetDefault("workflow.approver_roles", []string{"approver"})
	v.SetDefault("workflow.fallback_status_id", 8)
	v.SetDefault("workflow.page_size", 10)

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-4o-mini")

	// Storage defaults
	v.SetDefault("storage.base_dir", "data/files")
	v.SetDefault("storage.preview_dpi", 72)
	v.SetDefault("storage.archive_files", true)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Client defaults
	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.timeout", 30*time.Second)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("crypto.envelope_secret", "ENVELOPE_SECRET")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("client.server_url", "OFFICE_ORDERS_SERVER")
	_ = v.BindEnv("client.token", "OFFICE_ORDERS_TOKEN")
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Crypto.EnvelopeSecret == "" {
		return fmt.Errorf("crypto.envelope_secret is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.Workflow.Chain) < 2 {
		return fmt.Errorf("workflow.chain needs at least two roles")
	}
	if len(c.Workflow.ApproverRoles) == 0 {
		return fmt.Errorf("workflow.approver_roles is required")
	}
	if c.Workflow.FallbackStatusID <= 0 {
		return fmt.Errorf("workflow.fallback_status_id must be positive")
	}
	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}
	for i, u := range c.Workflow.Users {
		if u.UserID == "" || u.Role == "" {
			return fmt.Errorf("workflow.users[%d] needs user_id and role", i)
		}
	}
	return nil
}

// ValidateClient validates the command line client configuration
func (c *Config) ValidateClient() error {
	if c.Client.ServerURL == "" {
		return fmt.Errorf("client.server_url is required")
	}
	if c.Crypto.EnvelopeSecret == "" {
		return fmt.Errorf("crypto.envelope_secret is required")
	}
	return nil
}
