package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Tenancy modes. Single-tenant keeps the historical fixed-device behavior:
// one gateway token shared by everyone and registration disabled.
// Multi-tenant persists a profile per chat user.
const (
	TenancySingle = "single"
	TenancyMulti  = "multi"
)

// Storage backends for the multi-tenant profile repository.
const (
	StorageMongo  = "mongo"
	StorageSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Tenancy   string          `mapstructure:"tenancy"`
	Line      LineConfig      `mapstructure:"line"`
	SwitchBot SwitchBotConfig `mapstructure:"switchbot"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Session   SessionConfig   `mapstructure:"session"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// WebhookTimeout bounds total handling time for one inbound batch so the
	// platform's delivery deadline is never blown by slow downstream calls.
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

// LineConfig configures the chat platform client.
type LineConfig struct {
	// ChannelToken authenticates reply/push calls. Required.
	ChannelToken string `mapstructure:"channel_token"`

	// ChannelSecret verifies webhook signatures. Signature checking is
	// skipped when empty (local development).
	ChannelSecret string `mapstructure:"channel_secret"`

	BaseURL string `mapstructure:"base_url"`
}

// SwitchBotConfig configures the device gateway client. Token and DeviceID
// are only meaningful in single-tenant mode; multi-tenant credentials live
// in the profile store.
type SwitchBotConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`

	// DeviceID/DeviceName describe the fixed fallback device used in
	// single-tenant mode when enumeration is unavailable.
	DeviceID   string `mapstructure:"device_id"`
	DeviceName string `mapstructure:"device_name"`
}

type LLMConfig struct {
	DefaultProvider string       `mapstructure:"default_provider"`
	OpenAI          OpenAIConfig `mapstructure:"openai"`
	Gemini          GeminiConfig `mapstructure:"gemini"`
	Ollama          OllamaConfig `mapstructure:"ollama"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

type StorageConfig struct {
	Backend string       `mapstructure:"backend"`
	Mongo   MongoConfig  `mapstructure:"mongo"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`

	// EncryptionKey encrypts gateway credentials at rest. Must be 16, 24 or
	// 32 bytes. Required in multi-tenant mode.
	EncryptionKey string `mapstructure:"encryption_key"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	// Backend is "memory" or "redis".
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate enforces the settings each tenancy mode cannot run without.
func (c *Config) validate() error {
	if c.Tenancy != TenancySingle && c.Tenancy != TenancyMulti {
		return fmt.Errorf("invalid tenancy %q (must be %q or %q)", c.Tenancy, TenancySingle, TenancyMulti)
	}
	if c.Line.ChannelToken == "" {
		return fmt.Errorf("line.channel_token is required (LINE_ACCESS_TOKEN)")
	}
	if c.Tenancy == TenancySingle {
		if c.SwitchBot.Token == "" {
			return fmt.Errorf("switchbot.token is required in single-tenant mode (SWITCHBOT_TOKEN)")
		}
		if !c.llmConfigured() {
			return fmt.Errorf("default completion provider %q has no credential (OPENAI_API_KEY / GEMINI_API_KEY / OLLAMA_HOST)", c.LLM.DefaultProvider)
		}
	}
	return nil
}

// llmConfigured reports whether the default completion provider has what it
// needs to make requests.
func (c *Config) llmConfigured() bool {
	switch c.LLM.DefaultProvider {
	case "openai":
		return c.LLM.OpenAI.APIKey != ""
	case "gemini":
		return c.LLM.Gemini.APIKey != ""
	case "ollama":
		return c.LLM.Ollama.Host != ""
	}
	return false
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.webhook_timeout", "25s")

	v.SetDefault("tenancy", TenancyMulti)

	// Platform endpoints
	v.SetDefault("line.base_url", "https://api.line.me")
	v.SetDefault("switchbot.base_url", "https://api.switch-bot.com")
	v.SetDefault("switchbot.timeout", "10s")

	// LLM
	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.ollama.default_model", "llama3")

	// Storage
	v.SetDefault("storage.backend", StorageMongo)
	v.SetDefault("storage.mongo.database", "homerelay")
	v.SetDefault("storage.mongo.collection", "profiles")
	v.SetDefault("storage.sqlite.path", "./homerelay.db")

	// Sessions
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", "10m")
	v.SetDefault("session.redis.host", "localhost")
	v.SetDefault("session.redis.port", 6379)
	v.SetDefault("session.redis.db", 0)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Chat platform
	v.BindEnv("line.channel_token", "LINE_ACCESS_TOKEN")
	v.BindEnv("line.channel_secret", "LINE_CHANNEL_SECRET")

	// Device gateway (single-tenant mode)
	v.BindEnv("switchbot.token", "SWITCHBOT_TOKEN")
	v.BindEnv("switchbot.device_id", "DEVICE_ID")
	v.BindEnv("switchbot.device_name", "DEVICE_NAME")

	// LLM provider selection and API keys
	v.BindEnv("llm.default_provider", "LLM_DEFAULT_PROVIDER")
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")

	// Storage
	v.BindEnv("storage.mongo.uri", "MONGODB_URI")
	v.BindEnv("storage.encryption_key", "STORAGE_ENCRYPTION_KEY")

	// Sessions
	v.BindEnv("session.redis.password", "REDIS_PASSWORD")

	v.BindEnv("tenancy", "TENANCY")
}
