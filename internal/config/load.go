package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"go-raidguard/internal/models"
)

// EnvPrefix namespaces environment overrides, e.g.
// RAIDGUARD_DETECTION__MIN_USERS_JOIN=10 sets detection.min_users_join.
const EnvPrefix = "RAIDGUARD_"

const (
	ExecutorSession = "session"
	ExecutorREST    = "rest"
)

type Config struct {
	Bot        BotConfig        `koanf:"bot"`
	Detection  DetectionConfig  `koanf:"detection"`
	Moderation ModerationConfig `koanf:"moderation"`
	Network    NetworkConfig    `koanf:"network"`
	Database   DatabaseConfig   `koanf:"database"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Logging    LoggingConfig    `koanf:"logging"`
	Notifier   NotifierConfig   `koanf:"notifier"`
}

type BotConfig struct {
	Token string `koanf:"token"`
	// Watching status shown once the gateway is ready.
	Activity string `koanf:"activity"`
	Reply    string `koanf:"mention_reply"`
}

type DetectionConfig struct {
	Window       time.Duration `koanf:"window"`
	MinUsersJoin int           `koanf:"min_users_join"`
}

type ModerationConfig struct {
	Action        string `koanf:"action"`
	Reason        string `koanf:"reason"`
	BanDeleteDays int    `koanf:"ban_delete_days"`
	// Executor is "session" (discordgo REST) or "rest" (pooled fasthttp client).
	Executor string `koanf:"executor"`
}

type NetworkConfig struct {
	HTTPPoolSize   int           `koanf:"http_pool_size"`
	APIBaseURL     string        `koanf:"api_base_url"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type DatabaseConfig struct {
	// Path of the SQLite action journal; empty disables it.
	Path string `koanf:"path"`
}

type MetricsConfig struct {
	Listen string `koanf:"listen"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

type NotifierConfig struct {
	LogChannelID string `koanf:"log_channel_id"`
}

var GlobalConfig *Config

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Activity: "for robots",
			Reply:    "That's me!",
		},
		Detection: DetectionConfig{
			Window:       30 * time.Second,
			MinUsersJoin: 8,
		},
		Moderation: ModerationConfig{
			Action:        "kick",
			Reason:        "Suspected bot; performing raid defense",
			BanDeleteDays: 7,
			Executor:      ExecutorSession,
		},
		Network: NetworkConfig{
			HTTPPoolSize:   4,
			APIBaseURL:     "https://discord.com/api/v10",
			RequestTimeout: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load layers defaults, the optional YAML file at path and the environment.
// An empty path or a missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

func Get() *Config {
	if GlobalConfig == nil {
		return DefaultConfig()
	}
	return GlobalConfig
}

func (c *Config) Validate() error {
	if c.Detection.Window <= 0 {
		return fmt.Errorf("detection.window must be positive, got %v", c.Detection.Window)
	}
	if c.Detection.MinUsersJoin < 1 {
		return fmt.Errorf("detection.min_users_join must be at least 1, got %d", c.Detection.MinUsersJoin)
	}
	if _, err := models.ParseActionType(c.Moderation.Action); err != nil {
		return fmt.Errorf("moderation.action: %w", err)
	}
	if c.Moderation.BanDeleteDays < 0 || c.Moderation.BanDeleteDays > 7 {
		return fmt.Errorf("moderation.ban_delete_days must be within 0..7, got %d", c.Moderation.BanDeleteDays)
	}
	switch c.Moderation.Executor {
	case ExecutorSession:
	case ExecutorREST:
		if c.Network.HTTPPoolSize < 1 {
			return fmt.Errorf("network.http_pool_size must be at least 1 for the rest executor")
		}
	default:
		return fmt.Errorf("moderation.executor must be %q or %q, got %q", ExecutorSession, ExecutorREST, c.Moderation.Executor)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

func (c *Config) ActionType() models.ActionType {
	action, _ := models.ParseActionType(c.Moderation.Action)
	return action
}
