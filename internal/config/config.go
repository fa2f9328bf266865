// Package config loads notegraph settings from defaults, an optional config
// file, NOTEGRAPH_* environment variables and bound command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. NOTEGRAPH_REPO_URL.
const EnvPrefix = "NOTEGRAPH"

// Keys.
const (
	KeyRepoURL         = "repo.url"
	KeyRepoBranch      = "repo.branch"
	KeyRepoLocalPath   = "repo.local_path"
	KeyRepoContentPath = "repo.content_path"
	KeyRepoRootName    = "repo.root_name"
	KeyRepoUsername    = "repo.username"
	KeyRepoToken       = "repo.token"
	KeyWebhookSecret   = "webhook.secret"
	KeyCacheCapacity   = "cache.capacity"
	KeyCacheTreeTTL    = "cache.tree_ttl"
	KeyPrecacheWorkers = "precache.workers"
	KeyServerPort      = "server.port"
	KeyLogFile         = "log.file"
	KeyLogMaxSizeMB    = "log.max_size_mb"
	KeyLogMaxBackups   = "log.max_backups"
	KeyLogMaxAgeDays   = "log.max_age_days"
	KeyTraceExporter   = "trace.exporter"
	KeyHistoryPath     = "history.path"
	KeyHistoryKeep     = "history.keep"
)

// Config is the effective configuration.
type Config struct {
	Repo     RepoConfig     `mapstructure:"repo" toml:"repo"`
	Webhook  WebhookConfig  `mapstructure:"webhook" toml:"webhook"`
	Cache    CacheConfig    `mapstructure:"cache" toml:"cache"`
	Precache PrecacheConfig `mapstructure:"precache" toml:"precache"`
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
	Trace    TraceConfig    `mapstructure:"trace" toml:"trace"`
	History  HistoryConfig  `mapstructure:"history" toml:"history"`
}

// RepoConfig locates the notes repository.
type RepoConfig struct {
	URL         string `mapstructure:"url" toml:"url"`
	Branch      string `mapstructure:"branch" toml:"branch"`
	LocalPath   string `mapstructure:"local_path" toml:"local_path"`
	ContentPath string `mapstructure:"content_path" toml:"content_path"`
	RootName    string `mapstructure:"root_name" toml:"root_name"`
	Username    string `mapstructure:"username" toml:"username"`
	Token       string `mapstructure:"token" toml:"token"`
}

// WebhookConfig holds the GitHub webhook secret.
type WebhookConfig struct {
	Secret string `mapstructure:"secret" toml:"secret"`
}

// CacheConfig sizes the content cache.
type CacheConfig struct {
	Capacity int           `mapstructure:"capacity" toml:"capacity"`
	TreeTTL  time.Duration `mapstructure:"tree_ttl" toml:"tree_ttl"`
}

// PrecacheConfig bounds the background render sweep.
type PrecacheConfig struct {
	Workers int `mapstructure:"workers" toml:"workers"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int `mapstructure:"port" toml:"port"`
}

// LogConfig configures log rotation. An empty File logs to stderr.
type LogConfig struct {
	File       string `mapstructure:"file" toml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" toml:"max_age_days"`
}

// TraceConfig selects the trace exporter ("none" or "stdout").
type TraceConfig struct {
	Exporter string `mapstructure:"exporter" toml:"exporter"`
}

// HistoryConfig locates the sync journal. An empty Path disables it.
type HistoryConfig struct {
	Path string `mapstructure:"path" toml:"path"`
	Keep int    `mapstructure:"keep" toml:"keep"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRepoURL, "")
	v.SetDefault(KeyRepoBranch, "main")
	v.SetDefault(KeyRepoLocalPath, "./data/notes")
	v.SetDefault(KeyRepoContentPath, "study")
	v.SetDefault(KeyRepoRootName, "Study")
	v.SetDefault(KeyRepoUsername, "")
	v.SetDefault(KeyRepoToken, "")
	v.SetDefault(KeyWebhookSecret, "")
	v.SetDefault(KeyCacheCapacity, 1000)
	v.SetDefault(KeyCacheTreeTTL, 30*time.Minute)
	v.SetDefault(KeyPrecacheWorkers, 4)
	v.SetDefault(KeyServerPort, 8080)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogMaxSizeMB, 50)
	v.SetDefault(KeyLogMaxBackups, 3)
	v.SetDefault(KeyLogMaxAgeDays, 28)
	v.SetDefault(KeyTraceExporter, "none")
	v.SetDefault(KeyHistoryPath, "./data/notegraph.db")
	v.SetDefault(KeyHistoryKeep, 500)
}

// New returns a viper instance with defaults, environment overrides and
// config file search paths registered. configFile, if set, replaces the
// search.
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		return v
	}
	v.SetConfigName("notegraph")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "notegraph"))
	}
	return v
}

// Read loads the config file into v. A missing file found by search is not
// an error; a missing explicit file is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Decode returns the effective configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load is New, Read and Decode in one call.
func Load(configFile string) (*Config, error) {
	v := New(configFile)
	if err := Read(v); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Repo.LocalPath == "" {
		return fmt.Errorf("%s must not be empty", KeyRepoLocalPath)
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyCacheCapacity, c.Cache.Capacity)
	}
	if c.Cache.TreeTTL <= 0 {
		return fmt.Errorf("%s must be positive, got %v", KeyCacheTreeTTL, c.Cache.TreeTTL)
	}
	if c.Precache.Workers <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyPrecacheWorkers, c.Precache.Workers)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%s out of range: %d", KeyServerPort, c.Server.Port)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("%s must not be negative, got %d", KeyHistoryKeep, c.History.Keep)
	}
	return nil
}

// Redacted returns a copy of c with credentials masked, for display.
func (c Config) Redacted() Config {
	if c.Repo.Token != "" {
		c.Repo.Token = redacted
	}
	if c.Webhook.Secret != "" {
		c.Webhook.Secret = redacted
	}
	return c
}

const redacted = "********"
