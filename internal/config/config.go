package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zheng/archscan/internal/graph"
)

const (
	// FileName is the config file looked up in the project root, without extension
	FileName  = ".archscan"
	EnvPrefix = "ARCHSCAN"
)

type Config struct {
	Database   string           `mapstructure:"database"`
	Project    string           `mapstructure:"project"`
	Log        LogConfig        `mapstructure:"log"`
	Scan       ScanConfig       `mapstructure:"scan"`
	Thresholds graph.Thresholds `mapstructure:"thresholds"`
	AI         AIConfig         `mapstructure:"ai"`
	Web        WebConfig        `mapstructure:"web"`
	Watch      WatchConfig      `mapstructure:"watch"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ScanConfig struct {
	MaxDepth    int      `mapstructure:"max_depth"`
	Workers     int      `mapstructure:"workers"`
	Parser      string   `mapstructure:"parser"` // pattern | treesitter
	Extensions  []string `mapstructure:"extensions"`
	Exclude     []string `mapstructure:"exclude"`
	AliasPrefix string   `mapstructure:"alias_prefix"`
	AliasRoots  []string `mapstructure:"alias_roots"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
	RedisURL string        `mapstructure:"redis_url"` // empty disables the response cache
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type WebConfig struct {
	Addr         string   `mapstructure:"addr"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", ".archscan.db")
	v.SetDefault("project", "default")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("scan.max_depth", 20)
	v.SetDefault("scan.workers", 0)
	v.SetDefault("scan.parser", "pattern")
	v.SetDefault("scan.extensions", []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"})
	v.SetDefault("scan.exclude", []string{})
	v.SetDefault("scan.alias_prefix", "@/")
	v.SetDefault("scan.alias_roots", []string{"src", "."})
	v.SetDefault("thresholds.strong_refs", graph.DefaultThresholds.StrongRefs)
	v.SetDefault("thresholds.required_refs", graph.DefaultThresholds.RequiredRefs)
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.endpoint", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.redis_url", "")
	v.SetDefault("ai.cache_ttl", "24h")
	v.SetDefault("web.addr", ":8080")
	v.SetDefault("web.allow_origins", []string{"*"})
	v.SetDefault("watch.debounce", "500ms")
}

// Load reads dir/.env, then the config file (explicit path, or .archscan.yaml in dir),
// then ARCHSCAN_* environment overrides such as ARCHSCAN_AI_ENDPOINT
func Load(configFile, dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}
	// .env is optional
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Project == "" {
		return fmt.Errorf("project id is required")
	}
	if c.Scan.MaxDepth < 0 {
		return fmt.Errorf("scan.max_depth must be >= 0, got %d", c.Scan.MaxDepth)
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must be >= 0, got %d", c.Scan.Workers)
	}
	switch c.Scan.Parser {
	case "pattern", "treesitter":
	default:
		return fmt.Errorf("scan.parser must be pattern or treesitter, got %q", c.Scan.Parser)
	}
	if c.Thresholds.StrongRefs < c.Thresholds.RequiredRefs {
		return fmt.Errorf("thresholds.strong_refs (%d) must be >= thresholds.required_refs (%d)",
			c.Thresholds.StrongRefs, c.Thresholds.RequiredRefs)
	}
	if c.AI.Enabled && c.AI.Endpoint == "" {
		return fmt.Errorf("ai.endpoint is required when ai.enabled is true")
	}
	return nil
}
