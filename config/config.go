package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
	Anthropic     AnthropicConfig     `mapstructure:"anthropic"`
	Cache         CacheConfig         `mapstructure:"cache"`
	RawStore      RawStoreConfig      `mapstructure:"rawstore"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	Log           LogConfig           `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// OpenFoodFactsConfig holds Open Food Facts API configuration
type OpenFoodFactsConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// AnthropicConfig holds the description model configuration
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	MaxTokens  int64  `mapstructure:"max_tokens"`
	BaseURL    string `mapstructure:"base_url"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// CacheConfig holds the resolved-product store configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RawStoreConfig selects the bulk-loaded product facts store
type RawStoreConfig struct {
	Driver      string `mapstructure:"driver"` // "none", "postgres" or "pebble"
	DatabaseURL string `mapstructure:"database_url"`
	Table       string `mapstructure:"table"`
	PebbleDir   string `mapstructure:"pebble_dir"`
	MaxConns    int32  `mapstructure:"max_conns"`
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/allergen/")

	// ALLERGEN_ANTHROPIC_API_KEY -> anthropic.api_key
	v.SetEnvPrefix("ALLERGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
// Every key needs a default so AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("openfoodfacts.timeout", "5s")
	v.SetDefault("openfoodfacts.max_retries", 3)
	v.SetDefault("openfoodfacts.rate_per_minute", 100)
	v.SetDefault("openfoodfacts.user_agent", "AllergenAI/1.0")

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.max_retries", 2)

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "720h") // 30 days

	v.SetDefault("rawstore.driver", "none")
	v.SetDefault("rawstore.database_url", "")
	v.SetDefault("rawstore.table", "open_food_facts")
	v.SetDefault("rawstore.pebble_dir", "./data/off")
	v.SetDefault("rawstore.max_conns", 10)

	v.SetDefault("ratelimit.per_ip", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Anthropic.APIKey == "" {
		return fmt.Errorf("Anthropic API key is required (set ALLERGEN_ANTHROPIC_API_KEY)")
	}

	if config.Anthropic.MaxTokens <= 0 {
		return fmt.Errorf("anthropic max_tokens must be positive, got: %d", config.Anthropic.MaxTokens)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	switch config.RawStore.Driver {
	case "none", "pebble":
	case "postgres":
		if config.RawStore.DatabaseURL == "" {
			return fmt.Errorf("database URL is required when rawstore driver is 'postgres'")
		}
	default:
		return fmt.Errorf("rawstore driver must be 'none', 'postgres' or 'pebble', got: %s", config.RawStore.Driver)
	}

	if config.RawStore.Driver == "pebble" && config.RawStore.PebbleDir == "" {
		return fmt.Errorf("pebble directory is required when rawstore driver is 'pebble'")
	}

	if config.OpenFoodFacts.Timeout <= 0 {
		return fmt.Errorf("openfoodfacts timeout must be positive, got: %s", config.OpenFoodFacts.Timeout)
	}

	if config.OpenFoodFacts.MaxRetries < 1 {
		return fmt.Errorf("openfoodfacts max_retries must be at least 1, got: %d", config.OpenFoodFacts.MaxRetries)
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
