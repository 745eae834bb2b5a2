package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	PostgresURL string `mapstructure:"POSTGRES_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	ServerPort  string `mapstructure:"SERVER_PORT"`

	BlobUploadURL string `mapstructure:"BLOB_UPLOAD_URL"`
	BlobPublicURL string `mapstructure:"BLOB_PUBLIC_URL"`
	BlobAuthToken string `mapstructure:"BLOB_AUTH_TOKEN"`

	EntityDelaySeconds int `mapstructure:"ENTITY_DELAY_SECONDS"`
	NavTimeoutSeconds  int `mapstructure:"NAV_TIMEOUT_SECONDS"`
	CacheTTLHours      int `mapstructure:"CACHE_TTL_HOURS"`
	DefaultBatchSize   int `mapstructure:"DEFAULT_BATCH_SIZE"`

	ImageMinWidth      int     `mapstructure:"IMAGE_MIN_WIDTH"`
	ImageMinHeight     int     `mapstructure:"IMAGE_MIN_HEIGHT"`
	ImageMaxBytes      int64   `mapstructure:"IMAGE_MAX_BYTES"`
	ImageMaxBrightness float64 `mapstructure:"IMAGE_MAX_BRIGHTNESS"`
	ImageBoxSize       int     `mapstructure:"IMAGE_BOX_SIZE"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present.
	// This allows configuration purely through environment variables in
	// production.
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("ENTITY_DELAY_SECONDS", 5)
	viper.SetDefault("NAV_TIMEOUT_SECONDS", 30)
	viper.SetDefault("CACHE_TTL_HOURS", 24*14)
	viper.SetDefault("DEFAULT_BATCH_SIZE", 20)
	viper.SetDefault("IMAGE_MIN_WIDTH", 600)
	viper.SetDefault("IMAGE_MIN_HEIGHT", 600)
	viper.SetDefault("IMAGE_MAX_BYTES", 5<<20)
	viper.SetDefault("IMAGE_MAX_BRIGHTNESS", 250)
	viper.SetDefault("IMAGE_BOX_SIZE", 800)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate catches fatal misconfiguration at process start.
func (c *Config) validate() error {
	if c.EntityDelaySeconds <= 0 {
		return fmt.Errorf("ENTITY_DELAY_SECONDS must be positive")
	}
	if c.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("NAV_TIMEOUT_SECONDS must be positive")
	}
	if c.CacheTTLHours <= 0 {
		return fmt.Errorf("CACHE_TTL_HOURS must be positive")
	}
	if c.ImageMinWidth <= 0 || c.ImageMinHeight <= 0 {
		return fmt.Errorf("minimum image dimensions must be positive")
	}
	if c.ImageMaxBytes <= 0 {
		return fmt.Errorf("IMAGE_MAX_BYTES must be positive")
	}
	if c.ImageBoxSize <= 0 {
		return fmt.Errorf("IMAGE_BOX_SIZE must be positive")
	}
	return nil
}

func (c *Config) EntityDelay() time.Duration {
	return time.Duration(c.EntityDelaySeconds) * time.Second
}

func (c *Config) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}
