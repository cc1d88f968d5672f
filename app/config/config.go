// Package config loads service configuration from config.yaml and
// environment variables, env taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Env      string `mapstructure:"env" yaml:"env"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"-"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
}

type CacheConfig struct {
	LRUSize   int           `mapstructure:"lru_size" yaml:"lru_size"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix"`
}

type GeocodeConfig struct {
	Provider      string        `mapstructure:"provider" yaml:"provider"`
	GoogleAPIKey  string        `mapstructure:"google_api_key" yaml:"-"`
	LoqateAPIKey  string        `mapstructure:"loqate_api_key" yaml:"-"`
	MaxAttempts   int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay     time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	SurfaceErrors bool          `mapstructure:"surface_errors" yaml:"surface_errors"`
}

type SearchConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	APIKey  string `mapstructure:"api_key" yaml:"-"`
	Index   string `mapstructure:"index" yaml:"index"`
}

type Config struct {
	App     AppConfig     `mapstructure:"app" yaml:"app"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo" yaml:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Geocode GeocodeConfig `mapstructure:"geocode" yaml:"geocode"`
	Search  SearchConfig  `mapstructure:"search" yaml:"search"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "address_kit")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)

	v.SetDefault("cache.lru_size", 1024)
	v.SetDefault("cache.ttl", 6*time.Hour)
	v.SetDefault("cache.key_prefix", "addrkit")

	v.SetDefault("geocode.provider", "")
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("geocode.base_delay", 500*time.Millisecond)
	v.SetDefault("geocode.max_delay", 2*time.Second)
	v.SetDefault("geocode.surface_errors", false)

	v.SetDefault("search.enabled", false)
	v.SetDefault("search.host", "http://localhost:7700")
	v.SetDefault("search.index", "addresses")
}

// Load reads config.yaml from path (or the working directory when empty) and
// overlays ADDRKIT_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ADDRKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus env carry the service.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// YAML renders the effective configuration with secrets redacted, for the
// admin config endpoint.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}
