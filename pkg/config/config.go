// Package config loads reportboard settings from defaults, an optional YAML
// file and REPORTBOARD_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. REPORTBOARD_STORE_DRIVER.
const EnvPrefix = "REPORTBOARD"

type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Datasets DatasetsConfig `mapstructure:"datasets" yaml:"datasets"`
	Charts   ChartsConfig   `mapstructure:"charts" yaml:"charts"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	BasePath        string        `mapstructure:"base_path" yaml:"base_path"`
	Transport       string        `mapstructure:"transport" yaml:"transport"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// SessionIdleTimeout releases a user's loaded dashboard after this long
	// without requests. Zero keeps sessions until shutdown.
	SessionIdleTimeout   time.Duration `mapstructure:"session_idle_timeout" yaml:"session_idle_timeout"`
	SessionSweepInterval time.Duration `mapstructure:"session_sweep_interval" yaml:"session_sweep_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type StoreConfig struct {
	Driver       string        `mapstructure:"driver" yaml:"driver"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	Mongo        MongoConfig   `mapstructure:"mongo" yaml:"mongo"`
	Redis        RedisConfig   `mapstructure:"redis" yaml:"redis"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri" yaml:"uri"`
	Database   string `mapstructure:"database" yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"-"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type DatasetsConfig struct {
	Driver  string `mapstructure:"driver" yaml:"driver"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"-"`
}

type ChartsConfig struct {
	Theme      string        `mapstructure:"theme" yaml:"theme"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	AssetsHost string        `mapstructure:"assets_host" yaml:"assets_host"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Store drivers.
const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
)

// HTTP transports.
const (
	TransportFiber = "fiber"
	TransportHTTP  = "http"
)

// Dataset drivers.
const (
	DatasetsMock = "mock"
	DatasetsHTTP = "http"
)

// Load reads the configuration. An empty path searches for reportboard.yaml
// in the working directory, ./configs and /etc/reportboard; a missing file
// is not an error in that case.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reportboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs/")
		v.AddConfigPath("/etc/reportboard/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", describe(path), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.transport", TransportFiber)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.session_idle_timeout", 15*time.Minute)
	v.SetDefault("server.session_sweep_interval", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.write_timeout", 10*time.Second)
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "reportboard")
	v.SetDefault("store.mongo.collection", "report_dashboards")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)

	v.SetDefault("datasets.driver", DatasetsMock)
	v.SetDefault("datasets.base_url", "")
	v.SetDefault("datasets.api_key", "")

	v.SetDefault("charts.theme", "westeros")
	v.SetDefault("charts.cache_ttl", 5*time.Minute)
	v.SetDefault("charts.assets_host", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("metrics.path", "/metrics")
}

// Validate rejects unknown drivers and incomplete driver settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverMongo:
		if c.Store.Mongo.URI == "" || c.Store.Mongo.Database == "" {
			return errors.New("config: store.mongo.uri and store.mongo.database are required for the mongo driver")
		}
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("config: store.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	switch c.Datasets.Driver {
	case DatasetsMock:
	case DatasetsHTTP:
		if c.Datasets.BaseURL == "" {
			return errors.New("config: datasets.base_url is required for the http driver")
		}
	default:
		return fmt.Errorf("config: unsupported datasets.driver %q", c.Datasets.Driver)
	}
	switch c.Server.Transport {
	case TransportFiber, TransportHTTP:
	default:
		return fmt.Errorf("config: unsupported server.transport %q", c.Server.Transport)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return errors.New("config: metrics.address is required when metrics are enabled")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: unsupported log.format %q", c.Log.Format)
	}
	if c.Store.WriteTimeout < 0 || c.Charts.CacheTTL < 0 || c.Server.SessionIdleTimeout < 0 || c.Server.SessionSweepInterval < 0 {
		return errors.New("config: durations must not be negative")
	}
	return nil
}

func describe(path string) string {
	if path == "" {
		return "reportboard.yaml"
	}
	return path
}
