package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	StorageDriverDisk     = "disk"
	StorageDriverRedis    = "redis"
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Environment string `toml:"-"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// storage
	StorageDriver  string `toml:"storage_driver"`
	DiskDataPath   string `toml:"disk_data_path"`
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`
	RedisKey       string `toml:"redis_key"`
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	// fittrack
	DayLocation              string `toml:"day_location"`
	SeedDemo                 bool   `toml:"seed_demo"`
	MutationsRateLimitPerMin int    `toml:"mutations_rate_limit_per_min"`
	MCPEnabled               bool   `toml:"mcp_enabled"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		if t.Development == nil {
			return nil, errors.New("development config missing")
		}
		t.Development.Environment = "development"
		return t.Development, nil
	case "prod", "production":
		if t.Production == nil {
			return nil, errors.New("production config missing")
		}
		t.Production.Environment = "production"
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML file at path and returns the config of the given env,
// with defaults applied for the keys left out.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode toml config [%s]: %w", path, err)
	}
	return fromToml(&t, env)
}

// Parse is Load for an in-memory TOML document.
func Parse(env, content string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(content, &t); err != nil {
		return nil, fmt.Errorf("decode toml config: %w", err)
	}
	return fromToml(&t, env)
}

func fromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9100
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "9101"
	}
	if c.StorageDriver == "" {
		c.StorageDriver = StorageDriverDisk
	}
	if c.DiskDataPath == "" {
		c.DiskDataPath = "./data"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.RedisKey == "" {
		c.RedisKey = "fittrack_data_v1"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.PostgresDBName == "" {
		c.PostgresDBName = "fittrack"
	}
	if c.DayLocation == "" {
		c.DayLocation = "UTC"
	}
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverDisk, StorageDriverMemory:
	case StorageDriverRedis:
		if c.RedisHost == "" {
			return errors.New("redis storage driver requires redis_host")
		}
	case StorageDriverPostgres:
		if c.PostgresHost == "" {
			return errors.New("postgres storage driver requires postgres_host")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", c.StorageDriver)
	}

	if c.MutationsRateLimitPerMin < 0 {
		return fmt.Errorf("invalid mutations rate limit: %d", c.MutationsRateLimitPerMin)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves DayLocation, the zone in which calendar days are cut.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DayLocation)
	if err != nil {
		return nil, fmt.Errorf("load day location [%s]: %w", c.DayLocation, err)
	}
	return loc, nil
}
