package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"MarketAnalyst/pkg/logger"
)

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type StorageConfig struct {
	Type string `yaml:"type"` // clickhouse or sqlite
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Database         string        `yaml:"database"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
}

type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	ScoresTopic   string   `yaml:"scores_topic"`
	RequestsTopic string   `yaml:"requests_topic"`
	RequiredAcks  int      `yaml:"required_acks"`
	Compression   string   `yaml:"compression"`
	Producer      struct {
		MaxAttempts  int           `yaml:"max_attempts"`
		Linger       time.Duration `yaml:"linger"`
		BatchSize    int           `yaml:"batch_size"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled"`
		GroupID    string        `yaml:"group_id"`
		Workers    int           `yaml:"workers"`
		BufferSize int           `yaml:"buffer_size"`
		RetryMax   int           `yaml:"retry_max"`
		BackoffMin time.Duration `yaml:"backoff_min"`
		BackoffMax time.Duration `yaml:"backoff_max"`
		DLQTopic   string        `yaml:"dlq_topic"`
	} `yaml:"consumer"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type QueueConfig struct {
	Name       string        `yaml:"name"`
	Workers    int           `yaml:"workers"`
	RetryLimit int           `yaml:"retry_limit"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type BrapiConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	RateLimit struct {
		Capacity     int     `yaml:"capacity"`
		RefillPerSec float64 `yaml:"refill_per_sec"`
	} `yaml:"rate_limit"`
}

type AnalysisConfig struct {
	Workers        int           `yaml:"workers"`
	Timeout        time.Duration `yaml:"timeout"`
	Interval       time.Duration `yaml:"interval"` // 0 disables the schedule
	LockTTL        time.Duration `yaml:"lock_ttl"`
	DailyRange     string        `yaml:"daily_range"`
	DailyInterval  string        `yaml:"daily_interval"`
	WeeklyRange    string        `yaml:"weekly_range"`
	WeeklyInterval string        `yaml:"weekly_interval"`
	MonthlyRange   string        `yaml:"monthly_range"`
	WatchlistRange string        `yaml:"watchlist_range"`
	Universe       []string      `yaml:"universe"`
}

type Config struct {
	Environment string           `yaml:"environment"`
	Log         logger.Config    `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Storage     StorageConfig    `yaml:"storage"`
	SQLite      SQLiteConfig     `yaml:"sqlite"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Redis       RedisConfig      `yaml:"redis"`
	Queue       QueueConfig      `yaml:"queue"`
	Brapi       BrapiConfig      `yaml:"brapi"`
	Analysis    AnalysisConfig   `yaml:"analysis"`
}

// Load reads a YAML (or .toml) configuration file, fills defaults and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Parse(b, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes raw config bytes. TOML is converted to YAML first so both
// formats share the yaml tags and duration parsing.
func Parse(b []byte, ext string) (*Config, error) {
	if strings.EqualFold(ext, ".toml") {
		var tree map[string]interface{}
		if err := toml.Unmarshal(b, &tree); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
		converted, err := yaml.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("convert toml config: %w", err)
		}
		b = converted
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.ApplyDefaults()
	return &c, nil
}

// envOverrides lists the environment variables that win over the file.
type envOverrides struct {
	Environment    string   `envconfig:"APP_ENV"`
	LogLevel       string   `envconfig:"LOG_LEVEL"`
	ServerPort     int      `envconfig:"SERVER_PORT"`
	StorageType    string   `envconfig:"STORAGE_TYPE"`
	SQLitePath     string   `envconfig:"SQLITE_PATH"`
	ClickHouseHost string   `envconfig:"CLICKHOUSE_HOST"`
	KafkaBrokers   []string `envconfig:"KAFKA_BROKERS"`
	RedisHost      string   `envconfig:"REDIS_HOST"`
	BrapiToken     string   `envconfig:"BRAPI_TOKEN"`
	BrapiBaseURL   string   `envconfig:"BRAPI_BASE_URL"`
	Tickers        []string `envconfig:"TICKERS"`
}

// LoadWithEnv loads .env (when present), the config file, and then applies
// environment overrides before validating.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	var ov envOverrides
	if err := envconfig.Process("", &ov); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	c.applyEnv(ov)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(ov envOverrides) {
	if ov.Environment != "" {
		c.Environment = ov.Environment
	}
	if ov.LogLevel != "" {
		c.Log.Level = ov.LogLevel
	}
	if ov.ServerPort != 0 {
		c.Server.Port = ov.ServerPort
	}
	if ov.StorageType != "" {
		c.Storage.Type = ov.StorageType
	}
	if ov.SQLitePath != "" {
		c.SQLite.Path = ov.SQLitePath
	}
	if ov.ClickHouseHost != "" {
		c.ClickHouse.Host = ov.ClickHouseHost
	}
	if len(ov.KafkaBrokers) > 0 {
		c.Kafka.Brokers = ov.KafkaBrokers
	}
	if ov.RedisHost != "" {
		c.Redis.Host = ov.RedisHost
	}
	if ov.BrapiToken != "" {
		c.Brapi.Token = ov.BrapiToken
	}
	if ov.BrapiBaseURL != "" {
		c.Brapi.BaseURL = ov.BrapiBaseURL
	}
	if len(ov.Tickers) > 0 {
		c.Analysis.Universe = ov.Tickers
	}
}

// ApplyDefaults fills every zero value that has a sensible default.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "marketanalyst.db"
	}
	if c.ClickHouse.Port == 0 {
		c.ClickHouse.Port = 9000
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "marketanalyst"
	}
	if c.Kafka.ScoresTopic == "" {
		c.Kafka.ScoresTopic = "opportunity-scores"
	}
	if c.Kafka.RequestsTopic == "" {
		c.Kafka.RequestsTopic = "analysis-requests"
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "marketanalyst"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "marketanalyst"
	}
	if c.Queue.Name == "" {
		c.Queue.Name = "analysis"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.RetryLimit == 0 {
		c.Queue.RetryLimit = 3
	}
	if c.Queue.RetryDelay == 0 {
		c.Queue.RetryDelay = 30 * time.Second
	}
	if c.Brapi.BaseURL == "" {
		c.Brapi.BaseURL = "https://brapi.dev"
	}
	if c.Brapi.Timeout == 0 {
		c.Brapi.Timeout = 15 * time.Second
	}
	if c.Brapi.RateLimit.Capacity == 0 {
		c.Brapi.RateLimit.Capacity = 10
	}
	if c.Brapi.RateLimit.RefillPerSec == 0 {
		c.Brapi.RateLimit.RefillPerSec = 2
	}
	a := &c.Analysis
	if a.Workers == 0 {
		a.Workers = 4
	}
	if a.Timeout == 0 {
		a.Timeout = 10 * time.Minute
	}
	if a.LockTTL == 0 {
		a.LockTTL = 15 * time.Minute
	}
	if a.DailyRange == "" {
		a.DailyRange = "2y"
	}
	if a.DailyInterval == "" {
		a.DailyInterval = "1d"
	}
	if a.WeeklyRange == "" {
		a.WeeklyRange = "5y"
	}
	if a.WeeklyInterval == "" {
		a.WeeklyInterval = "1wk"
	}
	if a.MonthlyRange == "" {
		a.MonthlyRange = "10y"
	}
	if a.WatchlistRange == "" {
		a.WatchlistRange = "2y"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Storage.Type {
	case "sqlite":
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required")
		}
	default:
		return fmt.Errorf("storage.type must be 'sqlite' or 'clickhouse', got '%s'", c.Storage.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required when redis is enabled")
	}
	if c.Brapi.BaseURL == "" {
		return fmt.Errorf("brapi.base_url is required")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be positive")
	}
	return nil
}
