// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	App       AppConfig        `mapstructure:"app"`
	Server    ServerConfig     `mapstructure:"server"`
	Auth      AuthConfig       `mapstructure:"auth"`
	Scraper   ScraperConfig    `mapstructure:"scraper"`
	Headless  HeadlessConfig   `mapstructure:"headless"`
	Queue     QueueConfig      `mapstructure:"queue"`
	Workers   WorkersConfig    `mapstructure:"workers"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Store     StoreConfig      `mapstructure:"store"`
	Publisher PublisherConfig  `mapstructure:"publisher"`
	Schedules []ScheduleConfig `mapstructure:"schedules"`
	Logging   LoggingConfig    `mapstructure:"logging"`
}

// AppConfig identifies the service.
type AppConfig struct {
	Name string `mapstructure:"name"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	ReadTimeoutSeconds    int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds   int    `mapstructure:"write_timeout_seconds"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
	MaxWaitSeconds        int    `mapstructure:"max_wait_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ScraperConfig governs the crawl engine and static fetcher.
type ScraperConfig struct {
	MaxRequests    int      `mapstructure:"max_requests"`
	Parallelism    int      `mapstructure:"parallelism"`
	Engine         string   `mapstructure:"engine"`
	UserAgent      string   `mapstructure:"user_agent"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	MaxRetries     int      `mapstructure:"max_retries"`
	IgnoreRobots   bool     `mapstructure:"ignore_robots"`
	RandomDelayMs  int      `mapstructure:"random_delay_ms"`
	Proxies        []string `mapstructure:"proxies"`
}

// HeadlessConfig configures the browser rendering subsystem.
type HeadlessConfig struct {
	Headless      bool    `mapstructure:"headless"`
	MaxParallel   int     `mapstructure:"max_parallel"`
	NavTimeoutSec int     `mapstructure:"nav_timeout_seconds"`
	SettleMs      int     `mapstructure:"settle_ms"`
	DomainQPS     float64 `mapstructure:"domain_qps"`
}

// QueueConfig bounds the in-process job queue.
type QueueConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// WorkersConfig sizes the worker pool.
type WorkersConfig struct {
	Count int `mapstructure:"count"`
}

// StorageConfig selects where CSV artifacts land.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// StoreConfig selects job metadata persistence.
type StoreConfig struct {
	Backend  string `mapstructure:"backend"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PublisherConfig holds completion event broker settings.
type PublisherConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ScheduleConfig defines one recurring scrape.
type ScheduleConfig struct {
	Spec     string `mapstructure:"spec"`
	Title    string `mapstructure:"title"`
	Location string `mapstructure:"location"`
	DataName string `mapstructure:"data_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "jobscraper")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 90)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.max_wait_seconds", 60)
	v.SetDefault("scraper.max_requests", 50)
	v.SetDefault("scraper.parallelism", 2)
	v.SetDefault("scraper.engine", "colly")
	v.SetDefault("scraper.user_agent", "jobscraper-bot/0.1")
	v.SetDefault("scraper.timeout_seconds", 15)
	v.SetDefault("scraper.max_retries", 2)
	v.SetDefault("scraper.ignore_robots", false)
	v.SetDefault("scraper.random_delay_ms", 0)
	v.SetDefault("headless.headless", true)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.settle_ms", 500)
	v.SetDefault("queue.capacity", 64)
	v.SetDefault("workers.count", 2)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "data")
	v.SetDefault("store.backend", "memory")
	v.SetDefault("publisher.backend", "memory")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		return fmt.Errorf("server.read_timeout_seconds must be > 0")
	}
	if c.Server.WriteTimeoutSeconds > 0 && c.Server.WriteTimeoutSeconds <= c.Server.MaxWaitSeconds {
		return fmt.Errorf("server.write_timeout_seconds must exceed server.max_wait_seconds")
	}
	if c.Scraper.MaxRequests <= 0 {
		return fmt.Errorf("scraper.max_requests must be > 0")
	}
	if c.Scraper.Parallelism <= 0 {
		return fmt.Errorf("scraper.parallelism must be > 0")
	}
	switch c.Scraper.Engine {
	case "colly", "chromedp", "auto":
	default:
		return fmt.Errorf("scraper.engine must be one of colly, chromedp, auto")
	}
	if c.Workers.Count <= 0 {
		return fmt.Errorf("workers.count must be > 0")
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Backend {
	case "memory", "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.backend is gcs")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, local, gcs")
	}
	switch c.Store.Backend {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set when store.backend is postgres")
		}
	default:
		return fmt.Errorf("store.backend must be one of memory, postgres")
	}
	switch c.Publisher.Backend {
	case "memory":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.TopicName == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic_name must be set when publisher.backend is pubsub")
		}
	default:
		return fmt.Errorf("publisher.backend must be one of memory, pubsub")
	}
	for i, sched := range c.Schedules {
		if sched.Spec == "" {
			return fmt.Errorf("schedules[%d].spec must be set", i)
		}
		if sched.Title == "" || sched.Location == "" || sched.DataName == "" {
			return fmt.Errorf("schedules[%d] must set title, location, and data_name", i)
		}
	}
	return nil
}

// MaxWait caps how long a submit request may block waiting for completion.
func (c Config) MaxWait() time.Duration {
	return time.Duration(c.Server.MaxWaitSeconds) * time.Second
}

// ReadTimeout bounds how long the server reads a request.
func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout bounds how long the server writes a response. It must stay
// above MaxWait so bounded submit waits are not cut off mid-response.
func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

// RequestTimeout bounds handler execution per request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// FetchTimeout converts the static fetch timeout to a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}
