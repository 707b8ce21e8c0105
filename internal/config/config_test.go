package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  max_wait_seconds: 30
auth:
  enabled: true
  api_key: secret
scraper:
  max_requests: 80
  parallelism: 4
  engine: auto
  user_agent: real-agent
  timeout_seconds: 45
  max_retries: 4
  ignore_robots: true
  proxies: ["http://proxy-a:3128", "http://proxy-b:3128"]
headless:
  headless: false
  max_parallel: 2
  nav_timeout_seconds: 30
queue:
  capacity: 128
workers:
  count: 3
storage:
  backend: gcs
  gcs_bucket: bucket
  prefix: artifacts
store:
  backend: memory
publisher:
  backend: memory
logging:
  development: false
schedules:
  - spec: "0 6 * * *"
    title: data engineer
    location: Berlin
    data_name: berlin-daily
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Scraper.MaxRequests != 80 || cfg.Scraper.Engine != "auto" || !cfg.Scraper.IgnoreRobots {
		t.Fatalf("expected scraper overrides to apply: %+v", cfg.Scraper)
	}
	if len(cfg.Scraper.Proxies) != 2 || cfg.Scraper.Proxies[0] != "http://proxy-a:3128" {
		t.Fatalf("expected proxies to be loaded: %+v", cfg.Scraper.Proxies)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.GCSBucket != "bucket" {
		t.Fatalf("expected storage overrides to apply: %+v", cfg.Storage)
	}
	if len(cfg.Schedules) != 1 || cfg.Schedules[0].DataName != "berlin-daily" {
		t.Fatalf("expected schedule to be loaded: %+v", cfg.Schedules)
	}
	if got := cfg.MaxWait(); got != 30*time.Second {
		t.Fatalf("expected max wait 30s, got %v", got)
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scraper.MaxRequests != 50 {
		t.Fatalf("expected default request budget 50, got %d", cfg.Scraper.MaxRequests)
	}
	if cfg.Scraper.Engine != "colly" {
		t.Fatalf("expected default engine colly, got %s", cfg.Scraper.Engine)
	}
	if cfg.Storage.Backend != "local" || cfg.Store.Backend != "memory" {
		t.Fatalf("expected local storage and memory store defaults: %+v %+v", cfg.Storage, cfg.Store)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if got := cfg.ReadTimeout(); got != 15*time.Second {
		t.Fatalf("expected default read timeout 15s, got %v", got)
	}
	if got := cfg.WriteTimeout(); got != 90*time.Second {
		t.Fatalf("expected default write timeout 90s, got %v", got)
	}
	if got := cfg.RequestTimeout(); got != 30*time.Second {
		t.Fatalf("expected default request timeout 30s, got %v", got)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:    ServerConfig{Port: 8080, ReadTimeoutSeconds: 15, WriteTimeoutSeconds: 90, MaxWaitSeconds: 60},
		Scraper:   ScraperConfig{MaxRequests: 50, Parallelism: 2, Engine: "colly"},
		Queue:     QueueConfig{Capacity: 64},
		Workers:   WorkersConfig{Count: 2},
		Storage:   StorageConfig{Backend: "local", LocalDir: "data"},
		Store:     StoreConfig{Backend: "memory"},
		Publisher: PublisherConfig{Backend: "memory"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "missing read timeout",
			cfg: func() Config {
				c := base
				c.Server.ReadTimeoutSeconds = 0
				return c
			}(),
			want: "server.read_timeout_seconds",
		},
		{
			name: "write timeout below max wait",
			cfg: func() Config {
				c := base
				c.Server.WriteTimeoutSeconds = 30
				return c
			}(),
			want: "server.write_timeout_seconds",
		},
		{
			name: "invalid request budget",
			cfg: func() Config {
				c := base
				c.Scraper.MaxRequests = 0
				return c
			}(),
			want: "scraper.max_requests",
		},
		{
			name: "unknown engine",
			cfg: func() Config {
				c := base
				c.Scraper.Engine = "selenium"
				return c
			}(),
			want: "scraper.engine",
		},
		{
			name: "gcs without bucket",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "gcs"
				return c
			}(),
			want: "storage.gcs_bucket",
		},
		{
			name: "postgres without dsn",
			cfg: func() Config {
				c := base
				c.Store.Backend = "postgres"
				return c
			}(),
			want: "store.dsn",
		},
		{
			name: "pubsub without topic",
			cfg: func() Config {
				c := base
				c.Publisher.Backend = "pubsub"
				return c
			}(),
			want: "publisher.project_id",
		},
		{
			name: "auth missing api key",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				return c
			}(),
			want: "auth.api_key",
		},
		{
			name: "schedule missing query",
			cfg: func() Config {
				c := base
				c.Schedules = []ScheduleConfig{{Spec: "@hourly"}}
				return c
			}(),
			want: "schedules[0]",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
