package server

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AppConfig defines application configuration loaded from files and environment.
// It covers both halves of the repo: the development backend daemon and the
// client-side gateway/session settings the CLI consumes.
type AppConfig struct {
	Env      string         `koanf:"env"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Valkey   ValkeyConfig   `koanf:"valkey"`
	Client   ClientConfig   `koanf:"client"`
}

type ServerConfig struct {
	Addr            string `koanf:"addr"`
	TokenSecret     string `koanf:"token_secret"`
	TokenTTLMinutes int    `koanf:"token_ttl_minutes"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type ValkeyConfig struct {
	Addr   string `koanf:"addr"`
	Prefix string `koanf:"prefix"`
}

type ClientConfig struct {
	ProductionBaseURL  string `koanf:"production_base_url"`
	LocalBaseURL       string `koanf:"local_base_url"`
	LocalMode          bool   `koanf:"local_mode"`
	ProbeTTLSeconds    int    `koanf:"probe_ttl_seconds"`
	ProbeTimeoutMillis int    `koanf:"probe_timeout_millis"`
	Retries            int    `koanf:"retries"`
	SessionPath        string `koanf:"session_path"`
}

var (
	cfgOnce sync.Once
	cfgInst *AppConfig
)

// GetConfig loads and returns the singleton AppConfig. Loading order:
// 1) config/config.yaml (optional)
// 2) config/config.<APP_ENV>.yaml (optional), APP_ENV defaults to "local"
// 3) Environment variables with prefix OPSDESK_ mapped using __ as nested
// separator, e.g. OPSDESK_SERVER__ADDR
func GetConfig() *AppConfig {
	cfgOnce.Do(func() {
		cfgInst = LoadConfig()
	})
	return cfgInst
}

// LoadConfig performs one load pass without touching the singleton; tests use
// it for isolation.
func LoadConfig() *AppConfig {
	k := koanf.New(".")
	// Config directory (CONFIG_DIR) default ./config
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}
	// Whether to load files (default: disabled to keep tests isolated)
	loadFiles := strings.EqualFold(os.Getenv("APP_CONFIG_FILES"), "1") || strings.EqualFold(os.Getenv("APP_CONFIG_FILES"), "true")
	if loadFiles {
		base := filepath.Join(configDir, "config.yaml")
		if _, err := os.Stat(base); err == nil {
			if err := k.Load(file.Provider(base), yaml.Parser()); err != nil {
				log.Printf("config: failed loading base: %v", err)
			}
		}
	}
	envName := os.Getenv("APP_ENV")
	if envName == "" {
		envName = "local"
	}
	if loadFiles {
		envFile := filepath.Join(configDir, "config."+envName+".yaml")
		if _, err := os.Stat(envFile); err == nil {
			if err := k.Load(file.Provider(envFile), yaml.Parser()); err != nil {
				log.Printf("config: failed loading env file: %v", err)
			}
		}
	}
	// env vars: OPSDESK_ prefix, __ delim for nesting
	_ = k.Load(env.Provider("OPSDESK_", ".", func(s string) string {
		// OPSDESK_SERVER__ADDR -> server.addr
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "OPSDESK_")), "__", ".")
	}), nil)

	var c AppConfig
	if err := k.Unmarshal("", &c); err != nil {
		log.Printf("config: unmarshal error: %v", err)
	}
	if c.Env == "" {
		c.Env = envName
	}
	c.applyDefaults()
	return &c
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.Server.TokenTTLMinutes <= 0 {
		c.Server.TokenTTLMinutes = 8 * 60
	}
	if c.Server.TokenSecret == "" {
		// development-only default; deployments must override it
		c.Server.TokenSecret = "opsdesk-dev-secret"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./opsdesk.db"
	}
	if c.Client.LocalBaseURL == "" {
		c.Client.LocalBaseURL = "http://localhost:8090"
	}
	if c.Client.ProductionBaseURL == "" {
		c.Client.ProductionBaseURL = "https://api.opsdesk.example.com"
	}
	if c.Client.ProbeTTLSeconds <= 0 {
		c.Client.ProbeTTLSeconds = 5
	}
	if c.Client.ProbeTimeoutMillis <= 0 {
		c.Client.ProbeTimeoutMillis = 1000
	}
	if c.Client.SessionPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Client.SessionPath = filepath.Join(home, ".opsdesk", "session.db")
	}
}

// TokenTTL returns the access token lifetime.
func (c *AppConfig) TokenTTL() time.Duration {
	return time.Duration(c.Server.TokenTTLMinutes) * time.Minute
}

// ProbeTTL returns the liveness probe cache interval.
func (c *ClientConfig) ProbeTTL() time.Duration {
	return time.Duration(c.ProbeTTLSeconds) * time.Second
}

// ProbeTimeout returns the liveness probe round-trip timeout.
func (c *ClientConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMillis) * time.Millisecond
}
