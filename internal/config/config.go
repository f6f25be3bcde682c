package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// CacheKey is the key the last successful updates response is stored under.
const CacheKey = "x_updates_cache"

type Config struct {
	APIBase      string   `yaml:"api_base" toml:"api_base"`
	Timeout      string   `yaml:"timeout" toml:"timeout"`
	PollInterval string   `yaml:"poll_interval" toml:"poll_interval"`
	Listen       string   `yaml:"listen,omitempty" toml:"listen"`
	AllowOrigins []string `yaml:"allow_origins,omitempty" toml:"allow_origins"`
	LogLevel     string   `yaml:"log_level,omitempty" toml:"log_level"`
	Timezone     string   `yaml:"timezone,omitempty" toml:"timezone"`
}

// TimeoutDuration returns the per-request timeout, defaulting to 12s.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 12 * time.Second
	}
	return d
}

// PollDuration returns the auto-refresh interval, defaulting to 60s.
func (c *Config) PollDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

func (c *Config) UpdatesURL() string {
	return strings.TrimRight(c.APIBase, "/") + "/v1/updates"
}

func (c *Config) StatsURL() string {
	return strings.TrimRight(c.APIBase, "/") + "/v1/stats"
}

func (c *Config) ListenAddr() string {
	if c.Listen == "" {
		return "127.0.0.1:8080"
	}
	return c.Listen
}

// Location resolves the configured timezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "xupdate", "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, "xupdate", "xupdate.db")
}

func LogPath() string {
	return filepath.Join(xdg.StateHome, "xupdate", "xupdate.log")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path (YAML, or TOML when the path ends in .toml)
// on top of the embedded defaults. A missing file at the default location is
// created from the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Non-fatal: first run just uses embedded defaults
		_ = writeDefaults(path)
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("XUPDATE_API_BASE"); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv("XUPDATE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func writeDefaults(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	if cfg.APIBase == "" {
		return fmt.Errorf("api_base is required")
	}
	u, err := url.Parse(cfg.APIBase)
	if err != nil {
		return fmt.Errorf("invalid api_base: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_base scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("api_base %q has no host", cfg.APIBase)
	}
	for name, v := range map[string]string{"timeout": cfg.Timeout, "poll_interval": cfg.PollInterval} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
	}
	return nil
}
