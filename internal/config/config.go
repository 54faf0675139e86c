// Package config loads and persists khawk CLI configuration: profiles with
// stored credentials, API defaults, the credential backend, retry tuning,
// logging, audit publishing and the dashboard server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override (KHAWK_TOKEN, ...).
	EnvPrefix = "KHAWK"
	// ConfigDirEnv overrides the configuration directory.
	ConfigDirEnv = "KHAWK_CONFIG_DIR"

	DefaultBaseURL = "https://api.keygen.sh/v1"

	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config is the khawk CLI configuration file.
type Config struct {
	CurrentProfile string              `yaml:"current_profile" mapstructure:"current_profile"`
	Profiles       map[string]*Profile `yaml:"profiles" mapstructure:"profiles"`
	Defaults       Defaults            `yaml:"defaults" mapstructure:"defaults"`
	Credentials    CredentialsConfig   `yaml:"credentials" mapstructure:"credentials"`
	Retry          RetryConfig         `yaml:"retry" mapstructure:"retry"`
	Logging        LoggingConfig       `yaml:"logging" mapstructure:"logging"`
	Audit          AuditConfig         `yaml:"audit" mapstructure:"audit"`
	Server         ServerConfig        `yaml:"server" mapstructure:"server"`

	// EnvAccountID and EnvToken come only from KHAWK_ACCOUNT_ID and
	// KHAWK_TOKEN and take precedence over the stored profile.
	EnvAccountID string `yaml:"-" mapstructure:"account_id"`
	EnvToken     string `yaml:"-" mapstructure:"token"`

	path string
	// mu guards Profiles, CurrentProfile and the file on disk.
	mu sync.RWMutex
}

// Profile holds the credentials of one licensing account.
type Profile struct {
	AccountID string `yaml:"account_id" mapstructure:"account_id"`
	Token     string `yaml:"token,omitempty" mapstructure:"token"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Email     string `yaml:"email,omitempty" mapstructure:"email"`
}

// Defaults holds API settings used when a profile does not override them.
type Defaults struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Timeout string `yaml:"timeout" mapstructure:"timeout"`
}

// TimeoutDuration returns the HTTP timeout, 30s when unset or invalid.
func (d Defaults) TimeoutDuration() time.Duration {
	return parseDuration(d.Timeout, 30*time.Second)
}

// CredentialsConfig selects where credentials are stored.
type CredentialsConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"` // "file" (default) or "redis"
	RedisURL  string `yaml:"redis_url,omitempty" mapstructure:"redis_url"`
	KeyPrefix string `yaml:"key_prefix,omitempty" mapstructure:"key_prefix"`
}

// RetryConfig tunes rate-limit retries.
type RetryConfig struct {
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelay  string `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay   string `yaml:"max_delay,omitempty" mapstructure:"max_delay"`
}

// BaseDelayDuration returns the first backoff delay.
func (r RetryConfig) BaseDelayDuration() time.Duration {
	return parseDuration(r.BaseDelay, time.Second)
}

// MaxDelayDuration returns the backoff cap; zero means uncapped.
func (r RetryConfig) MaxDelayDuration() time.Duration {
	return parseDuration(r.MaxDelay, 0)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AuditConfig controls publishing of signed audit events.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	NatsURL string `yaml:"nats_url,omitempty" mapstructure:"nats_url"`
	Subject string `yaml:"subject,omitempty" mapstructure:"subject"`
	Secret  string `yaml:"secret,omitempty" mapstructure:"secret"`
}

// ServerConfig holds the dashboard server settings.
type ServerConfig struct {
	Addr          string `yaml:"addr" mapstructure:"addr"`
	StatsCacheTTL string `yaml:"stats_cache_ttl,omitempty" mapstructure:"stats_cache_ttl"`
	// AllowedOrigins may call the server cross-origin, e.g. a frontend dev server.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" mapstructure:"allowed_origins"`
}

// StatsCacheDuration returns how long dashboard counts are cached.
func (s ServerConfig) StatsCacheDuration() time.Duration {
	return parseDuration(s.StatsCacheTTL, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		CurrentProfile: "default",
		Profiles:       make(map[string]*Profile),
		Defaults: Defaults{
			BaseURL: DefaultBaseURL,
			Timeout: "30s",
		},
		Credentials: CredentialsConfig{
			Backend: BackendFile,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  "1s",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Audit: AuditConfig{
			Subject: "keyhawk.audit",
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8090",
			StatsCacheTTL:  "30s",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
}

// DefaultPath returns $KHAWK_CONFIG_DIR/config.yaml or ~/.khawk/config.yaml.
func DefaultPath() (string, error) {
	dir := os.Getenv(ConfigDirEnv)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".khawk")
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the configuration from cfgFile (or the default path) and
// applies KHAWK_* environment overrides. A missing file yields defaults.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Short aliases; viper needs explicit bindings for nested keys.
	_ = v.BindEnv("defaults.base_url", "KHAWK_BASE_URL", "KHAWK_DEFAULTS_BASE_URL")
	_ = v.BindEnv("defaults.timeout", "KHAWK_TIMEOUT", "KHAWK_DEFAULTS_TIMEOUT")
	_ = v.BindEnv("credentials.backend", "KHAWK_CREDENTIALS_BACKEND")
	_ = v.BindEnv("credentials.redis_url", "KHAWK_REDIS_URL", "KHAWK_CREDENTIALS_REDIS_URL")
	_ = v.BindEnv("logging.level", "KHAWK_LOG_LEVEL", "KHAWK_LOGGING_LEVEL")
	_ = v.BindEnv("logging.format", "KHAWK_LOG_FORMAT", "KHAWK_LOGGING_FORMAT")
	_ = v.BindEnv("audit.enabled", "KHAWK_AUDIT_ENABLED")
	_ = v.BindEnv("audit.nats_url", "KHAWK_NATS_URL", "KHAWK_AUDIT_NATS_URL")
	_ = v.BindEnv("audit.secret", "KHAWK_AUDIT_SECRET")
	_ = v.BindEnv("server.addr", "KHAWK_SERVER_ADDR")
	_ = v.BindEnv("account_id", "KHAWK_ACCOUNT_ID")
	_ = v.BindEnv("token", "KHAWK_TOKEN")

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Default()
	cfg.path = cfgFile

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("current_profile", d.CurrentProfile)
	v.SetDefault("defaults.base_url", d.Defaults.BaseURL)
	v.SetDefault("defaults.timeout", d.Defaults.Timeout)
	v.SetDefault("credentials.backend", d.Credentials.Backend)
	v.SetDefault("credentials.redis_url", "")
	v.SetDefault("credentials.key_prefix", "")
	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay)
	v.SetDefault("retry.max_delay", "")
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.nats_url", "nats://localhost:4222")
	v.SetDefault("audit.subject", d.Audit.Subject)
	v.SetDefault("audit.secret", "")
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.stats_cache_ttl", d.Server.StatsCacheTTL)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
}

// Path returns the file the configuration is saved to.
func (c *Config) Path() string {
	return c.path
}

// Save writes the config to disk with owner-only permissions.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save()
}

func (c *Config) save() error {
	if c.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// ProfileName resolves name, falling back to the current profile.
func (c *Config) ProfileName(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profileName(name)
}

func (c *Config) profileName(name string) string {
	if name == "" {
		name = c.CurrentProfile
	}
	if name == "" {
		name = "default"
	}
	return name
}

// GetProfile returns a copy of a profile (the current profile if name is
// empty). Use UpdateProfile to change it.
func (c *Config) GetProfile(name string) (Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getProfile(name)
}

func (c *Config) getProfile(name string) (Profile, error) {
	name = c.profileName(name)
	profile, ok := c.Profiles[name]
	if !ok || profile == nil {
		return Profile{}, fmt.Errorf("profile '%s' not found", name)
	}
	return *profile, nil
}

// SaveProfile stores p under name, makes it current and saves the file.
func (c *Config) SaveProfile(name string, p Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putProfile(name, p)
	return c.save()
}

// UpdateProfile applies fn to the named profile, creating it when missing,
// makes it current and saves the file.
func (c *Config) UpdateProfile(name string, fn func(*Profile)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, _ := c.getProfile(name)
	fn(&p)
	c.putProfile(name, p)
	return c.save()
}

func (c *Config) putProfile(name string, p Profile) {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}
	name = c.profileName(name)
	c.Profiles[name] = &p
	c.CurrentProfile = name
}

// ClearToken removes the stored token of a profile. The account ID, base URL
// and email stay for the next login.
func (c *Config) ClearToken(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	profile, ok := c.Profiles[c.profileName(name)]
	if !ok || profile == nil {
		return fmt.Errorf("profile '%s' not found", c.profileName(name))
	}
	if profile.Token == "" {
		return nil
	}
	profile.Token = ""
	return c.save()
}

// RemoveProfile removes a profile from the configuration.
func (c *Config) RemoveProfile(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}

	delete(c.Profiles, name)

	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}

	return c.save()
}

// BaseURL returns the API base URL of a profile, or the default.
func (c *Config) BaseURL(profile string) string {
	if p, err := c.GetProfile(profile); err == nil && p.BaseURL != "" {
		return p.BaseURL
	}
	if c.Defaults.BaseURL != "" {
		return c.Defaults.BaseURL
	}
	return DefaultBaseURL
}

// KeyPrefix returns the redis key prefix for a profile's credentials.
func (c *Config) KeyPrefix(profile string) string {
	if c.Credentials.KeyPrefix != "" {
		return c.Credentials.KeyPrefix
	}
	return "khawk:" + c.ProfileName(profile)
}
