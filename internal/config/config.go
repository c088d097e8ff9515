// Package config loads and validates harvester configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/social-comment-harvester/internal/scraper"
)

// EnvFileVar names an optional .env file loaded before the environment is read.
const EnvFileVar = "HARVESTER_ENV_FILE"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig                         `mapstructure:"server"`
	Auth        AuthConfig                           `mapstructure:"auth"`
	Logging     LoggingConfig                        `mapstructure:"logging"`
	Browser     BrowserConfig                        `mapstructure:"browser"`
	Scrape      ScrapeConfig                         `mapstructure:"scrape"`
	Debug       DebugConfig                          `mapstructure:"debug"`
	DB          DBConfig                             `mapstructure:"db"`
	PubSub      PubSubConfig                         `mapstructure:"pubsub"`
	RateLimit   RateLimitConfig                      `mapstructure:"rate_limit"`
	Credentials map[string]CredentialConfig          `mapstructure:"credentials"`
	Platforms   map[string]scraper.PlatformSelectors `mapstructure:"platforms"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// RequestTimeout bounds each API request; it should exceed scrape.overall_deadline.
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// BrowserConfig configures the headless browser sessions.
type BrowserConfig struct {
	MaxParallel    int           `mapstructure:"max_parallel"`
	UserAgent      string        `mapstructure:"user_agent"`
	ViewportWidth  int           `mapstructure:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height"`
	BlockResources []string      `mapstructure:"block_resources"`
	ExecPath       string        `mapstructure:"exec_path"`
	Headful        bool          `mapstructure:"headful"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout"`
	Proxies        []string      `mapstructure:"proxies"`
}

// ScrapeConfig holds the orchestrator timings and request limits.
type ScrapeConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	Probe             bool          `mapstructure:"probe"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	ContentTimeout    time.Duration `mapstructure:"content_timeout"`
	LoginSettle       time.Duration `mapstructure:"login_settle"`
	SubmitTimeout     time.Duration `mapstructure:"submit_timeout"`
	PassDelay         time.Duration `mapstructure:"pass_delay"`
	ScrollSettle      time.Duration `mapstructure:"scroll_settle"`
	ScrollAmount      int           `mapstructure:"scroll_amount"`
	MaxStallAttempts  int           `mapstructure:"max_stall_attempts"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	OverallDeadline   time.Duration `mapstructure:"overall_deadline"`
	DefaultLimit      int           `mapstructure:"default_limit"`
	MaxLimit          int           `mapstructure:"max_limit"`
}

// Debug artifact backends.
const (
	DebugBackendLocal  = "local"
	DebugBackendGCS    = "gcs"
	DebugBackendMemory = "memory"
	DebugBackendNone   = "none"
)

// DebugConfig selects where failure screenshots and HTML dumps go.
type DebugConfig struct {
	Backend     string `mapstructure:"backend"`
	Dir         string `mapstructure:"dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	GCSPrefix   string `mapstructure:"gcs_prefix"`
	Checkpoints bool   `mapstructure:"checkpoints"`
}

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DBConfig controls access to the comment database.
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for analysis notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether both identifiers are set.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.TopicName != ""
}

// RateLimitConfig throttles API clients by IP.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// CredentialConfig is the login for one platform.
type CredentialConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// legacyCredentialEnv lists the pre-prefix variable names still honored.
var legacyCredentialEnv = []string{scraper.PlatformInstagram, scraper.PlatformTwitter, scraper.PlatformThreads}

// Load builds a Config from an optional .env file, an optional config file and the
// environment (HARVESTER_ prefix).
func Load(path string) (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindCredentials(v); err != nil {
		return Config{}, err
	}

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

func loadEnvFile() error {
	if path := os.Getenv(EnvFileVar); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func bindCredentials(v *viper.Viper) error {
	for _, platform := range legacyCredentialEnv {
		for _, field := range []string{"username", "password"} {
			key := fmt.Sprintf("credentials.%s.%s", platform, field)
			prefixed := "HARVESTER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
			legacy := strings.ToUpper(platform + "_" + field)
			if err := v.BindEnv(key, prefixed, legacy); err != nil {
				return fmt.Errorf("bind %s: %w", key, err)
			}
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := scraper.DefaultConfig()
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 6*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("browser.max_parallel", 2)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.block_resources", []string{"image", "stylesheet", "font"})
	v.SetDefault("browser.launch_timeout", 30*time.Second)
	v.SetDefault("scrape.navigation_timeout", d.NavigationTimeout)
	v.SetDefault("scrape.settle_delay", d.SettleDelay)
	v.SetDefault("scrape.probe", false)
	v.SetDefault("scrape.probe_timeout", d.ProbeTimeout)
	v.SetDefault("scrape.content_timeout", d.ContentTimeout)
	v.SetDefault("scrape.login_settle", d.LoginSettle)
	v.SetDefault("scrape.submit_timeout", d.SubmitTimeout)
	v.SetDefault("scrape.pass_delay", d.PassDelay)
	v.SetDefault("scrape.scroll_settle", d.ScrollSettle)
	v.SetDefault("scrape.scroll_amount", d.ScrollAmount)
	v.SetDefault("scrape.max_stall_attempts", d.MaxStallAttempts)
	v.SetDefault("scrape.max_retries", d.MaxRetries)
	v.SetDefault("scrape.backoff_base", d.BackoffBase)
	v.SetDefault("scrape.overall_deadline", d.OverallDeadline)
	v.SetDefault("scrape.default_limit", 200)
	v.SetDefault("scrape.max_limit", 1000)
	v.SetDefault("debug.backend", DebugBackendLocal)
	v.SetDefault("debug.dir", "./debug")
	v.SetDefault("debug.checkpoints", false)
	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.dsn", "file:harvester.db")
	v.SetDefault("db.table", "comments")
	v.SetDefault("rate_limit.rps", 0.5)
	v.SetDefault("rate_limit.burst", 30)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Browser.MaxParallel <= 0 {
		return fmt.Errorf("browser.max_parallel must be > 0")
	}
	if err := c.ScraperConfig().Validate(); err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	if c.Scrape.DefaultLimit <= 0 || c.Scrape.MaxLimit < c.Scrape.DefaultLimit {
		return fmt.Errorf("scrape.default_limit must be > 0 and <= scrape.max_limit")
	}
	switch c.Debug.Backend {
	case DebugBackendLocal:
		if strings.TrimSpace(c.Debug.Dir) == "" {
			return fmt.Errorf("debug.dir is required for the local backend")
		}
	case DebugBackendGCS:
		if c.Debug.GCSBucket == "" {
			return fmt.Errorf("debug.gcs_bucket is required for the gcs backend")
		}
	case DebugBackendMemory, DebugBackendNone:
	default:
		return fmt.Errorf("unknown debug.backend %q", c.Debug.Backend)
	}
	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required")
		}
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must be >= 0")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}

// ScraperConfig maps the scrape section onto the orchestrator config.
func (c Config) ScraperConfig() scraper.Config {
	s := c.Scrape
	return scraper.Config{
		NavigationTimeout: s.NavigationTimeout,
		SettleDelay:       s.SettleDelay,
		ProbeTimeout:      s.ProbeTimeout,
		ContentTimeout:    s.ContentTimeout,
		LoginSettle:       s.LoginSettle,
		SubmitTimeout:     s.SubmitTimeout,
		PassDelay:         s.PassDelay,
		ScrollSettle:      s.ScrollSettle,
		ScrollAmount:      s.ScrollAmount,
		MaxStallAttempts:  s.MaxStallAttempts,
		MaxRetries:        s.MaxRetries,
		BackoffBase:       s.BackoffBase,
		OverallDeadline:   s.OverallDeadline,
		Checkpoints:       c.Debug.Checkpoints,
	}
}

// CredentialStore exposes the configured logins to the orchestrator.
func (c Config) CredentialStore() scraper.StaticCredentials {
	out := make(scraper.StaticCredentials, len(c.Credentials))
	for platform, cred := range c.Credentials {
		out[strings.ToLower(platform)] = scraper.Credentials{Username: cred.Username, Password: cred.Password}
	}
	return out
}

// Registry returns the built-in selectors with the platforms section merged on top.
func (c Config) Registry() (*scraper.Registry, error) {
	reg := scraper.DefaultRegistry()
	for platform, overrides := range c.Platforms {
		if err := reg.Override(platform, overrides); err != nil {
			return nil, fmt.Errorf("platforms.%s: %w", platform, err)
		}
	}
	return reg, nil
}
