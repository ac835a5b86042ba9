package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the portal client.
type Config struct {
	APIBaseURL  string `env:"API_BASE_URL"`
	RealtimeURL string `env:"REALTIME_URL"`

	// DataDir is created on start; CacheDB and AuthDB default to files in it.
	DataDir string `env:"DATA_DIR"`
	CacheDB string `env:"CACHE_DB"`
	AuthDB  string `env:"AUTH_DB"`

	CacheTTL            time.Duration `env:"CACHE_TTL"`
	SubscribeDelay      time.Duration `env:"SUBSCRIBE_DELAY"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	RefreshInterval     time.Duration `env:"REFRESH_INTERVAL"`

	RedisAddr string   `env:"REDIS_ADDR"`
	RedisTags []string `env:"REDIS_TAGS"`

	OIDCIssuer   string `env:"OIDC_ISSUER"`
	OIDCClientID string `env:"OIDC_CLIENT_ID"`
	AccessToken  string `env:"ACCESS_TOKEN"`

	LogFile     string `env:"LOG_FILE"`
	LogLevel    string `env:"LOG_LEVEL"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.RealtimeURL = "ws://127.0.0.1:8080/realtime"
	c.DataDir = ".portal"
	c.CacheTTL = 5 * time.Minute
	c.SubscribeDelay = 500 * time.Millisecond
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.RefreshInterval = 30 * time.Second
	c.RedisTags = []string{"users", "profiles"}
	c.LogLevel = "info"
}

// CacheDSN is the SQLite DSN of the local cache.
func (c *Config) CacheDSN() string {
	if c.CacheDB != "" {
		return c.CacheDB
	}
	return filepath.Join(c.DataDir, "cache.db")
}

// AuthDSN is the SQLite DSN of the auth database.
func (c *Config) AuthDSN() string {
	if c.AuthDB != "" {
		return c.AuthDB
	}
	return filepath.Join(c.DataDir, "auth.db")
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config, then PORTAL_* environment variables, then flags in args.
// Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
