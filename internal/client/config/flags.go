package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/coachportal/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string     API base URL
//	-r string     realtime websocket URL
//	-d string     data directory
//	-ttl dur      cache TTL
//	-redis string Redis address for service caches
//	-tags list    comma-separated service cache tags
//	-issuer string, -client-id string   OIDC settings
//	-token string access token for static auth
//	-log string   log file
//	-level string log level
//	-metrics addr metrics listen address
//	-i int        online check interval in seconds
//
// Flags owned by other components are ignored.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("portal", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "API base URL")
	fs.StringVar(&cfg.RealtimeURL, "r", cfg.RealtimeURL, "realtime websocket URL")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.DurationVar(&cfg.CacheTTL, "ttl", cfg.CacheTTL, "cache TTL")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for service caches")
	tags := fs.String("tags", strings.Join(cfg.RedisTags, ","), "comma-separated service cache tags")
	fs.StringVar(&cfg.OIDCIssuer, "issuer", cfg.OIDCIssuer, "OIDC issuer URL")
	fs.StringVar(&cfg.OIDCClientID, "client-id", cfg.OIDCClientID, "OIDC client id")
	fs.StringVar(&cfg.AccessToken, "token", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file")
	fs.StringVar(&cfg.LogLevel, "level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "metrics listen address")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := flagx.ParseKnown(fs, args); err != nil {
		return fmt.Errorf("config: flags: %w", err)
	}

	cfg.RedisTags = splitList(*tags)
	if *interval > 0 {
		cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
