package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/coachportal/internal/flagx"
	"github.com/dmitrijs2005/coachportal/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// "3s"-style strings or integer nanoseconds.
type JsonConfig struct {
	APIBaseURL          string         `json:"api_base_url"`
	RealtimeURL         string         `json:"realtime_url"`
	DataDir             string         `json:"data_dir"`
	CacheDB             string         `json:"cache_db"`
	AuthDB              string         `json:"auth_db"`
	CacheTTL            timex.Duration `json:"cache_ttl"`
	SubscribeDelay      timex.Duration `json:"subscribe_delay"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	RefreshInterval     timex.Duration `json:"refresh_interval"`
	RedisAddr           string         `json:"redis_addr"`
	RedisTags           []string       `json:"redis_tags"`
	OIDCIssuer          string         `json:"oidc_issuer"`
	OIDCClientID        string         `json:"oidc_client_id"`
	AccessToken         string         `json:"access_token"`
	LogFile             string         `json:"log_file"`
	LogLevel            string         `json:"log_level"`
	MetricsAddr         string         `json:"metrics_addr"`
}

// parseJson overlays cfg with the file named by -c/-config in args.
// Only keys present with a non-zero value replace what cfg already has.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.RealtimeURL, jc.RealtimeURL)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.CacheDB, jc.CacheDB)
	setString(&cfg.AuthDB, jc.AuthDB)
	setDuration(&cfg.CacheTTL, jc.CacheTTL)
	setDuration(&cfg.SubscribeDelay, jc.SubscribeDelay)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.RefreshInterval, jc.RefreshInterval)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	if len(jc.RedisTags) > 0 {
		cfg.RedisTags = jc.RedisTags
	}
	setString(&cfg.OIDCIssuer, jc.OIDCIssuer)
	setString(&cfg.OIDCClientID, jc.OIDCClientID)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
