package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name listed in Config's env tags.
const EnvPrefix = "PORTAL_"

// parseEnv overlays cfg with PORTAL_* variables. Unset variables leave the
// field alone; list values are comma separated.
func parseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return nil
}
