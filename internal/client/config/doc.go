// Package config loads runtime configuration for the portal client.
//
// Sources, lowest precedence first:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. PORTAL_* environment variables, e.g. PORTAL_API_BASE_URL or
//     PORTAL_REDIS_TAGS=users,profiles.
//  4. Command-line flags.
//
// # JSON schema
//
//	{
//	  "api_base_url": "https://portal.example",
//	  "realtime_url": "wss://portal.example/realtime",
//	  "data_dir": ".portal",
//	  "cache_ttl": "5m",
//	  "subscribe_delay": "500ms",
//	  "redis_addr": "127.0.0.1:6379",
//	  "redis_tags": ["users", "profiles"],
//	  "oidc_issuer": "https://id.example",
//	  "oidc_client_id": "portal-cli",
//	  "metrics_addr": ":9100"
//	}
package config
