package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("PORTAL_API_BASE_URL", "https://portal.example")
	t.Setenv("PORTAL_REDIS_TAGS", "a,b,c")
	t.Setenv("PORTAL_REQUEST_TIMEOUT", "4s")
	t.Setenv("API_BASE_URL", "https://unprefixed.example")

	cfg := defaults()
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "https://portal.example", cfg.APIBaseURL)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.RedisTags)
	assert.Equal(t, 4*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.SubscribeDelay, "unset variables leave defaults")
}
