package flagx

import (
	"flag"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{"separate value", []string{"-c", "conf.json", "-a", "http://api"}, []string{"-c"}, []string{"-c", "conf.json"}},
		{"equals form", []string{"--config=alt.json", "-a", "x"}, []string{"--config"}, []string{"--config=alt.json"}},
		{"order preserved", []string{"--config=first.json", "-c", "second.json", "-x", "1"}, []string{"-c", "--config"}, []string{"--config=first.json", "-c", "second.json"}},
		{"unknown flags dropped", []string{"-x", "1", "--y=2", "positional"}, []string{"-c"}, []string{}},
		{"trailing flag without value", []string{"-c"}, []string{"-c"}, []string{"-c"}},
		{"next flag is not a value", []string{"-c", "-notvalue"}, []string{"-c"}, []string{"-c"}},
		{"equals value may start with dash", []string{"--config=--weird.json"}, []string{"--config"}, []string{"--config=--weird.json"}},
		{"repeated flag", []string{"-c", "one.json", "-c", "two.json"}, []string{"-c"}, []string{"-c", "one.json", "-c", "two.json"}},
		{"empty", []string{}, []string{"-c"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestParseKnown_IgnoresForeignFlags(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	api := fs.String("a", "default", "")
	ttl := fs.Duration("t", time.Minute, "")

	err := ParseKnown(fs, []string{"-c", "cfg.json", "-a", "http://api", "--t=5m", "-unknown", "1"})
	require.NoError(t, err)
	assert.Equal(t, "http://api", *api)
	assert.Equal(t, 5*time.Minute, *ttl)
}

func TestParseKnown_BadValue(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Duration("t", time.Minute, "")

	require.Error(t, ParseKnown(fs, []string{"-t", "soon"}))
}

func TestNames(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.String("a", "", "")
	fs.Bool("v", false, "")
	assert.Equal(t, []string{"-a", "--a", "-v", "--v"}, Names(fs))
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/path/short.json", ConfigPath([]string{"-c", "/path/short.json"}))
	assert.Equal(t, "/path/long.json", ConfigPath([]string{"-config", "/path/long.json"}))
	assert.Equal(t, "/path/eq.json", ConfigPath([]string{"--config=/path/eq.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1", "-y", "2"}))
	assert.Equal(t, "/path/2.json", ConfigPath([]string{"-c", "/path/1.json", "-config", "/path/2.json"}))
}
