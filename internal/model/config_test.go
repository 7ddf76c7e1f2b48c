package model

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 45, cfg.Extraction.MinConfidence)
	assert.True(t, cfg.Cache.Enabled)
	assert.Empty(t, cfg.Cache.Dir, "no disk layer unless configured")
}

func TestLoadConfig_NilViper(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
extraction:
  default_year: 2027
  min_confidence: 60
cache:
  memory_ttl: 5m
server:
  port: 9000
logging:
  format: json
`)))

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 2027, cfg.Extraction.DefaultYear)
	assert.Equal(t, 60, cfg.Extraction.MinConfidence)
	assert.Equal(t, 5*time.Minute, cfg.Cache.MemoryTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.DiskTTL, "unset keys keep defaults")
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("PANICBUTTON_SERVER_PORT", "9999")
	t.Setenv("PANICBUTTON_CACHE_ENABLED", "false")

	v := viper.New()
	v.SetEnvPrefix("PANICBUTTON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"log level", "logging:\n  level: loud\n"},
		{"min confidence", "extraction:\n  min_confidence: 150\n"},
		{"default year", "extraction:\n  default_year: 1500\n"},
		{"port", "server:\n  port: 70000\n"},
		{"proxy", "http:\n  http_proxy: not a url\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.SetConfigType("yaml")
			require.NoError(t, v.ReadConfig(strings.NewReader(tt.yaml)))

			_, err := LoadConfig(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestResolveYear(t *testing.T) {
	assert.Equal(t, 2026, ExtractionConfig{}.ResolveYear(2026))
	assert.Equal(t, 2030, ExtractionConfig{DefaultYear: 2030}.ResolveYear(2026))
}
