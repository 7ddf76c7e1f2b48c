package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the complete panicbutton configuration
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
}

// ExtractionConfig controls the extraction call
type ExtractionConfig struct {
	// DefaultYear fills dates written without a year. 0 means the current year.
	DefaultYear int `yaml:"default_year" mapstructure:"default_year" validate:"omitempty,min=1900,max=2100"`

	// MinConfidence is the display/export threshold, independent of acceptance
	MinConfidence int `yaml:"min_confidence" mapstructure:"min_confidence" validate:"min=0,max=100"`
}

// CacheConfig controls the extraction result cache
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Dir adds an on-disk layer under the memory cache. Empty keeps results in memory only.
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl" validate:"min=0"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl" validate:"min=0"`
}

// HTTPConfig controls fetching syllabus pages by URL
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy" validate:"omitempty,url"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy" validate:"omitempty,url"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Host              string  `yaml:"host" mapstructure:"host" validate:"required"`
	Port              int     `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gt=0"`
	MaxTextBytes      int64   `yaml:"max_text_bytes" mapstructure:"max_text_bytes" validate:"gt=0"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			DefaultYear:   0,
			MinConfidence: 45,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "PanicButton/0.1 (+https://github.com/ppiankov/panicbutton)",
			MaxBodyBytes:  5_000_000,
			RespectRobots: true,
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8787,
			RequestsPerSecond: 5,
			BurstSize:         10,
			MaxTextBytes:      2_000_000,
		},
		Output: OutputConfig{
			Verbose: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SetDefaults registers every config key with v so that environment
// variables (PANICBUTTON_CACHE_ENABLED, ...) are seen by Unmarshal
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("extraction.default_year", d.Extraction.DefaultYear)
	v.SetDefault("extraction.min_confidence", d.Extraction.MinConfidence)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_ttl", d.Cache.MemoryTTL)
	v.SetDefault("cache.disk_ttl", d.Cache.DiskTTL)

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.respect_robots", d.HTTP.RespectRobots)
	v.SetDefault("http.http_proxy", d.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)
	v.SetDefault("http.no_proxy", d.HTTP.NoProxy)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.requests_per_second", d.Server.RequestsPerSecond)
	v.SetDefault("server.burst_size", d.Server.BurstSize)
	v.SetDefault("server.max_text_bytes", d.Server.MaxTextBytes)

	v.SetDefault("output.verbose", d.Output.Verbose)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// LoadConfig overlays values known to v (file, env, bound flags) on top of the defaults
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if v == nil {
		return cfg, nil
	}
	SetDefaults(v)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges with the struct tags above
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ResolveYear returns the configured default year, or fallback when unset
func (c ExtractionConfig) ResolveYear(fallback int) int {
	if c.DefaultYear != 0 {
		return c.DefaultYear
	}
	return fallback
}
