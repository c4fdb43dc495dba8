// Package config loads autotrans settings from defaults, an optional YAML
// file, a .env file and AUTOTRANS_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ZaguanLabs/autotrans"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "AUTOTRANS"

// DotEnvFile is loaded from the working directory when present.
const DotEnvFile = ".env"

type (
	Config struct {
		Debug       bool   `mapstructure:"debug"`
		SourceLang  string `mapstructure:"source_lang"`
		DefaultLang string `mapstructure:"default_lang"`

		Backend  BackendConfig  `mapstructure:"backend"`
		Pipeline PipelineConfig `mapstructure:"pipeline"`
		Cache    CacheConfig    `mapstructure:"cache"`
		Server   ServerConfig   `mapstructure:"server"`
		Provider ProviderConfig `mapstructure:"provider"`
		Prefs    PrefsConfig    `mapstructure:"prefs"`
	}

	// BackendConfig locates the translation backend used by page clients.
	// An empty URL runs the translation service in-process.
	BackendConfig struct {
		URL     string        `mapstructure:"url"`
		Timeout time.Duration `mapstructure:"timeout"`
	}

	PipelineConfig struct {
		BatchSize         int           `mapstructure:"batch_size"`
		BatchDelay        time.Duration `mapstructure:"batch_delay"`
		Debounce          time.Duration `mapstructure:"debounce"`
		MinLength         int           `mapstructure:"min_length"`
		ExcludedTags      []string      `mapstructure:"excluded_tags"`
		ExcludedSelectors []string      `mapstructure:"excluded_selectors"`
	}

	// CacheConfig configures the client translation cache.
	CacheConfig struct {
		Snapshot   string        `mapstructure:"snapshot"` // JSON file persisted between runs
		TTL        time.Duration `mapstructure:"ttl"`
		MaxEntries int           `mapstructure:"max_entries"`
	}

	ServerConfig struct {
		Address      string        `mapstructure:"address"`
		AllowOrigins []string      `mapstructure:"allow_origins"`
		Style        string        `mapstructure:"style"`
		Context      string        `mapstructure:"context"`
		CacheTTL     time.Duration `mapstructure:"cache_ttl"`
		RedisURL     string        `mapstructure:"redis_url"` // empty keeps the cache in memory
	}

	ProviderConfig struct {
		Name              string  `mapstructure:"name"`
		Model             string  `mapstructure:"model"`
		APIKey            string  `mapstructure:"api_key"`
		BaseURL           string  `mapstructure:"base_url"`
		Temperature       float32 `mapstructure:"temperature"`
		Credentials       string  `mapstructure:"credentials"`
		Retries           int     `mapstructure:"retries"`
		RequestsPerMinute int     `mapstructure:"requests_per_minute"`
	}

	PrefsConfig struct {
		Driver   string `mapstructure:"driver"` // memory, sqlite or redis
		Path     string `mapstructure:"path"`
		RedisURL string `mapstructure:"redis_url"`
	}
)

// Prefs drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("source_lang", autotrans.DefaultSourceLang)
	v.SetDefault("default_lang", autotrans.DefaultSourceLang)

	v.SetDefault("backend.url", "")
	v.SetDefault("backend.timeout", 30*time.Second)

	v.SetDefault("pipeline.batch_size", 15)
	v.SetDefault("pipeline.batch_delay", 100*time.Millisecond)
	v.SetDefault("pipeline.debounce", time.Second)
	v.SetDefault("pipeline.min_length", 2)
	v.SetDefault("pipeline.excluded_tags", autotrans.DefaultExcludedTags)
	v.SetDefault("pipeline.excluded_selectors", autotrans.DefaultExcludedSelectors)

	v.SetDefault("cache.snapshot", "")
	v.SetDefault("cache.ttl", time.Duration(0))
	v.SetDefault("cache.max_entries", 10000)

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.allow_origins", []string{})
	v.SetDefault("server.style", string(autotrans.StyleNeutral))
	v.SetDefault("server.context", "")
	v.SetDefault("server.cache_ttl", 24*time.Hour)
	v.SetDefault("server.redis_url", "")

	v.SetDefault("provider.name", "openai")
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.temperature", 0.3)
	v.SetDefault("provider.credentials", "")
	v.SetDefault("provider.retries", 3)
	v.SetDefault("provider.requests_per_minute", 60)

	v.SetDefault("prefs.driver", DriverSQLite)
	v.SetDefault("prefs.path", "autotrans.db")
	v.SetDefault("prefs.redis_url", "")
}

// Load reads the configuration. path names a YAML file; when empty,
// autotrans.yaml is looked up in the working directory and skipped if absent.
func Load(path string) (*Config, error) {
	// load .env if it exists (ignore if it does not)
	if _, err := os.Stat(DotEnvFile); err == nil {
		if err := godotenv.Load(DotEnvFile); err != nil {
			return nil, fmt.Errorf("config.godotenv(%s): %w", DotEnvFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config.os.Stat(%s): %w", DotEnvFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known upstream variables as fallbacks
	if err := v.BindEnv("provider.api_key", EnvPrefix+"_PROVIDER_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("provider.credentials", EnvPrefix+"_PROVIDER_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config.read(%s): %w", path, err)
		}
	} else {
		v.SetConfigName("autotrans")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config.read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error

	if !autotrans.IsSupported(c.SourceLang) {
		errs = append(errs, fmt.Errorf("source_lang %q: %w", c.SourceLang, autotrans.ErrUnsupportedLanguage))
	}
	if !autotrans.IsSupported(c.DefaultLang) {
		errs = append(errs, fmt.Errorf("default_lang %q: %w", c.DefaultLang, autotrans.ErrUnsupportedLanguage))
	}
	if c.Pipeline.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.batch_size must be positive, got %d", c.Pipeline.BatchSize))
	}
	if c.Pipeline.BatchDelay < 0 || c.Pipeline.Debounce < 0 {
		errs = append(errs, errors.New("pipeline delays must not be negative"))
	}
	switch c.Prefs.Driver {
	case DriverMemory, DriverSQLite:
	case DriverRedis:
		if c.Prefs.RedisURL == "" {
			errs = append(errs, errors.New("prefs.redis_url is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown prefs.driver %q", c.Prefs.Driver))
	}

	return errors.Join(errs...)
}
