// Package config loads ckanbulk settings from config.yaml and BULK_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rpattn/ckanbulk/internal/db"
)

const envPrefix = "BULK"

const (
	CacheMemory   = "memory"
	CachePostgres = "postgres"
	CacheNone     = "none"
)

type Config struct {
	CKAN     CKANConfig
	Search   SearchConfig
	Cache    CacheConfig
	Database db.Config
	Server   ServerConfig
	Log      LogConfig

	// File is the config file that was read, empty when none was found.
	File string
}

type CKANConfig struct {
	URL       string
	APIToken  string
	Timeout   time.Duration
	RateLimit float64
	Burst     int

	// AnonymousFallback lets HTTP callers without a token use APIToken.
	AnonymousFallback bool
}

type SearchConfig struct {
	PageSize          int
	RequestTimeout    time.Duration
	ExpandLimit       int
	ExpandConcurrency int
}

type CacheConfig struct {
	Driver string
	TTL    time.Duration
	Size   int
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	dbDefaults := db.DefaultConfig()

	v.SetDefault("ckan.url", "http://localhost:5000")
	v.SetDefault("ckan.api_token", "")
	v.SetDefault("ckan.timeout", 30*time.Second)
	v.SetDefault("ckan.rate_limit", 10.0)
	v.SetDefault("ckan.burst", 5)
	v.SetDefault("ckan.anonymous_fallback", false)

	v.SetDefault("search.page_size", 1000)
	v.SetDefault("search.request_timeout", 30*time.Second)
	v.SetDefault("search.expand_limit", 50)
	v.SetDefault("search.expand_concurrency", 8)

	v.SetDefault("cache.driver", CacheMemory)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.size", 256)

	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads config.yaml from configPath when present and applies BULK_
// environment overrides on top of the defaults, e.g. BULK_CKAN_URL or
// BULK_DATABASE_HOST.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{
		CKAN: CKANConfig{
			URL:       strings.TrimSpace(v.GetString("ckan.url")),
			APIToken:  v.GetString("ckan.api_token"),
			Timeout:   v.GetDuration("ckan.timeout"),
			RateLimit: v.GetFloat64("ckan.rate_limit"),
			Burst:     v.GetInt("ckan.burst"),

			AnonymousFallback: v.GetBool("ckan.anonymous_fallback"),
		},
		Search: SearchConfig{
			PageSize:          v.GetInt("search.page_size"),
			RequestTimeout:    v.GetDuration("search.request_timeout"),
			ExpandLimit:       v.GetInt("search.expand_limit"),
			ExpandConcurrency: v.GetInt("search.expand_concurrency"),
		},
		Cache: CacheConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("cache.driver"))),
			TTL:    v.GetDuration("cache.ttl"),
			Size:   v.GetInt("cache.size"),
		},
		Database: db.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: splitOrigins(v.GetStringSlice("server.allowed_origins")),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		File: v.ConfigFileUsed(),
	}

	return cfg, nil
}

// splitOrigins accepts both a YAML list and a comma separated env value.
func splitOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, value := range values {
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	return origins
}

func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.CKAN.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("ckan.url must be an absolute http(s) URL, got %q", c.CKAN.URL))
	}
	if c.CKAN.RateLimit < 0 {
		errs = append(errs, errors.New("ckan.rate_limit must not be negative"))
	}
	if c.Search.PageSize <= 0 {
		errs = append(errs, errors.New("search.page_size must be positive"))
	}
	if c.Search.RequestTimeout <= 0 {
		errs = append(errs, errors.New("search.request_timeout must be positive"))
	}
	if c.Search.ExpandLimit <= 0 {
		errs = append(errs, errors.New("search.expand_limit must be positive"))
	}
	if c.Search.ExpandConcurrency <= 0 {
		errs = append(errs, errors.New("search.expand_concurrency must be positive"))
	}

	switch c.Cache.Driver {
	case CacheMemory, CachePostgres, CacheNone:
	default:
		errs = append(errs, fmt.Errorf("cache.driver must be one of memory, postgres, none, got %q", c.Cache.Driver))
	}
	if c.Cache.Driver == CacheMemory && c.Cache.Size <= 0 {
		errs = append(errs, errors.New("cache.size must be positive"))
	}

	return errors.Join(errs...)
}
