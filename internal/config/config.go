package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string `yaml:"port"`
		ClientOrigin   string `yaml:"client_origin"`
		SecureCookies  bool   `yaml:"secure_cookies"`
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	TMDB struct {
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
		Language string `yaml:"language"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"tmdb"`
	Catalog struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"catalog"`
	Auth struct {
		JWTSecret  string `yaml:"jwt_secret"`
		TokenTTL   string `yaml:"token_ttl"`
		CookieName string `yaml:"cookie_name"`
	} `yaml:"auth"`
	HallOfFame struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"hall_of_fame"`
	Avatars struct {
		Dir string `yaml:"dir"`
	} `yaml:"avatars"`
	Sessions struct {
		MaxAge string `yaml:"max_age"`
	} `yaml:"sessions"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields an empty config so
// the service can run from env alone. TMDB_API_KEY, JWT_SECRET, DATABASE_URL
// and REDIS_ADDR override their file values when set.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.TMDB.APIKey, "TMDB_API_KEY")
	set(&c.Auth.JWTSecret, "JWT_SECRET")
	set(&c.Postgres.URL, "DATABASE_URL")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Log.Level, "LOG_LEVEL")
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
