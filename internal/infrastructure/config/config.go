package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		PrintEveryMin int    `toml:"print_every_min"`
		Top           int    `toml:"top"`
		LogLevel      string `toml:"log_level"`
	} `toml:"app"`

	API struct {
		BaseURL    string `toml:"base_url"`
		PriceURL   string `toml:"price_url"`
		TimeoutSec int    `toml:"timeout_sec"`
		PageSize   int    `toml:"page_size"`
		MaxTokens  int    `toml:"max_tokens"`
	} `toml:"api"`

	Tokens struct {
		ThrottleSec      int    `toml:"throttle_sec"`
		Limit            int    `toml:"limit"`
		CacheDurationSec int    `toml:"cache_duration_sec"`
		FavoritesKey     string `toml:"favorites_key"`
	} `toml:"tokens"`

	Price struct {
		IntervalSec int `toml:"interval_sec"`
	} `toml:"price"`

	Retry struct {
		DelaySec    int     `toml:"delay_sec"`
		MaxDelaySec int     `toml:"max_delay_sec"`
		Multiplier  float64 `toml:"multiplier"`
		MaxAttempts int     `toml:"max_attempts"`
	} `toml:"retry"`

	HTTP struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"http"`

	Storage struct {
		Enabled bool `toml:"enabled"`

		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Redis struct {
			Enabled         bool   `toml:"enabled"`
			Addr            string `toml:"addr"`
			Password        string `toml:"password"`
			DB              int    `toml:"db"`
			Prefix          string `toml:"prefix"`
			TTLSeconds      int    `toml:"ttl_seconds"`
			SnapshotStream  string `toml:"snapshot_stream"`
			SnapshotChannel string `toml:"snapshot_channel"`
		} `toml:"redis"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"storage"`
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

func (c *Config) Throttle() time.Duration {
	return time.Duration(c.Tokens.ThrottleSec) * time.Second
}

func (c *Config) CacheDuration() time.Duration {
	return time.Duration(c.Tokens.CacheDurationSec) * time.Second
}

func (c *Config) PriceInterval() time.Duration {
	return time.Duration(c.Price.IntervalSec) * time.Second
}

// Load decodes the TOML file at path. A .env file next to the working
// directory, if present, is loaded first so XRPLBOARD_* variables can
// override secrets.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, as if loaded
// from an empty file.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("XRPLBOARD_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("XRPLBOARD_PRICE_URL"); v != "" {
		cfg.API.PriceURL = v
	}
	if v := os.Getenv("XRPLBOARD_REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("XRPLBOARD_PG_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.PrintEveryMin <= 0 {
		cfg.App.PrintEveryMin = 5
	}
	if cfg.App.Top <= 0 {
		cfg.App.Top = 10
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://s1.xrplmeta.org"
	}
	if cfg.API.PriceURL == "" {
		cfg.API.PriceURL = "https://api.coingecko.com/api/v3/simple/price?ids=ripple&vs_currencies=usd"
	}
	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = 10
	}
	if cfg.API.PageSize <= 0 {
		cfg.API.PageSize = 100
	}
	if cfg.API.MaxTokens <= 0 {
		cfg.API.MaxTokens = 1000
	}
	if cfg.Tokens.ThrottleSec <= 0 {
		cfg.Tokens.ThrottleSec = 10
	}
	if cfg.Tokens.Limit <= 0 {
		cfg.Tokens.Limit = 100
	}
	if cfg.Tokens.CacheDurationSec <= 0 {
		cfg.Tokens.CacheDurationSec = 300
	}
	if cfg.Tokens.FavoritesKey == "" {
		cfg.Tokens.FavoritesKey = "tokenFavorites"
	}
	if cfg.Price.IntervalSec <= 0 {
		cfg.Price.IntervalSec = 30
	}
	if cfg.Retry.DelaySec <= 0 {
		cfg.Retry.DelaySec = 5
	}
	if cfg.Retry.MaxDelaySec <= 0 {
		cfg.Retry.MaxDelaySec = 60
	}
	if cfg.Retry.Multiplier <= 0 {
		cfg.Retry.Multiplier = 2
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 10
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/xrplboard.db"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "xrplboard"
	}
}

func validate(cfg *Config) error {
	for name, raw := range map[string]string{"api.base_url": cfg.API.BaseURL, "api.price_url": cfg.API.PriceURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s is not an absolute url: %q", name, raw)
		}
	}
	if cfg.Retry.MaxDelaySec < cfg.Retry.DelaySec {
		return errors.New("retry.max_delay_sec is below retry.delay_sec")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.HTTP.Enabled && strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return errors.New("http.addr empty but enabled")
	}
	return nil
}
