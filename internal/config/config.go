package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port   string `yaml:"port"`
		Origin string `yaml:"origin"`
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
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		ID  string `yaml:"id"`
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Gallery struct {
		Size   int    `yaml:"size"`
		Rotate string `yaml:"rotate"`
	} `yaml:"gallery"`
	Counter struct {
		Timeout string `yaml:"timeout"`
		Refresh string `yaml:"refresh"`
	} `yaml:"counter"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error; defaults and the environment still apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
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
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.Origin = "http://localhost:8080"
	cfg.Quiz.ID = "vibe-check"
	cfg.Quiz.TTL = "10m"
	cfg.Redis.TTL = "30m"
	cfg.Gallery.Size = 20
	cfg.Gallery.Rotate = "1300ms"
	cfg.Counter.Timeout = "5s"
	cfg.Counter.Refresh = "15s"
	cfg.Log.Level = "info"
	return cfg
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Server.Port)
	str("PUBLIC_ORIGIN", &c.Server.Origin)
	str("POSTGRES_URL", &c.Postgres.URL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("SQLITE_PATH", &c.SQLite.Path)
	str("LOG_LEVEL", &c.Log.Level)
	if v, ok := lookup("GALLERY_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Gallery.Size = n
		}
	}
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
