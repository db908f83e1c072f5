package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
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
	Quiz struct {
		TTL string `yaml:"ttl"`
		Dir string `yaml:"dir"`
	} `yaml:"quiz"`
	Attempts struct {
		TTL string `yaml:"ttl"`
	} `yaml:"attempts"`
	Scoring struct {
		Endpoint string `yaml:"endpoint"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"scoring"`
	Session struct {
		Strategy      string `yaml:"strategy"`
		RequireAnswer bool   `yaml:"requireAnswer"`
		IdleTimeout   string `yaml:"idleTimeout"`
	} `yaml:"session"`
}

// Load reads YAML config from path, then applies environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded .env")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Postgres.URL, "DATABASE_URL")
	setString(&cfg.Quiz.Dir, "QUIZ_DIR")
	setString(&cfg.Scoring.Endpoint, "SCORING_ENDPOINT")
	setString(&cfg.Session.Strategy, "SESSION_STRATEGY")
	if raw := os.Getenv("SESSION_REQUIRE_ANSWER"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Session.RequireAnswer = v
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
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
