// Package config loads server configuration from a YAML file with
// environment variable overrides for the values that differ between
// deployments.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"taskwing/errors"
)

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type LLM struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type Kafka struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type Config struct {
	Server Server      `yaml:"server"`
	Store  StoreConfig `yaml:"store"`
	LLM    LLM         `yaml:"llm"`
	Auth   Auth        `yaml:"auth"`
	Kafka  Kafka       `yaml:"kafka"`
	Log    string      `yaml:"log"`
}

// Load reads the config file at path (optional) and applies environment
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: Server{Host: "0.0.0.0", Port: 8000},
		Store:  StoreConfig{Path: "taskwing.db"},
		LLM:    LLM{Provider: "gemini", Model: "gemini-1.5-flash"},
		Auth:   Auth{JWTSecret: "dev-secret-change-me", TokenTTL: 24 * time.Hour},
		Kafka: Kafka{
			Brokers: []string{"localhost:9092"},
			Topic:   "task-events",
			GroupID: "taskwing-analytics",
		},
		Log: "info",
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := loadFromFile(path, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading config %s", path)
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv lets deployment environment variables override file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TASKWING_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TASKWING_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TASKWING_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("TASKWING_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("TASKWING_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); v != "" {
		cfg.Kafka.Brokers = splitBrokers(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("KAFKA_CONSUMER_GROUP"); v != "" {
		cfg.Kafka.GroupID = v
	}
	if v := os.Getenv("TASKWING_LOG"); v != "" {
		cfg.Log = v
	}
}

func splitBrokers(v string) []string {
	parts := strings.Split(v, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
