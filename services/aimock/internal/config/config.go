package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// DefaultDelay is how long a scheduled enrichment waits before delivery.
const DefaultDelay = 10 * time.Second

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port           string `yaml:"port"`
	LogLevel       string `yaml:"logLevel"`
	RedisAddr      string `yaml:"redisAddr"`
	RedisPassword  string `yaml:"redisPassword"`
	RecipeURL      string `yaml:"recipeURL"`
	CallbackSecret string `yaml:"callbackSecret"`
	EnrichDelay    string `yaml:"enrichDelay"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("RECIPE_URL"); v != "" {
		cfg.RecipeURL = v
	}
	if v := os.Getenv("COOKTUBE_CALLBACK_SECRET"); v != "" {
		cfg.CallbackSecret = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseEnrichDelay parses the configured delay, defaulting to 10s.
func ParseEnrichDelay(raw string) (time.Duration, error) {
	if raw == "" {
		return DefaultDelay, nil
	}
	delay, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse enrichDelay: %w", err)
	}
	if delay <= 0 {
		return 0, errors.New("enrichDelay must be positive")
	}
	return delay, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if cfg.RecipeURL == "" {
		return errors.New("config: recipeURL is required (set in config.yaml or RECIPE_URL)")
	}
	if cfg.CallbackSecret == "" {
		return errors.New("config: callbackSecret is required (set in config.yaml or COOKTUBE_CALLBACK_SECRET)")
	}
	return nil
}
