package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreBolt   = "bolt"
	StoreMemory = "memory"
)

type Config struct {
	Store        string `json:"store"`
	DBPath       string `json:"db_path"`
	BoltPath     string `json:"bolt_path"`
	WebEnabled   bool   `json:"web_enabled"`
	WebPort      int    `json:"web_port"`
	LogLevel     string `json:"log_level"`
	LogEncoding  string `json:"log_encoding"`
	LogPath      string `json:"log_path"`
	HistoryLimit int    `json:"history_limit"`
	RequireTags  bool   `json:"require_tags"`
}

func Default() Config {
	return Config{
		Store:       StoreSQLite,
		WebPort:     8080,
		LogLevel:    "info",
		LogEncoding: "json",
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazytodo", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv loads an optional .env file and lets LAZYTODO_* variables
// override the file values.
func ApplyEnv(cfg Config, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg.Store = getEnv("LAZYTODO_STORE", cfg.Store)
	cfg.DBPath = getEnv("LAZYTODO_DB_PATH", cfg.DBPath)
	cfg.BoltPath = getEnv("LAZYTODO_BOLT_PATH", cfg.BoltPath)
	cfg.LogLevel = getEnv("LAZYTODO_LOG_LEVEL", cfg.LogLevel)
	cfg.LogEncoding = getEnv("LAZYTODO_LOG_ENCODING", cfg.LogEncoding)
	cfg.LogPath = getEnv("LAZYTODO_LOG_PATH", cfg.LogPath)

	var err error
	if cfg.WebEnabled, err = getEnvBool("LAZYTODO_WEB", cfg.WebEnabled); err != nil {
		return Config{}, err
	}
	if cfg.RequireTags, err = getEnvBool("LAZYTODO_REQUIRE_TAGS", cfg.RequireTags); err != nil {
		return Config{}, err
	}
	if cfg.WebPort, err = getEnvInt("LAZYTODO_WEB_PORT", cfg.WebPort); err != nil {
		return Config{}, err
	}
	if cfg.HistoryLimit, err = getEnvInt("LAZYTODO_HISTORY_LIMIT", cfg.HistoryLimit); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve fills in paths relative to the config file and validates the
// store choice.
func (c *Config) Resolve(configPath string) error {
	baseDir := filepath.Dir(configPath)
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store == "" {
		c.Store = StoreSQLite
	}
	switch c.Store {
	case StoreSQLite, StoreBolt, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(baseDir, "lazytodo.db")
	}
	if c.BoltPath == "" {
		c.BoltPath = filepath.Join(baseDir, "lazytodo.bolt")
	}
	if c.LogPath == "" {
		c.LogPath = filepath.Join(baseDir, "lazytodo.log")
	}
	if c.WebPort == 0 {
		c.WebPort = 8080
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}
