// Package config loads tend's configuration from a JSON file with
// environment-variable overrides.
//
// The file lives at $XDG_CONFIG_HOME/tend/config.json (falling back to
// ~/.config). Environment variables (TEND_*) override file values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
	// Owner scopes every record in the store. tend serves a single owner
	// per daemon; the engine underneath is keyed by owner everywhere.
	Owner string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:  4200,
			Owner: "local",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the config file and applies TEND_*
// environment overrides.
func Load() (Config, error) {
	return loadFrom(FilePath())
}

func loadFrom(path string) (Config, error) {
	cfg := defaults()

	if err := applyFile(&cfg, path); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)

	if cfg.Server.Owner == "" {
		return Config{}, fmt.Errorf("server.owner must not be empty")
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var file struct {
		Server struct {
			Port  *int    `json:"port"`
			Owner *string `json:"owner"`
		} `json:"server"`
		Storage struct {
			DataDir *string `json:"data_dir"`
		} `json:"storage"`
		Log struct {
			Level *string `json:"level"`
		} `json:"log"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if file.Server.Port != nil {
		cfg.Server.Port = *file.Server.Port
	}
	if file.Server.Owner != nil {
		cfg.Server.Owner = *file.Server.Owner
	}
	if file.Storage.DataDir != nil {
		cfg.Storage.DataDir = *file.Storage.DataDir
	}
	if file.Log.Level != nil {
		cfg.Log.Level = *file.Log.Level
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TEND_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			fmt.Fprintf(os.Stderr, "[WARN] invalid TEND_SERVER_PORT %q, keeping %d\n", v, cfg.Server.Port)
		}
	}
	if v := os.Getenv("TEND_SERVER_OWNER"); v != "" {
		cfg.Server.Owner = v
	}
	if v := os.Getenv("TEND_STORAGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("TEND_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
}

// FilePath returns the location of the config file.
func FilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "tend", "config.json")
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "tend-data"
		}
	}
	return filepath.Join(dir, "tend")
}
