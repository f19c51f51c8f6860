package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("loadFrom with no file: %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("Port = %d, want 4200", cfg.Server.Port)
	}
	if cfg.Server.Owner != "local" {
		t.Errorf("Owner = %q, want local", cfg.Server.Owner)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Log.Level)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"server": {"port": 9999, "owner": "pat"}, "log": {"level": "debug"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Server.Port != 9999 || cfg.Server.Owner != "pat" || cfg.Log.Level != "debug" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	// Untouched section keeps its default.
	if cfg.Storage.DataDir == "" {
		t.Error("DataDir default lost")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"server": {"port": 9999}}`), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("TEND_SERVER_PORT", "4321")
	t.Setenv("TEND_SERVER_OWNER", "env-owner")
	t.Setenv("TEND_LOG_LEVEL", "DEBUG")

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Server.Port != 4321 {
		t.Errorf("Port = %d, want env override 4321", cfg.Server.Port)
	}
	if cfg.Server.Owner != "env-owner" {
		t.Errorf("Owner = %q, want env-owner", cfg.Server.Owner)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug (lowercased)", cfg.Log.Level)
	}
}

func TestInvalidPortEnvIgnored(t *testing.T) {
	t.Setenv("TEND_SERVER_PORT", "not-a-port")
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("Port = %d, want default 4200", cfg.Server.Port)
	}
}

func TestBadJSONRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := loadFrom(path); err == nil {
		t.Error("loadFrom accepted malformed JSON")
	}
}
