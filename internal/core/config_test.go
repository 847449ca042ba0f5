package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
method: post
headers:
  - "Cookie: a=b"
max: 64
delay: 250ms
timeout: 5s
rate: 2.5
strict: true
custom_parameters:
  debug: ["1", "true"]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned an error: %v", err)
	}
	if cfg.Method != "post" || cfg.Max != 64 || !cfg.Strict || cfg.Rate != 2.5 {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if time.Duration(cfg.Delay) != 250*time.Millisecond || time.Duration(cfg.Timeout) != 5*time.Second {
		t.Errorf("Unexpected durations delay=%v timeout=%v", cfg.Delay, cfg.Timeout)
	}
	if len(cfg.Headers) != 1 || len(cfg.CustomParameters["debug"]) != 2 {
		t.Errorf("Unexpected lists %+v", cfg)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"wordlist": "params.txt", "delay": "1s", "verify": true}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned an error: %v", err)
	}
	if cfg.Wordlist != "params.txt" || !cfg.Verify || time.Duration(cfg.Delay) != time.Second {
		t.Errorf("Unexpected config %+v", cfg)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
	if _, err := LoadConfig(writeFile(t, "bad.json", `{"delay": "soon"}`)); err == nil {
		t.Error("Expected an error for an invalid duration")
	}
}
