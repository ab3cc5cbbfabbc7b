package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMergesConfigFiles(t *testing.T) {
	temp := t.TempDir()
	defaultPath := filepath.Join(temp, "default.json")
	profilePath := filepath.Join(temp, "profile.json")

	writeJSON(t, defaultPath, map[string]any{
		"llm": map[string]any{
			"base_url":         "http://localhost:1234/v1",
			"model":            "qwen2.5-14b-instruct",
			"timeout_seconds":  120,
			"max_failures":     3,
			"cooldown_seconds": 120,
		},
		"tribunal": map[string]any{
			"min_document_chars": 100,
			"summary_messages":   10,
		},
		"sinks": map[string]any{
			"memory": map[string]any{"enabled": false, "addr": "localhost:6379"},
		},
	})

	writeJSON(t, profilePath, map[string]any{
		"llm": map[string]any{
			"model": "llama-3.1-70b",
		},
		"sinks": map[string]any{
			"memory": map[string]any{"enabled": true},
		},
	})

	cfg, loaded, err := Load(defaultPath, profilePath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 loaded files, got %v", loaded)
	}

	if cfg.LLM.Model != "llama-3.1-70b" {
		t.Fatalf("profile should override model: got %s", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != "http://localhost:1234/v1" {
		t.Fatalf("base_url lost in merge: got %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.TimeoutSeconds != 120 {
		t.Fatalf("timeout lost in merge: got %d", cfg.LLM.TimeoutSeconds)
	}
	if cfg.LLM.MaxFailures != 3 || cfg.LLM.CooldownSeconds != 120 {
		t.Fatalf("breaker settings lost in merge: got (%d,%d)", cfg.LLM.MaxFailures, cfg.LLM.CooldownSeconds)
	}
	if !cfg.Sinks.Memory.Enabled {
		t.Fatalf("profile should enable memory sink")
	}
	if cfg.Sinks.Memory.Addr != "localhost:6379" {
		t.Fatalf("nested merge clobbered sibling key: got %s", cfg.Sinks.Memory.Addr)
	}
	if cfg.Tribunal.MinDocumentChars != 100 {
		t.Fatalf("tribunal section lost: got %d", cfg.Tribunal.MinDocumentChars)
	}
}

func TestLoadMissingDefaultFails(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "absent.json"), ""); err == nil {
		t.Fatalf("expected error for missing default config")
	}
}

func TestSaveWritesJSON(t *testing.T) {
	temp := t.TempDir()
	path := filepath.Join(temp, "out.json")
	var cfg Config
	cfg.LLM.Model = "qwen2.5-14b-instruct"
	cfg.Tribunal.SummaryMessages = 12
	cfg.Server.Addr = ":9090"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Read saved file: %v", err)
	}
	var decoded Config
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal saved file: %v", err)
	}
	if decoded.LLM.Model != "qwen2.5-14b-instruct" {
		t.Fatalf("model mismatch: got %s", decoded.LLM.Model)
	}
	if decoded.Tribunal.SummaryMessages != 12 {
		t.Fatalf("summary_messages mismatch: got %d", decoded.Tribunal.SummaryMessages)
	}
}

func writeJSON(t *testing.T, path string, payload map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}
