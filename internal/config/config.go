package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	LLM struct {
		BaseURL         string                `json:"base_url"`
		Model           string                `json:"model"`
		TimeoutSeconds  int                   `json:"timeout_seconds"`
		APIKey          string                `json:"api_key"`
		MaxFailures     int                   `json:"max_failures"`
		CooldownSeconds int                   `json:"cooldown_seconds"`
		Temperature     *float32              `json:"temperature,omitempty"`
		MaxTokens       *int                  `json:"max_tokens,omitempty"`
		Roles           map[string]LLMRoleCfg `json:"roles,omitempty"`
	} `json:"llm"`
	Tribunal struct {
		MinDocumentChars    int `json:"min_document_chars"`
		SummaryMessages     int `json:"summary_messages"`
		VerdictHistoryDepth int `json:"verdict_history_depth"`
	} `json:"tribunal"`
	Sinks struct {
		Memory struct {
			Enabled  bool   `json:"enabled"`
			Addr     string `json:"addr"`
			Password string `json:"password"`
			DB       int    `json:"db"`
		} `json:"memory"`
		Ledger struct {
			Enabled bool   `json:"enabled"`
			DSN     string `json:"dsn"`
		} `json:"ledger"`
		Blob struct {
			Enabled  bool   `json:"enabled"`
			Bucket   string `json:"bucket"`
			Region   string `json:"region"`
			Endpoint string `json:"endpoint"`
			Prefix   string `json:"prefix"`
		} `json:"blob"`
	} `json:"sinks"`
	Server struct {
		Addr      string `json:"addr"`
		ReportDir string `json:"report_dir"`
	} `json:"server"`
}

type LLMRoleCfg struct {
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

func DefaultPath() string {
	return filepath.Join("config", "default.json")
}

func ProfilePath(profile string) string {
	return filepath.Join("config", "profiles", profile+".json")
}

// Load merges the default config with an optional profile override. Later
// files win key-by-key; nested objects are merged, not replaced.
func Load(defaultPath, profilePath string) (Config, []string, error) {
	paths := []string{}
	merged := map[string]any{}

	if defaultPath == "" {
		defaultPath = DefaultPath()
	}
	if err := mergeFile(merged, defaultPath, true); err != nil {
		return Config{}, paths, err
	}
	paths = append(paths, defaultPath)

	if profilePath != "" {
		if err := mergeFile(merged, profilePath, true); err != nil {
			return Config{}, paths, err
		}
		paths = append(paths, profilePath)
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return Config{}, paths, fmt.Errorf("marshal merged config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, paths, fmt.Errorf("unmarshal merged config: %w", err)
	}

	return cfg, paths, nil
}

func mergeFile(dst map[string]any, path string, required bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("config file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("config path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %s: %w", path, err)
	}
	var src map[string]any
	if err := json.Unmarshal(data, &src); err != nil {
		return fmt.Errorf("parse config: %s: %w", path, err)
	}
	deepMerge(dst, src)
	return nil
}

func deepMerge(dst, src map[string]any) {
	for key, value := range src {
		srcMap, ok := value.(map[string]any)
		if !ok {
			dst[key] = value
			continue
		}
		if existing, ok := dst[key]; ok {
			if existingMap, ok := existing.(map[string]any); ok {
				deepMerge(existingMap, srcMap)
				continue
			}
		}
		newMap := map[string]any{}
		deepMerge(newMap, srcMap)
		dst[key] = newMap
	}
}

func Save(path string, cfg Config) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
