package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Gemini      GeminiConfig              `json:"gemini"`
	Speech      SpeechConfig              `json:"speech"`
	Databases   map[string]DatabaseConfig `json:"databases"`
}

type BasicConfig struct {
	ServerAddress        string `json:"server_address"`
	UploadDir            string `json:"upload_dir"`
	FileTTLHours         int    `json:"file_ttl_hours"`
	SweepIntervalMinutes int    `json:"sweep_interval_minutes"`
}

type GeminiConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// SpeechConfig points at an OpenAI-compatible transcription endpoint.
// An empty BaseURL disables voice input.
type SpeechConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

// Load reads configuration from the provided path (defaults to
// config.json). A missing file is not an error: everything can be
// supplied through the environment. The Gemini credential is required
// either way.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	var cfg Config
	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case os.IsNotExist(err):
		// environment-only setup
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set; add it to the environment or your .env file")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.BasicConfig.ServerAddress = ":" + v
	}
	if v := os.Getenv("SPEECH_API_URL"); v != "" {
		cfg.Speech.BaseURL = v
	}
	if v := os.Getenv("SPEECH_API_KEY"); v != "" {
		cfg.Speech.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.BasicConfig.ServerAddress == "" {
		cfg.BasicConfig.ServerAddress = ":8080"
	}
	if cfg.BasicConfig.UploadDir == "" {
		cfg.BasicConfig.UploadDir = "static/uploads"
	}
	if cfg.BasicConfig.FileTTLHours <= 0 {
		cfg.BasicConfig.FileTTLHours = 24
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.0-flash-exp"
	}
	if cfg.Speech.Model == "" {
		cfg.Speech.Model = "whisper-1"
	}
	if cfg.Databases == nil {
		cfg.Databases = map[string]DatabaseConfig{}
	}
	if _, ok := cfg.Databases["sqlite3"]; !ok {
		cfg.Databases["sqlite3"] = DatabaseConfig{DSN: "./data/supportdesk.db"}
	}
}
