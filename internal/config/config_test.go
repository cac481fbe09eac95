package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Translation.Provider != "gemini" {
		t.Errorf("Translation.Provider = %q, want %q", cfg.Translation.Provider, "gemini")
	}
	if cfg.Translation.Model != "" {
		t.Errorf("Translation.Model = %q, want empty so each provider picks its own", cfg.Translation.Model)
	}
	if cfg.Translation.ReviewModel != "gemini-1.5-pro-latest" {
		t.Errorf("Translation.ReviewModel = %q", cfg.Translation.ReviewModel)
	}
	if cfg.Speech.Model != "eleven_multilingual_v2" {
		t.Errorf("Speech.Model = %q, want %q", cfg.Speech.Model, "eleven_multilingual_v2")
	}
	if cfg.Worker.MaxRetries != 3 {
		t.Errorf("Worker.MaxRetries = %d, want 3", cfg.Worker.MaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
server:
  port: "9000"
translation:
  provider: openai
  model: gpt-4o-mini
  review: true
speech:
  provider: none
transcription:
  provider: whisper
  poll_interval: 2s
worker:
  interval: 500ms
log_level: debug
`
	for _, key := range []string{"PORT", "TRANSLATION_PROVIDER", "TRANSLATION_MODEL", "SPEECH_PROVIDER", "TRANSCRIPTION_PROVIDER", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "patwa.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "9000")
	}
	if cfg.Translation.Provider != "openai" || cfg.Translation.Model != "gpt-4o-mini" {
		t.Errorf("Translation = %+v", cfg.Translation)
	}
	if !cfg.Translation.Review {
		t.Error("Translation.Review should be true")
	}
	if cfg.Transcription.PollInterval != 2*time.Second {
		t.Errorf("Transcription.PollInterval = %v, want 2s", cfg.Transcription.PollInterval)
	}
	if cfg.Worker.Interval != 500*time.Millisecond {
		t.Errorf("Worker.Interval = %v, want 500ms", cfg.Worker.Interval)
	}
	// untouched fields keep defaults
	if cfg.Storage.DataDir != "data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "data")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/patwa.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Translation.Provider != "gemini" {
		t.Errorf("Translation.Provider = %q, want default", cfg.Translation.Provider)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("GEMINI_API_KEY", " key-123 ")
	t.Setenv("TRANSLATION_REVIEW", "true")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")

	cfg := Default()
	FromEnv(cfg)

	if cfg.Server.Port != "5000" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "5000")
	}
	if cfg.Translation.GeminiAPIKey != "key-123" {
		t.Errorf("GeminiAPIKey = %q, want trimmed key", cfg.Translation.GeminiAPIKey)
	}
	if !cfg.Translation.Review {
		t.Error("Translation.Review should be true")
	}
	if !cfg.Storage.MinIO.Enabled() {
		t.Error("MinIO should be enabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid default", func(c *Config) {}, ""},
		{"empty port", func(c *Config) { c.Server.Port = "" }, "server.port"},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }, "data_dir"},
		{"unknown translator", func(c *Config) { c.Translation.Provider = "bing" }, "translation.provider"},
		{"local without endpoint", func(c *Config) { c.Translation.Provider = "local" }, "local_endpoint"},
		{"local with endpoint", func(c *Config) {
			c.Translation.Provider = "local"
			c.Translation.LocalEndpoint = "http://localhost:8000/generate"
		}, ""},
		{"unknown speech", func(c *Config) { c.Speech.Provider = "polly" }, "speech.provider"},
		{"unknown transcription", func(c *Config) { c.Transcription.Provider = "azure" }, "transcription.provider"},
		{"zero poll interval", func(c *Config) { c.Transcription.PollInterval = 0 }, "poll_interval"},
		{"zero worker interval", func(c *Config) { c.Worker.Interval = 0 }, "worker.interval"},
		{"negative retention", func(c *Config) { c.Worker.RetentionDays = -1 }, "retention_days"},
		{"minio without bucket", func(c *Config) {
			c.Storage.MinIO.Endpoint = "localhost:9000"
			c.Storage.MinIO.Bucket = ""
		}, "bucket"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want error containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}
