package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Translation   TranslationConfig   `yaml:"translation"`
	Speech        SpeechConfig        `yaml:"speech"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	YouTube       YouTubeConfig       `yaml:"youtube"`
	Worker        WorkerConfig        `yaml:"worker"`
	LogLevel      string              `yaml:"log_level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// StorageConfig holds database and media storage settings.
type StorageConfig struct {
	DataDir      string      `yaml:"data_dir"`
	DatabasePath string      `yaml:"database_path"`
	MinIO        MinIOConfig `yaml:"minio"`
}

// MinIOConfig enables object storage when Endpoint is set.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether a MinIO endpoint is configured.
func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != ""
}

// TranslationConfig selects the translation backend.
type TranslationConfig struct {
	Provider      string        `yaml:"provider"` // "gemini", "openai" or "local"
	Model         string        `yaml:"model"`
	Review        bool          `yaml:"review"`
	ReviewModel   string        `yaml:"review_model"`
	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	OpenAIAPIKey  string        `yaml:"openai_api_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	LocalEndpoint string        `yaml:"local_endpoint"`
	Timeout       time.Duration `yaml:"timeout"`
}

// SpeechConfig selects the text-to-speech backend.
type SpeechConfig struct {
	Provider         string `yaml:"provider"` // "elevenlabs", "openai" or "none"
	ElevenLabsAPIKey string `yaml:"elevenlabs_api_key"`
	VoiceID          string `yaml:"voice_id"`
	Model            string `yaml:"model"`
}

// TranscriptionConfig selects the transcription backend.
type TranscriptionConfig struct {
	Provider         string        `yaml:"provider"` // "twelvelabs" or "whisper"
	TwelveLabsAPIKey string        `yaml:"twelve_labs_api_key"`
	IndexName        string        `yaml:"index_name"`
	Language         string        `yaml:"language"`
	PollInterval     time.Duration `yaml:"poll_interval"`
}

// YouTubeConfig holds YouTube settings.
type YouTubeConfig struct {
	APIKey      string `yaml:"api_key"`
	CaptionLang string `yaml:"caption_lang"`
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	MaxRetries int           `yaml:"max_retries"`

	// RetentionDays is how long completed jobs are kept; 0 keeps them forever.
	RetentionDays int `yaml:"retention_days"`
}

// DefaultConfigPath returns the config file looked up when none is given.
func DefaultConfigPath() string {
	return "patwa.yaml"
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Storage: StorageConfig{
			DataDir:      "data",
			DatabasePath: filepath.Join("data", "patwa.db"),
			MinIO:        MinIOConfig{Bucket: "patwa-media"},
		},
		Translation: TranslationConfig{
			Provider:    "gemini",
			ReviewModel: "gemini-1.5-pro-latest",
			Timeout:     60 * time.Second,
		},
		Speech: SpeechConfig{
			Provider: "elevenlabs",
			VoiceID:  "21m00Tcm4TlvDq8ikWAM", // Rachel
			Model:    "eleven_multilingual_v2",
		},
		Transcription: TranscriptionConfig{
			Provider:     "twelvelabs",
			IndexName:    "dialect-translator-videos",
			Language:     "en",
			PollInterval: 5 * time.Second,
		},
		YouTube: YouTubeConfig{CaptionLang: "en"},
		Worker: WorkerConfig{
			Interval:      time.Second,
			MaxRetries:    3,
			RetentionDays: 30,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file, then applies environment
// overrides. Missing fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	FromEnv(cfg)
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults plus
// environment overrides otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		FromEnv(cfg)
		return cfg, nil
	}
	return Load(path)
}

// FromEnv overrides cfg with any of the recognised environment variables.
func FromEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Storage.DataDir, "DATA_DIR")
	setString(&cfg.Storage.DatabasePath, "DATABASE_PATH")
	setString(&cfg.Storage.MinIO.Endpoint, "MINIO_ENDPOINT")
	setString(&cfg.Storage.MinIO.AccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.Storage.MinIO.SecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.Storage.MinIO.Bucket, "MINIO_BUCKET")
	setBool(&cfg.Storage.MinIO.UseSSL, "MINIO_USE_SSL")

	setString(&cfg.Translation.Provider, "TRANSLATION_PROVIDER")
	setString(&cfg.Translation.Model, "TRANSLATION_MODEL")
	setBool(&cfg.Translation.Review, "TRANSLATION_REVIEW")
	setString(&cfg.Translation.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.Translation.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.Translation.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Translation.LocalEndpoint, "LOCAL_MODEL_ENDPOINT")

	setString(&cfg.Speech.Provider, "SPEECH_PROVIDER")
	setString(&cfg.Speech.ElevenLabsAPIKey, "ELEVENLABS_API_KEY")
	setString(&cfg.Speech.VoiceID, "ELEVENLABS_VOICE_ID")

	setString(&cfg.Transcription.Provider, "TRANSCRIPTION_PROVIDER")
	setString(&cfg.Transcription.TwelveLabsAPIKey, "TWELVE_LABS_API_KEY")
	setString(&cfg.Transcription.IndexName, "TWELVE_LABS_INDEX")

	setString(&cfg.YouTube.APIKey, "YOUTUBE_API_KEY")
	setString(&cfg.LogLevel, "LOG_LEVEL")
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path must not be empty")
	}
	if c.Storage.MinIO.Enabled() && c.Storage.MinIO.Bucket == "" {
		return fmt.Errorf("storage.minio.bucket must not be empty when minio is enabled")
	}

	switch c.Translation.Provider {
	case "gemini", "openai":
	case "local":
		if c.Translation.LocalEndpoint == "" {
			return fmt.Errorf("translation.local_endpoint is required for the local provider")
		}
	default:
		return fmt.Errorf("translation.provider must be gemini, openai, or local, got %q", c.Translation.Provider)
	}

	switch c.Speech.Provider {
	case "elevenlabs", "openai", "none":
	default:
		return fmt.Errorf("speech.provider must be elevenlabs, openai, or none, got %q", c.Speech.Provider)
	}

	switch c.Transcription.Provider {
	case "twelvelabs", "whisper":
	default:
		return fmt.Errorf("transcription.provider must be twelvelabs or whisper, got %q", c.Transcription.Provider)
	}
	if c.Transcription.PollInterval <= 0 {
		return fmt.Errorf("transcription.poll_interval must be > 0")
	}

	if c.Worker.Interval <= 0 {
		return fmt.Errorf("worker.interval must be > 0")
	}
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("worker.max_retries must be >= 0")
	}
	if c.Worker.RetentionDays < 0 {
		return fmt.Errorf("worker.retention_days must be >= 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}
