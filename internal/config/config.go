package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8081"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	UploadDir      string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	OutputDir      string `env:"OUTPUT_DIR" envDefault:"./uploads"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"524288000"` // 500MB

	// Backend selection: "cli", "fast", or "mlx".
	Backend         string `env:"BACKEND" envDefault:"fast"`
	DefaultModel    string `env:"DEFAULT_MODEL" envDefault:"small"`
	DefaultLanguage string `env:"DEFAULT_LANGUAGE" envDefault:"auto"`

	WhisperBin        string `env:"WHISPER_BIN" envDefault:"whisper"`
	WhisperPathPrefix string `env:"WHISPER_PATH_PREFIX"`
	PythonBin         string `env:"PYTHON_BIN" envDefault:"python3"`
	ModelDownloadRoot string `env:"MODEL_DOWNLOAD_ROOT"`
	MLXBatchSize      int    `env:"MLX_BATCH_SIZE" envDefault:"12"`

	// Model cache bound; 0 keeps every loaded model for the process lifetime.
	ModelCacheMax int `env:"MODEL_CACHE_MAX" envDefault:"0"`

	// Progress policy: one transcribing event per N segments, advancing by
	// the given percent, capped below completion.
	ProgressEverySegments int `env:"PROGRESS_EVERY_SEGMENTS" envDefault:"10"`
	ProgressStepPercent   int `env:"PROGRESS_STEP_PERCENT" envDefault:"5"`

	// Optional record store; empty disables the record API.
	DatabaseURL string `env:"DATABASE_URL"`

	// Optional hot folder; media dropped here is transcribed automatically.
	WatchDir string `env:"WATCH_DIR"`

	// Optional MQTT completion notifier.
	MQTTBrokerURL string `env:"MQTT_BROKER_URL"`
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"scribe-engine"`
	MQTTTopic     string `env:"MQTT_TOPIC" envDefault:"scribe/transcriptions"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`

	S3 S3Config `envPrefix:"S3_"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// S3Config configures optional artifact mirroring to an S3-compatible store.
type S3Config struct {
	Bucket        string        `env:"BUCKET"`
	Region        string        `env:"REGION" envDefault:"us-east-1"`
	Endpoint      string        `env:"ENDPOINT"`
	AccessKey     string        `env:"ACCESS_KEY"`
	SecretKey     string        `env:"SECRET_KEY"`
	Prefix        string        `env:"PREFIX" envDefault:"artifacts"`
	PresignExpiry time.Duration `env:"PRESIGN_EXPIRY" envDefault:"1h"`
}

// Enabled reports whether S3 mirroring is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile   string
	HTTPAddr  string
	LogLevel  string
	Backend   string
	UploadDir string
	OutputDir string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.Backend != "" {
		cfg.Backend = overrides.Backend
	}
	if overrides.UploadDir != "" {
		cfg.UploadDir = overrides.UploadDir
	}
	if overrides.OutputDir != "" {
		cfg.OutputDir = overrides.OutputDir
	}

	switch cfg.Backend {
	case "cli", "fast", "mlx":
	default:
		return nil, fmt.Errorf("unknown backend %q (expected cli, fast, or mlx)", cfg.Backend)
	}

	return cfg, nil
}
