package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const defaultPath = "./config/config.yml"

type (
	// Config -.
	Config struct {
		App        `yaml:"app"`
		Server     `yaml:"server"`
		Log        `yaml:"logger"`
		Storage    `yaml:"storage"`
		Extraction `yaml:"extraction"`
		Retention  `yaml:"retention"`
		RMQ        `yaml:"rabbitmq"`
		OTEL       `yaml:"otel"`
	}

	// App -.
	App struct {
		Name    string `env-required:"true" yaml:"name"    env:"APP_NAME"    validate:"required"`
		Version string `env-required:"true" yaml:"version" env:"APP_VERSION" validate:"required"`
	}

	// Server -.
	Server struct {
		Port            string        `env-required:"true" yaml:"port"             env:"HTTP_PORT"                            validate:"required"`
		ReadTimeout     time.Duration `yaml:"read_timeout"     env:"HTTP_READ_TIMEOUT"     env-default:"1m"`
		WriteTimeout    time.Duration `yaml:"write_timeout"    env:"HTTP_WRITE_TIMEOUT"    env-default:"15m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
		MaxUploadSize   int64         `yaml:"max_upload_size"  env:"HTTP_MAX_UPLOAD_SIZE"  env-default:"2147483648" validate:"gt=0"`
	}

	// Log -.
	Log struct {
		Level string `env-required:"true" yaml:"log_level"   env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	}

	// Storage holds the scratch and output directories.
	Storage struct {
		UploadDir string `yaml:"upload_dir" env:"UPLOAD_DIR" env-default:"uploads" validate:"required"`
		OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR" env-default:"outputs" validate:"required,nefield=UploadDir"`
	}

	// Extraction -. An empty FFprobePath means the ffprobe next to FFmpegPath.
	Extraction struct {
		AllowedInputExtensions []string      `yaml:"allowed_input_extensions" env:"ALLOWED_INPUT_EXTENSIONS" env-separator:"," env-default:"mp4,avi,mov,mkv,webm" validate:"min=1,dive,required"`
		AllowedOutputFormats   []string      `yaml:"allowed_output_formats"   env:"ALLOWED_OUTPUT_FORMATS"   env-separator:"," env-default:"mp3,wav,ogg,aac"     validate:"min=1,dive,oneof=mp3 wav ogg aac"`
		DefaultFormat          string        `yaml:"default_format"           env:"DEFAULT_FORMAT"           env-default:"mp3"                                   validate:"oneof=mp3 wav ogg aac"`
		Timeout                time.Duration `yaml:"timeout"                  env:"EXTRACTION_TIMEOUT"       env-default:"10m"`
		FFmpegPath             string        `yaml:"ffmpeg_path"              env:"FFMPEG_PATH"              env-default:"ffmpeg"`
		FFprobePath            string        `yaml:"ffprobe_path"             env:"FFPROBE_PATH"`
	}

	// Retention controls how long produced audio files stay on disk.
	Retention struct {
		Enabled         bool          `yaml:"enabled"           env:"RETENTION_ENABLED"           env-default:"true"`
		DeleteAfterSend bool          `yaml:"delete_after_send" env:"RETENTION_DELETE_AFTER_SEND" env-default:"true"`
		ArtifactTTL     time.Duration `yaml:"artifact_ttl"      env:"RETENTION_ARTIFACT_TTL"      env-default:"1h"`
		SweepInterval   time.Duration `yaml:"sweep_interval"    env:"RETENTION_SWEEP_INTERVAL"    env-default:"1m"`
	}

	// RMQ -.
	RMQ struct {
		URL      string `yaml:"url"      env:"RMQ_URL"`
		Exchange string `yaml:"exchange" env:"RMQ_EXCHANGE" env-default:"audio_extraction"`
	}

	OTEL struct {
		Exporter       string `yaml:"exporter"        env:"OTEL_EXPORTER"   env-default:"none" validate:"oneof=none jaeger otlp"`
		JaegerEndpoint string `yaml:"jaeger_endpoint" env:"JAEGER_ENDPOINT" validate:"required_if=Exporter jaeger"`
		OTLPEndpoint   string `yaml:"otlp_endpoint"   env:"OTLP_ENDPOINT"   validate:"required_if=Exporter otlp"`
		PrometheusPort string `yaml:"prometheus_port" env:"PROMETHEUS_PORT"`
	}
)

// NewConfig returns app config.
func NewConfig() (*Config, error) {
	path := defaultPath
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		path = p
	}

	return Load(path)
}

// Load reads the YAML file at path, applies env overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	err := cleanenv.ReadConfig(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}
