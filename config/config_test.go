package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
app:
  name: "audio-extraction"
  version: "1.0.0"
server:
  port: "8000"
logger:
  log_level: "info"
storage:
  upload_dir: "uploads"
  output_dir: "outputs"
extraction:
  allowed_input_extensions: ["mp4", "mkv"]
  allowed_output_formats: ["mp3", "wav"]
  default_format: "mp3"
  timeout: 2m
otel:
  exporter: "none"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.UploadDir != "uploads" || cfg.Storage.OutputDir != "outputs" {
		t.Fatalf("unexpected storage dirs: %+v", cfg.Storage)
	}
	if len(cfg.Extraction.AllowedInputExtensions) != 2 {
		t.Fatalf("expected 2 input extensions, got %v", cfg.Extraction.AllowedInputExtensions)
	}
	if cfg.Extraction.Timeout != 2*time.Minute {
		t.Fatalf("expected 2m timeout, got %s", cfg.Extraction.Timeout)
	}
	if cfg.Retention.ArtifactTTL != time.Hour {
		t.Fatalf("expected default ttl of 1h, got %s", cfg.Retention.ArtifactTTL)
	}
	if !cfg.Retention.DeleteAfterSend {
		t.Fatal("expected delete_after_send to default to true")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OUTPUT_DIR", "/tmp/audio-out")
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.OutputDir != "/tmp/audio-out" {
		t.Fatalf("expected env override, got %q", cfg.Storage.OutputDir)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("config.yml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RMQ.URL != "" {
		t.Fatalf("expected events to be disabled by default, got url %q", cfg.RMQ.URL)
	}
	if cfg.Extraction.DefaultFormat != "mp3" {
		t.Fatalf("expected mp3 default format, got %q", cfg.Extraction.DefaultFormat)
	}
}

func TestLoadWithoutRabbitMQSection(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RMQ.URL != "" || cfg.RMQ.Exchange != "audio_extraction" {
		t.Fatalf("unexpected rabbitmq section %+v", cfg.RMQ)
	}
}

func TestLoadRejectsUnknownOutputFormat(t *testing.T) {
	body := `
app:
  name: "audio-extraction"
  version: "1.0.0"
server:
  port: "8000"
logger:
  log_level: "info"
extraction:
  allowed_output_formats: ["mp3", "flac"]
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected validation error for flac output format")
	}
}

func TestLoadRejectsSameDirectories(t *testing.T) {
	body := `
app:
  name: "audio-extraction"
  version: "1.0.0"
server:
  port: "8000"
logger:
  log_level: "info"
storage:
  upload_dir: "scratch"
  output_dir: "scratch"
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected validation error when upload and output dirs match")
	}
}

func TestLoadRequiresJaegerEndpoint(t *testing.T) {
	body := `
app:
  name: "audio-extraction"
  version: "1.0.0"
server:
  port: "8000"
logger:
  log_level: "info"
otel:
  exporter: "jaeger"
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected validation error for jaeger exporter without endpoint")
	}
}
