package entity

import (
	"context"
	"io"
	"time"
)

// Upload is a video received from a client. It only lives for one request.
type Upload struct {
	Filename string
	Body     io.Reader
	Size     int64
}

// ConversionRequest asks for the audio track of Upload in the given container format.
type ConversionRequest struct {
	Format string
	Upload Upload
}

// AudioArtifact is the audio file produced for a request.
type AudioArtifact struct {
	Token     string
	Path      string
	MediaType string
	Filename  string
	Format    string
}

type ExtractionUsecase interface {
	Convert(ctx context.Context, req ConversionRequest) (*AudioArtifact, error)
	Discard(ctx context.Context, artifact *AudioArtifact) error
}

// AudioExtractor writes the audio stream of the video at inputPath to outputPath.
// Failures are reported as *ConversionError with kind InputNotFound, NoAudioTrack or ExtractionFailed.
type AudioExtractor interface {
	Extract(ctx context.Context, inputPath, outputPath, format string) error
}

const (
	ConversionSucceeded = "succeeded"
	ConversionFailed    = "failed"
)

// ConversionEvent describes one finished conversion request.
type ConversionEvent struct {
	Token      string    `json:"token"`
	Filename   string    `json:"filename"`
	Format     string    `json:"format"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	AudioFile  string    `json:"audio_file,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

type EventPublisher interface {
	PublishConversion(ctx context.Context, event ConversionEvent) error
}
