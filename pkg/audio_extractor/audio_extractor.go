package audio_extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"audio_extraction/entity"
)

const (
	traceName = "audio-extractor"

	_defaultFFmpegPath   = "ffmpeg"
	_defaultFFprobePath  = "ffprobe"
	_defaultProbeTimeout = time.Minute
	_stderrTail          = 512
	_firstAudioStream    = "0:a:0"
)

type codec struct {
	acodec string
	muxer  string
}

var codecs = map[string]codec{
	"mp3": {acodec: "libmp3lame", muxer: "mp3"},
	"wav": {acodec: "pcm_s16le", muxer: "wav"},
	"ogg": {acodec: "libvorbis", muxer: "ogg"},
	"aac": {acodec: "aac", muxer: "adts"},
}

// SupportedFormats lists the output containers the extractor can write.
func SupportedFormats() []string {
	return []string{"mp3", "wav", "ogg", "aac"}
}

// CommandRunner runs an external binary with the given stdout and stderr.
type CommandRunner func(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error

// Prober returns ffprobe's JSON description of a media file.
type Prober func(ctx context.Context, path string) (string, error)

type AudioExtractor struct {
	ffmpegPath   string
	ffprobePath  string
	probeTimeout time.Duration
	run          CommandRunner
	probe        Prober
}

var _ entity.AudioExtractor = (*AudioExtractor)(nil)

type Option func(*AudioExtractor)

func WithFFmpegPath(path string) Option {
	return func(ae *AudioExtractor) {
		if path != "" {
			ae.ffmpegPath = path
		}
	}
}

// WithFFprobePath sets the ffprobe binary. Without it ffprobe is looked up next to ffmpeg.
func WithFFprobePath(path string) Option {
	return func(ae *AudioExtractor) {
		ae.ffprobePath = path
	}
}

func WithProbeTimeout(timeout time.Duration) Option {
	return func(ae *AudioExtractor) {
		ae.probeTimeout = timeout
	}
}

// WithCommandRunner replaces process execution, mainly for tests.
func WithCommandRunner(run CommandRunner) Option {
	return func(ae *AudioExtractor) {
		ae.run = run
	}
}

// WithProber replaces ffprobe, mainly for tests.
func WithProber(probe Prober) Option {
	return func(ae *AudioExtractor) {
		ae.probe = probe
	}
}

func NewAudioExtractor(opts ...Option) *AudioExtractor {
	ae := &AudioExtractor{
		ffmpegPath:   _defaultFFmpegPath,
		probeTimeout: _defaultProbeTimeout,
		run:          execRunner,
	}
	for _, opt := range opts {
		opt(ae)
	}
	if ae.ffprobePath == "" {
		ae.ffprobePath = siblingFFprobe(ae.ffmpegPath)
	}
	if ae.probe == nil {
		ae.probe = ae.ffprobe
	}
	return ae
}

// Extract writes the first audio stream of inputPath to outputPath using the container named by format.
func (ae *AudioExtractor) Extract(ctx context.Context, inputPath, outputPath, format string) error {
	ctx, span := otel.Tracer(traceName).Start(ctx, "Extract")
	defer span.End()

	span.SetAttributes(attribute.String("input", inputPath))
	span.SetAttributes(attribute.String("format", format))

	c, ok := codecs[format]
	if !ok {
		return entity.NewConversionError(entity.KindExtractionFailed, nil, "An error occurred during audio extraction: unsupported audio format %q", format)
	}

	if _, err := os.Stat(inputPath); err != nil {
		return entity.NewConversionError(entity.KindInputNotFound, nil, "Error: Video file not found at '%s'", inputPath)
	}

	hasAudio, err := ae.hasAudioStream(ctx, inputPath)
	if err != nil {
		span.RecordError(err)
		return aborted(ctx, err)
	}
	if !hasAudio {
		return entity.NewConversionError(entity.KindNoAudioTrack, nil, "Error: No audio track found in '%s'", inputPath)
	}

	// Only the first audio stream: mp3, adts and wav hold a single stream.
	args := ffmpeg.Input(inputPath).
		Output(outputPath, ffmpeg.KwArgs{"map": _firstAudioStream, "acodec": c.acodec, "f": c.muxer}).
		OverWriteOutput().
		GetArgs()

	var stderr bytes.Buffer
	span.AddEvent("Starting ffmpeg")
	if err := ae.run(ctx, ae.ffmpegPath, args, io.Discard, &stderr); err != nil {
		span.RecordError(err)
		if tail := stderrTail(stderr.Bytes()); tail != "" && ctx.Err() == nil {
			err = errors.Wrap(err, tail)
		}
		return aborted(ctx, err)
	}

	return nil
}

// aborted classifies err as ExtractionFailed, preferring the context error when ctx is done.
func aborted(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return entity.NewConversionError(entity.KindExtractionFailed, ctxErr, "An error occurred during audio extraction: extraction aborted")
	}
	return entity.NewConversionError(entity.KindExtractionFailed, err, "An error occurred during audio extraction")
}

// VerifyInstalled checks that the configured ffmpeg binary can be executed.
func (ae *AudioExtractor) VerifyInstalled(ctx context.Context) error {
	var stderr bytes.Buffer
	if err := ae.run(ctx, ae.ffmpegPath, []string{"-version"}, io.Discard, &stderr); err != nil {
		return errors.Wrapf(err, "ffmpeg not found or not executable at %q", ae.ffmpegPath)
	}
	return nil
}

type probeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
}

func (ae *AudioExtractor) hasAudioStream(ctx context.Context, path string) (bool, error) {
	out, err := ae.probe(ctx, path)
	if err != nil {
		return false, errors.Wrap(err, "ffprobe")
	}
	return parseHasAudio(out)
}

func parseHasAudio(probeJSON string) (bool, error) {
	var res probeResult
	if err := json.Unmarshal([]byte(probeJSON), &res); err != nil {
		return false, errors.Wrap(err, "decode ffprobe output")
	}
	for _, s := range res.Streams {
		if s.CodecType == "audio" {
			return true, nil
		}
	}
	return false, nil
}

func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > _stderrTail {
		s = s[len(s)-_stderrTail:]
	}
	return s
}

func execRunner(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// ffprobe runs the configured ffprobe under ctx, bounded by the probe timeout.
func (ae *AudioExtractor) ffprobe(ctx context.Context, path string) (string, error) {
	if ae.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ae.probeTimeout)
		defer cancel()
	}

	args := ffmpeg.ConvertKwargsToCmdLineArgs(ffmpeg.KwArgs{
		"v":            "error",
		"show_format":  "",
		"show_streams": "",
		"of":           "json",
	})
	args = append(args, path)

	var stdout, stderr bytes.Buffer
	if err := ae.run(ctx, ae.ffprobePath, args, &stdout, &stderr); err != nil {
		if tail := stderrTail(stderr.Bytes()); tail != "" {
			return "", errors.Wrap(err, tail)
		}
		return "", err
	}
	return stdout.String(), nil
}

// siblingFFprobe returns the ffprobe that ships next to ffmpegPath, or plain "ffprobe" for a bare name.
func siblingFFprobe(ffmpegPath string) string {
	dir := ffmpegPath[:len(ffmpegPath)-len(filepath.Base(ffmpegPath))]
	return dir + _defaultFFprobePath + filepath.Ext(ffmpegPath)
}
