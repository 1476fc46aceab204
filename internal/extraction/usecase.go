package extraction

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"audio_extraction/entity"
	"audio_extraction/internal/telemetry/metric"
	"audio_extraction/pkg/logger"
)

const traceName = "extraction-usecase"

// Options is the configuration a usecase is constructed with.
type Options struct {
	UploadDir              string
	OutputDir              string
	AllowedInputExtensions []string
	AllowedOutputFormats   []string
	// Timeout bounds a single extraction; zero means no bound beyond the caller's context.
	Timeout time.Duration
}

type ExtractionUsecase struct {
	opts      Options
	inputExt  map[string]struct{}
	outputFmt map[string]struct{}
	extractor entity.AudioExtractor
	events    entity.EventPublisher
	metrics   *metric.Metrics
	l         logger.Interface
	newToken  func() string
}

var _ entity.ExtractionUsecase = (*ExtractionUsecase)(nil)

// NewExtractionUsecase creates both directories if needed. events and metrics may be nil.
func NewExtractionUsecase(opts Options, extractor entity.AudioExtractor, events entity.EventPublisher, m *metric.Metrics, l logger.Interface) (*ExtractionUsecase, error) {
	for _, dir := range []string{opts.UploadDir, opts.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create directory %s", dir)
		}
	}

	return &ExtractionUsecase{
		opts:      opts,
		inputExt:  toSet(opts.AllowedInputExtensions),
		outputFmt: toSet(opts.AllowedOutputFormats),
		extractor: extractor,
		events:    events,
		metrics:   m,
		l:         l,
		newToken:  func() string { return uuid.New().String() },
	}, nil
}

// Convert validates the request, stores the upload in the scratch directory, extracts its audio and removes the scratch file.
func (u *ExtractionUsecase) Convert(ctx context.Context, req entity.ConversionRequest) (*entity.AudioArtifact, error) {
	ctx, span := otel.Tracer(traceName).Start(ctx, "Convert")
	defer span.End()

	started := time.Now()
	format := strings.ToLower(req.Format)

	span.SetAttributes(attribute.String("format", format))
	span.SetAttributes(attribute.String("filename", req.Upload.Filename))

	if _, ok := u.outputFmt[format]; !ok {
		return nil, entity.NewConversionError(entity.KindUnsupportedFormat, nil, "Unsupported output format: %s", req.Format)
	}
	if req.Upload.Filename == "" {
		return nil, entity.NewConversionError(entity.KindInvalidInputFormat, nil, "No selected file")
	}
	if !u.allowedInput(req.Upload.Filename) {
		return nil, entity.NewConversionError(entity.KindInvalidInputFormat, nil, "Invalid file format. Allowed formats: %s", strings.Join(u.opts.AllowedInputExtensions, ", "))
	}

	token := u.newToken()
	filename := sanitizeFilename(req.Upload.Filename)
	basename := strings.TrimSuffix(filename, filepath.Ext(filename))

	span.SetAttributes(attribute.String("token", token))

	videoPath := filepath.Join(u.opts.UploadDir, token+"_"+filename)
	audioPath := filepath.Join(u.opts.OutputDir, token+"_"+basename+"."+format)

	artifact, err := u.process(ctx, req.Upload, videoPath, audioPath, format)
	if err != nil {
		span.RecordError(err)
		u.finish(ctx, token, filename, format, "", err, started)
		return nil, err
	}

	artifact.Token = token
	artifact.Filename = basename + "." + format
	u.finish(ctx, token, filename, format, artifact.Path, nil, started)

	return artifact, nil
}

func (u *ExtractionUsecase) process(ctx context.Context, upload entity.Upload, videoPath, audioPath, format string) (*entity.AudioArtifact, error) {
	f, err := os.OpenFile(videoPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, entity.NewConversionError(entity.KindUploadPersistFailure, errors.Wrap(err, "create scratch file"), "Failed to save uploaded file")
	}
	// The scratch file goes away on every path from here on, including a partial write.
	defer u.removeScratch(videoPath)

	size, err := u.persist(ctx, f, upload.Body)
	if err != nil {
		return nil, entity.NewConversionError(entity.KindUploadPersistFailure, err, "Failed to save uploaded file")
	}
	if size == 0 {
		return nil, entity.NewConversionError(entity.KindMissingUpload, nil, "Uploaded file is empty")
	}
	u.metrics.ObserveUpload(size)

	extractCtx := ctx
	if u.opts.Timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, u.opts.Timeout)
		defer cancel()
	}

	if err := u.extractor.Extract(extractCtx, videoPath, audioPath, format); err != nil {
		if rmErr := os.Remove(audioPath); rmErr != nil && !os.IsNotExist(rmErr) {
			u.l.Error(rmErr, "extraction - remove partial output %s", audioPath)
		}
		var convErr *entity.ConversionError
		if errors.As(err, &convErr) {
			return nil, convErr
		}
		return nil, entity.NewConversionError(entity.KindExtractionFailed, err, "An error occurred during audio extraction")
	}

	return &entity.AudioArtifact{
		Path:      audioPath,
		MediaType: "audio/" + format,
		Format:    format,
	}, nil
}

// persist copies body into f and closes it.
func (u *ExtractionUsecase) persist(ctx context.Context, f *os.File, body io.Reader) (int64, error) {
	_, span := otel.Tracer(traceName).Start(ctx, "PersistUpload")
	defer span.End()

	if body == nil {
		_ = f.Close()
		return 0, errors.New("empty upload body")
	}

	n, err := io.Copy(f, body)
	if err != nil {
		_ = f.Close()
		return n, errors.Wrap(err, "write scratch file")
	}
	if err := f.Close(); err != nil {
		return n, errors.Wrap(err, "close scratch file")
	}

	span.SetAttributes(attribute.Int64("bytes", n))
	return n, nil
}

func (u *ExtractionUsecase) removeScratch(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		u.l.Error(err, "extraction - remove scratch file %s", path)
	}
}

// Discard deletes a served artifact.
func (u *ExtractionUsecase) Discard(ctx context.Context, artifact *entity.AudioArtifact) error {
	_, span := otel.Tracer(traceName).Start(ctx, "Discard")
	defer span.End()

	if artifact == nil {
		return nil
	}
	if err := os.Remove(artifact.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove artifact")
	}
	return nil
}

func (u *ExtractionUsecase) finish(ctx context.Context, token, filename, format, audioFile string, err error, started time.Time) {
	elapsed := time.Since(started)

	event := entity.ConversionEvent{
		Token:      token,
		Filename:   filename,
		Format:     format,
		Status:     entity.ConversionSucceeded,
		AudioFile:  audioFile,
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}

	outcome := entity.ConversionSucceeded
	if err != nil {
		event.Status = entity.ConversionFailed
		event.Error = err.Error()
		outcome = entity.ConversionFailed

		var convErr *entity.ConversionError
		if errors.As(err, &convErr) {
			event.ErrorKind = string(convErr.Kind)
			outcome = string(convErr.Kind)
		}
		u.l.Warn("conversion %s of %s to %s failed: %s", token, filename, format, err.Error())
	} else {
		u.l.Info("conversion %s of %s to %s done in %s", token, filename, format, elapsed)
	}

	u.metrics.ObserveConversion(format, outcome, elapsed)

	if u.events == nil {
		return
	}
	if pubErr := u.events.PublishConversion(ctx, event); pubErr != nil {
		u.l.Error(pubErr, "extraction - publish conversion event")
	}
}

func (u *ExtractionUsecase) allowedInput(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if filename == "" || idx < 0 {
		return false
	}
	_, ok := u.inputExt[strings.ToLower(filename[idx+1:])]
	return ok
}

// sanitizeFilename drops directory components and replaces whitespace with underscores.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[strings.ToLower(strings.TrimPrefix(item, "."))] = struct{}{}
	}
	return set
}
