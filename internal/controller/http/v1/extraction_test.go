package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"audio_extraction/entity"
	"audio_extraction/internal/extraction"
	"audio_extraction/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type usecaseStub struct {
	req       entity.ConversionRequest
	body      []byte
	artifact  *entity.AudioArtifact
	err       error
	discarded []*entity.AudioArtifact
}

func (u *usecaseStub) Convert(_ context.Context, req entity.ConversionRequest) (*entity.AudioArtifact, error) {
	u.req = req
	u.body, _ = io.ReadAll(req.Upload.Body)
	return u.artifact, u.err
}

func (u *usecaseStub) Discard(_ context.Context, a *entity.AudioArtifact) error {
	u.discarded = append(u.discarded, a)
	return os.Remove(a.Path)
}

// fileExtractor writes a fixed payload to the output path.
type fileExtractor struct {
	payload []byte
	err     error
}

func (f *fileExtractor) Extract(_ context.Context, _, output, _ string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, f.payload, 0o600)
}

func newEngine(u entity.ExtractionUsecase, opts Options) *gin.Engine {
	engine := gin.New()
	NewRouter(engine, logger.NewWithWriter("error", io.Discard), u, opts)
	return engine
}

func defaultOptions() Options {
	return Options{DefaultFormat: "mp3", MaxUploadSize: 1 << 20}
}

type formFile struct {
	name    string
	content []byte
}

func multipartRequest(t *testing.T, path string, file *formFile, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		part, err := w.CreateFormFile("file", file.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(file.content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestHealthAndWelcome(t *testing.T) {
	engine := newEngine(&usecaseStub{}, defaultOptions())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"status":"healthy"}` {
		t.Fatalf("unexpected health body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if body["message"] != welcomeMessage {
		t.Fatalf("unexpected welcome message %q", body["message"])
	}
}

func TestConvertDownloadsArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tok_clip.mp3")
	if err := os.WriteFile(path, []byte("ID3-audio"), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	u := &usecaseStub{artifact: &entity.AudioArtifact{Token: "tok", Path: path, MediaType: "audio/mp3", Filename: "clip.mp3", Format: "mp3"}}
	engine := newEngine(u, defaultOptions())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, "/convert", &formFile{"clip.mp4", []byte("video")}, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mp3" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="clip.mp3"` {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if rec.Body.String() != "ID3-audio" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if u.req.Format != "mp3" {
		t.Fatalf("expected default format mp3, got %q", u.req.Format)
	}
	if u.req.Upload.Filename != "clip.mp4" || string(u.body) != "video" {
		t.Fatalf("unexpected upload forwarded: %q %q", u.req.Upload.Filename, u.body)
	}
	if len(u.discarded) != 0 {
		t.Fatal("artifact must be kept when delete-after-send is off")
	}
}

func TestConvertDeleteAfterSend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tok_clip.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	u := &usecaseStub{artifact: &entity.AudioArtifact{Path: path, MediaType: "audio/wav", Filename: "clip.wav", Format: "wav"}}
	opts := defaultOptions()
	opts.DeleteAfterSend = true
	engine := newEngine(u, opts)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, "/convert", &formFile{"clip.mp4", []byte("video")}, map[string]string{"format": "wav"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if u.req.Format != "wav" {
		t.Fatalf("expected format wav, got %q", u.req.Format)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected artifact to be deleted after send, stat err = %v", err)
	}
}

func TestExtractAudioReturnsJSON(t *testing.T) {
	u := &usecaseStub{artifact: &entity.AudioArtifact{Path: "outputs/tok_clip.ogg", MediaType: "audio/ogg", Filename: "clip.ogg", Format: "ogg"}}
	engine := newEngine(u, defaultOptions())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, "/extract-audio", &formFile{"clip.mkv", []byte("video")}, map[string]string{"output_format": "ogg", "format": "wav"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body extractAudioResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Audio extracted successfully" || body.AudioFile != "outputs/tok_clip.ogg" {
		t.Fatalf("unexpected body %+v", body)
	}
	if u.req.Format != "ogg" {
		t.Fatalf("expected output_format to drive the format, got %q", u.req.Format)
	}
}

func TestMissingFile(t *testing.T) {
	for _, path := range []string{"/convert", "/extract-audio"} {
		engine := newEngine(&usecaseStub{}, defaultOptions())

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, multipartRequest(t, path, nil, map[string]string{"format": "mp3"}))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
		if msg := decodeError(t, rec); msg != "No file provided" {
			t.Fatalf("%s: unexpected error %q", path, msg)
		}
	}
}

func TestEmptyFileValidatedAfterFormat(t *testing.T) {
	extractor := &fileExtractor{payload: []byte("audio")}
	u, opts := newRealUsecase(t, extractor)
	engine := newEngine(u, defaultOptions())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, "/convert", &formFile{"clip.mp4", nil}, map[string]string{"format": "flac"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Unsupported output format: flac" {
		t.Fatalf("expected the format to be checked first, got %q", msg)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, "/extract-audio", &formFile{"clip.mp4", nil}, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Uploaded file is empty" {
		t.Fatalf("unexpected error %q", msg)
	}

	if n := countFiles(t, opts.UploadDir); n != 0 {
		t.Fatalf("expected scratch dir to be empty, found %d files", n)
	}
	if n := countFiles(t, opts.OutputDir); n != 0 {
		t.Fatalf("expected output dir to be empty, found %d files", n)
	}
}

func TestConversionErrorStatusCodes(t *testing.T) {
	cases := []struct {
		kind entity.ErrorKind
		code int
	}{
		{entity.KindUnsupportedFormat, http.StatusBadRequest},
		{entity.KindInvalidInputFormat, http.StatusBadRequest},
		{entity.KindUploadPersistFailure, http.StatusInternalServerError},
		{entity.KindInputNotFound, http.StatusInternalServerError},
		{entity.KindNoAudioTrack, http.StatusInternalServerError},
		{entity.KindExtractionFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		u := &usecaseStub{err: entity.NewConversionError(tc.kind, nil, "boom %s", tc.kind)}
		engine := newEngine(u, defaultOptions())

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, multipartRequest(t, "/convert", &formFile{"clip.mp4", []byte("video")}, nil))

		if rec.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.kind, tc.code, rec.Code)
		}
		if msg := decodeError(t, rec); msg != "boom "+string(tc.kind) {
			t.Fatalf("%s: unexpected error %q", tc.kind, msg)
		}
	}
}

func TestUnclassifiedErrorIsServerError(t *testing.T) {
	engine := newEngine(&usecaseStub{err: errors.New("unexpected")}, defaultOptions())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, "/extract-audio", &formFile{"clip.mp4", []byte("video")}, nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func newRealUsecase(t *testing.T, extractor entity.AudioExtractor) (*extraction.ExtractionUsecase, extraction.Options) {
	t.Helper()
	root := t.TempDir()
	opts := extraction.Options{
		UploadDir:              filepath.Join(root, "uploads"),
		OutputDir:              filepath.Join(root, "outputs"),
		AllowedInputExtensions: []string{"mp4", "avi", "mov", "mkv", "webm"},
		AllowedOutputFormats:   []string{"mp3", "wav", "ogg", "aac"},
	}
	u, err := extraction.NewExtractionUsecase(opts, extractor, nil, nil, logger.NewWithWriter("error", io.Discard))
	if err != nil {
		t.Fatalf("NewExtractionUsecase: %v", err)
	}
	return u, opts
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	return len(entries)
}

func TestConvertEndToEnd(t *testing.T) {
	u, opts := newRealUsecase(t, &fileExtractor{payload: []byte("encoded-audio")})
	engine := newEngine(u, defaultOptions())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, "/convert", &formFile{"family video.MOV", []byte("video")}, map[string]string{"format": "AAC"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/aac" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="family_video.aac"` {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if rec.Body.String() != "encoded-audio" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if n := countFiles(t, opts.UploadDir); n != 0 {
		t.Fatalf("expected scratch dir to be empty, found %d files", n)
	}
}

func TestEndToEndFailuresLeaveNoScratch(t *testing.T) {
	noAudio := entity.NewConversionError(entity.KindNoAudioTrack, nil, "Error: No audio track found in 'clip.mp4'")
	u, opts := newRealUsecase(t, &fileExtractor{err: noAudio})
	engine := newEngine(u, defaultOptions())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, "/extract-audio", &formFile{"clip.mp4", []byte("video")}, nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, "/convert", &formFile{"clip.mp4", []byte("video")}, map[string]string{"format": "flac"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, "/convert", &formFile{"notes.txt", []byte("text")}, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	if n := countFiles(t, opts.UploadDir); n != 0 {
		t.Fatalf("expected scratch dir to be empty, found %d files", n)
	}
	if n := countFiles(t, opts.OutputDir); n != 0 {
		t.Fatalf("expected output dir to be empty, found %d files", n)
	}
}
