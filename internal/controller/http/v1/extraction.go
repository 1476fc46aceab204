package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"audio_extraction/entity"
	"audio_extraction/pkg/logger"
)

// responsePolicy writes a successful conversion back to the client.
type responsePolicy func(c *gin.Context, artifact *entity.AudioArtifact)

type extractionRoutes struct {
	u    entity.ExtractionUsecase
	l    logger.Interface
	opts Options
}

type extractAudioResponse struct {
	Message   string `json:"message"    example:"Audio extracted successfully"`
	AudioFile string `json:"audio_file" example:"outputs/4f0c..._clip.mp3"`
}

func newExtractionRoutes(handler *gin.RouterGroup, u entity.ExtractionUsecase, l logger.Interface, opts Options) {
	r := &extractionRoutes{u, l, opts}

	handler.POST("/convert", r.convert)
	handler.POST("/extract-audio", r.extractAudio)
}

// @Summary     Convert video to audio
// @Description Upload a video file and convert it to audio in the specified format
// @ID          convert
// @Tags        extraction
// @Accept      multipart/form-data
// @Produce     audio/mpeg,audio/wav,audio/ogg,audio/aac
// @Param       file   formData file   true  "The video file to convert"
// @Param       format formData string false "Output audio format (mp3, wav, ogg, aac)"
// @Success     200 {file} binary
// @Failure     400 {object} response
// @Failure     500 {object} response
// @Router      /convert [post]
func (r *extractionRoutes) convert(c *gin.Context) {
	r.handle(c, "convert", "format", r.download)
}

// @Summary     Extract audio track
// @Description Upload a video file, extract its audio and report where it was stored
// @ID          extract-audio
// @Tags        extraction
// @Accept      multipart/form-data
// @Produce     json
// @Param       file          formData file   true  "The video file"
// @Param       output_format formData string false "Output audio format (mp3, wav, ogg, aac)"
// @Success     200 {object} extractAudioResponse
// @Failure     400 {object} response
// @Failure     500 {object} response
// @Router      /extract-audio [post]
func (r *extractionRoutes) extractAudio(c *gin.Context) {
	r.handle(c, "extract-audio", "output_format", r.describe)
}

func (r *extractionRoutes) handle(c *gin.Context, route, formatField string, respond responsePolicy) {
	ctx, span := otel.Tracer(traceName).Start(c.Request.Context(), route+"-api")
	defer span.End()

	if r.opts.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.opts.MaxUploadSize)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorResponse(c, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
			return
		}
		r.l.Warn("http - v1 - %s: %s", route, err.Error())
		errorResponse(c, http.StatusBadRequest, "No file provided")
		return
	}

	format := c.DefaultPostForm(formatField, r.opts.DefaultFormat)

	span.SetAttributes(attribute.String("filename", fileHeader.Filename))
	span.SetAttributes(attribute.String("format", format))

	file, err := fileHeader.Open()
	if err != nil {
		r.l.Error(err, "http - v1 - %s", route)
		errorResponse(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	artifact, err := r.u.Convert(ctx, entity.ConversionRequest{
		Format: format,
		Upload: entity.Upload{
			Filename: fileHeader.Filename,
			Body:     file,
			Size:     fileHeader.Size,
		},
	})
	if err != nil {
		r.l.Error(err, "http - v1 - %s", route)
		conversionErrorResponse(c, err)
		return
	}

	respond(c, artifact)
}

// download streams the artifact as an attachment.
func (r *extractionRoutes) download(c *gin.Context, artifact *entity.AudioArtifact) {
	c.Header("Content-Type", artifact.MediaType)
	c.FileAttachment(artifact.Path, artifact.Filename)

	if !r.opts.DeleteAfterSend {
		return
	}
	if err := r.u.Discard(c.Request.Context(), artifact); err != nil {
		r.l.Error(err, "http - v1 - discard artifact")
	}
}

// describe reports where the artifact was stored.
func (r *extractionRoutes) describe(c *gin.Context, artifact *entity.AudioArtifact) {
	c.JSON(http.StatusOK, extractAudioResponse{
		Message:   "Audio extracted successfully",
		AudioFile: artifact.Path,
	})
}
