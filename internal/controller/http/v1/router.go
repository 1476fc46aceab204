// Package v1 implements routing paths. Each services in own file.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"audio_extraction/entity"
	"audio_extraction/pkg/logger"
)

const (
	traceName = "http-v1"

	welcomeMessage = "Welcome to the Video to Audio Conversion API! Use /convert to extract audio from videos."
)

// Options tunes the extraction routes.
type Options struct {
	DefaultFormat   string
	DeleteAfterSend bool
	MaxUploadSize   int64
}

// NewRouter -.
func NewRouter(handler *gin.Engine, l logger.Interface, u entity.ExtractionUsecase, opts Options) {
	// Options
	handler.Use(gin.Logger())
	handler.Use(gin.Recovery())

	// Swagger
	swaggerHandler := ginSwagger.DisablingWrapHandler(swaggerFiles.Handler, "DISABLE_SWAGGER_HTTP_HANDLER")
	handler.GET("/swagger/*any", swaggerHandler)

	handler.GET("/health", health)
	handler.GET("/", welcome)

	// Routers
	h := handler.Group("/")
	{
		newExtractionRoutes(h, u, l, opts)
	}
}

// @Summary     Health check endpoint
// @Description Returns the health status of the API
// @ID          health
// @Tags        service
// @Produce     json
// @Success     200 {object} map[string]string
// @Router      /health [get]
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// @Summary     Welcome endpoint
// @Description Displays a welcome message for the API
// @ID          welcome
// @Tags        service
// @Produce     json
// @Success     200 {object} map[string]string
// @Router      / [get]
func welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}
