package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"audio_extraction/entity"
)

type response struct {
	Error string `json:"error" example:"message"`
}

func errorResponse(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, response{msg})
}

// conversionErrorResponse maps client-side kinds to 400 and everything else to 500.
func conversionErrorResponse(c *gin.Context, err error) {
	var convErr *entity.ConversionError
	if !errors.As(err, &convErr) {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	code := http.StatusInternalServerError
	if convErr.IsClientError() {
		code = http.StatusBadRequest
	}
	errorResponse(c, code, convErr.Error())
}
