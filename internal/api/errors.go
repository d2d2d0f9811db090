package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"acadence/internal/school"
)

func statusOf(kind school.Kind) int {
	switch kind {
	case school.KindValidation, school.KindConflict:
		return http.StatusBadRequest
	case school.KindPermission:
		return http.StatusForbidden
	case school.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {message, error?} and aborts the chain. Causes of
// internal failures are only exposed outside release mode.
func (h *handler) fail(c *gin.Context, err error) {
	var typed *school.Error
	if !errors.As(err, &typed) {
		typed = &school.Error{Kind: school.KindPersistence, Message: "unexpected error", Err: err}
	}
	status := statusOf(typed.Kind)
	body := gin.H{"message": typed.Message}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		body["message"] = "internal server error"
		if gin.Mode() != gin.ReleaseMode && typed.Err != nil {
			body["error"] = typed.Message + ": " + typed.Err.Error()
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func (h *handler) badRequest(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid request body", "error": err.Error()})
}
