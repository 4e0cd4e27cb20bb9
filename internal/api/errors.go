package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"learninghouse/internal/fault"
)

var statusByKind = map[fault.Kind]int{
	fault.NoConfiguration:     http.StatusNotFound,
	fault.ConfigurationExists: http.StatusConflict,
	fault.NotEnoughData:       http.StatusAccepted,
	fault.NotTrained:          http.StatusNotFound,
	fault.NotActual:           http.StatusPreconditionRequired,
	fault.BadRequest:          http.StatusBadRequest,
	fault.NoSensor:            http.StatusNotFound,
	fault.SensorExists:        http.StatusConflict,
	fault.NoAPIKey:            http.StatusNotFound,
	fault.APIKeyExists:        http.StatusConflict,
	fault.Unauthorized:        http.StatusUnauthorized,
	fault.Forbidden:           http.StatusForbidden,
	fault.Security:            http.StatusForbidden,
	fault.Unknown:             http.StatusInternalServerError,
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error       fault.Kind `json:"error"`
	Description string     `json:"description"`
}

func statusOf(kind fault.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	kind := fault.KindOf(err)
	if kind == fault.Unknown {
		h.log.WithError(err).
			WithField("method", c.Request.Method).
			WithField("path", c.Request.URL.Path).
			Error("unhandled error")
	}

	c.AbortWithStatusJSON(statusOf(kind), ErrorResponse{
		Error:       kind,
		Description: fault.Describe(err),
	})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.respondError(c, fault.New(fault.BadRequest, "", err.Error()))
}
