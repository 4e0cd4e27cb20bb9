package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"learninghouse/internal/auth"
	"learninghouse/internal/fault"
)

const (
	roleKey      = "role"
	apiKeyHeader = "X-API-Key"
)

// Endpoints reachable while the admin still uses the initial password.
var initialPasswordEndpoints = map[string]bool{
	"/api/auth/token":    true,
	"/api/auth/password": true,
	"/api/versions":      true,
	"/metrics":           true,
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		h.log.WithField("method", c.Request.Method).
			WithField("path", c.Request.URL.Path).
			WithField("status", c.Writer.Status()).
			WithField("duration", time.Since(start)).
			Debug("request")
	}
}

// processTime reports the handler duration in seconds in the X-Process-Time
// header. The header is set when the status is written.
func processTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &timedWriter{ResponseWriter: c.Writer, start: time.Now()}
		c.Next()
	}
}

type timedWriter struct {
	gin.ResponseWriter
	start time.Time
}

func (w *timedWriter) WriteHeader(code int) {
	if !w.Written() {
		w.Header().Set("X-Process-Time", formatSeconds(time.Since(w.start)))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.log.WithField("panic", recovered).
			WithField("path", c.Request.URL.Path).
			Error("recovered from panic")
		c.AbortWithStatusJSON(statusOf(fault.Unknown), ErrorResponse{
			Error:       fault.Unknown,
			Description: fault.Describe(fault.ErrUnknown),
		})
	})
}

func (h *Handler) enforceInitialPasswordChange() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.auth.InitialPassword() && !initialPasswordEndpoints[c.Request.URL.Path] {
			h.log.Warn("initial admin password still in use, change it via /api/auth/password")
			h.respondError(c, fault.New(fault.Unauthorized, "", "Change initial password."))
			return
		}
		c.Next()
	}
}

// require authorizes the request through a bearer token or an API key and
// rejects it unless the resolved role grants the given one.
func (h *Handler) require(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted, err := h.auth.Authorize(bearerToken(c), c.GetHeader(apiKeyHeader))
		if err != nil {
			h.respondError(c, err)
			return
		}
		if !granted.Allows(role) {
			h.respondError(c, fault.New(fault.Forbidden, "", ""))
			return
		}

		c.Set(roleKey, granted)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
}
