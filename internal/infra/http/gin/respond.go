package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"tripnest/internal/domain/shared/fault"
)

// respondError maps the error taxonomy onto status codes. Anything outside
// the taxonomy is an internal failure and is logged, not leaked.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	kind, ok := fault.KindOf(err)
	if !ok {
		if logger != nil {
			logger.Error("request failed", "error", err, "path", c.FullPath())
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(statusFor(kind), gin.H{"error": err.Error(), "kind": string(kind)})
}

func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.Validation:
		return http.StatusBadRequest
	case fault.NotFound:
		return http.StatusNotFound
	case fault.Forbidden:
		return http.StatusForbidden
	case fault.Unavailable, fault.InvalidTransition, fault.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
