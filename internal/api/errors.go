package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tillworks/till/internal/pos"
)

// respondError maps a domain error code onto an HTTP status. Errors
// without a code are store failures: they are logged with detail and
// surfaced as an opaque 500.
func (s *Server) respondError(c *gin.Context, err error) {
	code := pos.CodeOf(err)

	var status int
	switch code {
	case pos.CodeNotFound:
		status = http.StatusNotFound
	case pos.CodeInvalidInput:
		status = http.StatusBadRequest
	case pos.CodeInvalidState:
		status = http.StatusConflict
	case pos.CodeInsufficientPayment:
		status = http.StatusPaymentRequired
	default:
		s.log.Error("store failure", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error(), "code": string(code)})
}

// badRequest rejects malformed request bodies and parameters.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(pos.CodeInvalidInput)})
}

// pathUUID parses a UUID path parameter, responding 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, pos.InvalidInputf("invalid %s: %v", name, err))
		return uuid.UUID{}, false
	}
	return id, true
}
