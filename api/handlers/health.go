package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/tracing"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

type StatusHandler struct {
	emailRepo interfaces.EmailRepository
	imap      interfaces.IMAPService
}

func NewStatusHandler(emailRepo interfaces.EmailRepository, imap interfaces.IMAPService) *StatusHandler {
	return &StatusHandler{
		emailRepo: emailRepo,
		imap:      imap,
	}
}

// Status reports store counts and whether mailbox fetching is enabled.
func (h *StatusHandler) Status() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "StatusHandler.Status")
		defer span.Finish()
		tracing.TagComponentRest(span)

		stats, err := h.emailRepo.CountByState(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"emails":          stats,
			"imap_configured": h.imap != nil && h.imap.Configured(),
		})
	}
}
