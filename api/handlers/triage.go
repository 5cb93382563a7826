package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/tracing"
)

type TriageHandler struct {
	log    logger.Logger
	triage interfaces.TriageService
	imap   interfaces.IMAPService
}

func NewTriageHandler(log logger.Logger, triage interfaces.TriageService, imap interfaces.IMAPService) *TriageHandler {
	return &TriageHandler{
		log:    log,
		triage: triage,
		imap:   imap,
	}
}

// Process runs one triage round synchronously.
func (h *TriageHandler) Process() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "TriageHandler.Process")
		defer span.Finish()
		tracing.TagComponentRest(span)

		result, err := h.triage.RunRound(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			h.log.Errorf("triage round failed: %v", err)

			body := gin.H{"path": "", "success": false, "error": err.Error()}
			if result != nil {
				body["path"] = result.Path
				body["classified"] = result.Classified
				body["marked"] = result.Marked
				body["failed"] = result.Failed
			}
			c.JSON(statusForError(err), body)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// FetchEmail pulls unseen messages from the configured mailbox.
func (h *TriageHandler) FetchEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "TriageHandler.FetchEmail")
		defer span.Finish()
		tracing.TagComponentRest(span)

		result, err := h.imap.Fetch(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			h.log.Errorf("imap fetch failed: %v", err)
			c.JSON(statusForError(err), fetchBody(false, err.Error(), result))
			return
		}

		message := "Emails fetched successfully"
		if result.Skipped {
			message = "IMAP is not configured, fetch skipped"
		}
		c.JSON(http.StatusOK, fetchBody(true, message, result))
	}
}

func fetchBody(success bool, message string, result *dto.FetchResult) gin.H {
	body := gin.H{"success": success, "message": message}
	if result == nil {
		return body
	}
	body["skipped"] = result.Skipped
	body["found"] = result.Found
	body["stored"] = result.Stored
	body["duplicates"] = result.Duplicates
	body["failed"] = result.Failed
	body["attachments_stored"] = result.AttachmentsStored
	body["attachments_skipped"] = result.AttachmentsSkipped
	return body
}
