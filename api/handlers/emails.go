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

type EmailsHandler struct {
	log     logger.Logger
	inbound interfaces.InboundService
}

func NewEmailsHandler(log logger.Logger, inbound interfaces.InboundService) *EmailsHandler {
	return &EmailsHandler{
		log:     log,
		inbound: inbound,
	}
}

// Receive accepts a single email from the inbound webhook. Redelivery of a
// known message is answered with success as well.
func (h *EmailsHandler) Receive() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.Receive")
		defer span.Finish()
		tracing.TagComponentRest(span)

		var inbound dto.InboundEmail
		if err := c.ShouldBindJSON(&inbound); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		result, err := h.inbound.Receive(ctx, inbound)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(statusForError(err), gin.H{"success": false, "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"message_id": result.MessageID,
			"duplicate":  result.Duplicate,
		})
	}
}
