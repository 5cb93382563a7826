package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/enum"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/tracing"
)

type ReviewHandler struct {
	log         logger.Logger
	review      interfaces.ReviewService
	attachments interfaces.EmailAttachmentRepository
}

func NewReviewHandler(log logger.Logger, review interfaces.ReviewService, attachments interfaces.EmailAttachmentRepository) *ReviewHandler {
	return &ReviewHandler{
		log:         log,
		review:      review,
		attachments: attachments,
	}
}

type assignRequest struct {
	Status string `json:"status" binding:"required"`
}

func toView(e *models.Email) dto.EmailView {
	return dto.EmailView{
		MessageID: e.MessageID,
		Subject:   e.Subject,
		Sender:    e.Sender,
		Date:      e.Date,
		Body:      e.Body,
	}
}

func toAttachmentViews(attachments []*models.EmailAttachment) []dto.AttachmentView {
	views := make([]dto.AttachmentView, 0, len(attachments))
	for _, a := range attachments {
		views = append(views, dto.AttachmentView{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return views
}

func (h *ReviewHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ReviewHandler.List")
		defer span.Finish()
		tracing.TagComponentRest(span)

		emails, err := h.review.Pending(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		views := make([]dto.EmailView, 0, len(emails))
		for _, e := range emails {
			views = append(views, toView(e))
		}
		c.JSON(http.StatusOK, views)
	}
}

func (h *ReviewHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ReviewHandler.Get")
		defer span.Finish()
		tracing.TagComponentRest(span)

		email, err := h.review.Get(ctx, c.Param("message_id"))
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		view := toView(email)
		if h.attachments != nil {
			attachments, err := h.attachments.ListByMessageID(ctx, email.MessageID)
			if err != nil {
				tracing.TraceErr(span, err)
				c.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			view.Attachments = toAttachmentViews(attachments)
		}
		c.JSON(http.StatusOK, view)
	}
}

func (h *ReviewHandler) Assign() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ReviewHandler.Assign")
		defer span.Finish()
		tracing.TagComponentRest(span)

		var req assignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		messageID := c.Param("message_id")
		status := enum.EmailStatus(req.Status)
		if err := h.review.Assign(ctx, messageID, status); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(statusForError(err), gin.H{"success": false, "error": err.Error()})
			return
		}

		h.log.Infof("review assigned %s to %s over http", status, messageID)
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"message_id": messageID,
			"status":     status,
		})
	}
}
