package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/tracing"
)

type emailAttachmentRepository struct {
	db *gorm.DB
}

func NewEmailAttachmentRepository(db *gorm.DB) interfaces.EmailAttachmentRepository {
	return &emailAttachmentRepository{
		db: db,
	}
}

// Create adds a new attachment to the database
func (r *emailAttachmentRepository) Create(ctx context.Context, attachment *models.EmailAttachment) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.Create")
	defer span.Finish()
	tracing.SetDefaultRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, attachment.MessageID)

	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		tracing.TraceErr(span, err)
		return storeErr(err, "failed to insert attachment")
	}
	return nil
}

// ListByMessageID retrieves all attachments for a specific email
func (r *emailAttachmentRepository) ListByMessageID(ctx context.Context, messageID string) ([]*models.EmailAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.ListByMessageID")
	defer span.Finish()
	tracing.SetDefaultRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, messageID)

	var attachments []*models.EmailAttachment
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, storeErr(err, "failed to list attachments")
	}
	return attachments, nil
}
