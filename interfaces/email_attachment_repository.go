package interfaces

import (
	"context"

	"github.com/customeros/mailtriage/internal/models"
)

type EmailAttachmentRepository interface {
	Create(ctx context.Context, attachment *models.EmailAttachment) error
	ListByMessageID(ctx context.Context, messageID string) ([]*models.EmailAttachment, error)
}
