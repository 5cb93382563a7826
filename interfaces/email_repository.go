package interfaces

import (
	"context"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/internal/enum"
	"github.com/customeros/mailtriage/internal/models"
)

type EmailRepository interface {
	Upsert(ctx context.Context, email *models.Email) (bool, error)
	UpsertWithAttachments(ctx context.Context, email *models.Email, attachments []*models.EmailAttachment) (bool, error)
	GetByMessageID(ctx context.Context, messageID string) (*models.Email, error)
	ListUnprocessed(ctx context.Context) ([]*models.Email, error)
	ListByStatus(ctx context.Context, status enum.EmailStatus) ([]*models.Email, error)
	MarkProcessed(ctx context.Context, messageID string, status enum.EmailStatus) error
	MarkReviewed(ctx context.Context, messageID string, status enum.EmailStatus) error
	CountByState(ctx context.Context) (*dto.StoreStats, error)
}
