package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/internal/enum"
	"github.com/customeros/mailtriage/internal/models"
)

type EmailRepository struct {
	mock.Mock
}

func (m *EmailRepository) Upsert(ctx context.Context, email *models.Email) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *EmailRepository) UpsertWithAttachments(ctx context.Context, email *models.Email, attachments []*models.EmailAttachment) (bool, error) {
	args := m.Called(ctx, email, attachments)
	return args.Bool(0), args.Error(1)
}

func (m *EmailRepository) GetByMessageID(ctx context.Context, messageID string) (*models.Email, error) {
	args := m.Called(ctx, messageID)
	email, _ := args.Get(0).(*models.Email)
	return email, args.Error(1)
}

func (m *EmailRepository) ListUnprocessed(ctx context.Context) ([]*models.Email, error) {
	args := m.Called(ctx)
	emails, _ := args.Get(0).([]*models.Email)
	return emails, args.Error(1)
}

func (m *EmailRepository) ListByStatus(ctx context.Context, status enum.EmailStatus) ([]*models.Email, error) {
	args := m.Called(ctx, status)
	emails, _ := args.Get(0).([]*models.Email)
	return emails, args.Error(1)
}

func (m *EmailRepository) MarkProcessed(ctx context.Context, messageID string, status enum.EmailStatus) error {
	args := m.Called(ctx, messageID, status)
	return args.Error(0)
}

func (m *EmailRepository) MarkReviewed(ctx context.Context, messageID string, status enum.EmailStatus) error {
	args := m.Called(ctx, messageID, status)
	return args.Error(0)
}

func (m *EmailRepository) CountByState(ctx context.Context) (*dto.StoreStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*dto.StoreStats)
	return stats, args.Error(1)
}

type EmailAttachmentRepository struct {
	mock.Mock
}

func (m *EmailAttachmentRepository) Create(ctx context.Context, attachment *models.EmailAttachment) error {
	args := m.Called(ctx, attachment)
	return args.Error(0)
}

func (m *EmailAttachmentRepository) ListByMessageID(ctx context.Context, messageID string) ([]*models.EmailAttachment, error) {
	args := m.Called(ctx, messageID)
	attachments, _ := args.Get(0).([]*models.EmailAttachment)
	return attachments, args.Error(1)
}
