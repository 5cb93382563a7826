package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/enum"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/internal/utils"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{
		db: db,
	}
}

func storeErr(err error, msg string) error {
	return triageerrors.Mark(errors.Wrap(err, msg), triageerrors.ErrStoreIO)
}

var onMessageIDConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "message_id"}},
	DoNothing: true,
}

// Upsert inserts the email unless its message id is already stored.
// A duplicate is reported as inserted=false with a nil error.
func (r *emailRepository) Upsert(ctx context.Context, email *models.Email) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Upsert")
	defer span.Finish()
	tracing.SetDefaultRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, email.MessageID)

	inserted, err := r.insertIfAbsent(r.db.WithContext(ctx), email)
	if err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}
	span.SetTag("duplicate", !inserted)
	return inserted, nil
}

// UpsertWithAttachments stores the email and its attachments in one
// transaction. Attachments of an already stored email are not written again.
func (r *emailRepository) UpsertWithAttachments(ctx context.Context, email *models.Email, attachments []*models.EmailAttachment) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpsertWithAttachments")
	defer span.Finish()
	tracing.SetDefaultRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, email.MessageID)
	span.SetTag("attachments", len(attachments))

	var inserted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = r.insertIfAbsent(tx, email)
		if err != nil || !inserted {
			return err
		}
		attachmentRepo := NewEmailAttachmentRepository(tx)
		for _, attachment := range attachments {
			attachment.MessageID = email.MessageID
			if err := attachmentRepo.Create(ctx, attachment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		if !errors.Is(err, triageerrors.ErrStoreIO) && !errors.Is(err, triageerrors.ErrInvalidInput) {
			err = storeErr(err, "transaction failed")
		}
		return false, err
	}

	span.SetTag("duplicate", !inserted)
	return inserted, nil
}

func (r *emailRepository) insertIfAbsent(db *gorm.DB, email *models.Email) (bool, error) {
	if email.MessageID == "" {
		return false, errors.Wrap(triageerrors.ErrInvalidInput, "message id is empty")
	}

	result := db.Clauses(onMessageIDConflict).Create(email)
	if result.Error != nil {
		return false, storeErr(result.Error, "failed to insert email")
	}
	return result.RowsAffected > 0, nil
}

// GetByMessageID retrieves an email by its Message-ID header
func (r *emailRepository) GetByMessageID(ctx context.Context, messageID string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByMessageID")
	defer span.Finish()
	tracing.SetDefaultRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, messageID)

	var email models.Email
	if err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, triageerrors.ErrEmailNotFound
		}
		tracing.TraceErr(span, err)
		return nil, storeErr(err, "failed to get email")
	}
	return &email, nil
}

func (r *emailRepository) ListUnprocessed(ctx context.Context) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListUnprocessed")
	defer span.Finish()
	tracing.SetDefaultRepositorySpanTags(ctx, span)

	var emails []*models.Email
	if err := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("received_at ASC").
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, storeErr(err, "failed to list unprocessed emails")
	}

	span.SetTag("count", len(emails))
	return emails, nil
}

func (r *emailRepository) ListByStatus(ctx context.Context, status enum.EmailStatus) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListByStatus")
	defer span.Finish()
	tracing.SetDefaultRepositorySpanTags(ctx, span)
	span.SetTag("status", status.String())

	var emails []*models.Email
	if err := r.db.WithContext(ctx).
		Where("status = ?", status.String()).
		Order("received_at ASC").
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, storeErr(err, "failed to list emails by status")
	}

	span.SetTag("count", len(emails))
	return emails, nil
}

// MarkProcessed sets processed, processed_at and status in a single
// statement for one message.
func (r *emailRepository) MarkProcessed(ctx context.Context, messageID string, status enum.EmailStatus) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.MarkProcessed")
	defer span.Finish()
	tracing.SetDefaultRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, messageID)
	span.SetTag("status", status.String())

	if !status.IsValid() {
		return errors.Wrapf(triageerrors.ErrInvalidInput, "unknown status %q", status)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("message_id = ?", messageID).
		Updates(processedColumns(status))
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return storeErr(result.Error, "failed to mark email processed")
	}
	if result.RowsAffected == 0 {
		return triageerrors.ErrEmailNotFound
	}
	return nil
}

// MarkReviewed re-tags an email that is currently awaiting review.
func (r *emailRepository) MarkReviewed(ctx context.Context, messageID string, status enum.EmailStatus) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.MarkReviewed")
	defer span.Finish()
	tracing.SetDefaultRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, messageID)
	span.SetTag("status", status.String())

	if !status.IsValid() {
		return errors.Wrapf(triageerrors.ErrInvalidInput, "unknown status %q", status)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("message_id = ? AND status = ?", messageID, enum.EmailStatusAwaitingReview.String()).
		Updates(processedColumns(status))
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return storeErr(result.Error, "failed to update reviewed email")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// nothing matched: tell a missing email apart from one in another status
	if _, err := r.GetByMessageID(ctx, messageID); err != nil {
		return err
	}
	return triageerrors.ErrNotAwaitingReview
}

func processedColumns(status enum.EmailStatus) map[string]interface{} {
	return map[string]interface{}{
		"processed":    true,
		"processed_at": utils.Now(),
		"status":       status.String(),
	}
}

func (r *emailRepository) CountByState(ctx context.Context) (*dto.StoreStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.CountByState")
	defer span.Finish()
	tracing.SetDefaultRepositorySpanTags(ctx, span)

	stats := &dto.StoreStats{ByStatus: make(map[string]int64)}

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Email{}).Count(&stats.Total).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, storeErr(err, "failed to count emails")
	}
	if err := db.Model(&models.Email{}).Where("processed = ?", false).Count(&stats.Unprocessed).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, storeErr(err, "failed to count unprocessed emails")
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.Email{}).
		Select("status, count(*) as count").
		Where("status IS NOT NULL").
		Group("status").
		Scan(&rows).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, storeErr(err, "failed to count emails by status")
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
	}

	return stats, nil
}
