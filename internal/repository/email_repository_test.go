package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/customeros/mailtriage/internal/enum"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

func newEmail(messageID, subject string) *models.Email {
	return &models.Email{
		MessageID: messageID,
		Subject:   subject,
		Sender:    "alice@example.com",
		Date:      "Mon, 1 Jan 2024 10:00:00 +0000",
		Body:      "body of " + subject,
	}
}

func TestEmailRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewEmailRepository(setupTestDB(t))

	inserted, err := repo.Upsert(ctx, newEmail("<m1@x>", "Invoice #42"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Upsert(ctx, newEmail("<m1@x>", "Something else"))
	require.NoError(t, err)
	assert.False(t, inserted)

	stored, err := repo.GetByMessageID(ctx, "<m1@x>")
	require.NoError(t, err)
	assert.Equal(t, "Invoice #42", stored.Subject)
	assert.False(t, stored.Processed)
	assert.Nil(t, stored.ProcessedAt)
	assert.Nil(t, stored.Status)
	assert.False(t, stored.ReceivedAt.IsZero())
}

func TestEmailRepository_Upsert_EmptyMessageID(t *testing.T) {
	repo := NewEmailRepository(setupTestDB(t))

	_, err := repo.Upsert(context.Background(), newEmail("", "no id"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, triageerrors.ErrInvalidInput))
	assert.False(t, errors.Is(err, triageerrors.ErrStoreIO))
}

func TestEmailRepository_UpsertWithAttachments(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewEmailRepository(db)
	attachmentRepo := NewEmailAttachmentRepository(db)

	attachments := []*models.EmailAttachment{
		{Filename: "a.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
		{Filename: "b.txt", ContentType: "text/plain", Data: []byte("hello")},
	}
	inserted, err := repo.UpsertWithAttachments(ctx, newEmail("<m2@x>", "with files"), attachments)
	require.NoError(t, err)
	assert.True(t, inserted)

	stored, err := attachmentRepo.ListByMessageID(ctx, "<m2@x>")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, a := range stored {
		assert.Equal(t, "<m2@x>", a.MessageID)
		assert.Equal(t, len(a.Data), a.Size)
		assert.NotEmpty(t, a.ID)
	}

	// a duplicate email must not add attachments again
	inserted, err = repo.UpsertWithAttachments(ctx, newEmail("<m2@x>", "with files"), []*models.EmailAttachment{
		{Filename: "c.txt", ContentType: "text/plain", Data: []byte("again")},
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	stored, err = attachmentRepo.ListByMessageID(ctx, "<m2@x>")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestEmailRepository_GetByMessageID_NotFound(t *testing.T) {
	repo := NewEmailRepository(setupTestDB(t))

	_, err := repo.GetByMessageID(context.Background(), "<missing@x>")
	assert.ErrorIs(t, err, triageerrors.ErrEmailNotFound)
}

func TestEmailRepository_ListUnprocessed(t *testing.T) {
	ctx := context.Background()
	repo := NewEmailRepository(setupTestDB(t))

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"<c@x>", "<a@x>", "<b@x>"} {
		email := newEmail(id, id)
		email.ReceivedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := repo.Upsert(ctx, email)
		require.NoError(t, err)
	}
	require.NoError(t, repo.MarkProcessed(ctx, "<a@x>", enum.EmailStatusNewsletter))

	emails, err := repo.ListUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "<c@x>", emails[0].MessageID)
	assert.Equal(t, "<b@x>", emails[1].MessageID)
}

func TestEmailRepository_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	repo := NewEmailRepository(setupTestDB(t))

	_, err := repo.Upsert(ctx, newEmail("<m1@x>", "Invoice #42"))
	require.NoError(t, err)

	require.NoError(t, repo.MarkProcessed(ctx, "<m1@x>", enum.EmailStatusFinancial))

	stored, err := repo.GetByMessageID(ctx, "<m1@x>")
	require.NoError(t, err)
	assert.True(t, stored.Processed)
	require.NotNil(t, stored.ProcessedAt)
	assert.Equal(t, enum.EmailStatusFinancial, stored.StatusValue())
	assert.True(t, stored.IsConsistent())

	err = repo.MarkProcessed(ctx, "<missing@x>", enum.EmailStatusFinancial)
	assert.ErrorIs(t, err, triageerrors.ErrEmailNotFound)

	err = repo.MarkProcessed(ctx, "<m1@x>", enum.EmailStatus("5 - Financials"))
	assert.ErrorIs(t, err, triageerrors.ErrInvalidInput)
}

func TestEmailRepository_MarkReviewed(t *testing.T) {
	ctx := context.Background()
	repo := NewEmailRepository(setupTestDB(t))

	_, err := repo.Upsert(ctx, newEmail("<r1@x>", "please look"))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, newEmail("<r2@x>", "weekly digest"))
	require.NoError(t, err)
	require.NoError(t, repo.MarkProcessed(ctx, "<r1@x>", enum.EmailStatusAwaitingReview))
	require.NoError(t, repo.MarkProcessed(ctx, "<r2@x>", enum.EmailStatusNewsletter))

	pending, err := repo.ListByStatus(ctx, enum.EmailStatusAwaitingReview)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "<r1@x>", pending[0].MessageID)

	require.NoError(t, repo.MarkReviewed(ctx, "<r1@x>", enum.EmailStatusNeedsResponseDraft))

	stored, err := repo.GetByMessageID(ctx, "<r1@x>")
	require.NoError(t, err)
	assert.Equal(t, enum.EmailStatusNeedsResponseDraft, stored.StatusValue())
	assert.True(t, stored.IsConsistent())

	pending, err = repo.ListByStatus(ctx, enum.EmailStatusAwaitingReview)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = repo.MarkReviewed(ctx, "<r2@x>", enum.EmailStatusFinancial)
	assert.ErrorIs(t, err, triageerrors.ErrNotAwaitingReview)

	err = repo.MarkReviewed(ctx, "<missing@x>", enum.EmailStatusFinancial)
	assert.ErrorIs(t, err, triageerrors.ErrEmailNotFound)
}

func TestEmailRepository_CountByState(t *testing.T) {
	ctx := context.Background()
	repo := NewEmailRepository(setupTestDB(t))

	for _, id := range []string{"<1@x>", "<2@x>", "<3@x>", "<4@x>"} {
		_, err := repo.Upsert(ctx, newEmail(id, id))
		require.NoError(t, err)
	}
	require.NoError(t, repo.MarkProcessed(ctx, "<1@x>", enum.EmailStatusFinancial))
	require.NoError(t, repo.MarkProcessed(ctx, "<2@x>", enum.EmailStatusFinancial))
	require.NoError(t, repo.MarkProcessed(ctx, "<3@x>", enum.EmailStatusNewsletter))

	stats, err := repo.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.Unprocessed)
	assert.Equal(t, map[string]int64{
		"financial":  2,
		"newsletter": 1,
	}, stats.ByStatus)
}

func TestProperty_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewEmailRepository(db)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	letters := []string{"a", "b", "c", "d", "e"}
	round := 0
	properties.Property("one row per distinct message id", prop.ForAll(
		func(picks []int) bool {
			round++
			prefix := fmt.Sprintf("r%d-", round)

			distinct := make(map[string]struct{})
			for _, pick := range picks {
				id := letters[pick]
				messageID := "<" + prefix + id + "@x>"
				inserted, err := repo.Upsert(ctx, newEmail(messageID, id))
				if err != nil {
					return false
				}
				_, seen := distinct[messageID]
				if inserted == seen {
					return false
				}
				distinct[messageID] = struct{}{}
			}

			var count int64
			if err := db.Model(&models.Email{}).Where("message_id LIKE ?", "<"+prefix+"%").Count(&count).Error; err != nil {
				return false
			}
			return count == int64(len(distinct))
		},
		gen.SliceOf(gen.IntRange(0, len(letters)-1)),
	))

	properties.TestingRun(t)
}

func TestProperty_ProcessedMarkersStayConsistent(t *testing.T) {
	ctx := context.Background()
	repo := NewEmailRepository(setupTestDB(t))

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	statuses := enum.AllEmailStatuses()

	round := 0
	properties.Property("processed, processed_at and status move together", prop.ForAll(
		func(mark bool, idx int) bool {
			status := statuses[idx]
			round++
			messageID := utils.SyntheticMessageID(uint32(round), "prop.test")
			if _, err := repo.Upsert(ctx, newEmail(messageID, "prop")); err != nil {
				return false
			}
			if mark {
				if err := repo.MarkProcessed(ctx, messageID, status); err != nil {
					return false
				}
			}
			stored, err := repo.GetByMessageID(ctx, messageID)
			if err != nil {
				return false
			}
			return stored.IsConsistent() && stored.Processed == mark
		},
		gen.Bool(),
		gen.IntRange(0, len(statuses)-1),
	))

	properties.TestingRun(t)
}

func TestEmailRepository_StoreFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "emails"`).WillReturnError(fmt.Errorf("connection reset by peer"))

	repo := NewEmailRepository(db)
	_, err = repo.ListUnprocessed(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, triageerrors.ErrStoreIO))
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRepository_MarkProcessed_StoreFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE "emails" SET`).WillReturnError(fmt.Errorf("disk full"))

	repo := NewEmailRepository(db)
	err = repo.MarkProcessed(context.Background(), "<m1@x>", enum.EmailStatusFinancial)
	require.Error(t, err)
	assert.True(t, errors.Is(err, triageerrors.ErrStoreIO))
	assert.False(t, errors.Is(err, triageerrors.ErrEmailNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
