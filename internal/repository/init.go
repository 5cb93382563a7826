package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/models"
)

type Repositories struct {
	EmailRepository           interfaces.EmailRepository
	EmailAttachmentRepository interfaces.EmailAttachmentRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		EmailRepository:           NewEmailRepository(db),
		EmailAttachmentRepository: NewEmailAttachmentRepository(db),
	}
}

// Migrate brings the emails and email_attachments tables up to date.
// Older deployments without status or html_body gain the nullable columns;
// existing rows are left as they are.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Email{},
		&models.EmailAttachment{},
	)
	return errors.Wrap(err, "failed to migrate triage database")
}
