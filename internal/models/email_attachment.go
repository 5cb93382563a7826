package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailtriage/internal/utils"
)

// EmailAttachment is a child of Email. MessageID is a plain reference,
// the database does not enforce it.
type EmailAttachment struct {
	ID          string `gorm:"column:id;type:varchar(50);primaryKey"`
	MessageID   string `gorm:"column:message_id;type:varchar(998);index;not null"`
	Filename    string `gorm:"column:filename;type:varchar(500)"`
	ContentType string `gorm:"column:content_type;type:varchar(255)"`
	Size        int    `gorm:"column:size;default:0"`
	Data        []byte `gorm:"column:data"`

	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the table name for EmailAttachment
func (EmailAttachment) TableName() string {
	return "email_attachments"
}

func (e *EmailAttachment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}
	if e.Size == 0 {
		e.Size = len(e.Data)
	}
	e.CreatedAt = utils.Now()
	return nil
}
