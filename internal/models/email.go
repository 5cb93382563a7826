package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailtriage/internal/enum"
	"github.com/customeros/mailtriage/internal/utils"
)

// Email is one ingested message. Processed, ProcessedAt and Status are
// always written together, so either all three are set or none is.
type Email struct {
	MessageID string `gorm:"column:message_id;type:varchar(998);primaryKey" json:"message_id"`

	Subject string `gorm:"column:subject;type:text" json:"subject"`
	Sender  string `gorm:"column:sender;type:text" json:"sender"`
	Date    string `gorm:"column:date;type:varchar(255)" json:"date"`

	Body     string  `gorm:"column:body;type:text;not null;default:''" json:"body"`
	HTMLBody *string `gorm:"column:html_body;type:text" json:"html_body,omitempty"`

	// status suggested by the message headers at ingest, never a final status
	HeaderHint *enum.EmailStatus `gorm:"column:header_hint;type:varchar(50)" json:"header_hint,omitempty"`

	ReceivedAt  time.Time         `gorm:"column:received_at;index" json:"received_at"`
	Processed   bool              `gorm:"column:processed;not null;default:false;index" json:"processed"`
	ProcessedAt *time.Time        `gorm:"column:processed_at" json:"processed_at,omitempty"`
	Status      *enum.EmailStatus `gorm:"column:status;type:varchar(50);index" json:"status,omitempty"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = utils.Now()
	}
	return nil
}

// StatusValue returns the assigned status or "" while unassigned.
func (e *Email) StatusValue() enum.EmailStatus {
	if e.Status == nil {
		return ""
	}
	return *e.Status
}

// IsConsistent reports whether the processed markers agree with each other.
func (e *Email) IsConsistent() bool {
	return e.Processed == (e.ProcessedAt != nil) && e.Processed == (e.Status != nil)
}
