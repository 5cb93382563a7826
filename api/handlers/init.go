package handlers

import (
	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/logger"
)

type APIHandlers struct {
	Emails *EmailsHandler
	Review *ReviewHandler
	Triage *TriageHandler
	Status *StatusHandler
}

type Deps struct {
	Log       logger.Logger
	Inbound   interfaces.InboundService
	Review    interfaces.ReviewService
	Triage    interfaces.TriageService
	IMAP      interfaces.IMAPService
	EmailRepo interfaces.EmailRepository

	// Attachments is optional; without it the review view omits attachments.
	Attachments interfaces.EmailAttachmentRepository
}

func InitHandlers(d Deps) *APIHandlers {
	return &APIHandlers{
		Emails: NewEmailsHandler(d.Log, d.Inbound),
		Review: NewReviewHandler(d.Log, d.Review, d.Attachments),
		Triage: NewTriageHandler(d.Log, d.Triage, d.IMAP),
		Status: NewStatusHandler(d.EmailRepo, d.IMAP),
	}
}
