package dto

import "github.com/customeros/mailtriage/internal/enum"

// Classification is what a classifier returns for one batch of emails.
type Classification struct {
	Report      string       `json:"report"`
	Assignments []Assignment `json:"assignments"`
}

type Assignment struct {
	MessageID string           `json:"message_id"`
	Status    enum.EmailStatus `json:"status"`
	Summary   string           `json:"summary"`
}
