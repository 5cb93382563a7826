package dto

// InboundEmail is the webhook payload for a single message. Every field but
// html_body must be present; an empty string still counts as present.
type InboundEmail struct {
	MessageID string  `json:"message_id" binding:"required"`
	Subject   *string `json:"subject" binding:"required"`
	Sender    *string `json:"sender" binding:"required"`
	Date      *string `json:"date" binding:"required"`
	Body      *string `json:"body" binding:"required"`
	HTMLBody  *string `json:"html_body,omitempty"`
}

// MissingFields lists the required fields absent from the payload.
func (in InboundEmail) MissingFields() []string {
	var missing []string
	if in.Subject == nil {
		missing = append(missing, "subject")
	}
	if in.Sender == nil {
		missing = append(missing, "sender")
	}
	if in.Date == nil {
		missing = append(missing, "date")
	}
	if in.Body == nil {
		missing = append(missing, "body")
	}
	return missing
}

type ReceiveResult struct {
	MessageID string
	Duplicate bool
}

// EmailView is the shape returned by the review endpoints. Attachments are
// only listed on the single email view.
type EmailView struct {
	MessageID   string           `json:"message_id"`
	Subject     string           `json:"subject"`
	Sender      string           `json:"sender"`
	Date        string           `json:"date"`
	Body        string           `json:"body"`
	Attachments []AttachmentView `json:"attachments,omitempty"`
}

type AttachmentView struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}
