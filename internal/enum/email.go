package enum

import "fmt"

type EmailStatus string

// Declaration order is urgency order, most urgent first.
const (
	EmailStatusUrgentPersonal     EmailStatus = "urgent-personal"
	EmailStatusNeedsResponseDraft EmailStatus = "needs-response-draft"
	EmailStatusAwaitingReview     EmailStatus = "awaiting-review"
	EmailStatusAutoResponded      EmailStatus = "auto-responded"
	EmailStatusWaitingOnOther     EmailStatus = "waiting-on-other"
	EmailStatusFinancial          EmailStatus = "financial"
	EmailStatusNewsletter         EmailStatus = "newsletter"
)

var emailStatuses = []EmailStatus{
	EmailStatusUrgentPersonal,
	EmailStatusNeedsResponseDraft,
	EmailStatusAwaitingReview,
	EmailStatusAutoResponded,
	EmailStatusWaitingOnOther,
	EmailStatusFinancial,
	EmailStatusNewsletter,
}

var emailStatusTitles = map[EmailStatus]string{
	EmailStatusUrgentPersonal:     "Urgent (personal)",
	EmailStatusNeedsResponseDraft: "Needs a response",
	EmailStatusAwaitingReview:     "Awaiting review",
	EmailStatusAutoResponded:      "Auto-responded",
	EmailStatusWaitingOnOther:     "Waiting on others",
	EmailStatusFinancial:          "Financial",
	EmailStatusNewsletter:         "Newsletters",
}

func (t EmailStatus) String() string {
	return string(t)
}

// Title is the human readable heading used in reports.
func (t EmailStatus) Title() string {
	if title, ok := emailStatusTitles[t]; ok {
		return title
	}
	return string(t)
}

func (t EmailStatus) IsValid() bool {
	return t.Rank() >= 0
}

// Rank returns the urgency position of the status, 0 being the most urgent,
// or -1 for values outside the enumeration.
func (t EmailStatus) Rank() int {
	for i, s := range emailStatuses {
		if s == t {
			return i
		}
	}
	return -1
}

func AllEmailStatuses() []EmailStatus {
	out := make([]EmailStatus, len(emailStatuses))
	copy(out, emailStatuses)
	return out
}

// ReviewChoices lists the statuses an operator may assign during manual review.
func ReviewChoices() []EmailStatus {
	out := make([]EmailStatus, 0, len(emailStatuses)-1)
	for _, s := range emailStatuses {
		if s != EmailStatusAwaitingReview {
			out = append(out, s)
		}
	}
	return out
}

func ParseEmailStatus(s string) (EmailStatus, error) {
	status := EmailStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown email status %q", s)
	}
	return status, nil
}

type EmailImportSource string

const (
	EmailImportWebhook EmailImportSource = "webhook"
	EmailImportIMAP    EmailImportSource = "imap"
)

func (t EmailImportSource) String() string {
	return string(t)
}
