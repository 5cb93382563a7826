package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/internal/enum"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/utils"
)

const (
	reportTitle      = "# Email Triage Report"
	emptyReportLine  = "No unprocessed emails."
	reportTimeLayout = "2006-01-02 15:04:05 MST"
	maxSummaryLength = 200
)

// RenderReport builds the markdown report for one round. Emails are grouped
// by status in urgency order and statuses without emails are left out.
func RenderReport(generatedAt time.Time, emails []*models.Email, assignments []dto.Assignment) string {
	var b strings.Builder

	b.WriteString(reportTitle + "\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.UTC().Format(reportTimeLayout))

	if len(assignments) == 0 {
		b.WriteString(emptyReportLine + "\n")
		return b.String()
	}

	byID := make(map[string]*models.Email, len(emails))
	for _, email := range emails {
		byID[email.MessageID] = email
	}

	grouped := make(map[enum.EmailStatus][]dto.Assignment)
	for _, a := range assignments {
		grouped[a.Status] = append(grouped[a.Status], a)
	}

	fmt.Fprintf(&b, "Emails triaged: %d\n", len(assignments))

	for _, status := range enum.AllEmailStatuses() {
		group := grouped[status]
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n## %s (%d)\n\n", status.Title(), len(group))
		for _, a := range group {
			writeReportEntry(&b, byID[a.MessageID], a)
		}
	}

	return b.String()
}

func writeReportEntry(b *strings.Builder, email *models.Email, a dto.Assignment) {
	subject, sender, date := "(unknown)", "(unknown)", ""
	if email != nil {
		subject = orPlaceholder(email.Subject, "(no subject)")
		sender = orPlaceholder(email.Sender, "(unknown sender)")
		date = email.Date
	}

	fmt.Fprintf(b, "- **%s** from %s", utils.SingleLine(subject), utils.SingleLine(sender))
	if date != "" {
		fmt.Fprintf(b, " (%s)", utils.SingleLine(date))
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "  - Message-ID: `%s`\n", a.MessageID)
	if summary := utils.Truncate(utils.SingleLine(a.Summary), maxSummaryLength); summary != "" {
		fmt.Fprintf(b, "  - %s\n", summary)
	}
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
