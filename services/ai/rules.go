package ai

import (
	"context"
	"net/mail"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/enum"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/internal/utils"
)

const ClassifierRules = "rules"

type rule struct {
	status   enum.EmailStatus
	keywords []string
}

// checked in order, first match wins
var keywordRules = []rule{
	{
		status:   enum.EmailStatusAutoResponded,
		keywords: []string{"out of office", "automatic reply", "auto-reply", "autoreply", "away from the office"},
	},
	{
		status: enum.EmailStatusFinancial,
		keywords: []string{
			"invoice", "receipt", "payment", "billing", "bank statement", "refund",
			"amount due", "past due", "wire transfer", "tax return", "payroll",
		},
	},
	{
		status:   enum.EmailStatusUrgentPersonal,
		keywords: []string{"urgent", "asap", "emergency", "right away", "immediately", "time sensitive"},
	},
	{
		status: enum.EmailStatusNewsletter,
		keywords: []string{
			"unsubscribe", "newsletter", "digest", "view in browser", "view this email in your browser",
			"weekly roundup", "manage your preferences",
		},
	},
	{
		status: enum.EmailStatusWaitingOnOther,
		keywords: []string{
			"i will get back to you", "i'll get back to you", "will follow up", "i'll follow up",
			"waiting on", "pending approval", "in progress on our side",
		},
	},
	{
		status: enum.EmailStatusNeedsResponseDraft,
		keywords: []string{
			"please reply", "please respond", "let me know", "can you", "could you",
			"would you", "are you available", "your thoughts",
		},
	},
}

type ruleClassifier struct{}

// NewRuleClassifier returns a deterministic classifier driven by keywords and
// sender address heuristics. Anything it cannot place goes to review.
func NewRuleClassifier() interfaces.Classifier {
	return &ruleClassifier{}
}

func (c *ruleClassifier) Name() string {
	return ClassifierRules
}

func (c *ruleClassifier) Classify(ctx context.Context, emails []*models.Email) (*dto.Classification, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ruleClassifier.Classify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("emails", len(emails))

	assignments := make([]dto.Assignment, 0, len(emails))
	for _, email := range emails {
		assignments = append(assignments, dto.Assignment{
			MessageID: email.MessageID,
			Status:    classifyByRules(email),
			Summary:   summarize(email),
		})
	}

	return &dto.Classification{
		Report:      RenderReport(utils.Now(), emails, assignments),
		Assignments: assignments,
	}, nil
}

func classifyByRules(email *models.Email) enum.EmailStatus {
	if hint := utils.GetOrDefault(email.HeaderHint, ""); hint.IsValid() {
		return hint
	}

	text := strings.ToLower(email.Subject + "\n" + email.Body)

	for _, r := range keywordRules {
		if containsAny(text, r.keywords) {
			return r.status
		}
	}

	sender := senderAddress(email.Sender)
	validation := mailvalidate.ValidateEmailSyntax(sender)
	if validation.IsValid && (validation.IsSystemGenerated || validation.IsRoleAccount) {
		return enum.EmailStatusNewsletter
	}

	if strings.Contains(email.Body, "?") {
		return enum.EmailStatusNeedsResponseDraft
	}

	return enum.EmailStatusAwaitingReview
}

// senderAddress strips the display name from a From header value.
func senderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(from)
}

func summarize(email *models.Email) string {
	text := utils.SingleLine(email.Body)
	if text == "" {
		text = utils.SingleLine(email.Subject)
	}
	return utils.Truncate(text, 120)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
