package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailtriage/internal/enum"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/utils"
)

func TestClassifyByRules(t *testing.T) {
	tests := []struct {
		name     string
		email    *models.Email
		expected enum.EmailStatus
	}{
		{
			name:     "invoice is financial",
			email:    &models.Email{Subject: "Invoice #42", Sender: "billing@acme.com", Body: "Please pay"},
			expected: enum.EmailStatusFinancial,
		},
		{
			name: "header hint wins over keywords",
			email: &models.Email{
				Subject:    "Invoice digest",
				Sender:     "news@acme.com",
				Body:       "Your weekly invoice tips",
				HeaderHint: utils.ToPtr(enum.EmailStatusNewsletter),
			},
			expected: enum.EmailStatusNewsletter,
		},
		{
			name:     "out of office",
			email:    &models.Email{Subject: "Automatic reply: meeting", Sender: "bob@acme.com", Body: "I am away"},
			expected: enum.EmailStatusAutoResponded,
		},
		{
			name:     "urgent",
			email:    &models.Email{Subject: "URGENT: call me", Sender: "Mom <mom@family.com>", Body: "now"},
			expected: enum.EmailStatusUrgentPersonal,
		},
		{
			name:     "newsletter by keyword",
			email:    &models.Email{Subject: "This week in Go", Sender: "editor@golangweekly.com", Body: "Click to unsubscribe"},
			expected: enum.EmailStatusNewsletter,
		},
		{
			name:     "question needs a response",
			email:    &models.Email{Subject: "lunch", Sender: "alice@example.com", Body: "Free on Tuesday?"},
			expected: enum.EmailStatusNeedsResponseDraft,
		},
		{
			name:     "waiting on someone else",
			email:    &models.Email{Subject: "contract", Sender: "alice@example.com", Body: "Legal is reviewing, I'll get back to you."},
			expected: enum.EmailStatusWaitingOnOther,
		},
		{
			name:     "unclear goes to review",
			email:    &models.Email{Subject: "hello", Sender: "alice@example.com", Body: "Nice seeing you."},
			expected: enum.EmailStatusAwaitingReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyByRules(tt.email))
		})
	}
}

func TestSenderAddress(t *testing.T) {
	assert.Equal(t, "billing@acme.com", senderAddress("Billing Team <billing@acme.com>"))
	assert.Equal(t, "bob@acme.com", senderAddress("bob@acme.com"))
	assert.Equal(t, "not an address", senderAddress(" not an address "))
}

func TestRuleClassifier_Classify(t *testing.T) {
	emails := []*models.Email{
		{MessageID: "<m1@x>", Subject: "Invoice #42", Sender: "billing@acme.com", Body: "Please pay"},
		{MessageID: "<m2@x>", Subject: "hi", Sender: "alice@example.com", Body: "Nice seeing you."},
	}

	classifier := NewRuleClassifier()
	result, err := classifier.Classify(context.Background(), emails)
	require.NoError(t, err)

	assert.Equal(t, ClassifierRules, classifier.Name())
	require.Len(t, result.Assignments, 2)
	assert.Equal(t, "<m1@x>", result.Assignments[0].MessageID)
	assert.Equal(t, enum.EmailStatusFinancial, result.Assignments[0].Status)
	assert.Equal(t, "Please pay", result.Assignments[0].Summary)
	assert.Equal(t, enum.EmailStatusAwaitingReview, result.Assignments[1].Status)
	assert.Contains(t, result.Report, "## Financial (1)")
}
