package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/customeros/mailtriage/config"
	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/enum"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/internal/utils"
)

const (
	ClassifierOpenAI = "openai"

	maxPromptBodyLength  = 2000
	defaultOpenAITimeout = 60 * time.Second
)

type openAIClassifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIClassifier(cfg *config.OpenAIConfig) interfaces.Classifier {
	clientConfig := openai.DefaultConfig(cfg.ApiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}

	return &openAIClassifier{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}
}

func (c *openAIClassifier) Name() string {
	return ClassifierOpenAI
}

type promptEmail struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	Sender    string `json:"sender"`
	Date      string `json:"date"`
	Body      string `json:"body"`
	Hint      string `json:"header_hint,omitempty"`
}

type completionPayload struct {
	Assignments []dto.Assignment `json:"assignments"`
}

func (c *openAIClassifier) Classify(ctx context.Context, emails []*models.Email) (*dto.Classification, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "openAIClassifier.Classify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("emails", len(emails))
	span.SetTag("model", c.model)

	userContent, err := buildUserPrompt(emails)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, triageerrors.Mark(err, triageerrors.ErrClassificationFailure)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, triageerrors.Mark(errors.Wrap(err, "chat completion failed"), triageerrors.ErrClassificationFailure)
	}
	if len(resp.Choices) == 0 {
		err = errors.New("chat completion returned no choices")
		tracing.TraceErr(span, err)
		return nil, triageerrors.Mark(err, triageerrors.ErrClassificationFailure)
	}

	var payload completionPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		tracing.TraceErr(span, err)
		return nil, triageerrors.Mark(errors.Wrap(err, "failed to decode classification"), triageerrors.ErrClassificationFailure)
	}
	span.SetTag("usage.total_tokens", resp.Usage.TotalTokens)

	return &dto.Classification{
		Report:      RenderReport(utils.Now(), emails, payload.Assignments),
		Assignments: payload.Assignments,
	}, nil
}

func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You triage a personal inbox. Assign every email exactly one status from this list:\n")
	for _, status := range enum.AllEmailStatuses() {
		fmt.Fprintf(&b, "- %s: %s\n", status, statusGuidance[status])
	}
	b.WriteString("\nReply with a JSON object of the form ")
	b.WriteString(`{"assignments":[{"message_id":"...","status":"...","summary":"..."}]}`)
	b.WriteString(". Include one assignment per email, copy message_id exactly, keep each summary to one sentence.")
	b.WriteString(" A header_hint, when present, was derived from the message headers and is usually right.")
	return b.String()
}

var statusGuidance = map[enum.EmailStatus]string{
	enum.EmailStatusUrgentPersonal:     "time critical and addressed to the owner personally",
	enum.EmailStatusNeedsResponseDraft: "a person expects a reply from the owner",
	enum.EmailStatusAwaitingReview:     "unclear; a human should decide",
	enum.EmailStatusAutoResponded:      "automatic replies such as out of office notices",
	enum.EmailStatusWaitingOnOther:     "the owner is waiting for someone else to act",
	enum.EmailStatusFinancial:          "invoices, receipts, payments, banking",
	enum.EmailStatusNewsletter:         "newsletters, marketing, notifications",
}

func buildUserPrompt(emails []*models.Email) (string, error) {
	prompt := make([]promptEmail, 0, len(emails))
	for _, email := range emails {
		prompt = append(prompt, promptEmail{
			MessageID: email.MessageID,
			Subject:   email.Subject,
			Sender:    email.Sender,
			Date:      email.Date,
			Body:      utils.Truncate(email.Body, maxPromptBodyLength),
			Hint:      utils.GetOrDefault(email.HeaderHint, "").String(),
		})
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(prompt); err != nil {
		return "", errors.Wrap(err, "failed to marshal emails")
	}
	return buf.String(), nil
}
