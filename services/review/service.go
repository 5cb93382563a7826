package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/enum"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/metrics"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/internal/utils"
)

const rule = "================================================================================"

type reviewService struct {
	log       logger.Logger
	emailRepo interfaces.EmailRepository
	metrics   *metrics.Metrics
}

func NewReviewService(log logger.Logger, emailRepo interfaces.EmailRepository, m *metrics.Metrics) interfaces.ReviewService {
	return &reviewService{
		log:       log,
		emailRepo: emailRepo,
		metrics:   m,
	}
}

func (s *reviewService) Pending(ctx context.Context) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReviewService.Pending")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	emails, err := s.emailRepo.ListByStatus(ctx, enum.EmailStatusAwaitingReview)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.SetTag("pending", len(emails))
	return emails, nil
}

// Get returns the email only while it is awaiting review.
func (s *reviewService) Get(ctx context.Context, messageID string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReviewService.Get")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	messageID = utils.NormalizeMessageID(messageID)
	tracing.TagEntity(span, messageID)

	email, err := s.emailRepo.GetByMessageID(ctx, messageID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if email.StatusValue() != enum.EmailStatusAwaitingReview {
		return nil, errors.Wrapf(triageerrors.ErrEmailNotFound, "%s is not awaiting review", messageID)
	}
	return email, nil
}

func (s *reviewService) Assign(ctx context.Context, messageID string, status enum.EmailStatus) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReviewService.Assign")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	messageID = utils.NormalizeMessageID(messageID)
	tracing.TagEntity(span, messageID)
	span.SetTag("status", status.String())

	if !isReviewChoice(status) {
		return errors.Wrapf(triageerrors.ErrInvalidReviewTag, "%q", status)
	}

	if err := s.emailRepo.MarkReviewed(ctx, messageID, status); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.metrics.EmailMarked(status.String())
	s.log.Infof("email %s reviewed as %s", messageID, status)
	return nil
}

// RunConsole walks the operator through every pending email and returns how
// many were retagged. It stops at end of input or when ctx is done.
func (s *reviewService) RunConsole(ctx context.Context, in io.Reader, out io.Writer) (int, error) {
	pending, err := s.Pending(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		fmt.Fprintln(out, "No emails awaiting review.")
		return 0, nil
	}

	scanner := bufio.NewScanner(in)
	choices := enum.ReviewChoices()
	updated := 0

	for _, email := range pending {
		printEmail(out, email)

		for {
			if err := ctx.Err(); err != nil {
				return updated, err
			}

			printChoices(out, choices)
			fmt.Fprint(out, "Tag> ")
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return updated, scanner.Err()
			}

			status, ok := parseChoice(scanner.Text(), choices)
			if !ok {
				fmt.Fprintln(out, "Invalid choice; please enter one of the listed tags.")
				continue
			}

			err := s.Assign(ctx, email.MessageID, status)
			if errors.Is(err, triageerrors.ErrNotAwaitingReview) || errors.Is(err, triageerrors.ErrEmailNotFound) {
				fmt.Fprintf(out, "Email %s is no longer awaiting review, skipping.\n\n", email.MessageID)
				break
			}
			if err != nil {
				return updated, err
			}

			updated++
			fmt.Fprintf(out, "Email %s updated to status '%s'.\n\n", email.MessageID, status)
			break
		}
	}

	return updated, nil
}

func printEmail(out io.Writer, email *models.Email) {
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "ID:      %s\n", email.MessageID)
	fmt.Fprintf(out, "From:    %s\n", email.Sender)
	fmt.Fprintf(out, "Date:    %s\n", email.Date)
	fmt.Fprintf(out, "Subject: %s\n", email.Subject)
	fmt.Fprintln(out, strings.Repeat("-", len(rule)))
	fmt.Fprintln(out, email.Body)
	fmt.Fprintln(out, strings.Repeat("-", len(rule)))
}

func printChoices(out io.Writer, choices []enum.EmailStatus) {
	fmt.Fprintln(out, "Choose new tag:")
	for i, c := range choices {
		fmt.Fprintf(out, "  %d) %s\n", i+1, c)
	}
}

// parseChoice accepts either the tag itself or its position in the list.
func parseChoice(input string, choices []enum.EmailStatus) (enum.EmailStatus, bool) {
	input = strings.TrimSpace(input)
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(choices) {
			return choices[n-1], true
		}
		return "", false
	}
	for _, c := range choices {
		if strings.EqualFold(input, c.String()) {
			return c, true
		}
	}
	return "", false
}

func isReviewChoice(status enum.EmailStatus) bool {
	for _, c := range enum.ReviewChoices() {
		if c == status {
			return true
		}
	}
	return false
}
