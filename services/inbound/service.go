package inbound

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/enum"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/metrics"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/internal/utils"
)

type inboundService struct {
	log       logger.Logger
	emailRepo interfaces.EmailRepository
	metrics   *metrics.Metrics
}

func NewInboundService(log logger.Logger, emailRepo interfaces.EmailRepository, m *metrics.Metrics) interfaces.InboundService {
	return &inboundService{
		log:       log,
		emailRepo: emailRepo,
		metrics:   m,
	}
}

// Receive stores a webhook delivered email as unprocessed. Redelivery of a
// known message id is accepted and reported as a duplicate.
func (s *inboundService) Receive(ctx context.Context, inbound dto.InboundEmail) (*dto.ReceiveResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "InboundService.Receive")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	messageID := utils.NormalizeMessageID(inbound.MessageID)
	tracing.TagEntity(span, messageID)
	if messageID == "" {
		return nil, errors.Wrap(triageerrors.ErrInvalidInput, "message_id is required")
	}
	if missing := inbound.MissingFields(); len(missing) > 0 {
		return nil, errors.Wrapf(triageerrors.ErrInvalidInput, "missing required fields: %s", strings.Join(missing, ", "))
	}

	email := &models.Email{
		MessageID:  messageID,
		Subject:    *inbound.Subject,
		Sender:     *inbound.Sender,
		Date:       *inbound.Date,
		Body:       *inbound.Body,
		HTMLBody:   inbound.HTMLBody,
		ReceivedAt: utils.Now(),
	}

	inserted, err := s.emailRepo.Upsert(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		s.metrics.EmailFailed(enum.EmailImportWebhook.String())
		s.log.Errorf("failed to store inbound email %s: %v", messageID, err)
		return nil, err
	}

	if !inserted {
		s.metrics.EmailDuplicate(enum.EmailImportWebhook.String())
		s.log.Infof("duplicate inbound email %s ignored", messageID)
	} else {
		s.metrics.EmailIngested(enum.EmailImportWebhook.String())
		s.log.Debugf("stored inbound email %s", messageID)
	}

	span.SetTag("duplicate", !inserted)
	return &dto.ReceiveResult{
		MessageID: messageID,
		Duplicate: !inserted,
	}, nil
}
