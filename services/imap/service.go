package imap

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailtriage/config"
	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/enum"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/metrics"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/internal/utils"
)

const fetchBuffer = 10

type IMAPService struct {
	cfg       *config.IMAPConfig
	log       logger.Logger
	emailRepo interfaces.EmailRepository
	metrics   *metrics.Metrics
	dial      dialFunc
	running   sync.Mutex
}

func NewIMAPService(cfg *config.IMAPConfig, log logger.Logger, emailRepo interfaces.EmailRepository, m *metrics.Metrics) *IMAPService {
	return &IMAPService{
		cfg:       cfg,
		log:       log,
		emailRepo: emailRepo,
		metrics:   m,
		dial:      dialMailbox,
	}
}

func (s *IMAPService) Configured() bool {
	return s.cfg.Configured()
}

// Fetch copies unseen messages from the last lookback window into the store.
// The mailbox is opened read-only and bodies are fetched with PEEK, so no
// flags change on the server. A message that fails to parse or store is
// logged and counted without stopping the batch.
func (s *IMAPService) Fetch(ctx context.Context) (*dto.FetchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.Fetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if !s.Configured() {
		s.log.Warnf("skipping imap fetch: %v", triageerrors.ErrIMAPNotConfigured)
		span.SetTag("skipped", true)
		return &dto.FetchResult{Skipped: true}, nil
	}

	if !s.running.TryLock() {
		return nil, triageerrors.ErrFetchInProgress
	}
	defer s.running.Unlock()

	span.SetTag("server", s.cfg.Host)
	span.SetTag("folder", s.cfg.Folder)

	messages, err := s.download(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("imap fetch from %s failed: %v", s.cfg.Host, err)
		return nil, err
	}

	result := &dto.FetchResult{Found: len(messages)}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			s.log.Warnf("imap fetch interrupted after %d of %d messages", result.Stored+result.Duplicates+result.Failed, result.Found)
			tracing.TraceErr(span, err)
			return result, errors.Wrap(err, "imap fetch interrupted")
		}
		s.processMessage(ctx, msg, result)
	}

	tracing.LogObjectAsJson(span, "result", result)
	s.log.Infof("imap fetch done: found=%d stored=%d duplicates=%d failed=%d attachments=%d skipped_attachments=%d",
		result.Found, result.Stored, result.Duplicates, result.Failed, result.AttachmentsStored, result.AttachmentsSkipped)
	return result, nil
}

// download buffers every matching message and logs out before any of them
// is parsed or stored.
func (s *IMAPService) download(ctx context.Context) ([]rawMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.download")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	c, err := s.dial(ctx, s.cfg)
	if err != nil {
		tracing.TraceErr(span, err)
		if !errors.Is(err, triageerrors.ErrIMAPConnection) {
			err = triageerrors.Mark(err, triageerrors.ErrIMAPConnection)
		}
		return nil, err
	}

	stop := make(chan struct{})
	defer func() {
		close(stop)
		if err := c.Logout(); err != nil {
			s.log.Debugf("imap logout: %v", err)
		}
	}()
	go closeOnCancel(ctx, c, stop)

	if _, err = c.Select(s.cfg.Folder, true); err != nil {
		tracing.TraceErr(span, err)
		return nil, triageerrors.Mark(errors.Wrapf(err, "failed to select folder %s", s.cfg.Folder), triageerrors.ErrIMAPConnection)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = utils.Now().Add(-s.lookback())

	seqNums, err := c.Search(criteria)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, triageerrors.Mark(errors.Wrap(err, "failed to search mailbox"), triageerrors.ErrIMAPConnection)
	}
	span.SetTag("found", len(seqNums))
	if len(seqNums) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem()}

	fetched := make(chan *imap.Message, fetchBuffer)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, fetched)
	}()

	messages := make([]rawMessage, 0, len(seqNums))
	for msg := range fetched {
		raw := rawMessage{seqNum: msg.SeqNum}
		if literal := msg.GetBody(section); literal != nil {
			raw.data, err = io.ReadAll(literal)
			if err != nil {
				s.log.Warnf("failed to read message %d: %v", msg.SeqNum, err)
			}
		}
		messages = append(messages, raw)
	}

	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, triageerrors.Mark(errors.Wrap(err, "failed to fetch messages"), triageerrors.ErrIMAPConnection)
	}

	return messages, nil
}

func (s *IMAPService) processMessage(ctx context.Context, raw rawMessage, result *dto.FetchResult) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.processMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("seq_num", raw.seqNum)

	source := enum.EmailImportIMAP.String()

	parsed, err := parseMessage(raw, s.cfg.Host, s.cfg.AttachmentMaxSize)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("skipping message %d: %v", raw.seqNum, err)
		s.metrics.EmailFailed(source)
		result.Failed++
		return
	}
	tracing.TagEntity(span, parsed.email.MessageID)

	for _, skipped := range parsed.skipped {
		s.log.Warnf("attachment %s of %s is %d bytes, over the %d byte limit; not stored",
			skipped.filename, parsed.email.MessageID, skipped.size, s.cfg.AttachmentMaxSize)
		s.metrics.AttachmentSkipped()
	}

	inserted, err := s.emailRepo.UpsertWithAttachments(ctx, parsed.email, parsed.attachments)
	if err != nil {
		err = triageerrors.Mark(err, triageerrors.ErrMessageIngest)
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to store message %s: %v", parsed.email.MessageID, err)
		s.metrics.EmailFailed(source)
		result.Failed++
		return
	}

	if !inserted {
		s.metrics.EmailDuplicate(source)
		result.Duplicates++
		return
	}

	s.metrics.EmailIngested(source)
	result.Stored++
	result.AttachmentsStored += len(parsed.attachments)
	result.AttachmentsSkipped += len(parsed.skipped)
}

func (s *IMAPService) lookback() time.Duration {
	if s.cfg.Lookback <= 0 {
		return 24 * time.Hour
	}
	return s.cfg.Lookback
}
