package triage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/customeros/mailtriage/dto"
	"github.com/customeros/mailtriage/interfaces"
	triageerrors "github.com/customeros/mailtriage/internal/errors"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/metrics"
	"github.com/customeros/mailtriage/internal/models"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/internal/utils"
	"github.com/customeros/mailtriage/services/ai"
)

const (
	reportContentType = "text/markdown; charset=utf-8"
	archivePrefix     = "reports/"
)

type TriageService struct {
	log          logger.Logger
	emailRepo    interfaces.EmailRepository
	classifier   interfaces.Classifier
	reportWriter interfaces.ReportWriter
	metrics      *metrics.Metrics

	// optional, skipped when nil
	archive interfaces.StorageService
	events  interfaces.EventPublisher

	running sync.Mutex
}

func NewTriageService(
	log logger.Logger,
	emailRepo interfaces.EmailRepository,
	classifier interfaces.Classifier,
	reportWriter interfaces.ReportWriter,
	m *metrics.Metrics,
) *TriageService {
	return &TriageService{
		log:          log,
		emailRepo:    emailRepo,
		classifier:   classifier,
		reportWriter: reportWriter,
		metrics:      m,
	}
}

// WithArchive uploads every written report to the given object store.
func (s *TriageService) WithArchive(storage interfaces.StorageService) *TriageService {
	s.archive = storage
	return s
}

// WithEvents publishes a TriageCompleted event after every round that wrote
// a report.
func (s *TriageService) WithEvents(publisher interfaces.EventPublisher) *TriageService {
	s.events = publisher
	return s
}

// RunRound classifies every unprocessed email, writes the report and only
// then marks the emails processed. A failure before the report is durable
// leaves the store untouched; a failure while marking leaves the remaining
// emails unprocessed for the next round.
func (s *TriageService) RunRound(ctx context.Context) (*dto.TriageResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TriageService.RunRound")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if !s.running.TryLock() {
		return nil, triageerrors.ErrRoundInProgress
	}
	defer s.running.Unlock()

	roundID := utils.GenerateNanoIDWithPrefix("round", 12)
	tracing.TagEntity(span, roundID)
	log := s.log.With("round_id", roundID)

	start := time.Now()
	result, byStatus, stage, err := s.runStages(ctx, log)
	elapsed := time.Since(start)
	span.SetTag("stage", stage.String())

	switch {
	case err == nil:
		s.metrics.RoundFinished(metrics.OutcomeSuccess, elapsed)
		log.Infof("triage round done in %s: classified=%d marked=%d report=%s", elapsed, result.Classified, result.Marked, result.Path)
	case stage == StageMark:
		s.metrics.RoundFinished(metrics.OutcomePartial, elapsed)
		tracing.TraceErr(span, err)
		log.Errorf("triage round marked %d of %d emails: %v", result.Marked, result.Classified, err)
	default:
		s.metrics.RoundFinished(metrics.OutcomeFailed, elapsed)
		tracing.TraceErr(span, err)
		log.Errorf("triage round failed at %s stage: %v", stage, err)
		return nil, err
	}

	s.afterRound(ctx, log, roundID, result, byStatus)
	return result, err
}

func (s *TriageService) runStages(ctx context.Context, log logger.Logger) (*dto.TriageResult, map[string]int, Stage, error) {
	// FETCH
	emails, err := s.emailRepo.ListUnprocessed(ctx)
	if err != nil {
		return nil, nil, StageFetch, errors.Wrap(err, "failed to load unprocessed emails")
	}
	log.Infof("triage round picked up %d unprocessed emails", len(emails))

	// CLASSIFY
	var classification *dto.Classification
	if len(emails) == 0 {
		classification = &dto.Classification{Report: ai.RenderReport(utils.Now(), nil, nil)}
	} else {
		classification, err = s.classify(ctx, emails)
		if err != nil {
			return nil, nil, StageClassify, err
		}
	}

	// REPORT
	path, err := s.reportWriter.Save(ctx, classification.Report)
	if err != nil {
		if !errors.Is(err, triageerrors.ErrReportWrite) {
			err = triageerrors.Mark(err, triageerrors.ErrReportWrite)
		}
		return nil, nil, StageReport, err
	}

	// MARK
	result := &dto.TriageResult{
		Path:       path,
		Classified: len(classification.Assignments),
	}
	byStatus := make(map[string]int)

	var markErr error
	for _, a := range classification.Assignments {
		if err := s.emailRepo.MarkProcessed(ctx, a.MessageID, a.Status); err != nil {
			log.Warnf("failed to mark %s as %s: %v", a.MessageID, a.Status, err)
			markErr = multierr.Append(markErr, errors.Wrapf(err, "mark %s", a.MessageID))
			result.Failed++
			continue
		}
		result.Marked++
		byStatus[a.Status.String()]++
		s.metrics.EmailMarked(a.Status.String())
	}

	if markErr != nil {
		return result, byStatus, StageMark, triageerrors.Mark(markErr, triageerrors.ErrMarkIncomplete)
	}

	result.Success = true
	return result, byStatus, StageDone, nil
}

func (s *TriageService) classify(ctx context.Context, emails []*models.Email) (*dto.Classification, error) {
	classification, err := s.classifier.Classify(ctx, emails)
	if err != nil {
		if !errors.Is(err, triageerrors.ErrClassificationFailure) {
			err = triageerrors.Mark(err, triageerrors.ErrClassificationFailure)
		}
		return nil, err
	}

	if err := validateClassification(classification, emails); err != nil {
		return nil, triageerrors.Mark(errors.Wrapf(err, "invalid output from %s classifier", s.classifier.Name()), triageerrors.ErrClassificationFailure)
	}
	return classification, nil
}

// validateClassification requires exactly one valid assignment per email
// and a non-empty report.
func validateClassification(classification *dto.Classification, emails []*models.Email) error {
	if classification == nil {
		return errors.New("no classification returned")
	}
	if strings.TrimSpace(classification.Report) == "" {
		return errors.New("empty report")
	}

	pending := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		pending[email.MessageID] = struct{}{}
	}

	for _, a := range classification.Assignments {
		if _, ok := pending[a.MessageID]; !ok {
			return errors.Errorf("unexpected or repeated message id %q", a.MessageID)
		}
		if !a.Status.IsValid() {
			return errors.Errorf("unknown status %q for %s", a.Status, a.MessageID)
		}
		delete(pending, a.MessageID)
	}

	if len(pending) > 0 {
		return errors.Errorf("%d emails were not classified", len(pending))
	}
	return nil
}

// afterRound archives the report and announces the round. Failures are
// logged and never change the round result.
func (s *TriageService) afterRound(ctx context.Context, log logger.Logger, roundID string, result *dto.TriageResult, byStatus map[string]int) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TriageService.afterRound")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if s.archive != nil {
		key := archivePrefix + filepath.Base(result.Path)
		data, err := os.ReadFile(result.Path)
		if err == nil {
			err = s.archive.Upload(ctx, key, data, reportContentType)
		}
		if err != nil {
			tracing.TraceErr(span, err)
			log.Warnf("failed to archive report %s: %v", result.Path, err)
		} else {
			result.ArchiveURL = s.archive.GetPublicURL(key)
			span.SetTag("archive_key", key)
			if result.ArchiveURL != "" {
				log.Infof("archived report %s at %s", result.Path, result.ArchiveURL)
			} else {
				log.Infof("archived report %s as %s", result.Path, key)
			}
		}
	}

	if s.events != nil {
		event := dto.TriageCompleted{
			ReportPath: result.Path,
			ReportURL:  result.ArchiveURL,
			Success:    result.Success,
			Classified: result.Classified,
			Marked:     result.Marked,
			Failed:     result.Failed,
			ByStatus:   byStatus,
		}
		if err := s.events.PublishTriageCompleted(ctx, roundID, event); err != nil {
			tracing.TraceErr(span, err)
			log.Warnf("failed to publish triage completed event: %v", err)
		}
	}
}
