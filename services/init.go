package services

import (
	"github.com/pkg/errors"

	"github.com/customeros/mailtriage/config"
	"github.com/customeros/mailtriage/interfaces"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/metrics"
	"github.com/customeros/mailtriage/internal/repository"
	"github.com/customeros/mailtriage/services/ai"
	"github.com/customeros/mailtriage/services/events"
	"github.com/customeros/mailtriage/services/imap"
	"github.com/customeros/mailtriage/services/inbound"
	"github.com/customeros/mailtriage/services/review"
	"github.com/customeros/mailtriage/services/storage"
	"github.com/customeros/mailtriage/services/triage"
)

type Services struct {
	Metrics        *metrics.Metrics
	InboundService interfaces.InboundService
	IMAPService    interfaces.IMAPService
	TriageService  interfaces.TriageService
	ReviewService  interfaces.ReviewService

	// nil when RABBITMQ_URL is not set
	EventPublisher interfaces.EventPublisher
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	m := metrics.NewMetrics()

	classifier, err := ai.NewClassifier(cfg.TriageConfig.Classifier, cfg.OpenAIConfig)
	if err != nil {
		return nil, err
	}
	log.Infof("using %s classifier", classifier.Name())

	triageService := triage.NewTriageService(
		log,
		repos.EmailRepository,
		classifier,
		triage.NewFileReportWriter(cfg.TriageConfig.ReportDir),
		m,
	)

	archive, err := storage.NewReportArchive(cfg.ReportArchiveConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init report archive")
	}
	if archive != nil {
		triageService.WithArchive(archive)
	}

	services := Services{
		Metrics:        m,
		InboundService: inbound.NewInboundService(log, repos.EmailRepository, m),
		IMAPService:    imap.NewIMAPService(cfg.IMAPConfig, log, repos.EmailRepository, m),
		TriageService:  triageService,
		ReviewService:  review.NewReviewService(log, repos.EmailRepository, m),
	}

	if cfg.AppConfig.RabbitMQURL != "" {
		publisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, events.DefaultPublisherConfig())
		if err != nil {
			return nil, errors.Wrap(err, "failed to init event publisher")
		}
		triageService.WithEvents(publisher)
		services.EventPublisher = publisher
	}

	return &services, nil
}

// Close releases connections held by the services.
func (s *Services) Close() error {
	if s.EventPublisher != nil {
		return s.EventPublisher.Close()
	}
	return nil
}
