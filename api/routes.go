package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailtriage/api/handlers"
	"github.com/customeros/mailtriage/api/middleware"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/repository"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, log logger.Logger, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(handlers.Deps{
		Log:         log,
		Inbound:     s.InboundService,
		Review:      s.ReviewService,
		Triage:      s.TriageService,
		IMAP:        s.IMAPService,
		EmailRepo:   repos.EmailRepository,
		Attachments: repos.EmailAttachmentRepository,
	})

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  middleware.APIKeyHeader,
		ValidAPIKey: apikey,
	})

	traced := r.Group("")
	traced.Use(middleware.TracingMiddleware())
	{
		traced.GET("/status", apiHandlers.Status.Status())
		traced.GET("/review", apiHandlers.Review.List())
		traced.GET("/review/:message_id", apiHandlers.Review.Get())
	}

	mutating := traced.Group("")
	mutating.Use(apiKeyMiddleware)
	{
		mutating.POST("/email", apiHandlers.Emails.Receive())
		mutating.POST("/review/:message_id", apiHandlers.Review.Assign())
		mutating.POST("/process", apiHandlers.Triage.Process())
		mutating.POST("/fetch_email", apiHandlers.Triage.FetchEmail())
	}
}
