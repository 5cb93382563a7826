package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/customeros/mailtriage/api"
	"github.com/customeros/mailtriage/config"
	"github.com/customeros/mailtriage/internal/cron"
	"github.com/customeros/mailtriage/internal/logger"
	"github.com/customeros/mailtriage/internal/repository"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/services"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cron         *cron.CronManager
	tracerCloser io.Closer
}

// NewServer wires logging, tracing, repositories and services around db.
func NewServer(cfg *config.Config, db *gorm.DB) (*Server, error) {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize jaeger tracer")
	}
	opentracing.SetGlobalTracer(tracer)

	repos := repository.InitRepositories(db)

	svcs, err := services.InitServices(cfg, appLogger, repos)
	if err != nil {
		closer.Close()
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		repositories: repos,
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:              ":" + cfg.AppConfig.APIPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) Services() *services.Services {
	return s.services
}

func (s *Server) Logger() logger.Logger {
	return s.log
}

// Close releases the event publisher and flushes traces.
func (s *Server) Close() {
	if err := s.services.Close(); err != nil {
		s.log.Errorf("Failed to close services: %v", err)
	}
	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}
	s.log.Sync()
}

func (s *Server) initialize() error {
	api.RegisterRoutes(s.router, s.log, s.services, s.repositories, s.config.AppConfig.APIKey)

	s.cron = cron.NewCronManager(s.config, s.log, kubernetesClient(s.log), s.services.IMAPService, s.services.TriageService)
	return s.cron.Start(s.config.AppConfig.PodName, s.config.AppConfig.Namespace)
}

// kubernetesClient returns nil outside a cluster, which puts the cron
// manager in local mode.
func kubernetesClient(log logger.Logger) kubernetes.Interface {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		log.Debugf("Not running in kubernetes: %v", err)
		return nil
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Warnf("Failed to create kubernetes client: %v", err)
		return nil
	}
	return clientset
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		ext.Error.Set(span, true)
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Errorf("Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	if err := s.initialize(); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	})
	s.log.Info("Mailtriage is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown(serverErr)
}

func (s *Server) waitForShutdown(serverErr <-chan error) error {
	defer s.recoverWithJaeger("shutdown")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-stop:
		s.log.Info("Shutting down...")
	case runErr = <-serverErr:
		s.log.Errorf("HTTP server error: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		s.log.Info("HTTP server shut down successfully")
	}

	// waits for a running fetch or triage round to finish
	cronDone := make(chan struct{})
	go s.wrapGoroutine("cron_shutdown", func() {
		defer close(cronDone)
		s.cron.Stop()
	})
	select {
	case <-cronDone:
		s.log.Info("Cron jobs stopped")
	case <-shutdownCtx.Done():
		s.log.Warn("Cron stop timed out, forcing exit")
	}

	s.Close()
	return runErr
}
