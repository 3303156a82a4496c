package container

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go-sign-classifier/internal/config"
	"go-sign-classifier/internal/factory"
	"go-sign-classifier/internal/logger"
	"go-sign-classifier/internal/observer"
	"go-sign-classifier/internal/predictor"
	"go-sign-classifier/internal/repository"
	"go-sign-classifier/internal/service"
	"go-sign-classifier/internal/session"
	"go-sign-classifier/internal/storage"
	"go-sign-classifier/internal/transport"
	"go-sign-classifier/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	imageRepository repository.ImageRepository
	predictor       predictor.Client
	publisher       *observer.EventPublisher
	registry        *prometheus.Registry
	sessions        service.SessionService
	fileSources     factory.FileSourceFactory
	handler         http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.SetLevel(cfg.LogLevel)

	fileSources, err := factory.NewFileSourceFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create file sources: %w", err)
	}

	// Build dependency graph
	imageRepository := repository.NewHTTPImageRepository(
		storage.NewLocalFileReader(),
		storage.NewHTTPImageLoader(cfg.ImageFetchTimeout),
		validation.NewURLValidator(),
		validation.NewFileValidator(cfg.MaxUploadSize),
	)
	client := predictor.NewHTTPClient(cfg.PredictBaseURL, cfg.PredictTimeout)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(observer.NewMetricsObserver(registry))

	sessions := service.NewSessionService(
		imageRepository,
		client,
		publisher,
		session.Options{FetchTimeout: cfg.ImageFetchTimeout, PredictTimeout: cfg.PredictTimeout},
		cfg.MaxSessions,
		cfg.SessionTTL,
	)
	handler := transport.NewHandler(sessions, publisher, registry, cfg)

	return &Container{
		config:          cfg,
		imageRepository: imageRepository,
		predictor:       client,
		publisher:       publisher,
		registry:        registry,
		sessions:        sessions,
		fileSources:     fileSources,
		handler:         handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Sessions returns the session service
func (c *Container) Sessions() service.SessionService {
	return c.sessions
}

// FileSources returns the factory resolving file references
func (c *Container) FileSources() factory.FileSourceFactory {
	return c.fileSources
}

// Shutdown ends every session
func (c *Container) Shutdown() {
	c.sessions.Shutdown()
}
