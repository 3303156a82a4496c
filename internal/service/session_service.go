package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	apperrors "go-sign-classifier/internal/errors"
	"go-sign-classifier/internal/logger"
	"go-sign-classifier/internal/observer"
	"go-sign-classifier/internal/predictor"
	"go-sign-classifier/internal/repository"
	"go-sign-classifier/internal/session"
	"go-sign-classifier/pkg/models"
)

// MsgSessionNotFound is returned for unknown or expired session IDs
const MsgSessionNotFound = "Session not found or expired. Please reload the page."

// SessionService manages classifier sessions, one per browser tab, and
// exposes the prediction service metadata the view needs.
type SessionService interface {
	Create(ctx context.Context) *session.Controller
	Get(id string) (*session.Controller, error)
	Delete(id string) error
	Len() int
	Shutdown()

	ModelInfo(ctx context.Context) (*models.ModelInfo, error)
	PredictionServiceAvailable(ctx context.Context) bool
}

// sessionService keeps controllers in an LRU whose entries expire after a
// period without access. Evicted controllers are closed.
type sessionService struct {
	repo      repository.ImageRepository
	predictor predictor.Client
	publisher observer.Subject
	opts      session.Options
	sessions  *expirable.LRU[string, *session.Controller]
}

// NewSessionService creates a session service holding at most maxSessions
// sessions, each expiring after ttl without access
func NewSessionService(
	repo repository.ImageRepository,
	client predictor.Client,
	publisher observer.Subject,
	opts session.Options,
	maxSessions int,
	ttl time.Duration,
) SessionService {
	onEvict := func(id string, ctrl *session.Controller) {
		ctrl.Close()
		logger.WithField("session_id", id).Debug("Session evicted")
	}
	return &sessionService{
		repo:      repo,
		predictor: client,
		publisher: publisher,
		opts:      opts,
		sessions:  expirable.NewLRU[string, *session.Controller](maxSessions, onEvict, ttl),
	}
}

// Create starts a new empty session
func (s *sessionService) Create(ctx context.Context) *session.Controller {
	id := uuid.NewString()
	ctrl := session.NewController(id, s.repo, s.predictor, s.publisher, s.opts)
	s.sessions.Add(id, ctrl)
	logger.WithField("session_id", id).Debug("Session created")
	return ctrl
}

// Get returns the session and extends its lifetime
func (s *sessionService) Get(id string) (*session.Controller, error) {
	ctrl, ok := s.sessions.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError(MsgSessionNotFound, fmt.Errorf("session %q", id))
	}
	s.sessions.Add(id, ctrl)
	return ctrl, nil
}

// Delete ends the session
func (s *sessionService) Delete(id string) error {
	if !s.sessions.Remove(id) {
		return apperrors.NewNotFoundError(MsgSessionNotFound, fmt.Errorf("session %q", id))
	}
	return nil
}

// Len returns the number of live sessions
func (s *sessionService) Len() int {
	return s.sessions.Len()
}

// Shutdown closes every session
func (s *sessionService) Shutdown() {
	s.sessions.Purge()
}

// ModelInfo returns the prediction service's model description
func (s *sessionService) ModelInfo(ctx context.Context) (*models.ModelInfo, error) {
	return s.predictor.ModelInfo(ctx)
}

// PredictionServiceAvailable reports whether the prediction service answers
func (s *sessionService) PredictionServiceAvailable(ctx context.Context) bool {
	if err := s.predictor.Ping(ctx); err != nil {
		logger.WithError(err).Warn("Prediction service unavailable")
		return false
	}
	return true
}
