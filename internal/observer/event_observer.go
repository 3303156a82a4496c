package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SessionEvent represents a change to a classifier session
type SessionEvent struct {
	EventType    EventType              `json:"event_type"`
	SessionID    string                 `json:"session_id"`
	Timestamp    time.Time              `json:"timestamp"`
	Phase        string                 `json:"phase"`
	Source       string                 `json:"source,omitempty"`
	Duration     time.Duration          `json:"duration,omitempty"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of session event
type EventType string

const (
	// ImageLoaded when a file read or URL probe produced a display image
	ImageLoaded EventType = "image_loaded"
	// ImageRejected when an upload or URL attempt failed
	ImageRejected EventType = "image_rejected"
	// PredictionStarted when a prediction request is issued
	PredictionStarted EventType = "prediction_started"
	// PredictionCompleted when the service returned a label
	PredictionCompleted EventType = "prediction_completed"
	// PredictionFailed when the prediction ended in an error
	PredictionFailed EventType = "prediction_failed"
	// StaleResultDiscarded when a late completion belonged to an older generation
	StaleResultDiscarded EventType = "stale_result_discarded"
	// NavigatedBack when the user returned to the upload panel
	NavigatedBack EventType = "navigated_back"
	// SessionReset when the session was cleared
	SessionReset EventType = "session_reset"
	// SessionClosed when the session ended
	SessionClosed EventType = "session_closed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event SessionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event SessionEvent)
}

// LoggingObserver logs session events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles session events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event SessionEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"session_id": event.SessionID,
		"phase":      event.Phase,
		"success":    event.Success,
	}

	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ImageLoaded:
		entry.Info("Image loaded")
	case ImageRejected:
		entry.Warn("Image rejected")
	case PredictionStarted:
		entry.Info("Prediction started")
	case PredictionCompleted:
		entry.Info("Prediction completed")
	case PredictionFailed:
		entry.Error("Prediction failed")
	case StaleResultDiscarded:
		entry.Debug("Discarded result from superseded request")
	case NavigatedBack, SessionReset, SessionClosed:
		entry.Debug("Session navigation")
	default:
		entry.Info("Session event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event SessionEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Notify observers concurrently
	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
