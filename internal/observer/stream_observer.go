package observer

import (
	"context"

	"github.com/google/uuid"
)

// StreamObserver signals a single session's listener that its state changed.
// Signals are coalesced: a listener that falls behind sees one pending signal.
type StreamObserver struct {
	name      string
	sessionID string
	ch        chan struct{}
}

// NewStreamObserver creates an observer for events of sessionID
func NewStreamObserver(sessionID string) *StreamObserver {
	return &StreamObserver{
		name:      "stream_observer_" + uuid.NewString(),
		sessionID: sessionID,
		ch:        make(chan struct{}, 1),
	}
}

// Changes returns the channel that receives a value after each state change
func (o *StreamObserver) Changes() <-chan struct{} {
	return o.ch
}

// OnEvent records that the watched session changed
func (o *StreamObserver) OnEvent(ctx context.Context, event SessionEvent) {
	if event.SessionID != o.sessionID {
		return
	}
	select {
	case o.ch <- struct{}{}:
	default:
	}
}

// GetObserverName returns a name unique to this stream
func (o *StreamObserver) GetObserverName() string {
	return o.name
}
