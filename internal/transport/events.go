package transport

import (
	"io"

	"github.com/gin-gonic/gin"

	"go-sign-classifier/internal/observer"
)

const stateEvent = "state"

// sessionEvents streams the session state as server-sent events: one
// snapshot on connect, then one after every change. The stream ends when
// the client goes away or the session is closed.
func (h *Handler) sessionEvents(c *gin.Context) {
	ctrl := currentSession(c)
	stream := observer.NewStreamObserver(ctrl.ID())
	h.subject.Subscribe(stream)
	defer h.subject.Unsubscribe(stream)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(stateEvent, newSessionResponse(ctrl))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-stream.Changes():
			c.SSEvent(stateEvent, newSessionResponse(ctrl))
			return !ctrl.Closed()
		}
	})
}
