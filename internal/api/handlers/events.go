package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orin-music/orin-api/internal/events"
)

// keepaliveInterval is how often an idle SSE stream sends a heartbeat.
const keepaliveInterval = 30 * time.Second

// EventsHandler streams pipeline and import events over SSE.
type EventsHandler struct {
	bus *events.Bus
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(bus *events.Bus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

// Stream subscribes the client and forwards events until it disconnects.
func (h *EventsHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, ev.JSON())
			c.Writer.Flush()

		case <-keepalive.C:
			fmt.Fprintf(c.Writer, "data: %s\n\n", `{"status":"connected"}`)
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
