package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"buscador-gpt/internal/events"
	"buscador-gpt/internal/platform/logger"
	"buscador-gpt/internal/transport/http/response"
)

const eventsHeartbeat = 15 * time.Second

type EventsHandler struct {
	bus       *events.Bus
	log       *logger.Logger
	heartbeat time.Duration
}

func NewEventsHandler(bus *events.Bus, log *logger.Logger) *EventsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &EventsHandler{bus: bus, log: log, heartbeat: eventsHeartbeat}
}

// Stream pushes the caller's notifications as server-sent events until the
// client goes away.
func (h *EventsHandler) Stream(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sub := h.bus.Subscribe(userID)
	defer sub.Unsubscribe()

	_, _ = fmt.Fprint(c.Writer, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(c.Writer, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn("marshal event failed", "kind", ev.Kind, "error", err)
				continue
			}
			_, _ = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Kind, payload)
			flusher.Flush()
		}
	}
}
