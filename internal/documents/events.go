package documents

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studyviz-backend/internal/shared/server/respond"
)

const eventHeartbeat = 15 * time.Second

// events streams the document status as server-sent events. The current state
// is sent first; the stream ends after a terminal status.
func (h *Handler) events(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)
	if h.Events == nil {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Event stream is not enabled", nil)
		return
	}

	// Subscribe before reading so a transition between the read and the
	// subscription is not lost.
	sub := h.Events.Subscribe(id)
	defer h.Events.Unsubscribe(sub)

	doc, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to fetch document", nil)
		}
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("status", doc)
	c.Writer.Flush()
	if doc.Status.IsTerminal() {
		return
	}

	heartbeat := time.NewTicker(eventHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-heartbeat.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			return true
		case ev, ok := <-sub.C():
			if !ok {
				return false
			}
			c.SSEvent("status", ev.Data)
			return !ev.Terminal
		}
	})
}
