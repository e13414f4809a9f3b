package controllers

import (
	"io"
	"net/http"
	"time"

	"pickup-service/events"
	"pickup-service/middleware"
	"pickup-service/services"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

// EventsController streams lifecycle events to dashboards over SSE.
type EventsController struct {
	hub       *events.Hub
	hierarchy services.HierarchyResolver
}

// NewEventsController creates a new EventsController.
func NewEventsController(hub *events.Hub, hierarchy services.HierarchyResolver) *EventsController {
	return &EventsController{hub: hub, hierarchy: hierarchy}
}

const keepAliveInterval = 30 * time.Second

// Stream subscribes the viewer to their hierarchy-scoped event feed
// GET /events/stream
func (ec *EventsController) Stream(c *gin.Context) {
	viewerID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	role := middleware.GetUserRole(c)

	all := services.SeesEverything(role)
	var marketerIDs []string
	if !all {
		marketerIDs, err = ec.hierarchy.ResolveVisibleMarketers(c.Request.Context(), viewerID, role)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to resolve visibility"})
			return
		}
	}

	sub := ec.hub.Subscribe(viewerID, role, marketerIDs, all)
	defer ec.hub.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			sse.Encode(w, sse.Event{Event: event.Type, Data: event})
			return true
		case <-keepAlive.C:
			sse.Encode(w, sse.Event{Event: "ping", Data: "keepalive"})
			return true
		case <-ctx.Done():
			return false
		}
	})
}
