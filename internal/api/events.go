package api

import (
	"net/http"

	"github.com/starford/mindmaps/internal/sse"
)

// EventsHandler streams the caller's map changes.
type EventsHandler struct {
	broker *sse.Broker
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(broker *sse.Broker) *EventsHandler {
	return &EventsHandler{broker: broker}
}

// Stream handles GET /api/events.
//
//	@Summary		Stream the caller's map changes as Server-Sent Events
//	@Tags			maps
//	@Produce		text/event-stream
//	@Success		200
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	h.broker.Stream(w, r, u.ID)
}
