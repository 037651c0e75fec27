package handler

import (
	"net/http"

	"github.com/alanyoungcy/edgebot/internal/events"
)

// EventHandler serves the engine event log.
type EventHandler struct {
	log *events.Log
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(log *events.Log) *EventHandler {
	return &EventHandler{log: log}
}

// List handles GET /api/events. Events are returned newest first.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	writeJSON(w, http.StatusOK, h.log.Recent(limit))
}
