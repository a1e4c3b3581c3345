package api

import (
	"net/http"

	"github.com/danielmmetz/hn-feed/feed"
	"github.com/danielmmetz/hn-feed/sse"
)

type HealthHandler struct {
	model  *feed.Model
	broker *sse.Broker
}

func NewHealthHandler(model *feed.Model, broker *sse.Broker) *HealthHandler {
	return &HealthHandler{model: model, broker: broker}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.model.Snapshot()
	resp := map[string]interface{}{
		"status":        "ok",
		"feed":          snap.Feed,
		"story_ids":     len(snap.TopStoryIDs),
		"stories_count": len(snap.Stories),
		"subscribers":   h.broker.SubscriberCount(),
	}
	if !snap.UpdatedAt.IsZero() {
		resp["last_load"] = snap.UpdatedAt.Unix()
	}
	writeJSON(w, r, resp)
}
