package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/danielmmetz/hn-feed/feed"
)

const refreshWindow = 30 * time.Second

type RefreshHandler struct {
	model   *feed.Model
	limiter *rate.Limiter
	// done is signalled after each background refresh; tests use it.
	done chan<- error
}

// NewRefreshHandler allows one refresh per window. window <= 0 uses 30s.
func NewRefreshHandler(model *feed.Model, window time.Duration) *RefreshHandler {
	if window <= 0 {
		window = refreshWindow
	}
	return &RefreshHandler{
		model:   model,
		limiter: rate.NewLimiter(rate.Every(window), 1),
	}
}

// Refresh handles POST /api/stories/refresh
func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limited, retry later")
		return
	}

	// Return 202 immediately, do work in background
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "accepted",
		"feed":   h.model.Feed(),
	})

	// Background work uses a detached context (not tied to the request)
	go h.doRefresh(context.Background())
}

func (h *RefreshHandler) doRefresh(ctx context.Context) {
	res, err := h.model.Refresh(ctx)
	if err != nil {
		slog.Error("refresh: reload failed", "error", err)
	} else {
		slog.Info("refresh: reload complete", "stories", len(res.Items), "failed", len(res.Failed))
	}
	if h.done != nil {
		h.done <- err
	}
}
