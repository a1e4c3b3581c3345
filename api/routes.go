package api

import (
	"net/http"
	"time"

	"github.com/danielmmetz/hn-feed/feed"
	"github.com/danielmmetz/hn-feed/readability"
	"github.com/danielmmetz/hn-feed/sse"
)

type Deps struct {
	Model     *feed.Model
	Broker    *sse.Broker
	Extractor *readability.Extractor
	// Metrics serves /metrics when set.
	Metrics       http.Handler
	RefreshWindow time.Duration
}

// NewHandler builds the routed API.
func NewHandler(d Deps) http.Handler {
	storiesHandler := NewStoriesHandler(d.Model)
	commentsHandler := NewCommentsHandler(d.Model, storiesHandler)
	articlesHandler := NewArticlesHandler(storiesHandler, d.Extractor)
	refreshHandler := NewRefreshHandler(d.Model, d.RefreshWindow)
	healthHandler := NewHealthHandler(d.Model, d.Broker)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stories", storiesHandler.ListStories)
	mux.HandleFunc("POST /api/stories/refresh", refreshHandler.Refresh)
	mux.HandleFunc("GET /api/stories/{id}", storiesHandler.GetStory)
	mux.HandleFunc("GET /api/stories/{id}/comments", commentsHandler.GetComments)
	mux.HandleFunc("GET /api/stories/{id}/article", articlesHandler.GetArticle)
	mux.Handle("GET /api/events", d.Broker)
	mux.Handle("GET /api/health", healthHandler)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	return LogRequests(mux)
}
