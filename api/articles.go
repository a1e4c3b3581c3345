package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/danielmmetz/hn-feed/readability"
)

type ArticlesHandler struct {
	stories   *StoriesHandler
	extractor *readability.Extractor
	sf        singleflight.Group
}

func NewArticlesHandler(stories *StoriesHandler, extractor *readability.Extractor) *ArticlesHandler {
	return &ArticlesHandler{stories: stories, extractor: extractor}
}

// GetArticle handles GET /api/stories/{id}/article
func (h *ArticlesHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	story, ok := h.stories.lookup(w, r)
	if !ok {
		return
	}
	if story.URL == "" {
		writeError(w, http.StatusNotFound, "story has no URL")
		return
	}

	// Concurrent readers of the same story share one extraction, which
	// outlives any one of them.
	ctx := context.WithoutCancel(r.Context())
	v, err, _ := h.sf.Do(fmt.Sprintf("article-%d", story.ID), func() (interface{}, error) {
		return h.extractor.Extract(ctx, story.URL)
	})
	if err != nil {
		slog.Error("api: article extraction failed", "story_id", story.ID, "error", err)
		writeError(w, http.StatusBadGateway, "article extraction failed")
		return
	}

	writeJSON(w, r, v.(*readability.Article))
}
