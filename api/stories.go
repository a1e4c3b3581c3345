package api

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielmmetz/hn-feed/feed"
	"github.com/danielmmetz/hn-feed/hn"
)

const pageSize = 30

type StoriesHandler struct {
	model *feed.Model
}

func NewStoriesHandler(model *feed.Model) *StoriesHandler {
	return &StoriesHandler{model: model}
}

// ListStories handles GET /api/stories?page=N&order=time|rank|score|hot
func (h *StoriesHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := pageParam(r)
	order, err := feed.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.model.LoadTopStories(ctx)
	if err != nil {
		slog.Error("api: loading stories failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}

	sorted := feed.Sort(res.Items, order, time.Now())
	stories := []*hn.Item{}
	if offset := (page - 1) * pageSize; offset < len(sorted) {
		stories = sorted[offset:min(offset+pageSize, len(sorted))]
	}

	resp := map[string]interface{}{
		"feed":    res.Feed,
		"order":   order,
		"stories": stories,
		"page":    page,
		"total":   len(sorted),
		"ids":     len(res.IDs),
	}
	writeJSON(w, r, resp)
}

// GetStory handles GET /api/stories/{id}
func (h *StoriesHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	story, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, story)
}

// lookup resolves the {id} path value to a story, job or poll, writing the
// error response itself when it cannot.
func (h *StoriesHandler) lookup(w http.ResponseWriter, r *http.Request) (*hn.Item, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	story, err := h.model.Story(r.Context(), id)
	switch {
	case errors.Is(err, hn.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	case err != nil:
		slog.Error("api: story fetch failed", "story_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "upstream unavailable")
		return nil, false
	}
	switch story.Type {
	case hn.TypeStory, hn.TypeJob, hn.TypePoll:
		return story, true
	}
	writeError(w, http.StatusNotFound, "not found")
	return nil, false
}

func pageParam(r *http.Request) int {
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

func writeJSON(w http.ResponseWriter, r *http.Request, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	etag := fmt.Sprintf(`"%x"`, md5.Sum(body))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
