package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/danielmmetz/hn-feed/feed"
	"github.com/danielmmetz/hn-feed/hn"
)

type CommentsHandler struct {
	model   *feed.Model
	stories *StoriesHandler
}

func NewCommentsHandler(model *feed.Model, stories *StoriesHandler) *CommentsHandler {
	return &CommentsHandler{model: model, stories: stories}
}

// GetComments handles GET /api/stories/{id}/comments[?depth=N&order=...]
//
// Without depth the direct replies are loaded into the model and returned
// flat. With depth the reply tree is fetched down to that many extra levels
// (-1 for all) and returned nested.
func (h *CommentsHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	order, err := feed.ParseOrder(q.Get("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	depth, threaded := 0, q.Has("depth")
	if threaded {
		if depth, err = strconv.Atoi(q.Get("depth")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid depth")
			return
		}
	}

	story, ok := h.stories.lookup(w, r)
	if !ok {
		return
	}

	if threaded {
		th := h.model.Thread(ctx, story, depth)
		writeJSON(w, r, map[string]interface{}{
			"story_id": th.StoryID,
			"count":    th.Count(),
			"comments": th.Roots,
			"failed":   hn.Batch{Failed: th.Failed}.FailedIDs(),
		})
		return
	}

	res := h.model.LoadComments(ctx, story)
	writeJSON(w, r, map[string]interface{}{
		"story_id":   res.StoryID,
		"count":      len(res.Items),
		"comments":   feed.Sort(res.Items, order, time.Now()),
		"failed":     hn.Batch{Failed: res.Failed}.FailedIDs(),
		"fetched_at": time.Now().Unix(),
	})
}
