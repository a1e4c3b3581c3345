// Package feed holds the in-memory view of one Hacker News feed: the ranked
// story ids, the stories behind them, and the comments of the story last
// opened. Every load returns an immutable snapshot and announces itself to a
// Publisher so observers can re-read.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danielmmetz/hn-feed/hn"
)

// DefaultMaxStories caps how many ids of a feed are loaded.
const DefaultMaxStories = 50

// Event types published by the model.
const (
	EventStoriesUpdated  = "stories_updated"
	EventCommentsUpdated = "comments_updated"
)

// Source is the subset of *hn.Client the model needs.
type Source interface {
	StoryIDs(ctx context.Context, feed hn.Feed, limit int) ([]int, error)
	GetItem(ctx context.Context, id int) (*hn.Item, error)
	GetItems(ctx context.Context, ids []int) hn.Batch
}

// Publisher receives change notifications. *sse.Broker satisfies it.
type Publisher interface {
	Publish(eventType, data string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string) {}

type Config struct {
	Feed       hn.Feed
	MaxStories int
}

// Stories is the result of LoadTopStories.
type Stories struct {
	Feed   hn.Feed
	IDs    []int
	Items  []*hn.Item
	Failed []hn.Failure
	// Cached is set when ids were already loaded and nothing was fetched.
	Cached bool
}

// Comments is the result of LoadComments.
type Comments struct {
	StoryID int
	Items   []*hn.Item
	Failed  []hn.Failure
}

// Snapshot is a point-in-time copy of the model state.
type Snapshot struct {
	Feed        hn.Feed    `json:"feed"`
	TopStoryIDs []int      `json:"top_story_ids"`
	Stories     []*hn.Item `json:"stories"`
	Comments    []*hn.Item `json:"comments"`
	CommentsFor int        `json:"comments_for,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Model struct {
	src        Source
	pub        Publisher
	feed       hn.Feed
	maxStories int
	ids        *TopList
	sf         singleflight.Group

	mu          sync.RWMutex
	stories     []*hn.Item
	comments    []*hn.Item
	commentsFor int
	updatedAt   time.Time
}

// NewModel builds a model over src. pub may be nil.
func NewModel(src Source, pub Publisher, cfg Config) *Model {
	if pub == nil {
		pub = nopPublisher{}
	}
	if cfg.Feed == "" {
		cfg.Feed = hn.FeedTop
	}
	if cfg.MaxStories <= 0 {
		cfg.MaxStories = DefaultMaxStories
	}
	return &Model{
		src:        src,
		pub:        pub,
		feed:       cfg.Feed,
		maxStories: cfg.MaxStories,
		ids:        NewTopList(),
	}
}

func (m *Model) Feed() hn.Feed { return m.feed }

// TopList exposes the ranked ids for pagination.
func (m *Model) TopList() *TopList { return m.ids }

// LoadTopStories loads the feed once. While ids are present it returns the
// current state with Cached set and makes no request; use Refresh to reload.
// Concurrent first calls share a single fetch. The fetch is not tied to any
// one caller: a caller whose ctx ends gets ctx.Err() while the load runs on.
func (m *Model) LoadTopStories(ctx context.Context) (Stories, error) {
	if m.ids.Len() > 0 {
		return m.cachedStories(), nil
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := m.sf.DoChan("stories", func() (interface{}, error) {
		if m.ids.Len() > 0 {
			return m.cachedStories(), nil
		}
		return m.loadStories(loadCtx)
	})
	select {
	case <-ctx.Done():
		return Stories{Feed: m.feed}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Stories{Feed: m.feed}, res.Err
		}
		return res.Val.(Stories), nil
	}
}

func (m *Model) cachedStories() Stories {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stories{
		Feed:   m.feed,
		IDs:    m.ids.IDs(),
		Items:  cloneItems(m.stories),
		Cached: true,
	}
}

func (m *Model) loadStories(ctx context.Context) (Stories, error) {
	m.mu.Lock()
	m.stories = nil
	m.ids.Set(nil)
	m.mu.Unlock()

	start := time.Now()
	ids, err := m.src.StoryIDs(ctx, m.feed, m.maxStories)
	if err != nil {
		slog.Error("feed: error fetching story ids", "feed", m.feed, "error", err)
		return Stories{}, err
	}

	batch := m.src.GetItems(ctx, ids)

	m.mu.Lock()
	m.ids.Set(ids)
	m.stories = batch.Items
	m.updatedAt = time.Now()
	m.mu.Unlock()

	slog.Info("feed: stories loaded", "feed", m.feed, "ids", len(ids), "stories", len(batch.Items), "failed", len(batch.Failed), "elapsed", time.Since(start))
	m.publish(EventStoriesUpdated, map[string]interface{}{
		"feed":      m.feed,
		"count":     len(batch.Items),
		"failed":    batch.FailedIDs(),
		"timestamp": time.Now().Unix(),
	})

	return Stories{
		Feed:   m.feed,
		IDs:    append([]int(nil), ids...),
		Items:  cloneItems(batch.Items),
		Failed: batch.Failed,
	}, nil
}

// LoadComments replaces the comment list with the direct replies of story.
// Every call fetches again; the last call to finish wins.
func (m *Model) LoadComments(ctx context.Context, story *hn.Item) Comments {
	var storyID int
	var kids []int
	if story != nil {
		storyID = story.ID
		kids = story.Kids
	}

	m.mu.Lock()
	m.comments = nil
	m.commentsFor = storyID
	m.mu.Unlock()

	batch := m.src.GetItems(ctx, kids)

	m.mu.Lock()
	m.comments = batch.Items
	m.commentsFor = storyID
	m.updatedAt = time.Now()
	m.mu.Unlock()

	slog.Info("feed: comments loaded", "story_id", storyID, "comments", len(batch.Items), "failed", len(batch.Failed))
	m.publish(EventCommentsUpdated, map[string]interface{}{
		"story_id":  storyID,
		"count":     len(batch.Items),
		"failed":    batch.FailedIDs(),
		"timestamp": time.Now().Unix(),
	})

	return Comments{
		StoryID: storyID,
		Items:   cloneItems(batch.Items),
		Failed:  batch.Failed,
	}
}

// Reset forgets all loaded state so the next LoadTopStories fetches again.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids.Set(nil)
	m.stories = nil
	m.comments = nil
	m.commentsFor = 0
}

// Refresh reloads the feed unconditionally.
func (m *Model) Refresh(ctx context.Context) (Stories, error) {
	m.Reset()
	return m.LoadTopStories(ctx)
}

func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.ids.IDs()
	if ids == nil {
		ids = []int{}
	}
	return Snapshot{
		Feed:        m.feed,
		TopStoryIDs: ids,
		Stories:     cloneItems(m.stories),
		Comments:    cloneItems(m.comments),
		CommentsFor: m.commentsFor,
		UpdatedAt:   m.updatedAt,
	}
}

// Story returns a loaded story, fetching it from upstream when it is not part
// of the current feed.
func (m *Model) Story(ctx context.Context, id int) (*hn.Item, error) {
	m.mu.RLock()
	for _, it := range m.stories {
		if it.ID == id {
			m.mu.RUnlock()
			return it, nil
		}
	}
	m.mu.RUnlock()
	return m.src.GetItem(ctx, id)
}

func (m *Model) publish(eventType string, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("feed: error encoding event", "event", eventType, "error", err)
		return
	}
	m.pub.Publish(eventType, string(data))
}

func cloneItems(items []*hn.Item) []*hn.Item {
	out := make([]*hn.Item, len(items))
	copy(out, items)
	return out
}

// Publishers fans every event out to each of its members.
type Publishers []Publisher

func (ps Publishers) Publish(eventType, data string) {
	for _, p := range ps {
		p.Publish(eventType, data)
	}
}
