package feed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielmmetz/hn-feed/feed"
	"github.com/danielmmetz/hn-feed/hn"
)

// story 1
// ├── 10
// │   ├── 11
// │   │   └── 111
// │   └── 12 (deleted, no replies)
// ├── 20 (deleted)
// │   └── 21
// └── 30 (fetch fails)
func threadSource() *fakeSource {
	return &fakeSource{items: map[int]*hn.Item{
		10:  {ID: 10, Type: hn.TypeComment, Parent: 1, Kids: []int{11, 12}},
		11:  {ID: 11, Type: hn.TypeComment, Parent: 10, Kids: []int{111}},
		111: {ID: 111, Type: hn.TypeComment, Parent: 11},
		12:  {ID: 12, Type: hn.TypeComment, Parent: 10, Deleted: true},
		20:  {ID: 20, Type: hn.TypeComment, Parent: 1, Deleted: true, Kids: []int{21}},
		21:  {ID: 21, Type: hn.TypeComment, Parent: 20},
	}}
}

func nodeIDs(nodes []*feed.Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestThread_Unlimited(t *testing.T) {
	m := feed.NewModel(threadSource(), nil, feed.Config{})
	story := &hn.Item{ID: 1, Type: hn.TypeStory, Kids: []int{10, 20, 30}}

	th := m.Thread(context.Background(), story, -1)
	assert.Equal(t, 1, th.StoryID)
	require.Equal(t, []int{10, 20}, nodeIDs(th.Roots))

	// 12 is pruned; 20 stays because 21 is visible under it.
	assert.Equal(t, []int{11}, nodeIDs(th.Roots[0].Replies))
	assert.Equal(t, []int{111}, nodeIDs(th.Roots[0].Replies[0].Replies))
	assert.Equal(t, []int{21}, nodeIDs(th.Roots[1].Replies))
	assert.Equal(t, 5, th.Count())

	require.Len(t, th.Failed, 1)
	assert.Equal(t, 30, th.Failed[0].ID)
}

func TestThread_DepthLimit(t *testing.T) {
	src := threadSource()
	m := feed.NewModel(src, nil, feed.Config{})
	story := &hn.Item{ID: 1, Kids: []int{10, 20}}

	th := m.Thread(context.Background(), story, 0)
	// 20 is deleted and its replies were not fetched, so it goes.
	assert.Equal(t, []int{10}, nodeIDs(th.Roots))
	assert.Empty(t, th.Roots[0].Replies)
	_, calls := src.calls()
	assert.Equal(t, 2, calls)

	th = m.Thread(context.Background(), story, 1)
	assert.Equal(t, []int{10, 20}, nodeIDs(th.Roots))
	assert.Equal(t, []int{11}, nodeIDs(th.Roots[0].Replies))
	assert.Empty(t, th.Roots[0].Replies[0].Replies)
}

func TestThread_DoesNotTouchState(t *testing.T) {
	m := feed.NewModel(threadSource(), nil, feed.Config{})
	m.Thread(context.Background(), &hn.Item{ID: 1, Kids: []int{10}}, -1)

	snap := m.Snapshot()
	assert.Empty(t, snap.Comments)
	assert.Zero(t, snap.CommentsFor)
}

func TestThread_NilStory(t *testing.T) {
	m := feed.NewModel(threadSource(), nil, feed.Config{})
	th := m.Thread(context.Background(), nil, -1)
	assert.Empty(t, th.Roots)
	assert.Zero(t, th.Count())
}
