package feed

import (
	"context"

	"github.com/danielmmetz/hn-feed/hn"
)

// Node is a comment with its fetched replies, in kids order.
type Node struct {
	*hn.Item
	Replies []*Node `json:"replies"`
}

// Thread is the reply tree of a story.
type Thread struct {
	StoryID int          `json:"story_id"`
	Roots   []*Node      `json:"comments"`
	Failed  []hn.Failure `json:"-"`
}

// Count returns the number of nodes in the tree.
func (t *Thread) Count() int {
	return countNodes(t.Roots)
}

func countNodes(nodes []*Node) int {
	n := len(nodes)
	for _, c := range nodes {
		n += countNodes(c.Replies)
	}
	return n
}

// Thread fetches the reply tree of story one level at a time, each level as a
// single fan-out. depth 0 fetches direct replies only; a negative depth has
// no limit. Deleted comments with no remaining replies are pruned. The model
// state is not touched.
func (m *Model) Thread(ctx context.Context, story *hn.Item, depth int) *Thread {
	t := &Thread{Roots: []*Node{}}
	if story == nil {
		return t
	}
	t.StoryID = story.ID

	// Each pending id remembers the node its reply attaches to.
	type pending struct {
		parent *Node
		id     int
	}
	var level []pending
	for _, id := range story.Kids {
		level = append(level, pending{id: id})
	}

	for d := 0; len(level) > 0; d++ {
		if ctx.Err() != nil {
			break
		}
		ids := make([]int, len(level))
		for i, p := range level {
			ids[i] = p.id
		}
		batch := m.src.GetItems(ctx, ids)
		t.Failed = append(t.Failed, batch.Failed...)

		byID := make(map[int]*hn.Item, len(batch.Items))
		for _, it := range batch.Items {
			byID[it.ID] = it
		}

		var next []pending
		for _, p := range level {
			it, ok := byID[p.id]
			if !ok {
				continue
			}
			n := &Node{Item: it, Replies: []*Node{}}
			if p.parent == nil {
				t.Roots = append(t.Roots, n)
			} else {
				p.parent.Replies = append(p.parent.Replies, n)
			}
			if depth < 0 || d < depth {
				for _, kid := range it.Kids {
					next = append(next, pending{parent: n, id: kid})
				}
			}
		}
		level = next
	}

	t.Roots = pruneDeleted(t.Roots)
	return t
}

// pruneDeleted removes deleted comments that have no visible children.
func pruneDeleted(nodes []*Node) []*Node {
	result := []*Node{}
	for _, n := range nodes {
		n.Replies = pruneDeleted(n.Replies)
		if n.Deleted && len(n.Replies) == 0 {
			continue
		}
		result = append(result, n)
	}
	return result
}
