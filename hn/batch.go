package hn

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Failure records an id that could not be fetched or decoded.
type Failure struct {
	ID  int
	Err error
}

// Batch is the outcome of a fan-out fetch. Items keeps the relative order
// of the requested ids; ids that failed are listed in Failed instead.
type Batch struct {
	Items  []*Item
	Failed []Failure
}

// FailedIDs returns the ids in Failed.
func (b Batch) FailedIDs() []int {
	ids := make([]int, len(b.Failed))
	for i, f := range b.Failed {
		ids[i] = f.ID
	}
	return ids
}

// GetItems fetches multiple items concurrently and returns them in order.
// Errors for individual items are logged but don't fail the batch.
func (c *Client) GetItems(ctx context.Context, ids []int) Batch {
	items := make([]*Item, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}
	for i, id := range ids {
		g.Go(func() error {
			items[i], errs[i] = c.GetItem(ctx, id)
			return nil
		})
	}
	g.Wait()

	var b Batch
	for i, id := range ids {
		if errs[i] != nil {
			slog.Warn("hn: item fetch failed", "item_id", id, "error", errs[i])
			b.Failed = append(b.Failed, Failure{ID: id, Err: errs[i]})
			continue
		}
		b.Items = append(b.Items, items[i])
	}
	return b
}
