// Package worker runs background jobs against the feed model.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielmmetz/hn-feed/feed"
)

// Refresher reloads a feed. *feed.Model satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) (feed.Stories, error)
}

type Poller struct {
	model    Refresher
	interval time.Duration
}

func NewPoller(model Refresher, interval time.Duration) *Poller {
	return &Poller{model: model, interval: interval}
}

// Start runs the polling loop in a goroutine until the context is cancelled.
// A non-positive interval disables polling.
func (p *Poller) Start(ctx context.Context) {
	if p.interval <= 0 {
		slog.Info("poller: disabled")
		return
	}
	go p.Run(ctx)
}

// Run polls once immediately, then on every tick, and returns when the
// context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("poller: shutting down")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	start := time.Now()
	res, err := p.model.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("poller: refresh failed", "error", err)
		return
	}
	slog.Info("poller: poll complete", "feed", res.Feed, "stories", len(res.Items), "failed", len(res.Failed), "elapsed", time.Since(start))
}
