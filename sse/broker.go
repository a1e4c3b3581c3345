// Package sse fans model change events out to in-process subscribers and to
// HTTP clients speaking Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	subscriberBuffer  = 64
	keepaliveInterval = 30 * time.Second
)

type Event struct {
	ID   uint64
	Type string
	Data string
}

func (e *Event) Format() string {
	return fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", e.ID, e.Type, e.Data)
}

type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan *Event]struct{}
	ring        []*Event
	ringSize    int
	nextID      uint64
	keepalive   time.Duration
}

// NewBroker keeps the last ringSize events for clients resuming with Last-Event-ID.
func NewBroker(ringSize int) *Broker {
	if ringSize < 1 {
		ringSize = 1
	}
	return &Broker{
		subscribers: make(map[chan *Event]struct{}),
		ring:        make([]*Event, 0, ringSize),
		ringSize:    ringSize,
		nextID:      1,
		keepalive:   keepaliveInterval,
	}
}

// Publish broadcasts an event to all subscribers and stores in ring buffer.
// Subscribers whose buffer is full miss the event.
func (b *Broker) Publish(eventType, data string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	evt := &Event{
		ID:   b.nextID,
		Type: eventType,
		Data: data,
	}
	b.nextID++

	if len(b.ring) >= b.ringSize {
		b.ring = b.ring[1:]
	}
	b.ring = append(b.ring, evt)

	// Sends never block. Holding the lock keeps cancel from closing a channel
	// mid-send and keeps delivery in id order.
	for ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a new listener. Call the returned cancel func to stop
// receiving; it closes the channel.
func (b *Broker) Subscribe() (<-chan *Event, func()) {
	ch := make(chan *Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// EventsAfter returns buffered events newer than lastID. ok is false when
// lastID has already fallen out of the buffer and the caller must resync.
func (b *Broker) EventsAfter(lastID uint64) (events []*Event, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.ring) == 0 {
		return nil, true
	}
	if oldest := b.ring[0].ID; lastID+1 < oldest {
		return nil, false
	}
	for _, e := range b.ring {
		if e.ID > lastID {
			events = append(events, e)
		}
	}
	return events, true
}

// LastID returns the id of the most recent event, 0 before any.
func (b *Broker) LastID() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextID - 1
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Subscribe before replaying so nothing published in between is lost.
	ch, cancel := b.Subscribe()
	defer cancel()

	// Header for browser reconnects, query param for initial connect.
	lastEventID := r.Header.Get("Last-Event-ID")
	if lastEventID == "" {
		lastEventID = r.URL.Query().Get("lastEventId")
	}
	var replayed uint64
	if lastEventID != "" {
		if id, err := strconv.ParseUint(lastEventID, 10, 64); err == nil {
			events, ok := b.EventsAfter(id)
			if !ok {
				fmt.Fprintf(w, "id: %d\nevent: sync_required\ndata: {}\n\n", b.LastID())
			}
			for _, e := range events {
				fmt.Fprint(w, e.Format())
				replayed = e.ID
			}
		}
	}

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(b.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if evt.ID <= replayed {
				continue
			}
			fmt.Fprint(w, evt.Format())
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
