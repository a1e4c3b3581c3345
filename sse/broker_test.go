package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_Subscribe(t *testing.T) {
	b := NewBroker(10)
	ch, cancel := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish("stories_updated", `{"count":1}`)
	select {
	case evt := <-ch:
		assert.Equal(t, uint64(1), evt.ID)
		assert.Equal(t, "stories_updated", evt.Type)
		assert.Equal(t, "id: 1\nevent: stories_updated\ndata: {\"count\":1}\n\n", evt.Format())
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	cancel()
	assert.Zero(t, b.SubscriberCount())
	_, open := <-ch
	assert.False(t, open)
}

func TestBroker_CancelDuringPublish(t *testing.T) {
	b := NewBroker(10)
	for range 2000 {
		_, cancel := b.Subscribe()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Publish("stories_updated", "{}")
		}()
		go func() {
			defer wg.Done()
			cancel()
		}()
		wg.Wait()
	}
	assert.Zero(t, b.SubscriberCount())
	assert.Equal(t, uint64(2000), b.LastID())
}

func TestBroker_SlowConsumerDoesNotBlock(t *testing.T) {
	b := NewBroker(10)
	_, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range subscriberBuffer * 2 {
			b.Publish("x", "{}")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	assert.Equal(t, uint64(subscriberBuffer*2), b.LastID())
}

func TestBroker_EventsAfter(t *testing.T) {
	b := NewBroker(3)
	events, ok := b.EventsAfter(0)
	assert.True(t, ok)
	assert.Empty(t, events)

	for range 5 {
		b.Publish("x", "{}")
	}
	// Ring holds 3, 4, 5.
	events, ok = b.EventsAfter(3)
	require.True(t, ok)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(4), events[0].ID)

	events, ok = b.EventsAfter(2)
	require.True(t, ok)
	assert.Len(t, events, 3)

	_, ok = b.EventsAfter(1)
	assert.False(t, ok)
}

func TestBroker_ServeHTTP(t *testing.T) {
	b := NewBroker(10)
	b.Publish("old", `{"n":1}`)
	b.Publish("old", `{"n":2}`)

	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?lastEventId=1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l := <-lines:
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stream")
			return ""
		}
	}

	// Replay of event 2, then the connected comment.
	assert.Equal(t, "id: 2", next())
	assert.Equal(t, "event: old", next())
	assert.Equal(t, `data: {"n":2}`, next())
	assert.Equal(t, "", next())
	assert.Equal(t, ": connected", next())
	assert.Equal(t, "", next())

	b.Publish("stories_updated", `{"count":3}`)
	assert.Equal(t, "id: 3", next())
	assert.Equal(t, "event: stories_updated", next())
	assert.True(t, strings.HasPrefix(next(), "data: "))
}
