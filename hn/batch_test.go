package hn_test

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielmmetz/hn-feed/hn"
)

func TestGetItems_DropsFailures(t *testing.T) {
	_, c := newFakeAPI(t, map[string]string{
		"/v0/item/10.json": `{"id":10,"type":"comment","time":100}`,
		"/v0/item/30.json": `null`,
		"/v0/item/40.json": `{"id":40,"type":"comment"`,
	})

	b := c.GetItems(context.Background(), []int{10, 20, 30, 40})

	require.Len(t, b.Items, 1)
	assert.Equal(t, 10, b.Items[0].ID)
	assert.Equal(t, []int{20, 30, 40}, b.FailedIDs())
	assert.ErrorIs(t, b.Failed[1].Err, hn.ErrNotFound)
}

func TestGetItems_AllFail(t *testing.T) {
	_, c := newFakeAPI(t, map[string]string{})

	b := c.GetItems(context.Background(), []int{1, 2, 3})
	assert.Empty(t, b.Items)
	assert.Len(t, b.Failed, 3)
}

func TestGetItems_Empty(t *testing.T) {
	f, c := newFakeAPI(t, map[string]string{})

	b := c.GetItems(context.Background(), nil)
	assert.Empty(t, b.Items)
	assert.Empty(t, b.Failed)
	assert.Zero(t, f.hits.Load())
}

func TestGetItems_PreservesInputOrder(t *testing.T) {
	// Responses come back in random order; the batch must not.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v0/item/"), ".json")
		fmt.Fprintf(w, `{"id":%s,"type":"story"}`, id)
	}))
	defer srv.Close()

	ids := []int{42, 7, 19, 3, 88, 61, 5, 12, 30, 27, 1, 99}
	for _, limit := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			c := hn.NewClient(hn.WithBaseURL(srv.URL), hn.WithConcurrency(limit))
			b := c.GetItems(context.Background(), ids)
			require.Len(t, b.Items, len(ids))
			for i, it := range b.Items {
				assert.Equal(t, ids[i], it.ID)
			}
		})
	}
}

func TestGetItems_SizeNeverExceedsInput(t *testing.T) {
	bodies := map[string]string{}
	for id := 1; id <= 20; id += 2 {
		bodies[fmt.Sprintf("/v0/item/%d.json", id)] = fmt.Sprintf(`{"id":%d}`, id)
	}
	_, c := newFakeAPI(t, bodies)

	for n := 0; n <= 20; n++ {
		ids := make([]int, n)
		for i := range ids {
			ids[i] = i + 1
		}
		b := c.GetItems(context.Background(), ids)
		assert.LessOrEqual(t, len(b.Items), n)
		assert.Equal(t, n, len(b.Items)+len(b.Failed))
	}
}

func TestGetItems_RateLimited(t *testing.T) {
	f, _ := newFakeAPI(t, map[string]string{"/v0/item/1.json": `{"id":1}`})
	c := hn.NewClient(hn.WithBaseURL(f.url), hn.WithRateLimit(20, 1))

	start := time.Now()
	b := c.GetItems(context.Background(), []int{1, 1, 1, 1, 1})
	assert.Len(t, b.Items, 5)
	// One token up front, then one every 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
