package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeHN(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v0/newstories.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[7,8]`)
	})
	mux.HandleFunc("GET /v0/item/{file}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("file") {
		case "7.json":
			fmt.Fprint(w, `{"id":7,"type":"story","title":"Seven","by":"ann","score":3,"time":1,"kids":[70]}`)
		case "8.json":
			fmt.Fprint(w, `{"id":8,"type":"story","title":"Eight","by":"bob","score":9,"time":2}`)
		case "70.json":
			fmt.Fprint(w, `{"id":70,"type":"comment","by":"cat","parent":7,"time":3,"text":"I &amp; you<p>second"}`)
		default:
			fmt.Fprint(w, `null`)
		}
	})
	mux.HandleFunc("GET /v0/user/{file}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"ann","karma":42,"created":0,"submitted":[7]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newRootCommand(&out).ParseAndRun(t.Context(), args)
	return out.String(), err
}

func TestTopCommand(t *testing.T) {
	base := fakeHN(t)

	out, err := run(t, "-base-url", base, "-feed", "new", "-log-level", "error", "top", "-order", "score", "-json")
	require.NoError(t, err)
	var stories []struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stories))
	require.Len(t, stories, 2)
	assert.Equal(t, 8, stories[0].ID)
	assert.Equal(t, 7, stories[1].ID)

	out, err = run(t, "-base-url", base, "-feed", "new", "-log-level", "error", "top")
	require.NoError(t, err)
	assert.Contains(t, out, "  1. Seven")
	assert.Contains(t, out, "  2. Eight")
}

func TestTopCommand_BadFlags(t *testing.T) {
	_, err := run(t, "-feed", "nope", "-log-level", "error", "top")
	assert.ErrorContains(t, err, `unknown feed "nope"`)

	_, err = run(t, "-log-format", "xml", "top")
	assert.ErrorContains(t, err, "invalid -log-format")
}

func TestCommentsCommand(t *testing.T) {
	base := fakeHN(t)

	out, err := run(t, "-base-url", base, "-log-level", "error", "comments", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Seven (1 comments)")
	assert.Contains(t, out, "cat ")
	assert.Contains(t, out, "  I & you\n")
	assert.Contains(t, out, "  second\n")

	out, err = run(t, "-base-url", base, "-log-level", "error", "comments", "-depth", "-1", "-json", "7")
	require.NoError(t, err)
	assert.Contains(t, out, `"story_id": 7`)

	_, err = run(t, "-base-url", base, "-log-level", "error", "comments", "x")
	assert.ErrorContains(t, err, "invalid story id")
}

func TestUserCommand(t *testing.T) {
	base := fakeHN(t)

	out, err := run(t, "-base-url", base, "-log-level", "error", "user", "ann")
	require.NoError(t, err)
	assert.Contains(t, out, "karma:     42")
	assert.Contains(t, out, "submitted: 1")
}

func TestArticleCommand_NoURL(t *testing.T) {
	base := fakeHN(t)

	_, err := run(t, "-base-url", base, "-log-level", "error", "article", "8")
	assert.ErrorContains(t, err, "story 8 has no URL")
}

func TestAgo(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", ago(now))
	assert.Equal(t, "1 day ago", ago(now.Add(-25*time.Hour)))
	assert.Equal(t, "3 hours ago", ago(now.Add(-3*time.Hour-time.Minute)))
}
