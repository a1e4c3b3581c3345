package hn

import (
	"fmt"
	"html"
	"strings"
	"time"

	strip "github.com/grokify/html-strip-tags-go"
)

// Item types as reported in the "type" field.
const (
	TypeStory   = "story"
	TypeComment = "comment"
	TypeJob     = "job"
	TypePoll    = "poll"
	TypePollOpt = "pollopt"
)

// Item represents a Hacker News item (story, comment, etc.)
type Item struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by,omitempty"`
	Time        int64  `json:"time"`
	Text        string `json:"text,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Score       int    `json:"score,omitempty"`
	Descendants int    `json:"descendants,omitempty"`
	Kids        []int  `json:"kids,omitempty"`
	Parent      int    `json:"parent,omitempty"`
	Poll        int    `json:"poll,omitempty"`
	Parts       []int  `json:"parts,omitempty"`
	Dead        bool   `json:"dead,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`
}

func (it *Item) IsStory() bool   { return it.Type == TypeStory }
func (it *Item) IsComment() bool { return it.Type == TypeComment }

// Created returns the item timestamp. Items without one report the Unix epoch.
func (it *Item) Created() time.Time {
	return time.Unix(it.Time, 0).UTC()
}

// PlainText returns Text with markup removed and entities decoded.
// Paragraph tags become blank lines.
func (it *Item) PlainText() string {
	if it.Text == "" {
		return ""
	}
	s := strings.ReplaceAll(it.Text, "<p>", "\n\n")
	s = strip.StripTags(s)
	return strings.TrimSpace(html.UnescapeString(s))
}

// User is a Hacker News account.
type User struct {
	ID        string `json:"id"`
	About     string `json:"about,omitempty"`
	Created   int64  `json:"created"`
	Delay     int    `json:"delay,omitempty"`
	Karma     int    `json:"karma"`
	Submitted []int  `json:"submitted,omitempty"`
}

// Feed names one of the ranked story id lists.
type Feed string

const (
	FeedTop  Feed = "top"
	FeedNew  Feed = "new"
	FeedBest Feed = "best"
	FeedAsk  Feed = "ask"
	FeedShow Feed = "show"
	FeedJob  Feed = "job"
)

// Feeds lists every supported feed.
var Feeds = []Feed{FeedTop, FeedNew, FeedBest, FeedAsk, FeedShow, FeedJob}

// ParseFeed validates a feed name. The empty string selects FeedTop.
func ParseFeed(s string) (Feed, error) {
	if s == "" {
		return FeedTop, nil
	}
	for _, f := range Feeds {
		if string(f) == s {
			return f, nil
		}
	}
	return "", &FeedError{Name: s}
}

// FeedError reports an unknown feed name.
type FeedError struct {
	Name string
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("unknown feed %q", e.Name)
}

func (f Feed) path() string {
	return "/" + string(f) + "stories.json"
}
