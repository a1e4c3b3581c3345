// Package readability turns the page behind a story URL into reader-mode content.
package readability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	goreadability "github.com/go-shiori/go-readability"
	strip "github.com/grokify/html-strip-tags-go"
)

const (
	fetchTimeout = 30 * time.Second
	maxBodySize  = 1 << 20 // 1 MiB
	userAgent    = "hn-feed/1.0"
)

// ErrNoContent is returned when a page parses but yields no readable text.
var ErrNoContent = errors.New("no content extracted")

// Article holds extracted reader-mode content.
type Article struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Byline  string `json:"byline,omitempty"`
	Content string `json:"content"` // cleaned HTML
	Text    string `json:"text"`
	Excerpt string `json:"excerpt,omitempty"`
}

type Extractor struct {
	http *http.Client
}

// NewExtractor returns an Extractor using hc, or a dedicated client with
// transport-level timeouts when hc is nil.
func NewExtractor(hc *http.Client) *Extractor {
	if hc == nil {
		hc = &http.Client{
			Timeout: fetchTimeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				MaxIdleConns:          20,
				MaxIdleConnsPerHost:   5,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}
	return &Extractor{http: hc}
}

// Extract fetches a URL and extracts reader-mode content.
// The provided context is used as a parent; a 30-second timeout is applied on top.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Article, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response exceeds %d bytes", maxBodySize)
	}

	article, err := goreadability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability extract: %w", err)
	}
	if article.Content == "" {
		return nil, ErrNoContent
	}

	return &Article{
		URL:     rawURL,
		Title:   article.Title,
		Byline:  article.Byline,
		Content: article.Content,
		Text:    plainText(article.Content),
		Excerpt: article.Excerpt,
	}, nil
}

func plainText(content string) string {
	s := strings.NewReplacer("</p>", "\n\n", "<br>", "\n", "<br/>", "\n").Replace(content)
	return strings.TrimSpace(html.UnescapeString(strip.StripTags(s)))
}
